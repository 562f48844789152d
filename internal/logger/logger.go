package logger

import (
	"os"
	"strings"
	"time"

	"github.com/lshigami/roleplay-sim/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs a human readable console logger on the global zerolog instance.
// Call it before anything logs; Configure replaces it once config is loaded.
func Init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// Configure switches to JSON output outside development and applies LOG_LEVEL.
func Configure(cfg *config.Config) {
	if !cfg.IsDevelopment() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(ParseLevel(cfg.LogLevel))
}

func ParseLevel(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
