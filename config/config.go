package config

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv       string
	LogLevel     string
	Server       Server
	Database     Database
	Redis        Redis
	Scoring      Scoring
	GeminiApiKey string
}

type Server struct {
	Port string
}
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Redis is optional; an empty Addr disables pub/sub notifications.
type Redis struct {
	Addr    string
	Channel string
}

type Scoring struct {
	MistakeThreshold int
	// ExcludedSections holds section letters such as "C".
	ExcludedSections []string
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_CHANNEL", "simulations")
	viper.SetDefault("COMPETENCY_MISTAKE_THRESHOLD", 4)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.AppEnv = viper.GetString("APP_ENV")
	config.LogLevel = viper.GetString("LOG_LEVEL")
	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Channel = viper.GetString("REDIS_CHANNEL")

	config.Scoring.MistakeThreshold = viper.GetInt("COMPETENCY_MISTAKE_THRESHOLD")
	config.Scoring.ExcludedSections = splitList(viper.GetString("EXCLUDED_SECTIONS"))

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")

	log.Info().
		Str("env", config.AppEnv).
		Str("port", config.Server.Port).
		Str("dbHost", config.Database.Host).
		Str("redis", config.Redis.Addr).
		Strs("excludedSections", config.Scoring.ExcludedSections).
		Msg("Config loaded")
	return &config, nil

}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "" || c.AppEnv == "development"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
