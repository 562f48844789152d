package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/roleplay-sim/config"
	"github.com/rs/zerolog/log"
)

const (
	EventSimulationPaused    = "simulation.paused"
	EventSimulationResumed   = "simulation.resumed"
	EventSimulationStopped   = "simulation.stopped"
	EventSimulationCancelled = "simulation.cancelled"
)

type Event struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	SimulationID uint      `json:"simulation_id"`
	UserID       uint      `json:"user_id"`
	UsedTimeMs   int64     `json:"used_time_ms"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func NewEvent(eventType string, simulationID, userID uint, usedTime time.Duration, at time.Time) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		SimulationID: simulationID,
		UserID:       userID,
		UsedTimeMs:   usedTime.Milliseconds(),
		OccurredAt:   at.UTC(),
	}
}

// Notifier delivers simulation lifecycle events to connected clients.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NewNotifier returns a redis-backed notifier when REDIS_ADDR is set and
// reachable, and a log-only notifier otherwise.
func NewNotifier(cfg *config.Config) Notifier {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("REDIS_ADDR is not set, simulation events will only be logged")
		return NewLogNotifier()
	}
	n, err := NewRedisNotifier(cfg.Redis.Addr, cfg.Redis.Channel)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, falling back to log notifier")
		return NewLogNotifier()
	}
	return n
}

type logNotifier struct{}

func NewLogNotifier() Notifier { return logNotifier{} }

func (logNotifier) Publish(_ context.Context, ev Event) error {
	log.Info().
		Str("eventID", ev.ID).
		Str("type", ev.Type).
		Uint("simulationID", ev.SimulationID).
		Uint("userID", ev.UserID).
		Int64("usedTimeMs", ev.UsedTimeMs).
		Msg("simulation event")
	return nil
}

func (logNotifier) Close() error { return nil }
