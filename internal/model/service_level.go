package model

import (
	"time"

	"github.com/lshigami/roleplay-sim/internal/engine"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UnlimitedTimeLimit is the stored time_limit meaning "no limit".
const UnlimitedTimeLimit int64 = -1

// ServiceLevel is one difficulty tier of a service: its answer key and time limit.
type ServiceLevel struct {
	ID            uint                                     `gorm:"primarykey" json:"id"`
	ServiceID     uint                                     `json:"service_id" gorm:"not null;index"`
	Name          string                                   `json:"name" gorm:"not null"`
	Difficulty    string                                   `json:"difficulty,omitempty"`
	TimeLimit     *int64                                   `json:"time_limit,omitempty"` // milliseconds, -1 = unlimited
	FormQuestions datatypes.JSONSlice[engine.FormQuestion] `json:"form_questions"`
	CreatedAt     time.Time                                `json:"created_at"`
	UpdatedAt     time.Time                                `json:"updated_at"`
	DeletedAt     gorm.DeletedAt                           `gorm:"index" json:"-"`
}

// Limit translates the stored time_limit into the engine's option type.
func (l *ServiceLevel) Limit() engine.TimeLimit {
	return engine.LimitFromMillis(l.TimeLimit)
}
