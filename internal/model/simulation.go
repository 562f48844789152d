package model

import (
	"time"

	"github.com/lshigami/roleplay-sim/internal/engine"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SimulationResult is written once when a simulation is stopped.
type SimulationResult struct {
	SectionsScore  []engine.SectionScore `json:"sections_score"`
	OverallScore   int                   `json:"overall_score"` // percentage
	OverallCorrect int                   `json:"overall_correct"`
	OverallTotal   int                   `json:"overall_total"`
}

// Simulation is one learner's timed attempt at a service level.
// PauseCount and ResumeCount mirror len(PausedAt) and len(ResumedAt); they are
// the version checked by conditional pause/resume updates. AnswersVersion is
// bumped on every answer replacement.
type Simulation struct {
	ID               uint                                   `gorm:"primarykey" json:"id"`
	UserID           uint                                   `json:"user_id" gorm:"not null;index:idx_simulation_user_level,priority:1"`
	ServiceID        uint                                   `json:"service_id" gorm:"not null;index"`
	ServiceLevelID   uint                                   `json:"service_level_id" gorm:"not null;index:idx_simulation_user_level,priority:2"`
	ServiceLevel     ServiceLevel                           `json:"service_level,omitempty" gorm:"foreignKey:ServiceLevelID"`
	StartedAt        *time.Time                             `json:"started_at" gorm:"index"`
	PausedAt         datatypes.JSONSlice[time.Time]         `json:"paused_at"`
	ResumedAt        datatypes.JSONSlice[time.Time]         `json:"resumed_at"`
	PauseCount       int                                    `json:"-" gorm:"not null;default:0"`
	ResumeCount      int                                    `json:"-" gorm:"not null;default:0"`
	EndedAt          *time.Time                             `json:"ended_at,omitempty"`
	CancelledAt      *time.Time                             `json:"cancelled_at,omitempty"`
	FormAnswers      datatypes.JSONSlice[engine.FormAnswer] `json:"form_answers"`
	AnswersVersion   int                                    `json:"-" gorm:"not null;default:0"`
	SimulationResult *SimulationResult                      `json:"simulation_result,omitempty" gorm:"type:text;serializer:json"`
	Transcript       string                                 `json:"transcript,omitempty" gorm:"type:text"`
	CreatedAt        time.Time                              `json:"created_at"`
	UpdatedAt        time.Time                              `json:"updated_at"`
	DeletedAt        gorm.DeletedAt                         `gorm:"index" json:"-"`
}

// Timeline returns the lifecycle fields the timing rules work on.
func (s *Simulation) Timeline() engine.Timeline {
	return engine.Timeline{
		StartedAt:   s.StartedAt,
		PausedAt:    s.PausedAt,
		ResumedAt:   s.ResumedAt,
		EndedAt:     s.EndedAt,
		CancelledAt: s.CancelledAt,
	}
}

// Finished reports whether the simulation was ended or cancelled.
func (s *Simulation) Finished() bool {
	return s.EndedAt != nil || s.CancelledAt != nil
}
