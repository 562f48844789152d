package model

import (
	"time"

	"gorm.io/gorm"
)

// SimulationFeedback holds the rater's free-text output for a simulation.
// SoftSkills has the form "Skill: score/total, Skill2: score/total".
type SimulationFeedback struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	SimulationID uint           `json:"simulation_id" gorm:"not null;uniqueIndex"`
	SoftSkills   *string        `json:"soft_skills,omitempty" gorm:"type:text"`
	Summary      string         `json:"summary,omitempty" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
