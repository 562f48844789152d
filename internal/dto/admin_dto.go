package dto

import (
	"time"

	"github.com/lshigami/roleplay-sim/internal/engine"
)

// ServiceLevelCreateDTO describes one level of a new service. TimeLimit is in
// milliseconds; omit it or send -1 for an unlimited level. FreeSectionNames
// skips the "<Letter>. <Title>" check on section names.
type ServiceLevelCreateDTO struct {
	Name             string                `json:"name" binding:"required" validate:"required"`
	Difficulty       string                `json:"difficulty"`
	TimeLimit        *int64                `json:"time_limit" validate:"omitempty,min=-1"`
	FormQuestions    []engine.FormQuestion `json:"form_questions" validate:"dive"`
	FreeSectionNames bool                  `json:"free_section_names"`
}

type ServiceCreateDTO struct {
	OrganizationID uint                    `json:"organization_id" binding:"required" validate:"required"`
	Name           string                  `json:"name" binding:"required" validate:"required"`
	Description    string                  `json:"description,omitempty"`
	Levels         []ServiceLevelCreateDTO `json:"levels" binding:"required,min=1" validate:"required,min=1,dive"`
}

type ServiceLevelResponseDTO struct {
	ID            uint                  `json:"id"`
	ServiceID     uint                  `json:"service_id"`
	Name          string                `json:"name"`
	Difficulty    string                `json:"difficulty,omitempty"`
	TimeLimit     *int64                `json:"time_limit,omitempty"`
	FormQuestions []engine.FormQuestion `json:"form_questions"`
}

type ServiceResponseDTO struct {
	ID             uint                      `json:"id"`
	OrganizationID uint                      `json:"organization_id"`
	Name           string                    `json:"name"`
	Description    string                    `json:"description,omitempty"`
	Levels         []ServiceLevelResponseDTO `json:"levels"`
	CreatedAt      time.Time                 `json:"created_at"`
}
