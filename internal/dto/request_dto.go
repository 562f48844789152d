package dto

import "github.com/lshigami/roleplay-sim/internal/engine"

// StartSimulationRequest starts a new attempt at a service level.
type StartSimulationRequest struct {
	UserID         uint `json:"user_id" binding:"required"`
	ServiceLevelID uint `json:"service_level_id" binding:"required"`
}

// FormAnswersRequest replaces the stored answers. Stop accepts the same body.
type FormAnswersRequest struct {
	Answers []engine.FormAnswer `json:"answers"`
}

type ListSimulationsQuery struct {
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

type TranscriptRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}
