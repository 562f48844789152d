package dto

import (
	"time"

	"github.com/lshigami/roleplay-sim/internal/engine"
)

type SimulationResponse struct {
	ID             uint                `json:"id"`
	UserID         uint                `json:"user_id"`
	ServiceID      uint                `json:"service_id"`
	ServiceLevelID uint                `json:"service_level_id"`
	StartedAt      *time.Time          `json:"started_at"`
	PausedAt       []time.Time         `json:"paused_at"`
	ResumedAt      []time.Time         `json:"resumed_at"`
	EndedAt        *time.Time          `json:"ended_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	FormAnswers    []engine.FormAnswer `json:"form_answers"`
	CreatedAt      time.Time           `json:"created_at"`
}

// UsedTimeResponse reports active time. RemainingMs is omitted for unlimited levels.
type UsedTimeResponse struct {
	SimulationID uint   `json:"simulation_id"`
	UsedTimeMs   int64  `json:"used_time_ms"`
	RemainingMs  *int64 `json:"remaining_ms,omitempty"`
	Paused       bool   `json:"paused"`
	Finished     bool   `json:"finished"`
}

// ActionResponse answers pause, resume, stop and cancel requests.
type ActionResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// ResultResponse is provisional while Finished is false.
type ResultResponse struct {
	SimulationID   uint                   `json:"simulation_id"`
	Finished       bool                   `json:"finished"`
	Scores         engine.Scores          `json:"scores"`
	HasAnsweredAll bool                   `json:"hasAnsweredAll"`
	IsCompetent    bool                   `json:"isCompetent"`
	SoftSkills     *engine.SoftSkillsData `json:"softSkills"`
}

type SimulationSummary struct {
	ID             uint       `json:"id"`
	ServiceLevelID uint       `json:"service_level_id"`
	StartedAt      *time.Time `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	OverallScore   int        `json:"overall_score"`
	OverallCorrect int        `json:"overall_correct"`
	OverallTotal   int        `json:"overall_total"`
}

// HistoryResponse lists completed attempts newest first. Previous is the
// attempt made before the current one, Next the one made after it.
type HistoryResponse struct {
	SimulationID uint                `json:"simulation_id"`
	Attempts     []SimulationSummary `json:"attempts"`
	Previous     *SimulationSummary  `json:"previous"`
	Next         *SimulationSummary  `json:"next"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

type SimulationListResponse struct {
	Items []SimulationSummary `json:"items"`
	Meta  PageMeta            `json:"meta"`
}

// NewPageMeta derives navigation flags from a page request and total count.
func NewPageMeta(page, perPage int, total int64) PageMeta {
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return PageMeta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
