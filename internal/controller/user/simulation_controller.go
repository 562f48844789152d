package user

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/roleplay-sim/internal/controller"
	"github.com/lshigami/roleplay-sim/internal/dto"
	"github.com/lshigami/roleplay-sim/internal/repository"
	"github.com/lshigami/roleplay-sim/internal/service"
	"github.com/rs/zerolog/log"
)

type SimulationController struct {
	simulationService service.SimulationService
	feedbackService   service.FeedbackService
}

func NewSimulationController(ss service.SimulationService, fs service.FeedbackService) *SimulationController {
	return &SimulationController{
		simulationService: ss,
		feedbackService:   fs,
	}
}

// StartSimulation godoc
// @Summary (User) Start a simulation
// @Description Starts a new timed attempt of a service level for a learner.
// @Tags User - Simulations
// @Accept json
// @Produce json
// @Param request body dto.StartSimulationRequest true "Learner and service level"
// @Success 201 {object} dto.SimulationResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Service level not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /simulations [post]
func (c *SimulationController) StartSimulation(ctx *gin.Context) {
	var req dto.StartSimulationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("StartSimulation: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	sim, err := c.simulationService.Start(ctx.Request.Context(), req.UserID, req.ServiceLevelID)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to start simulation")
		return
	}
	ctx.JSON(http.StatusCreated, sim)
}

// GetUsedTime godoc
// @Summary (User) Get active time of a simulation
// @Description Active time excludes paused intervals. remaining_ms is omitted for unlimited levels.
// @Tags User - Simulations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {object} dto.UsedTimeResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid Simulation ID format"
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Router /simulations/{id}/time [get]
func (c *SimulationController) GetUsedTime(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.simulationService.UsedTime(ctx.Request.Context(), id)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to compute used time")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// PauseSimulation godoc
// @Summary (User) Pause a simulation
// @Description accepted is false when the simulation is already paused or a concurrent request won.
// @Tags User - Simulations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {object} dto.ActionResponse
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 409 {object} dto.ErrorResponse "Simulation already ended"
// @Router /simulations/{id}/pause [post]
func (c *SimulationController) PauseSimulation(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.simulationService.Pause(ctx.Request.Context(), id)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to pause simulation")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ResumeSimulation godoc
// @Summary (User) Resume a paused simulation
// @Description accepted is false when the simulation is not paused or its time limit is spent.
// @Tags User - Simulations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {object} dto.ActionResponse
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 409 {object} dto.ErrorResponse "Simulation already ended"
// @Router /simulations/{id}/resume [post]
func (c *SimulationController) ResumeSimulation(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.simulationService.Resume(ctx.Request.Context(), id)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to resume simulation")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// UpdateFormAnswers godoc
// @Summary (User) Save form answers
// @Description Replaces every stored answer of a running simulation.
// @Tags User - Simulations
// @Accept json
// @Param id path int true "Simulation ID"
// @Param request body dto.FormAnswersRequest true "Complete answer list"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 409 {object} dto.ErrorResponse "Simulation already ended"
// @Router /simulations/{id}/answers [put]
func (c *SimulationController) UpdateFormAnswers(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.FormAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if err := c.simulationService.UpdateFormAnswers(ctx.Request.Context(), id, req.Answers); err != nil {
		controller.RespondError(ctx, err, "Failed to save answers")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// UpdateTranscript godoc
// @Summary (User) Save the roleplay transcript
// @Tags User - Simulations
// @Accept json
// @Param id path int true "Simulation ID"
// @Param request body dto.TranscriptRequest true "Conversation transcript"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 409 {object} dto.ErrorResponse "Simulation already ended"
// @Router /simulations/{id}/transcript [put]
func (c *SimulationController) UpdateTranscript(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.TranscriptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if err := c.simulationService.UpdateTranscript(ctx.Request.Context(), id, req.Transcript); err != nil {
		controller.RespondError(ctx, err, "Failed to save transcript")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// StopSimulation godoc
// @Summary (User) Stop and score a simulation
// @Description Scores the given answers (or the stored ones when the body is empty) and records the end time.
// @Tags User - Simulations
// @Accept json
// @Produce json
// @Param id path int true "Simulation ID"
// @Param request body dto.FormAnswersRequest false "Final answers"
// @Success 200 {object} dto.ActionResponse
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 409 {object} dto.ErrorResponse "Simulation already ended or answers changed during stop"
// @Router /simulations/{id}/stop [post]
func (c *SimulationController) StopSimulation(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	// An empty body (io.EOF) means "score the stored answers".
	var req dto.FormAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	resp, err := c.simulationService.Stop(ctx.Request.Context(), id, req.Answers)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to stop simulation")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// CancelSimulation godoc
// @Summary (User) Cancel a simulation
// @Tags User - Simulations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {object} dto.ActionResponse
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 409 {object} dto.ErrorResponse "Simulation already ended"
// @Router /simulations/{id}/cancel [post]
func (c *SimulationController) CancelSimulation(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.simulationService.Cancel(ctx.Request.Context(), id)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to cancel simulation")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetResult godoc
// @Summary (User) Get the scored result of a simulation
// @Description Section scores, completeness, competency verdict and soft skill ratings (null when not rated). Figures are provisional until the simulation is stopped (finished=false).
// @Tags User - Simulations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {object} dto.ResultResponse
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Router /simulations/{id}/result [get]
func (c *SimulationController) GetResult(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.simulationService.Result(ctx.Request.Context(), id)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to build result")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetHistory godoc
// @Summary (User) Get attempt history around a simulation
// @Description Completed attempts of the same learner and level, newest first, with previous/next neighbours.
// @Tags User - Simulations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {object} dto.HistoryResponse
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Router /simulations/{id}/history [get]
func (c *SimulationController) GetHistory(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.simulationService.History(ctx.Request.Context(), id)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to load history")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListUserSimulations godoc
// @Summary (User) List a learner's simulations
// @Tags User - Simulations
// @Produce json
// @Param user_id path int true "User ID"
// @Param page query int false "Page number, 1-based"
// @Param per_page query int false "Page size (max 100)"
// @Param sort_by query string false "started_at | ended_at | created_at"
// @Param sort_order query string false "asc | desc"
// @Success 200 {object} dto.SimulationListResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid User ID format"
// @Router /users/{user_id}/simulations [get]
func (c *SimulationController) ListUserSimulations(ctx *gin.Context) {
	userID, ok := controller.ParseIDParam(ctx, "user_id")
	if !ok {
		return
	}
	var q dto.ListSimulationsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid query parameters", Details: []string{err.Error()}})
		return
	}

	page := repository.NewPage(q.Page, q.PerPage, q.SortBy, q.SortOrder,
		repository.AttemptPageOptions, "started_at", repository.SimulationSortColumns...)
	resp, err := c.simulationService.List(ctx.Request.Context(), userID, page)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to list simulations")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GenerateSoftSkills godoc
// @Summary (User) Rate soft skills from the transcript
// @Description Sends the stored transcript to the rater and stores the ratings.
// @Tags User - Simulations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {object} engine.SoftSkillsData
// @Failure 400 {object} dto.ErrorResponse "Simulation has no transcript"
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 503 {object} dto.ErrorResponse "Rater unavailable"
// @Router /simulations/{id}/soft-skills [post]
func (c *SimulationController) GenerateSoftSkills(ctx *gin.Context) {
	id, ok := controller.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.feedbackService.GenerateSoftSkills(ctx.Request.Context(), id)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to rate soft skills")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
