package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/roleplay-sim/config"
	"github.com/lshigami/roleplay-sim/internal/dto"
	"github.com/lshigami/roleplay-sim/internal/engine"
	"github.com/lshigami/roleplay-sim/internal/model"
	"github.com/lshigami/roleplay-sim/internal/realtime"
	"github.com/lshigami/roleplay-sim/internal/repository"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSimulationEnded is returned when a simulation was already stopped or cancelled.
	ErrSimulationEnded = errors.New("simulation has already ended")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrConcurrentUpdate is returned when a stop keeps losing to answer updates.
	ErrConcurrentUpdate = errors.New("simulation was modified concurrently")
)

type SimulationService interface {
	Start(ctx context.Context, userID, serviceLevelID uint) (*dto.SimulationResponse, error)
	UsedTime(ctx context.Context, id uint) (*dto.UsedTimeResponse, error)
	Pause(ctx context.Context, id uint) (*dto.ActionResponse, error)
	Resume(ctx context.Context, id uint) (*dto.ActionResponse, error)
	UpdateFormAnswers(ctx context.Context, id uint, answers []engine.FormAnswer) error
	UpdateTranscript(ctx context.Context, id uint, transcript string) error
	Stop(ctx context.Context, id uint, answers []engine.FormAnswer) (*dto.ActionResponse, error)
	Cancel(ctx context.Context, id uint) (*dto.ActionResponse, error)
	Result(ctx context.Context, id uint) (*dto.ResultResponse, error)
	History(ctx context.Context, id uint) (*dto.HistoryResponse, error)
	List(ctx context.Context, userID uint, page repository.Page) (*dto.SimulationListResponse, error)
}

type simulationService struct {
	simRepo   repository.SimulationRepository
	levelRepo repository.ServiceLevelRepository
	feedback  FeedbackService
	notifier  realtime.Notifier
	scoreOpts engine.ScoreOptions
	threshold int
	now       func() time.Time
}

func NewSimulationService(
	simRepo repository.SimulationRepository,
	levelRepo repository.ServiceLevelRepository,
	feedback FeedbackService,
	notifier realtime.Notifier,
	cfg *config.Config,
) SimulationService {
	excluded := make(map[string]bool, len(cfg.Scoring.ExcludedSections))
	for _, letter := range cfg.Scoring.ExcludedSections {
		excluded[letter] = true
	}
	threshold := cfg.Scoring.MistakeThreshold
	if threshold < 0 {
		threshold = engine.DefaultMistakeThreshold
	}
	return &simulationService{
		simRepo:   simRepo,
		levelRepo: levelRepo,
		feedback:  feedback,
		notifier:  notifier,
		scoreOpts: engine.ScoreOptions{ExcludedSections: excluded},
		threshold: threshold,
		now:       time.Now,
	}
}

func (s *simulationService) Start(ctx context.Context, userID, serviceLevelID uint) (*dto.SimulationResponse, error) {
	level, err := s.levelRepo.FindByID(ctx, serviceLevelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service level: %w", err)
	}

	startedAt := s.now().UTC()
	sim := &model.Simulation{
		UserID:         userID,
		ServiceID:      level.ServiceID,
		ServiceLevelID: level.ID,
		StartedAt:      &startedAt,
	}
	if err := s.simRepo.Create(ctx, sim); err != nil {
		log.Error().Err(err).Uint("userID", userID).Uint("serviceLevelID", serviceLevelID).Msg("Failed to create simulation")
		return nil, fmt.Errorf("database error creating simulation: %w", err)
	}
	log.Info().Uint("simulationID", sim.ID).Uint("userID", userID).Msg("Simulation started")
	return toSimulationResponse(sim)
}

func (s *simulationService) UsedTime(ctx context.Context, id uint) (*dto.UsedTimeResponse, error) {
	sim, level, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	tl := sim.Timeline()

	resp := &dto.UsedTimeResponse{
		SimulationID: sim.ID,
		UsedTimeMs:   engine.UsedTimeMillis(tl, now),
		Paused:       tl.Paused(),
		Finished:     sim.Finished(),
	}
	if remaining, limited := engine.Remaining(tl, level.Limit(), now); limited {
		ms := remaining.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		resp.RemainingMs = &ms
	}
	return resp, nil
}

func (s *simulationService) Pause(ctx context.Context, id uint) (*dto.ActionResponse, error) {
	sim, err := s.findOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	if !engine.CanPause(sim.Timeline()) {
		return &dto.ActionResponse{Accepted: false, Message: "simulation is already paused"}, nil
	}

	now := s.now().UTC()
	ok, err := s.simRepo.AppendPause(ctx, sim, now)
	if err != nil {
		return nil, fmt.Errorf("database error pausing simulation: %w", err)
	}
	if !ok {
		log.Info().Uint("simulationID", id).Msg("Pause lost to a concurrent update")
		return &dto.ActionResponse{Accepted: false, Message: "simulation changed concurrently, pause not applied"}, nil
	}

	s.publish(ctx, realtime.EventSimulationPaused, sim, now)
	return &dto.ActionResponse{Accepted: true, Message: "simulation paused"}, nil
}

func (s *simulationService) Resume(ctx context.Context, id uint) (*dto.ActionResponse, error) {
	sim, err := s.findOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	level, err := s.levelRepo.FindByID(ctx, sim.ServiceLevelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service level: %w", err)
	}

	now := s.now().UTC()
	tl := sim.Timeline()
	if !engine.CanResume(tl, level.Limit(), now) {
		msg := "time limit reached"
		if !tl.Paused() {
			msg = "simulation is not paused"
		}
		return &dto.ActionResponse{Accepted: false, Message: msg}, nil
	}

	ok, err := s.simRepo.AppendResume(ctx, sim, now)
	if err != nil {
		return nil, fmt.Errorf("database error resuming simulation: %w", err)
	}
	if !ok {
		log.Info().Uint("simulationID", id).Msg("Resume lost to a concurrent update")
		return &dto.ActionResponse{Accepted: false, Message: "simulation changed concurrently, resume not applied"}, nil
	}

	s.publish(ctx, realtime.EventSimulationResumed, sim, now)
	return &dto.ActionResponse{Accepted: true, Message: "simulation resumed"}, nil
}

func (s *simulationService) UpdateFormAnswers(ctx context.Context, id uint, answers []engine.FormAnswer) error {
	if _, err := s.findOpen(ctx, id); err != nil {
		return err
	}
	ok, err := s.simRepo.ReplaceFormAnswers(ctx, id, answers)
	if err != nil {
		return fmt.Errorf("database error saving answers: %w", err)
	}
	if !ok {
		return ErrSimulationEnded
	}
	return nil
}

func (s *simulationService) UpdateTranscript(ctx context.Context, id uint, transcript string) error {
	if _, err := s.findOpen(ctx, id); err != nil {
		return err
	}
	ok, err := s.simRepo.UpdateTranscript(ctx, id, transcript)
	if err != nil {
		return fmt.Errorf("database error saving transcript: %w", err)
	}
	if !ok {
		return ErrSimulationEnded
	}
	return nil
}

// Stop scores the answers and records ended_at. A nil answers slice scores the
// answers already stored on the simulation.
// stopAttempts bounds how often Stop re-reads answers that keep changing under it.
const stopAttempts = 5

// Stop ends the simulation and scores it. With nil answers the stored ones are
// scored, and the update only lands if they were not replaced in the meantime.
func (s *simulationService) Stop(ctx context.Context, id uint, answers []engine.FormAnswer) (*dto.ActionResponse, error) {
	sim, err := s.findOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	level, err := s.levelRepo.FindByID(ctx, sim.ServiceLevelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service level: %w", err)
	}

	var (
		endedAt time.Time
		result  *model.SimulationResult
		ok      bool
	)
	if answers != nil {
		endedAt = engine.EndedAtTimestamp(sim.Timeline(), level.Limit(), s.now())
		result = s.grade(level, answers)
		ok, err = s.simRepo.Finish(ctx, id, endedAt, answers, result)
	} else {
		for attempt := 1; ; attempt++ {
			endedAt = engine.EndedAtTimestamp(sim.Timeline(), level.Limit(), s.now())
			result = s.grade(level, sim.FormAnswers)
			ok, err = s.simRepo.FinishWithStoredAnswers(ctx, sim, endedAt, result)
			if err != nil || ok {
				break
			}
			if sim, err = s.findOpen(ctx, id); err != nil {
				return nil, err
			}
			if attempt == stopAttempts {
				log.Warn().Uint("simulationID", id).Int("attempts", attempt).Msg("Stored answers kept changing during stop")
				return nil, ErrConcurrentUpdate
			}
		}
	}
	if err != nil {
		log.Error().Err(err).Uint("simulationID", id).Msg("Failed to finish simulation")
		return nil, fmt.Errorf("database error stopping simulation: %w", err)
	}
	if !ok {
		return nil, ErrSimulationEnded
	}

	sim.EndedAt = &endedAt
	s.publish(ctx, realtime.EventSimulationStopped, sim, endedAt)
	log.Info().
		Uint("simulationID", id).
		Int("score", result.OverallCorrect).
		Int("total", result.OverallTotal).
		Msg("Simulation stopped")
	return &dto.ActionResponse{Accepted: true, Message: "simulation stopped"}, nil
}

func (s *simulationService) grade(level *model.ServiceLevel, answers []engine.FormAnswer) *model.SimulationResult {
	scored := engine.Score(level.FormQuestions, answers, s.scoreOpts)
	return &model.SimulationResult{
		SectionsScore:  scored.Scores.Sections,
		OverallScore:   scored.Scores.Overall.Percentage,
		OverallCorrect: scored.Scores.Overall.Score,
		OverallTotal:   scored.Scores.Overall.Total,
	}
}

func (s *simulationService) Cancel(ctx context.Context, id uint) (*dto.ActionResponse, error) {
	sim, err := s.findOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	ok, err := s.simRepo.Cancel(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("database error cancelling simulation: %w", err)
	}
	if !ok {
		return nil, ErrSimulationEnded
	}

	sim.CancelledAt = &now
	s.publish(ctx, realtime.EventSimulationCancelled, sim, now)
	return &dto.ActionResponse{Accepted: true, Message: "simulation cancelled"}, nil
}

// Result grades the stored answers against the level's current answer key.
// For a running simulation the figures are provisional and Finished is false.
func (s *simulationService) Result(ctx context.Context, id uint) (*dto.ResultResponse, error) {
	sim, level, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	scored := engine.Score(level.FormQuestions, sim.FormAnswers, s.scoreOpts)
	softSkills, err := s.feedback.SoftSkills(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.ResultResponse{
		SimulationID:   sim.ID,
		Finished:       sim.Finished(),
		Scores:         scored.Scores,
		HasAnsweredAll: scored.HasAnsweredAll,
		IsCompetent:    engine.IsCompetent(scored.Scores.Overall.Score, scored.Scores.Overall.Total, s.threshold),
		SoftSkills:     softSkills,
	}, nil
}

func (s *simulationService) History(ctx context.Context, id uint) (*dto.HistoryResponse, error) {
	sim, err := s.simRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation: %w", err)
	}
	completed, err := s.simRepo.FindCompletedByUserAndLevel(ctx, sim.UserID, sim.ServiceLevelID)
	if err != nil {
		return nil, fmt.Errorf("database error loading attempts: %w", err)
	}

	attempts := toSummaries(completed)
	previous, next := engine.Neighbors(attempts, func(a dto.SimulationSummary) bool { return a.ID == id })
	return &dto.HistoryResponse{
		SimulationID: id,
		Attempts:     attempts,
		Previous:     previous,
		Next:         next,
	}, nil
}

func (s *simulationService) List(ctx context.Context, userID uint, page repository.Page) (*dto.SimulationListResponse, error) {
	sims, total, err := s.simRepo.ListByUser(ctx, userID, page)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("Failed to list simulations")
		return nil, fmt.Errorf("database error listing simulations: %w", err)
	}
	return &dto.SimulationListResponse{
		Items: toSummaries(sims),
		Meta:  dto.NewPageMeta(page.Page, page.PerPage, total),
	}, nil
}

func (s *simulationService) load(ctx context.Context, id uint) (*model.Simulation, *model.ServiceLevel, error) {
	sim, err := s.simRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load simulation: %w", err)
	}
	level, err := s.levelRepo.FindByID(ctx, sim.ServiceLevelID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load service level: %w", err)
	}
	return sim, level, nil
}

func (s *simulationService) findOpen(ctx context.Context, id uint) (*model.Simulation, error) {
	sim, err := s.simRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation: %w", err)
	}
	if sim.Finished() {
		return nil, ErrSimulationEnded
	}
	return sim, nil
}

// publish never fails the request; delivery errors are only logged.
func (s *simulationService) publish(ctx context.Context, eventType string, sim *model.Simulation, at time.Time) {
	ev := realtime.NewEvent(eventType, sim.ID, sim.UserID, engine.UsedTime(sim.Timeline(), at), at)
	if err := s.notifier.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("type", eventType).Uint("simulationID", sim.ID).Msg("Failed to publish simulation event")
	}
}

func toSimulationResponse(sim *model.Simulation) (*dto.SimulationResponse, error) {
	var resp dto.SimulationResponse
	if err := copier.Copy(&resp, sim); err != nil {
		log.Error().Err(err).Uint("simulationID", sim.ID).Msg("Failed to copy Simulation model to response")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	return &resp, nil
}

func toSummaries(sims []model.Simulation) []dto.SimulationSummary {
	out := make([]dto.SimulationSummary, 0, len(sims))
	for i := range sims {
		var summary dto.SimulationSummary
		if err := copier.Copy(&summary, &sims[i]); err != nil {
			log.Warn().Err(err).Uint("simulationID", sims[i].ID).Msg("Failed to copy simulation summary")
			summary.ID = sims[i].ID
		}
		if r := sims[i].SimulationResult; r != nil {
			summary.OverallScore = r.OverallScore
			summary.OverallCorrect = r.OverallCorrect
			summary.OverallTotal = r.OverallTotal
		}
		out = append(out, summary)
	}
	return out
}
