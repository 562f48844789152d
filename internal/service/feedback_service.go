package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lshigami/roleplay-sim/internal/engine"
	"github.com/lshigami/roleplay-sim/internal/model"
	"github.com/lshigami/roleplay-sim/internal/repository"
	"github.com/rs/zerolog/log"
)

type FeedbackService interface {
	// GenerateSoftSkills rates the simulation transcript and stores the result.
	GenerateSoftSkills(ctx context.Context, simulationID uint) (*engine.SoftSkillsData, error)
	// SoftSkills returns the parsed stored ratings, or nil when none exist.
	SoftSkills(ctx context.Context, simulationID uint) (*engine.SoftSkillsData, error)
}

type feedbackService struct {
	simRepo      repository.SimulationRepository
	feedbackRepo repository.FeedbackRepository
	rater        SoftSkillRater
}

func NewFeedbackService(simRepo repository.SimulationRepository, feedbackRepo repository.FeedbackRepository, rater SoftSkillRater) FeedbackService {
	return &feedbackService{simRepo: simRepo, feedbackRepo: feedbackRepo, rater: rater}
}

func (s *feedbackService) GenerateSoftSkills(ctx context.Context, simulationID uint) (*engine.SoftSkillsData, error) {
	sim, err := s.simRepo.FindByID(ctx, simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation: %w", err)
	}
	if strings.TrimSpace(sim.Transcript) == "" {
		return nil, fmt.Errorf("%w: simulation %d has no transcript", ErrInvalidInput, simulationID)
	}

	raw, err := s.rater.RateSoftSkills(ctx, sim.Transcript)
	if err != nil {
		log.Error().Err(err).Uint("simulationID", simulationID).Msg("Soft skill rating failed")
		return nil, fmt.Errorf("soft skill rating failed: %w", err)
	}

	feedback := &model.SimulationFeedback{SimulationID: simulationID, SoftSkills: &raw}
	if err := s.feedbackRepo.Upsert(ctx, feedback); err != nil {
		log.Error().Err(err).Uint("simulationID", simulationID).Msg("Failed to store simulation feedback")
		return nil, fmt.Errorf("database error storing feedback: %w", err)
	}
	log.Info().Uint("simulationID", simulationID).Str("softSkills", raw).Msg("Soft skills rated")
	return engine.ParseSoftSkills(&raw), nil
}

func (s *feedbackService) SoftSkills(ctx context.Context, simulationID uint) (*engine.SoftSkillsData, error) {
	feedback, err := s.feedbackRepo.FindBySimulationID(ctx, simulationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error loading feedback: %w", err)
	}
	return engine.ParseSoftSkills(feedback.SoftSkills), nil
}
