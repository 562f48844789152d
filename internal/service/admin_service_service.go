package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/lshigami/roleplay-sim/internal/dto"
	"github.com/lshigami/roleplay-sim/internal/engine"
	"github.com/lshigami/roleplay-sim/internal/model"
	"github.com/lshigami/roleplay-sim/internal/repository"
	"github.com/rs/zerolog/log"
)

type AdminServiceService interface {
	CreateService(ctx context.Context, req dto.ServiceCreateDTO) (*dto.ServiceResponseDTO, error)
}

type adminServiceService struct {
	serviceRepo repository.ServiceRepository
	validate    *validator.Validate
}

func NewAdminServiceService(serviceRepo repository.ServiceRepository) AdminServiceService {
	return &adminServiceService{serviceRepo: serviceRepo, validate: validator.New()}
}

func (s *adminServiceService) CreateService(ctx context.Context, req dto.ServiceCreateDTO) (*dto.ServiceResponseDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	levels := make([]model.ServiceLevel, 0, len(req.Levels))
	for i, levelDto := range req.Levels {
		if err := validateFormQuestions(levelDto); err != nil {
			return nil, fmt.Errorf("%w: level %d (%s): %v", ErrInvalidInput, i+1, levelDto.Name, err)
		}

		var levelModel model.ServiceLevel
		if err := copier.Copy(&levelModel, &levelDto); err != nil {
			return nil, fmt.Errorf("error preparing service level: %w", err)
		}
		if levelModel.TimeLimit == nil || *levelModel.TimeLimit < 0 {
			unlimited := model.UnlimitedTimeLimit
			levelModel.TimeLimit = &unlimited
		}
		if levelModel.FormQuestions == nil {
			levelModel.FormQuestions = []engine.FormQuestion{}
		}
		levels = append(levels, levelModel)
	}

	serviceModel := model.Service{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Levels:         levels,
	}
	if err := s.serviceRepo.Create(ctx, &serviceModel); err != nil {
		log.Error().Err(err).Msg("Failed to create service in database")
		return nil, fmt.Errorf("database error creating service: %w", err)
	}

	created, err := s.serviceRepo.FindByIDWithLevels(ctx, serviceModel.ID)
	if err != nil {
		log.Error().Err(err).Uint("serviceID", serviceModel.ID).Msg("Failed to retrieve newly created service with levels for response")
		created = &serviceModel
	}

	var resp dto.ServiceResponseDTO
	if err := copier.Copy(&resp, created); err != nil {
		log.Error().Err(err).Msg("Failed to copy created Service model to ServiceResponseDTO")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	return &resp, nil
}

// validateFormQuestions enforces what scoring relies on: unique
// (section, question_no) keys and "<Letter>. <Title>" section names.
func validateFormQuestions(level dto.ServiceLevelCreateDTO) error {
	seen := make(map[[2]string]bool, len(level.FormQuestions))
	for _, q := range level.FormQuestions {
		key := [2]string{q.Section, q.QuestionNo}
		if seen[key] {
			return fmt.Errorf("duplicate question %q in section %q", q.QuestionNo, q.Section)
		}
		seen[key] = true

		if !level.FreeSectionNames && engine.SectionLetter(q.Section) == "" {
			return fmt.Errorf("section %q must be named \"<Letter>. <Title>\"", q.Section)
		}
	}
	return nil
}
