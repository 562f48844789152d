package repository

import (
	"context"

	"github.com/lshigami/roleplay-sim/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedbackRepository interface {
	FindBySimulationID(ctx context.Context, simulationID uint) (*model.SimulationFeedback, error)
	Upsert(ctx context.Context, feedback *model.SimulationFeedback) error
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) FindBySimulationID(ctx context.Context, simulationID uint) (*model.SimulationFeedback, error) {
	var feedback model.SimulationFeedback
	err := r.db.WithContext(ctx).Where("simulation_id = ?", simulationID).First(&feedback).Error
	if err != nil {
		return nil, notFound(err, "feedback for simulation", simulationID)
	}
	return &feedback, nil
}

func (r *feedbackRepository) Upsert(ctx context.Context, feedback *model.SimulationFeedback) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "simulation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"soft_skills", "summary", "updated_at"}),
	}).Create(feedback).Error
}
