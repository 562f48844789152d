package repository

import (
	"context"

	"github.com/lshigami/roleplay-sim/internal/model"
	"gorm.io/gorm"
)

type ServiceLevelRepository interface {
	FindByID(ctx context.Context, id uint) (*model.ServiceLevel, error)
}

type serviceLevelRepository struct {
	db *gorm.DB
}

func NewServiceLevelRepository(db *gorm.DB) ServiceLevelRepository {
	return &serviceLevelRepository{db: db}
}

func (r *serviceLevelRepository) FindByID(ctx context.Context, id uint) (*model.ServiceLevel, error) {
	var level model.ServiceLevel
	if err := r.db.WithContext(ctx).First(&level, id).Error; err != nil {
		return nil, notFound(err, "service level", id)
	}
	return &level, nil
}
