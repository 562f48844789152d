package repository

import (
	"context"

	"github.com/lshigami/roleplay-sim/internal/model"
	"gorm.io/gorm"
)

type ServiceRepository interface {
	Create(ctx context.Context, service *model.Service) error
	FindByIDWithLevels(ctx context.Context, id uint) (*model.Service, error)
}

type serviceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	// Levels are created through the association.
	return r.db.WithContext(ctx).Create(service).Error
}

func (r *serviceRepository) FindByIDWithLevels(ctx context.Context, id uint) (*model.Service, error) {
	var service model.Service
	err := r.db.WithContext(ctx).
		Preload("Levels", func(db *gorm.DB) *gorm.DB {
			return db.Order("service_levels.id ASC")
		}).
		First(&service, id).Error
	if err != nil {
		return nil, notFound(err, "service", id)
	}
	return &service, nil
}
