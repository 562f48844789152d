package model

import (
	"time"

	"gorm.io/gorm"
)

// Service is a trainable roleplay scenario offered by an organization.
type Service struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	OrganizationID uint           `json:"organization_id" gorm:"not null;index"`
	Name           string         `json:"name" gorm:"not null"`
	Description    string         `json:"description,omitempty" gorm:"type:text"`
	Levels         []ServiceLevel `json:"levels,omitempty" gorm:"foreignKey:ServiceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
