package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is a provider-owned business profile that lists services.
// Descriptive fields stay editable; the registry identity does not change
// after creation.
type Organization struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UUID           string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	Name           string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Description    string         `gorm:"type:text" json:"description" validate:"max=5000"`
	RegistryNumber string         `gorm:"type:varchar(100);default:''" json:"registry_number" validate:"max=100"`
	City           string         `gorm:"type:varchar(150);default:''" json:"city" validate:"max=150"`
	Website        string         `gorm:"type:varchar(255);default:''" json:"website" validate:"omitempty,url,max=255"`
	Services       []Service      `gorm:"foreignKey:OrganizationID" json:"services,omitempty"`
	Members        []User         `gorm:"foreignKey:OrganizationID" json:"-"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (o *Organization) Validate() error {
	v := validator.New()

	return v.Struct(o)
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == "" {
		o.UUID = uuid.New().String()
	}
	return nil
}
