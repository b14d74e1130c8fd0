package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DeliveryModeIRL    = "irl"
	DeliveryModeOnline = "online"
	DeliveryModeMixed  = "mixed"
)

const (
	BillingCadenceOneOff  = "one_off"
	BillingCadenceHourly  = "hourly"
	BillingCadenceMonthly = "monthly"
)

// Service is a marketplace listing owned by exactly one organization.
// Prices are stored in cents.
type Service struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UUID           string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	Title          string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Description    string         `gorm:"type:text" json:"description" validate:"max=5000"`
	PriceMin       int64          `gorm:"not null;default:0" json:"price_min" validate:"gte=0"`
	PriceMax       int64          `gorm:"not null;default:0" json:"price_max" validate:"gte=0"`
	DeliveryMode   string         `gorm:"type:varchar(20);not null;default:'irl'" json:"delivery_mode" validate:"oneof=irl online mixed"`
	BillingCadence string         `gorm:"type:varchar(20);not null;default:'one_off'" json:"billing_cadence" validate:"oneof=one_off hourly monthly"`
	Tags           string         `gorm:"type:varchar(500);default:''" json:"tags"`
	AIReplaceable  bool           `gorm:"default:false" json:"ai_replaceable"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Service) Validate() error {
	if s.PriceMax < s.PriceMin {
		return ErrPriceRangeInverted
	}
	v := validator.New()

	return v.Struct(s)
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == "" {
		s.UUID = uuid.New().String()
	}
	return nil
}

// TagList splits the stored comma-separated tags into a cleaned slice.
func (s *Service) TagList() []string {
	if strings.TrimSpace(s.Tags) == "" {
		return nil
	}
	parts := strings.Split(s.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, strings.ToLower(t))
		}
	}
	return tags
}

// SetTagList normalizes and stores a tag slice as comma-separated text.
func (s *Service) SetTagList(tags []string) {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	s.Tags = strings.Join(cleaned, ",")
}
