package models

import (
	"time"

	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
)

// BillingCheckoutSession records who started a hosted checkout and for which
// plan. The confirmation fallback endpoint checks the recorded owner against
// the authenticated caller before applying the upgrade, so one account cannot
// claim a plan paid for through another account's session.
type BillingCheckoutSession struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	SessionID string            `gorm:"type:varchar(191);not null;uniqueIndex" json:"session_id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	Plan      entitlements.Plan `gorm:"type:varchar(50);not null" json:"plan"`
	Completed bool              `gorm:"default:false" json:"completed"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
