package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
)

const (
	ROLE_CLIENT   = "client"
	ROLE_PROVIDER = "provider"
	ROLE_ADMIN    = "admin"
)

// bcryptCost is deliberately above the library default.
const bcryptCost = 12

type User struct {
	ID                uint                            `gorm:"primaryKey" json:"id"`
	Name              string                          `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email             string                          `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password          string                          `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role              string                          `gorm:"type:varchar(50);default:'client'" json:"role" validate:"oneof=client provider admin"`
	OrganizationID    *uint                           `gorm:"index" json:"organization_id,omitempty"`
	Plan              entitlements.Plan               `gorm:"type:varchar(50);default:'free'" json:"plan"`
	SubscriptionState entitlements.SubscriptionStatus `gorm:"column:subscription_status;type:varchar(50);default:'active'" json:"subscription_status"`
	SubscriptionStart *time.Time                      `gorm:"type:timestamp;default:null" json:"subscription_start,omitempty"`
	SubscriptionEnd   *time.Time                      `gorm:"type:timestamp;default:null" json:"subscription_end,omitempty"`
	TrialUsed         bool                            `gorm:"default:false" json:"trial_used"`
	StripeCustomerID  string                          `gorm:"type:varchar(191);default:'';index" json:"-"`
	LastLoginAt       *time.Time                      `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt         time.Time                       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt                  `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// AfterFind normalizes subscription fields read from the database. Rows
// touched by hand or by older versions fall back to the weakest values
// instead of granting access on an unrecognized plan or status.
func (u *User) AfterFind(tx *gorm.DB) error {
	u.Plan = entitlements.NormalizePlan(string(u.Plan))
	u.SubscriptionState = entitlements.NormalizeStatus(string(u.SubscriptionState))
	return nil
}

// CreateUser builds a validated user with a hashed password. New accounts
// always start on the free plan with an active subscription state.
func CreateUser(name string, email string, password string, role string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:              name,
		Email:             email,
		Password:          pw,
		Role:              role,
		Plan:              entitlements.PlanFree,
		SubscriptionState: entitlements.StatusActive,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// CanAccess reports whether the user's subscription grants the capability tier.
func (u *User) CanAccess(tier entitlements.Tier) bool {
	if u == nil {
		return false
	}
	return entitlements.CanAccess(u.Plan, u.SubscriptionState, u.SubscriptionEnd, tier)
}

// IsProvider reports whether the user may manage organizations and services.
func (u *User) IsProvider() bool {
	return u.Role == ROLE_PROVIDER
}

// IsAdmin reports whether the user has administrative access.
func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}
