package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
)

func TestCreateUserDefaults(t *testing.T) {
	user, err := CreateUser("Maria Chef", "maria@example.com", "Secret123", ROLE_PROVIDER)
	require.NoError(t, err)

	assert.Equal(t, entitlements.PlanFree, user.Plan)
	assert.Equal(t, entitlements.StatusActive, user.SubscriptionState)
	assert.False(t, user.TrialUsed)
	assert.True(t, user.IsProvider())
	assert.False(t, user.IsAdmin())
	// Password is stored hashed, never in the clear.
	assert.NotEqual(t, "Secret123", user.Password)
	assert.True(t, user.CheckPassword("Secret123"))
	assert.False(t, user.CheckPassword("secret123"))
}

func TestCreateUserValidation(t *testing.T) {
	_, err := CreateUser("Al", "not-an-email", "Secret123", ROLE_CLIENT)
	assert.Error(t, err)

	_, err = CreateUser("", "maria@example.com", "Secret123", ROLE_CLIENT)
	assert.Error(t, err)
}

func TestPasswordHashIsSalted(t *testing.T) {
	h1, err := HashPassword("Secret123")
	require.NoError(t, err)
	h2, err := HashPassword("Secret123")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, CheckPasswordHash("Secret123", h1))
	assert.True(t, CheckPasswordHash("Secret123", h2))
	assert.False(t, CheckPasswordHash("wrong", h1))
}

func TestSetPassword(t *testing.T) {
	user := &User{}
	require.NoError(t, user.SetPassword("NewSecret1"))
	assert.True(t, user.CheckPassword("NewSecret1"))
}

func TestUserAfterFindNormalizesSubscriptionFields(t *testing.T) {
	u := &User{
		Plan:              "Enterprise",
		SubscriptionState: "paused",
	}
	require.NoError(t, u.AfterFind(nil))

	// Unrecognized values fall back to the weakest plan and status.
	assert.Equal(t, entitlements.PlanFree, u.Plan)
	assert.Equal(t, entitlements.StatusExpired, u.SubscriptionState)

	u = &User{Plan: "premium", SubscriptionState: "trial"}
	require.NoError(t, u.AfterFind(nil))
	assert.Equal(t, entitlements.PlanPremium, u.Plan)
	assert.Equal(t, entitlements.StatusTrial, u.SubscriptionState)
}

func TestUserCanAccess(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	premium := &User{Plan: entitlements.PlanPremium, SubscriptionState: entitlements.StatusActive, SubscriptionEnd: &future}
	assert.True(t, premium.CanAccess(entitlements.TierPremium))
	assert.False(t, premium.CanAccess(entitlements.TierBusiness))

	lapsed := &User{Plan: entitlements.PlanPremium, SubscriptionState: entitlements.StatusActive, SubscriptionEnd: &past}
	assert.False(t, lapsed.CanAccess(entitlements.TierPremium))
	assert.True(t, lapsed.CanAccess(entitlements.TierBasic))

	var nilUser *User
	assert.False(t, nilUser.CanAccess(entitlements.TierBasic))
}
