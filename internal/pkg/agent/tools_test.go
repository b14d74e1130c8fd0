package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
)

func TestRequiredTier(t *testing.T) {
	assert.Equal(t, entitlements.TierBasic, RequiredTier(ToolWeather))
	assert.Equal(t, entitlements.TierPremium, RequiredTier(ToolLogo))
	// Unknown tools fail closed.
	assert.Equal(t, entitlements.TierBusiness, RequiredTier("video"))
	assert.Equal(t, entitlements.TierBusiness, RequiredTier(""))
}
