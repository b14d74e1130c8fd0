package agent

import "github.com/gastrolink/gastrolink/internal/pkg/entitlements"

// Tool names as exposed by the API.
const (
	ToolWeather = "weather"
	ToolLogo    = "logo"
)

// RequiredTier returns the capability tier a tool needs. Unknown tools
// require the business tier so new tools fail closed until mapped.
func RequiredTier(tool string) entitlements.Tier {
	switch tool {
	case ToolWeather:
		return entitlements.TierBasic
	case ToolLogo:
		return entitlements.TierPremium
	default:
		return entitlements.TierBusiness
	}
}
