package entitlements

import (
	"strings"
	"time"
)

type Plan string

const (
	PlanFree     Plan = "free"
	PlanPremium  Plan = "premium"
	PlanBusiness Plan = "business"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusExpired   SubscriptionStatus = "expired"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusTrial     SubscriptionStatus = "trial"
)

// Tier is the capability level a gated operation requires.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierPremium  Tier = "premium"
	TierBusiness Tier = "business"
)

// NormalizePlan maps arbitrary input to a known plan, defaulting to free.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPremium):
		return PlanPremium
	case string(PlanBusiness):
		return PlanBusiness
	default:
		return PlanFree
	}
}

// NormalizeStatus maps arbitrary input to a known status, defaulting to expired.
func NormalizeStatus(status string) SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case string(StatusActive):
		return StatusActive
	case string(StatusCancelled):
		return StatusCancelled
	case string(StatusTrial):
		return StatusTrial
	default:
		return StatusExpired
	}
}

// PlanRank orders plans by the capabilities they unlock.
func PlanRank(plan Plan) int {
	switch plan {
	case PlanBusiness:
		return 2
	case PlanPremium:
		return 1
	default:
		return 0
	}
}

// tierRank mirrors PlanRank on the capability side: plan N unlocks every
// tier of rank <= N. Unknown tiers rank above every plan, so they are never
// granted.
func tierRank(tier Tier) int {
	switch tier {
	case TierBasic:
		return 0
	case TierPremium:
		return 1
	case TierBusiness:
		return 2
	default:
		return 3
	}
}

// CanAccess decides whether a subscription (plan, status, period end) grants
// the requested capability tier.
//
// Expiry is detected lazily here: a subscription whose period end has passed
// is treated as expired even while the stored status still reads active. The
// stored status is only corrected by the next billing provider event; no
// background sweep runs.
func CanAccess(plan Plan, status SubscriptionStatus, periodEnd *time.Time, tier Tier) bool {
	if status == StatusExpired || status == StatusCancelled {
		return tier == TierBasic
	}
	if periodEnd != nil && time.Now().After(*periodEnd) {
		return tier == TierBasic
	}

	return PlanRank(plan) >= tierRank(tier)
}
