// Package domain contains core business types and interfaces.
//
// This file defines the subscription tier catalog: the fixed mapping from
// tier to monthly search quota and per-search comparables cap.
package domain

// SubscriptionTier represents the pricing tier of a subscription.
type SubscriptionTier string

const (
	SubscriptionTierFree    SubscriptionTier = "free"
	SubscriptionTierPro     SubscriptionTier = "pro"
	SubscriptionTierPremium SubscriptionTier = "premium"
)

// UnlimitedSearches is the sentinel limit stored for tiers with no monthly
// search cap. A large integer keeps the entitlement comparison branch-free;
// it is never rendered to users as a literal number.
const UnlimitedSearches = 999999

// TierLimits defines the quota limits for a subscription tier.
type TierLimits struct {
	SearchesPerMonth     int // UnlimitedSearches when the tier has no cap
	ComparablesPerSearch int
}

// Unlimited reports whether the tier has no monthly search cap.
func (l TierLimits) Unlimited() bool {
	return l.SearchesPerMonth >= UnlimitedSearches
}

// Valid reports whether t is a known tier.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case SubscriptionTierFree, SubscriptionTierPro, SubscriptionTierPremium:
		return true
	}
	return false
}

// LimitsFor returns the quota limits for a tier. Unknown tiers fall back to
// the free tier so a corrupted or stale tier value can never grant more
// quota than a free account.
func LimitsFor(tier SubscriptionTier) TierLimits {
	switch tier {
	case SubscriptionTierPro:
		return TierLimits{SearchesPerMonth: 25, ComparablesPerSearch: 10}
	case SubscriptionTierPremium:
		return TierLimits{SearchesPerMonth: UnlimitedSearches, ComparablesPerSearch: 15}
	case SubscriptionTierFree:
		return TierLimits{SearchesPerMonth: 5, ComparablesPerSearch: 5}
	default:
		return TierLimits{SearchesPerMonth: 5, ComparablesPerSearch: 5}
	}
}

// ComparablesCapFor returns the maximum number of comparables requested from
// the valuation provider for a tier.
func ComparablesCapFor(tier SubscriptionTier) int {
	return LimitsFor(tier).ComparablesPerSearch
}
