// Package domain contains core business types and interfaces.
//
// This file defines the monthly usage ledger types and the entitlement
// decision for new searches.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord represents one user's search consumption for one calendar
// month. The record is created lazily on the first search attempt of the
// period, its counter only ever increases, and it is never deleted.
//
// SearchesLimit is a snapshot of the tier's limit at creation time. A
// mid-month tier change does not retroactively alter the current period's
// cap; the new limit applies when the next period's record is initialized.
type UsageRecord struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Month         time.Time // first day of the month, UTC
	SearchesUsed  int
	SearchesLimit int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining returns how many searches are left this period, never negative.
func (u *UsageRecord) Remaining() int {
	if u.SearchesUsed >= u.SearchesLimit {
		return 0
	}
	return u.SearchesLimit - u.SearchesUsed
}

// CanSearch is the entitlement decision for a new search: allowed while the
// period's counter is strictly below its limit. Unlimited tiers satisfy this
// through the UnlimitedSearches sentinel. Pure and deterministic; must be
// evaluated before any upstream provider call.
func CanSearch(searchesUsed, searchesLimit int) bool {
	return searchesUsed < searchesLimit
}

// CurrentPeriod returns the first day of the current calendar month in UTC,
// the identity of a usage accounting period.
func CurrentPeriod() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
