// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and related types for
// authentication. These types are separate from the repository models to
// allow for business logic enrichment and to decouple the domain layer from
// the database layer.
package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the possible states of a user's subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// User represents a registered user of the CompHound platform.
//
// Free accounts have no Stripe identity; StripeCustomerID and SubscriptionID
// are populated the first time the user checks out.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string // Never expose this in API responses
	Name               string
	StripeCustomerID   string
	SubscriptionStatus SubscriptionStatus
	SubscriptionTier   SubscriptionTier
	SubscriptionID     string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Tier returns the user's subscription tier, defaulting to free when the
// stored value is empty or unknown.
func (u *User) Tier() SubscriptionTier {
	if u.SubscriptionTier.Valid() {
		return u.SubscriptionTier
	}
	return SubscriptionTierFree
}

// IsPaid returns true if the user is on a paid tier with an active
// subscription.
func (u *User) IsPaid() bool {
	return u.Tier() != SubscriptionTierFree &&
		u.SubscriptionStatus == SubscriptionStatusActive
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session represents an authenticated session.
//
// Sessions are stored in the database with a hashed token.
// The raw token is only given to the client once (at login).
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 hash of the session token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the validated parameters for user registration.
type RegisterParams struct {
	Email    string
	Password string // Raw password, will be hashed by service
	Name     string
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User  *User
	Token string // Raw session token (not hashed) - only returned once
}

// SubscriptionEventType classifies a billing-provider event stored in the
// audit table.
type SubscriptionEventType string

const (
	SubscriptionEventCreated  SubscriptionEventType = "created"
	SubscriptionEventUpdated  SubscriptionEventType = "updated"
	SubscriptionEventCanceled SubscriptionEventType = "canceled"
)

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time from sql.NullTime, returning the
// zero time when the column is NULL.
func NullTimeValue(nt sql.NullTime) time.Time {
	if nt.Valid {
		return nt.Time
	}
	return time.Time{}
}

// ToNullString converts a string to sql.NullString.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
