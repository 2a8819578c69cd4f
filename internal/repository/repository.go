// Package repository provides database access for the CompHound application.
//
// Queries are hand-written SQL over database/sql using the pgx stdlib
// driver. Methods follow a Verb+Entity naming convention and return
// sql.ErrNoRows untranslated; the service layer maps database errors to
// domain errors.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queries holds a database handle and exposes all query methods.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance backed by the given database handle.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505). Used by callers to translate insert races
// into conflict errors.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =============================================================================
// Row models
// =============================================================================

// User mirrors a row of the users table.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	Name               string
	StripeCustomerID   sql.NullString
	SubscriptionStatus sql.NullString
	SubscriptionTier   sql.NullString
	SubscriptionID     sql.NullString
	CreatedAt          sql.NullTime
	UpdatedAt          sql.NullTime
}

// Session mirrors a row of the sessions table.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt sql.NullTime
}

// UsageTracking mirrors a row of the usage_tracking table.
type UsageTracking struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Month         time.Time
	SearchesUsed  int32
	SearchesLimit int32
	CreatedAt     sql.NullTime
	UpdatedAt     sql.NullTime
}

// PropertySearch mirrors a row of the property_searches table. The subject
// property and comparables are stored as JSONB documents in their canonical
// normalized shape.
type PropertySearch struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	PropertyAddress  string
	PropertyData     json.RawMessage
	ComparablesData  json.RawMessage
	ComparablesCount int32
	CreatedAt        sql.NullTime
}

// PropertySearchSummary is the projection used for history listings.
type PropertySearchSummary struct {
	ID               uuid.UUID
	PropertyAddress  string
	ComparablesCount int32
	CreatedAt        sql.NullTime
}

// SubscriptionEvent mirrors a row of the subscription_events audit table.
type SubscriptionEvent struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	EventType     string
	StripeEventID string
	EventData     json.RawMessage
	CreatedAt     sql.NullTime
}
