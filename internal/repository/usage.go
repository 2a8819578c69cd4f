package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// GetUsageByUserAndMonthParams keys a usage row by owner and period.
type GetUsageByUserAndMonthParams struct {
	UserID uuid.UUID
	Month  time.Time
}

// GetUsageByUserAndMonth retrieves the usage row for one user and one
// calendar month. Returns sql.ErrNoRows when the period has not been
// initialized yet, which callers treat as a normal outcome.
func (q *Queries) GetUsageByUserAndMonth(ctx context.Context, params GetUsageByUserAndMonthParams) (UsageTracking, error) {
	var u UsageTracking
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, month, searches_used, searches_limit, created_at, updated_at
		FROM usage_tracking
		WHERE user_id = $1 AND month = $2`,
		params.UserID, params.Month,
	).Scan(&u.ID, &u.UserID, &u.Month, &u.SearchesUsed, &u.SearchesLimit, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUsageParams contains the fields required to initialize a period's
// usage row.
type CreateUsageParams struct {
	UserID        uuid.UUID
	Month         time.Time
	SearchesLimit int32
}

// CreateUsage initializes the usage row for a period with a zero counter.
// A concurrent initialization of the same (user, month) pair surfaces as a
// unique-constraint violation; use IsUniqueViolation to detect it.
func (q *Queries) CreateUsage(ctx context.Context, params CreateUsageParams) (UsageTracking, error) {
	var u UsageTracking
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO usage_tracking (user_id, month, searches_used, searches_limit)
		VALUES ($1, $2, 0, $3)
		RETURNING id, user_id, month, searches_used, searches_limit, created_at, updated_at`,
		params.UserID, params.Month, params.SearchesLimit,
	).Scan(&u.ID, &u.UserID, &u.Month, &u.SearchesUsed, &u.SearchesLimit, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// IncrementUsageParams keys the increment by owner and period.
type IncrementUsageParams struct {
	UserID uuid.UUID
	Month  time.Time
}

// IncrementUsage atomically increases the period's counter by exactly one.
// The single-statement conditional UPDATE is the only write path for
// searches_used, so concurrent searches by the same user can never lose an
// update or push the counter past the limit. Returns sql.ErrNoRows if the
// period's row does not exist or the counter is already at the limit.
func (q *Queries) IncrementUsage(ctx context.Context, params IncrementUsageParams) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE usage_tracking
		SET searches_used = searches_used + 1, updated_at = now()
		WHERE user_id = $1 AND month = $2 AND searches_used < searches_limit`,
		params.UserID, params.Month,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
