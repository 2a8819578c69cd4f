package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// CreateSearchParams contains the fields required to persist a search.
type CreateSearchParams struct {
	UserID           uuid.UUID
	PropertyAddress  string
	PropertyData     json.RawMessage
	ComparablesData  json.RawMessage
	ComparablesCount int32
}

// CreateSearch inserts a property search row and returns it.
func (q *Queries) CreateSearch(ctx context.Context, params CreateSearchParams) (PropertySearch, error) {
	var s PropertySearch
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO property_searches
			(user_id, property_address, property_data, comparables_data, comparables_count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, property_address, property_data, comparables_data,
			comparables_count, created_at`,
		params.UserID, params.PropertyAddress, params.PropertyData,
		params.ComparablesData, params.ComparablesCount,
	).Scan(&s.ID, &s.UserID, &s.PropertyAddress, &s.PropertyData,
		&s.ComparablesData, &s.ComparablesCount, &s.CreatedAt)
	return s, err
}

// GetSearchByIDAndUserIDParams scopes a search lookup to its owner.
type GetSearchByIDAndUserIDParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// GetSearchByIDAndUserID retrieves a search by ID, scoped to the owning
// user. Returns sql.ErrNoRows for both a missing record and a record owned
// by someone else, so callers cannot distinguish the two.
func (q *Queries) GetSearchByIDAndUserID(ctx context.Context, params GetSearchByIDAndUserIDParams) (PropertySearch, error) {
	var s PropertySearch
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, property_address, property_data, comparables_data,
			comparables_count, created_at
		FROM property_searches
		WHERE id = $1 AND user_id = $2`,
		params.ID, params.UserID,
	).Scan(&s.ID, &s.UserID, &s.PropertyAddress, &s.PropertyData,
		&s.ComparablesData, &s.ComparablesCount, &s.CreatedAt)
	return s, err
}

// ListSearchesByUserIDParams controls the history listing.
type ListSearchesByUserIDParams struct {
	UserID uuid.UUID
	Limit  int32
}

// ListSearchesByUserID returns the user's most recent searches, newest
// first, projected to the summary columns.
func (q *Queries) ListSearchesByUserID(ctx context.Context, params ListSearchesByUserIDParams) ([]PropertySearchSummary, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, property_address, comparables_count, created_at
		FROM property_searches
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		params.UserID, params.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []PropertySearchSummary
	for rows.Next() {
		var s PropertySearchSummary
		if err := rows.Scan(&s.ID, &s.PropertyAddress, &s.ComparablesCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// CountSearchesByUserID returns the total number of searches a user has
// ever performed. Used for account statistics.
func (q *Queries) CountSearchesByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT count(*) FROM property_searches WHERE user_id = $1`, userID,
	).Scan(&count)
	return count, err
}
