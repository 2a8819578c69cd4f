package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// CreateSubscriptionEventParams contains the fields for an audit row.
type CreateSubscriptionEventParams struct {
	UserID        uuid.UUID
	EventType     string
	StripeEventID string
	EventData     json.RawMessage
}

// CreateSubscriptionEvent appends a billing event to the audit table.
// The table is append-only; events are never updated or deleted.
func (q *Queries) CreateSubscriptionEvent(ctx context.Context, params CreateSubscriptionEventParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO subscription_events (user_id, event_type, stripe_event_id, event_data)
		VALUES ($1, $2, $3, $4)`,
		params.UserID, params.EventType, params.StripeEventID, params.EventData,
	)
	return err
}
