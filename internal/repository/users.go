package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, name, stripe_customer_id,
	subscription_status, subscription_tier, subscription_id, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.StripeCustomerID,
		&u.SubscriptionStatus,
		&u.SubscriptionTier,
		&u.SubscriptionID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// CreateUserParams contains the fields required to insert a user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
}

// CreateUser inserts a new user with the free tier defaults and returns the
// created row.
func (q *Queries) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		params.Email, params.PasswordHash, params.Name,
	)
	return scanUser(row)
}

// GetUserByID retrieves a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByStripeCustomerID retrieves a user by their Stripe customer ID.
// Used by the webhook handler to resolve billing events to accounts.
func (q *Queries) GetUserByStripeCustomerID(ctx context.Context, customerID string) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1`, customerID)
	return scanUser(row)
}

// UpdateUserStripeCustomerParams identifies the user and the Stripe customer
// to attach.
type UpdateUserStripeCustomerParams struct {
	ID               uuid.UUID
	StripeCustomerID string
}

// UpdateUserStripeCustomer stores the Stripe customer ID on a user row.
func (q *Queries) UpdateUserStripeCustomer(ctx context.Context, params UpdateUserStripeCustomerParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users
		SET stripe_customer_id = $2, updated_at = now()
		WHERE id = $1`,
		params.ID, params.StripeCustomerID,
	)
	return err
}

// UpdateUserSubscriptionParams carries the subscription fields updated from
// billing events.
type UpdateUserSubscriptionParams struct {
	ID                 uuid.UUID
	SubscriptionStatus string
	SubscriptionTier   string
	SubscriptionID     sql.NullString
}

// UpdateUserSubscription updates a user's subscription status, tier, and
// Stripe subscription ID.
func (q *Queries) UpdateUserSubscription(ctx context.Context, params UpdateUserSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users
		SET subscription_status = $2,
		    subscription_tier = $3,
		    subscription_id = $4,
		    updated_at = now()
		WHERE id = $1`,
		params.ID, params.SubscriptionStatus, params.SubscriptionTier, params.SubscriptionID,
	)
	return err
}
