package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/comphound/comphound/internal/domain"
	"github.com/comphound/comphound/internal/repository"
)

func getUsageParams(userID uuid.UUID) repository.GetUsageByUserAndMonthParams {
	return repository.GetUsageByUserAndMonthParams{
		UserID: userID,
		Month:  domain.CurrentPeriod(),
	}
}

// uniqueViolation mimics the Postgres error surfaced on a duplicate insert.
func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func usageKey(userID uuid.UUID, month time.Time) string {
	return userID.String() + "|" + month.UTC().Format("2006-01")
}

// fakeUsageStore is an in-memory usageStore with the same conditional
// increment semantics as the SQL implementation.
type fakeUsageStore struct {
	mu           sync.Mutex
	rows         map[string]*repository.UsageTracking
	getErr       error
	createErr    error
	incrementErr error
	createCalls  int
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{rows: make(map[string]*repository.UsageTracking)}
}

func (f *fakeUsageStore) seed(userID uuid.UUID, month time.Time, used, limit int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[usageKey(userID, month)] = &repository.UsageTracking{
		ID:            uuid.New(),
		UserID:        userID,
		Month:         month,
		SearchesUsed:  used,
		SearchesLimit: limit,
	}
}

func (f *fakeUsageStore) used(userID uuid.UUID, month time.Time) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[usageKey(userID, month)]; ok {
		return row.SearchesUsed
	}
	return -1
}

func (f *fakeUsageStore) GetUsageByUserAndMonth(ctx context.Context, params repository.GetUsageByUserAndMonthParams) (repository.UsageTracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return repository.UsageTracking{}, f.getErr
	}
	row, ok := f.rows[usageKey(params.UserID, params.Month)]
	if !ok {
		return repository.UsageTracking{}, sql.ErrNoRows
	}
	return *row, nil
}

func (f *fakeUsageStore) CreateUsage(ctx context.Context, params repository.CreateUsageParams) (repository.UsageTracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return repository.UsageTracking{}, f.createErr
	}
	key := usageKey(params.UserID, params.Month)
	if _, exists := f.rows[key]; exists {
		return repository.UsageTracking{}, uniqueViolation()
	}
	row := &repository.UsageTracking{
		ID:            uuid.New(),
		UserID:        params.UserID,
		Month:         params.Month,
		SearchesUsed:  0,
		SearchesLimit: params.SearchesLimit,
	}
	f.rows[key] = row
	return *row, nil
}

func (f *fakeUsageStore) IncrementUsage(ctx context.Context, params repository.IncrementUsageParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	row, ok := f.rows[usageKey(params.UserID, params.Month)]
	if !ok || row.SearchesUsed >= row.SearchesLimit {
		return sql.ErrNoRows
	}
	row.SearchesUsed++
	return nil
}

// fakeSearchStore is an in-memory searchStore.
type fakeSearchStore struct {
	mu        sync.Mutex
	rows      []repository.PropertySearch
	createErr error
}

func newFakeSearchStore() *fakeSearchStore {
	return &fakeSearchStore{}
}

func (f *fakeSearchStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeSearchStore) CreateSearch(ctx context.Context, params repository.CreateSearchParams) (repository.PropertySearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return repository.PropertySearch{}, f.createErr
	}
	row := repository.PropertySearch{
		ID:               uuid.New(),
		UserID:           params.UserID,
		PropertyAddress:  params.PropertyAddress,
		PropertyData:     params.PropertyData,
		ComparablesData:  params.ComparablesData,
		ComparablesCount: params.ComparablesCount,
		CreatedAt:        sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeSearchStore) GetSearchByIDAndUserID(ctx context.Context, params repository.GetSearchByIDAndUserIDParams) (repository.PropertySearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == params.ID && row.UserID == params.UserID {
			return row, nil
		}
	}
	return repository.PropertySearch{}, sql.ErrNoRows
}

func (f *fakeSearchStore) ListSearchesByUserID(ctx context.Context, params repository.ListSearchesByUserIDParams) ([]repository.PropertySearchSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.PropertySearchSummary
	for i := len(f.rows) - 1; i >= 0 && len(out) < int(params.Limit); i-- {
		row := f.rows[i]
		if row.UserID != params.UserID {
			continue
		}
		out = append(out, repository.PropertySearchSummary{
			ID:               row.ID,
			PropertyAddress:  row.PropertyAddress,
			ComparablesCount: row.ComparablesCount,
			CreatedAt:        row.CreatedAt,
		})
	}
	return out, nil
}

func (f *fakeSearchStore) CountSearchesByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, row := range f.rows {
		if row.UserID == userID {
			total++
		}
	}
	return total, nil
}

// fakeUserStore is an in-memory userStore.
type fakeUserStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*repository.User
	sessions map[string]*repository.Session
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[uuid.UUID]*repository.User),
		sessions: make(map[string]*repository.Session),
	}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, params repository.CreateUserParams) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == params.Email {
			return repository.User{}, uniqueViolation()
		}
	}
	user := &repository.User{
		ID:                 uuid.New(),
		Email:              params.Email,
		PasswordHash:       params.PasswordHash,
		Name:               params.Name,
		SubscriptionStatus: sql.NullString{String: "active", Valid: true},
		SubscriptionTier:   sql.NullString{String: "free", Valid: true},
		CreatedAt:          sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	f.users[user.ID] = user
	return *user, nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return *u, nil
	}
	return repository.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) GetUserByStripeCustomerID(ctx context.Context, customerID string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.StripeCustomerID.Valid && u.StripeCustomerID.String == customerID {
			return *u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) UpdateUserStripeCustomer(ctx context.Context, params repository.UpdateUserStripeCustomerParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	u.StripeCustomerID = sql.NullString{String: params.StripeCustomerID, Valid: true}
	return nil
}

func (f *fakeUserStore) UpdateUserSubscription(ctx context.Context, params repository.UpdateUserSubscriptionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	u.SubscriptionStatus = sql.NullString{String: params.SubscriptionStatus, Valid: true}
	u.SubscriptionTier = sql.NullString{String: params.SubscriptionTier, Valid: true}
	u.SubscriptionID = params.SubscriptionID
	return nil
}

func (f *fakeUserStore) CreateSession(ctx context.Context, params repository.CreateSessionParams) (repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session := &repository.Session{
		ID:        uuid.New(),
		UserID:    params.UserID,
		TokenHash: params.TokenHash,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	f.sessions[params.TokenHash] = session
	return *session, nil
}

func (f *fakeUserStore) GetSessionByTokenHash(ctx context.Context, tokenHash string) (repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[tokenHash]
	if !ok || session.ExpiresAt.Before(time.Now()) {
		return repository.Session{}, sql.ErrNoRows
	}
	return *session, nil
}

func (f *fakeUserStore) DeleteSession(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

func (f *fakeUserStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for hash, session := range f.sessions {
		if session.ExpiresAt.Before(time.Now()) {
			delete(f.sessions, hash)
			count++
		}
	}
	return count, nil
}
