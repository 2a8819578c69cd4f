package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comphound/comphound/internal/domain"
)

func newUsageFixture() (*usageService, *fakeUsageStore) {
	store := newFakeUsageStore()
	return &usageService{store: store, logger: slog.New(slog.DiscardHandler)}, store
}

func TestGetOrInit_CreatesPeriodWithTierLimit(t *testing.T) {
	svc, store := newUsageFixture()
	userID := uuid.New()

	record, err := svc.GetOrInit(context.Background(), userID, domain.SubscriptionTierPro)
	require.NoError(t, err)

	assert.Equal(t, userID, record.UserID)
	assert.Equal(t, 0, record.SearchesUsed)
	assert.Equal(t, 25, record.SearchesLimit)
	assert.Equal(t, domain.CurrentPeriod(), record.Month)
	assert.Equal(t, 1, store.createCalls)
}

func TestGetOrInit_ReturnsExistingRecord(t *testing.T) {
	svc, store := newUsageFixture()
	userID := uuid.New()
	store.seed(userID, domain.CurrentPeriod(), 3, 5)

	// The stored limit wins even if the tier changed mid-month.
	record, err := svc.GetOrInit(context.Background(), userID, domain.SubscriptionTierPremium)
	require.NoError(t, err)

	assert.Equal(t, 3, record.SearchesUsed)
	assert.Equal(t, 5, record.SearchesLimit)
	assert.Zero(t, store.createCalls)
}

func TestGetOrInit_ResolvesInitRaceByRereading(t *testing.T) {
	svc, store := newUsageFixture()
	userID := uuid.New()

	const goroutines = 8
	records := make([]*domain.UsageRecord, goroutines)
	errs := make([]error, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = svc.GetOrInit(context.Background(), userID, domain.SubscriptionTierFree)
		}(i)
	}
	wg.Wait()

	// Every caller sees the same row regardless of who won the insert.
	for i, record := range records {
		require.NoError(t, errs[i])
		require.NotNil(t, record)
		assert.Equal(t, records[0].ID, record.ID)
		assert.Equal(t, 5, record.SearchesLimit)
	}
	assert.Equal(t, int32(0), store.used(userID, domain.CurrentPeriod()))
}

func TestIncrement_CountsUpToLimit(t *testing.T) {
	svc, store := newUsageFixture()
	userID := uuid.New()
	store.seed(userID, domain.CurrentPeriod(), 0, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Increment(context.Background(), userID))
	}
	assert.Equal(t, int32(3), store.used(userID, domain.CurrentPeriod()))

	// At the limit the conditional update matches no row.
	err := svc.Increment(context.Background(), userID)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	assert.Equal(t, int32(3), store.used(userID, domain.CurrentPeriod()))
}

func TestIncrement_UninitializedPeriod(t *testing.T) {
	svc, _ := newUsageFixture()

	err := svc.Increment(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestIncrement_ConcurrentNeverLosesUpdates(t *testing.T) {
	svc, store := newUsageFixture()
	userID := uuid.New()
	store.seed(userID, domain.CurrentPeriod(), 0, 100)

	const increments = 50
	var wg sync.WaitGroup
	for i := 0; i < increments; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Increment(context.Background(), userID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(increments), store.used(userID, domain.CurrentPeriod()))
}

func TestGetOrInit_StoreFailure(t *testing.T) {
	svc, store := newUsageFixture()
	store.getErr = errors.New("connection refused")

	_, err := svc.GetOrInit(context.Background(), uuid.New(), domain.SubscriptionTierFree)
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}
