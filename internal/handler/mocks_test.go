package handler

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/comphound/comphound/internal/domain"
)

// mockUserService implements service.UserService for handler tests.
type mockUserService struct {
	RegisterFunc              func(ctx context.Context, params domain.RegisterParams) (*domain.User, error)
	LoginFunc                 func(ctx context.Context, email, password string) (*domain.LoginResult, error)
	LogoutFunc                func(ctx context.Context, token string) error
	GetByIDFunc               func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetBySessionTokenFunc     func(ctx context.Context, token string) (*domain.User, error)
	UpdateStripeCustomerFunc  func(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error
	UpdateSubscriptionFunc    func(ctx context.Context, userID uuid.UUID, status, tier, subscriptionID string) error
	GetByStripeCustomerIDFunc func(ctx context.Context, stripeCustomerID string) (*domain.User, error)
	DeleteExpiredSessionsFunc func(ctx context.Context) error
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, params)
	}
	return nil, errors.New("RegisterFunc not implemented")
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, errors.New("LoginFunc not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errors.New("GetByIDFunc not implemented")
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, errors.New("GetBySessionTokenFunc not implemented")
}

func (m *mockUserService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error {
	if m.UpdateStripeCustomerFunc != nil {
		return m.UpdateStripeCustomerFunc(ctx, userID, stripeCustomerID)
	}
	return errors.New("UpdateStripeCustomerFunc not implemented")
}

func (m *mockUserService) UpdateSubscription(ctx context.Context, userID uuid.UUID, status, tier, subscriptionID string) error {
	if m.UpdateSubscriptionFunc != nil {
		return m.UpdateSubscriptionFunc(ctx, userID, status, tier, subscriptionID)
	}
	return errors.New("UpdateSubscriptionFunc not implemented")
}

func (m *mockUserService) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error) {
	if m.GetByStripeCustomerIDFunc != nil {
		return m.GetByStripeCustomerIDFunc(ctx, stripeCustomerID)
	}
	return nil, errors.New("GetByStripeCustomerIDFunc not implemented")
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) error {
	if m.DeleteExpiredSessionsFunc != nil {
		return m.DeleteExpiredSessionsFunc(ctx)
	}
	return nil
}

// mockSearchService implements service.SearchService for handler tests.
type mockSearchService struct {
	PerformSearchFunc func(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, address string) (*domain.SearchRecord, error)
	GetSearchFunc     func(ctx context.Context, userID, searchID uuid.UUID) (*domain.SearchRecord, error)
	HistoryFunc       func(ctx context.Context, userID uuid.UUID, limit int) (*domain.SearchHistory, error)
}

func (m *mockSearchService) PerformSearch(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, address string) (*domain.SearchRecord, error) {
	if m.PerformSearchFunc != nil {
		return m.PerformSearchFunc(ctx, userID, tier, address)
	}
	return nil, errors.New("PerformSearchFunc not implemented")
}

func (m *mockSearchService) GetSearch(ctx context.Context, userID, searchID uuid.UUID) (*domain.SearchRecord, error) {
	if m.GetSearchFunc != nil {
		return m.GetSearchFunc(ctx, userID, searchID)
	}
	return nil, errors.New("GetSearchFunc not implemented")
}

func (m *mockSearchService) History(ctx context.Context, userID uuid.UUID, limit int) (*domain.SearchHistory, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, userID, limit)
	}
	return nil, errors.New("HistoryFunc not implemented")
}

// mockUsageService implements service.UsageService for handler tests.
type mockUsageService struct {
	GetOrInitFunc func(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.UsageRecord, error)
	IncrementFunc func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockUsageService) GetOrInit(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.UsageRecord, error) {
	if m.GetOrInitFunc != nil {
		return m.GetOrInitFunc(ctx, userID, tier)
	}
	return nil, errors.New("GetOrInitFunc not implemented")
}

func (m *mockUsageService) Increment(ctx context.Context, userID uuid.UUID) error {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, userID)
	}
	return errors.New("IncrementFunc not implemented")
}
