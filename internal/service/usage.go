package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/comphound/comphound/internal/domain"
	"github.com/comphound/comphound/internal/repository"
)

// UsageService manages the per-user monthly search ledger.
type UsageService interface {
	// GetOrInit returns the current period's usage record for a user,
	// creating it with the tier's limit and a zero counter when the period
	// has not been initialized yet. A concurrent initialization race is
	// resolved by re-reading the winner's row.
	GetOrInit(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.UsageRecord, error)

	// Increment atomically adds one to the current period's counter.
	// Returns domain.ENOTFOUND if the period was never initialized.
	Increment(ctx context.Context, userID uuid.UUID) error
}

// usageStore is the subset of repository methods the usage service needs.
type usageStore interface {
	GetUsageByUserAndMonth(ctx context.Context, params repository.GetUsageByUserAndMonthParams) (repository.UsageTracking, error)
	CreateUsage(ctx context.Context, params repository.CreateUsageParams) (repository.UsageTracking, error)
	IncrementUsage(ctx context.Context, params repository.IncrementUsageParams) error
}

type usageService struct {
	store  usageStore
	logger *slog.Logger
}

// NewUsageService creates a new UsageService instance.
func NewUsageService(queries *repository.Queries, logger *slog.Logger) UsageService {
	return &usageService{
		store:  queries,
		logger: logger,
	}
}

func (s *usageService) GetOrInit(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.UsageRecord, error) {
	const op = "UsageService.GetOrInit"

	month := domain.CurrentPeriod()

	row, err := s.store.GetUsageByUserAndMonth(ctx, repository.GetUsageByUserAndMonthParams{
		UserID: userID,
		Month:  month,
	})
	if err == nil {
		return repoUsageToDomain(row), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to retrieve usage")
	}

	// The limit is snapshotted at initialization. A mid-month tier change
	// only affects the next period.
	limits := domain.LimitsFor(tier)

	row, err = s.store.CreateUsage(ctx, repository.CreateUsageParams{
		UserID:        userID,
		Month:         month,
		SearchesLimit: int32(limits.SearchesPerMonth),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			// Another request initialized the period first; its row wins.
			row, err = s.store.GetUsageByUserAndMonth(ctx, repository.GetUsageByUserAndMonthParams{
				UserID: userID,
				Month:  month,
			})
			if err != nil {
				return nil, domain.Internal(err, op, "Failed to retrieve usage after init race")
			}
			return repoUsageToDomain(row), nil
		}
		return nil, domain.Internal(err, op, "Failed to initialize usage")
	}

	s.logger.Info("usage period initialized",
		"user_id", userID,
		"month", month.Format("2006-01"),
		"limit", limits.SearchesPerMonth,
	)
	return repoUsageToDomain(row), nil
}

func (s *usageService) Increment(ctx context.Context, userID uuid.UUID) error {
	const op = "UsageService.Increment"

	err := s.store.IncrementUsage(ctx, repository.IncrementUsageParams{
		UserID: userID,
		Month:  domain.CurrentPeriod(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "usage record", userID.String())
		}
		return domain.Internal(err, op, "Failed to increment usage")
	}
	return nil
}

// repoUsageToDomain converts a repository.UsageTracking to domain.UsageRecord.
func repoUsageToDomain(row repository.UsageTracking) *domain.UsageRecord {
	return &domain.UsageRecord{
		ID:            row.ID,
		UserID:        row.UserID,
		Month:         row.Month.UTC(),
		SearchesUsed:  int(row.SearchesUsed),
		SearchesLimit: int(row.SearchesLimit),
		CreatedAt:     domain.NullTimeValue(row.CreatedAt),
		UpdatedAt:     domain.NullTimeValue(row.UpdatedAt),
	}
}
