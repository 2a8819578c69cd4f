package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comphound/comphound/internal/domain"
	"github.com/comphound/comphound/internal/metrics"
	"github.com/comphound/comphound/internal/normalize"
	"github.com/comphound/comphound/internal/repository"
	"github.com/comphound/comphound/internal/valuation"
)

// SearchService orchestrates comparable searches and exposes search history.
type SearchService interface {
	// PerformSearch runs one entitlement-gated comparable search.
	//
	// Flow: validate the address, load or initialize the period's usage,
	// check the quota, fetch from the valuation provider with the tier's
	// comparables cap, normalize, persist, then increment usage. A quota
	// denial returns domain.EQUOTA before any provider call. An increment
	// failure after a successful persist is logged and counted, not
	// surfaced; the persisted record stands and usage under-counts.
	PerformSearch(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, address string) (*domain.SearchRecord, error)

	// GetSearch returns one of the user's past searches by ID.
	// Returns domain.ENOTFOUND for missing records and records owned by
	// other users alike.
	GetSearch(ctx context.Context, userID, searchID uuid.UUID) (*domain.SearchRecord, error)

	// History returns the user's most recent searches, newest first,
	// together with the user's all-time search count.
	History(ctx context.Context, userID uuid.UUID, limit int) (*domain.SearchHistory, error)
}

// DefaultHistoryLimit bounds history listings when the caller does not ask
// for a specific page size.
const DefaultHistoryLimit = 50

// searchStore is the subset of repository methods the search service needs.
type searchStore interface {
	CreateSearch(ctx context.Context, params repository.CreateSearchParams) (repository.PropertySearch, error)
	GetSearchByIDAndUserID(ctx context.Context, params repository.GetSearchByIDAndUserIDParams) (repository.PropertySearch, error)
	ListSearchesByUserID(ctx context.Context, params repository.ListSearchesByUserIDParams) ([]repository.PropertySearchSummary, error)
	CountSearchesByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}

type searchService struct {
	store    searchStore
	usage    UsageService
	provider valuation.Provider
	logger   *slog.Logger
}

// NewSearchService creates a new SearchService instance.
func NewSearchService(queries *repository.Queries, usage UsageService, provider valuation.Provider, logger *slog.Logger) SearchService {
	return &searchService{
		store:    queries,
		usage:    usage,
		provider: provider,
		logger:   logger,
	}
}

func (s *searchService) PerformSearch(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, address string) (*domain.SearchRecord, error) {
	const op = "SearchService.PerformSearch"

	address = strings.TrimSpace(address)
	if address == "" {
		return nil, domain.Invalid(op, "Address is required")
	}

	usage, err := s.usage.GetOrInit(ctx, userID, tier)
	if err != nil {
		return nil, err
	}

	if !domain.CanSearch(usage.SearchesUsed, usage.SearchesLimit) {
		metrics.QuotaDeniedTotal.WithLabelValues(string(tier)).Inc()
		metrics.SearchesTotal.WithLabelValues(string(tier), "denied").Inc()
		s.logger.Info("search denied by quota",
			"user_id", userID,
			"tier", tier,
			"used", usage.SearchesUsed,
			"limit", usage.SearchesLimit,
		)
		return nil, domain.QuotaExceeded(op, usage.SearchesUsed, usage.SearchesLimit)
	}

	comparablesCap := domain.ComparablesCapFor(tier)

	start := time.Now()
	raw, err := s.provider.SearchComparables(ctx, address, comparablesCap)
	metrics.UpstreamRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(upstreamStatus(err)).Inc()
		metrics.SearchesTotal.WithLabelValues(string(tier), "failed").Inc()
		return nil, mapUpstreamError(op, err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("success").Inc()

	subject, comparables, err := normalize.Response(raw, address, comparablesCap)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(string(tier), "failed").Inc()
		return nil, err
	}

	propertyData, err := json.Marshal(subject)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to encode property data")
	}
	comparablesData, err := json.Marshal(comparables)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to encode comparables data")
	}

	row, err := s.store.CreateSearch(ctx, repository.CreateSearchParams{
		UserID:           userID,
		PropertyAddress:  address,
		PropertyData:     propertyData,
		ComparablesData:  comparablesData,
		ComparablesCount: int32(len(comparables)),
	})
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(string(tier), "failed").Inc()
		// Usage must not be incremented when the persist fails.
		return nil, domain.Internal(err, op, "Failed to save search")
	}

	if err := s.usage.Increment(ctx, userID); err != nil {
		// The search already succeeded; an under-count favors the user.
		metrics.UsageIncrementFailures.Inc()
		s.logger.Error("usage increment failed after persisted search",
			"user_id", userID,
			"search_id", row.ID,
			"error", err,
		)
	}

	metrics.SearchesTotal.WithLabelValues(string(tier), "completed").Inc()
	metrics.ComparablesReturned.Observe(float64(len(comparables)))

	s.logger.Info("search completed",
		"user_id", userID,
		"search_id", row.ID,
		"tier", tier,
		"comparables", len(comparables),
	)

	return &domain.SearchRecord{
		ID:               row.ID,
		UserID:           row.UserID,
		QueryAddress:     row.PropertyAddress,
		Property:         *subject,
		Comparables:      comparables,
		ComparablesCount: len(comparables),
		CreatedAt:        domain.NullTimeValue(row.CreatedAt),
	}, nil
}

func (s *searchService) GetSearch(ctx context.Context, userID, searchID uuid.UUID) (*domain.SearchRecord, error) {
	const op = "SearchService.GetSearch"

	row, err := s.store.GetSearchByIDAndUserID(ctx, repository.GetSearchByIDAndUserIDParams{
		ID:     searchID,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "search", searchID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve search")
	}

	var property domain.PropertyRecord
	if err := json.Unmarshal(row.PropertyData, &property); err != nil {
		return nil, domain.Internal(err, op, "Failed to decode property data")
	}
	var comparables []domain.ComparableRecord
	if err := json.Unmarshal(row.ComparablesData, &comparables); err != nil {
		return nil, domain.Internal(err, op, "Failed to decode comparables data")
	}

	return &domain.SearchRecord{
		ID:               row.ID,
		UserID:           row.UserID,
		QueryAddress:     row.PropertyAddress,
		Property:         property,
		Comparables:      comparables,
		ComparablesCount: int(row.ComparablesCount),
		CreatedAt:        domain.NullTimeValue(row.CreatedAt),
	}, nil
}

func (s *searchService) History(ctx context.Context, userID uuid.UUID, limit int) (*domain.SearchHistory, error) {
	const op = "SearchService.History"

	if limit <= 0 || limit > 100 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.store.ListSearchesByUserID(ctx, repository.ListSearchesByUserIDParams{
		UserID: userID,
		Limit:  int32(limit),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list searches")
	}

	total, err := s.store.CountSearchesByUserID(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to count searches")
	}

	summaries := make([]domain.SearchSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, domain.SearchSummary{
			ID:               row.ID,
			QueryAddress:     row.PropertyAddress,
			ComparablesCount: int(row.ComparablesCount),
			CreatedAt:        domain.NullTimeValue(row.CreatedAt),
		})
	}
	return &domain.SearchHistory{Searches: summaries, Total: total}, nil
}

// mapUpstreamError translates provider errors into domain errors, keeping
// the provider's message when it has one.
func mapUpstreamError(op string, err error) error {
	switch {
	case errors.Is(err, valuation.ErrNotFound):
		// A miss on the address is the caller's problem, not the provider's.
		return &domain.Error{
			Code:    domain.ENOTFOUND,
			Op:      op,
			Message: "No property found for that address",
			Err:     err,
		}
	case errors.Is(err, valuation.ErrRateLimit):
		return domain.Upstream(err, op, "Valuation provider rate limit exceeded")
	case errors.Is(err, valuation.ErrTimeout):
		return domain.Upstream(err, op, "Valuation provider request timed out")
	case errors.Is(err, valuation.ErrUnavailable):
		return domain.Upstream(err, op, "Valuation provider is temporarily unavailable")
	case errors.Is(err, valuation.ErrUnauthorized):
		return domain.Upstream(err, op, "Valuation provider rejected our credentials")
	default:
		return domain.Upstream(err, op, "Valuation provider request failed")
	}
}

func upstreamStatus(err error) string {
	switch {
	case errors.Is(err, valuation.ErrNotFound):
		return "not_found"
	case errors.Is(err, valuation.ErrRateLimit):
		return "rate_limited"
	default:
		return "error"
	}
}
