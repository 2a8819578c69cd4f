package handler

import (
	"log/slog"
	"net/http"

	"github.com/comphound/comphound/internal/auth"
	"github.com/comphound/comphound/internal/domain"
	"github.com/comphound/comphound/internal/service"
)

// UsageHandler exposes the caller's current-period quota usage.
type UsageHandler struct {
	usageService service.UsageService
	logger       *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usageService service.UsageService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
		logger:       logger,
	}
}

// RegisterRoutes registers usage routes behind the auth middleware.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/usage", requireUser(http.HandlerFunc(h.GetUsage)))
	mux.Handle("GET /api/usage/check", requireUser(http.HandlerFunc(h.CheckUsage)))
}

type usageResponse struct {
	Month         string `json:"month"`
	SearchesUsed  int    `json:"searchesUsed"`
	SearchesLimit int    `json:"searchesLimit"`
	Remaining     int    `json:"remaining"`
	Unlimited     bool   `json:"unlimited"`
	Tier          string `json:"tier"`
}

// GetUsage returns the current period's usage for the caller, initializing
// the period on first read.
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	record, err := h.usageService.GetOrInit(r.Context(), user.ID, user.Tier())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, usageResponse{
		Month:         record.Month.Format("2006-01"),
		SearchesUsed:  record.SearchesUsed,
		SearchesLimit: record.SearchesLimit,
		Remaining:     record.Remaining(),
		Unlimited:     record.SearchesLimit >= domain.UnlimitedSearches,
		Tier:          string(user.Tier()),
	})
}

type usageCheckResponse struct {
	Allowed       bool `json:"allowed"`
	Remaining     int  `json:"remaining"`
	SearchesUsed  int  `json:"searchesUsed"`
	SearchesLimit int  `json:"searchesLimit"`
}

// CheckUsage is the entitlement preflight: whether the next search would be
// allowed. Advisory only; the search endpoint re-checks before running.
func (h *UsageHandler) CheckUsage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	record, err := h.usageService.GetOrInit(r.Context(), user.ID, user.Tier())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, usageCheckResponse{
		Allowed:       domain.CanSearch(record.SearchesUsed, record.SearchesLimit),
		Remaining:     record.Remaining(),
		SearchesUsed:  record.SearchesUsed,
		SearchesLimit: record.SearchesLimit,
	})
}
