package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/comphound/comphound/internal/auth"
	"github.com/comphound/comphound/internal/domain"
	"github.com/comphound/comphound/internal/service"
)

// SearchHandler handles comparable search and history endpoints.
type SearchHandler struct {
	searchService service.SearchService
	logger        *slog.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searchService service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// RegisterRoutes registers search routes behind the auth middleware.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/search", requireUser(http.HandlerFunc(h.Search)))
	mux.Handle("GET /api/searches/history", requireUser(http.HandlerFunc(h.History)))
	mux.Handle("GET /api/searches/{id}", requireUser(http.HandlerFunc(h.GetSearch)))
}

type searchRequest struct {
	Address string `json:"address"`
}

type searchResponse struct {
	Success     bool                      `json:"success"`
	SearchID    string                    `json:"searchId"`
	Property    domain.PropertyRecord     `json:"property"`
	Comparables []domain.ComparableRecord `json:"comparables"`
}

// Search runs one entitlement-gated comparable search for the current user.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("SearchHandler.Search", "Address is required"))
		return
	}

	record, err := h.searchService.PerformSearch(r.Context(), user.ID, user.Tier(), req.Address)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, searchResponse{
		Success:     true,
		SearchID:    record.ID.String(),
		Property:    record.Property,
		Comparables: record.Comparables,
	})
}

type searchDetailResponse struct {
	ID              string                    `json:"id"`
	PropertyAddress string                    `json:"propertyAddress"`
	Property        domain.PropertyRecord     `json:"property"`
	Comparables     []domain.ComparableRecord `json:"comparables"`
	CreatedAt       string                    `json:"createdAt"`
}

// GetSearch returns one of the caller's past searches.
func (h *SearchHandler) GetSearch(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	searchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("SearchHandler.GetSearch", "Invalid search ID"))
		return
	}

	record, err := h.searchService.GetSearch(r.Context(), user.ID, searchID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, searchDetailResponse{
		ID:              record.ID.String(),
		PropertyAddress: record.QueryAddress,
		Property:        record.Property,
		Comparables:     record.Comparables,
		CreatedAt:       record.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type historyResponse struct {
	Searches []domain.SearchSummary `json:"searches"`
	Total    int64                  `json:"total"`
}

// History lists the caller's most recent searches, newest first.
func (h *SearchHandler) History(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	history, err := h.searchService.History(r.Context(), user.ID, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, historyResponse{
		Searches: history.Searches,
		Total:    history.Total,
	})
}
