package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/comphound/comphound/internal/domain"
)

func float64Ptr(v float64) *float64 { return &v }

func sampleRecord(userID uuid.UUID) *domain.SearchRecord {
	return &domain.SearchRecord{
		ID:           uuid.New(),
		UserID:       userID,
		QueryAddress: "5500 Grand Lake Dr, San Antonio, TX 78244",
		Property: domain.PropertyRecord{
			Address:        "5500 Grand Lake Dr, San Antonio, TX 78244",
			EstimatedValue: float64Ptr(221000),
		},
		Comparables: []domain.ComparableRecord{
			{Property: domain.PropertyRecord{Address: "5512 Grand Lake Dr", LastSoldPrice: float64Ptr(215000)}},
			{Property: domain.PropertyRecord{Address: "5427 Lakeview Dr", LastSoldPrice: float64Ptr(229500)}},
		},
		ComparablesCount: 2,
		CreatedAt:        time.Now().UTC(),
	}
}

func newSearchMux(user *domain.User, svc *mockSearchService) *http.ServeMux {
	h := NewSearchHandler(svc, testLogger())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, injectUser(user))
	return mux
}

func TestSearchHandler_Search(t *testing.T) {
	user := testUser()
	record := sampleRecord(user.ID)

	svc := &mockSearchService{
		PerformSearchFunc: func(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, address string) (*domain.SearchRecord, error) {
			if userID != user.ID {
				t.Errorf("expected user %s, got %s", user.ID, userID)
			}
			if tier != domain.SubscriptionTierFree {
				t.Errorf("expected free tier, got %s", tier)
			}
			return record, nil
		},
	}

	mux := newSearchMux(user, svc)

	body := `{"address":"5500 Grand Lake Dr, San Antonio, TX 78244"}`
	req := httptest.NewRequest("POST", "/api/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success     bool            `json:"success"`
		SearchID    string          `json:"searchId"`
		Property    json.RawMessage `json:"property"`
		Comparables []json.RawMessage `json:"comparables"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.SearchID != record.ID.String() {
		t.Errorf("expected search ID %s, got %s", record.ID, resp.SearchID)
	}
	if len(resp.Comparables) != 2 {
		t.Errorf("expected 2 comparables, got %d", len(resp.Comparables))
	}
}

func TestSearchHandler_Search_QuotaDenied(t *testing.T) {
	user := testUser()
	svc := &mockSearchService{
		PerformSearchFunc: func(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, address string) (*domain.SearchRecord, error) {
			return nil, domain.QuotaExceeded("SearchService.PerformSearch", 5, 5)
		},
	}

	mux := newSearchMux(user, svc)

	req := httptest.NewRequest("POST", "/api/search", strings.NewReader(`{"address":"somewhere"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for quota denial, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error response is not JSON: %v", err)
	}
	if !strings.Contains(body["error"], "limit") {
		t.Errorf("expected limit message, got %q", body["error"])
	}
}

func TestSearchHandler_Search_UpstreamFailure(t *testing.T) {
	user := testUser()
	svc := &mockSearchService{
		PerformSearchFunc: func(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier, address string) (*domain.SearchRecord, error) {
			return nil, domain.Upstream(nil, "SearchService.PerformSearch", "The valuation service is temporarily unavailable")
		},
	}

	mux := newSearchMux(user, svc)

	req := httptest.NewRequest("POST", "/api/search", strings.NewReader(`{"address":"somewhere"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for upstream failure, got %d", rec.Code)
	}
	assertErrorBody(t, rec)
}

func TestSearchHandler_Search_Unauthenticated(t *testing.T) {
	mux := newSearchMux(nil, &mockSearchService{})

	req := httptest.NewRequest("POST", "/api/search", strings.NewReader(`{"address":"somewhere"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestSearchHandler_GetSearch(t *testing.T) {
	user := testUser()
	record := sampleRecord(user.ID)

	svc := &mockSearchService{
		GetSearchFunc: func(ctx context.Context, userID, searchID uuid.UUID) (*domain.SearchRecord, error) {
			if searchID != record.ID {
				t.Errorf("expected search ID %s, got %s", record.ID, searchID)
			}
			return record, nil
		},
	}

	mux := newSearchMux(user, svc)

	req := httptest.NewRequest("GET", "/api/searches/"+record.ID.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["propertyAddress"] != record.QueryAddress {
		t.Errorf("expected query address, got %v", resp["propertyAddress"])
	}
}

func TestSearchHandler_GetSearch_InvalidID(t *testing.T) {
	mux := newSearchMux(testUser(), &mockSearchService{})

	req := httptest.NewRequest("GET", "/api/searches/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSearchHandler_GetSearch_NotFound(t *testing.T) {
	svc := &mockSearchService{
		GetSearchFunc: func(ctx context.Context, userID, searchID uuid.UUID) (*domain.SearchRecord, error) {
			return nil, domain.NotFound("SearchService.GetSearch", "search", searchID.String())
		},
	}

	mux := newSearchMux(testUser(), svc)

	req := httptest.NewRequest("GET", "/api/searches/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSearchHandler_History(t *testing.T) {
	user := testUser()
	var gotLimit int

	svc := &mockSearchService{
		HistoryFunc: func(ctx context.Context, userID uuid.UUID, limit int) (*domain.SearchHistory, error) {
			gotLimit = limit
			return &domain.SearchHistory{
				Searches: []domain.SearchSummary{
					{ID: uuid.New(), QueryAddress: "addr B", ComparablesCount: 3, CreatedAt: time.Now().UTC()},
					{ID: uuid.New(), QueryAddress: "addr A", ComparablesCount: 1, CreatedAt: time.Now().UTC().Add(-time.Hour)},
				},
				Total: 12,
			}, nil
		},
	}

	mux := newSearchMux(user, svc)

	req := httptest.NewRequest("GET", "/api/searches/history?limit=10", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != 10 {
		t.Errorf("expected limit 10 to be passed through, got %d", gotLimit)
	}

	var resp struct {
		Searches []domain.SearchSummary `json:"searches"`
		Total    int64                  `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.Searches) != 2 {
		t.Errorf("expected 2 summaries, got %d", len(resp.Searches))
	}
	if resp.Searches[0].QueryAddress != "addr B" {
		t.Errorf("expected newest first, got %q", resp.Searches[0].QueryAddress)
	}
	if resp.Total != 12 {
		t.Errorf("expected all-time total 12, got %d", resp.Total)
	}
}
