// Package rentcast implements the valuation.Provider interface against the
// RentCast property data API.
package rentcast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/comphound/comphound/internal/valuation"
)

const (
	// APIBaseURL is the base URL for the RentCast API.
	APIBaseURL = "https://api.rentcast.io/v1"

	// DefaultRequestTimeout bounds each HTTP call to the provider. A hung
	// upstream call fails the whole search rather than returning partial
	// data.
	DefaultRequestTimeout = 30 * time.Second
)

// Config contains configuration for the RentCast provider.
type Config struct {
	APIKey         string
	BaseURL        string        // Defaults to APIBaseURL; overridable for tests
	RequestTimeout time.Duration // Defaults to DefaultRequestTimeout
}

// Provider implements valuation.Provider using RentCast's HTTP API.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new RentCast provider.
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("rentcast API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = APIBaseURL
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// SearchComparables resolves the subject property for an address and fetches
// up to limit pre-ranked comparables for it. Two provider calls: a property
// lookup by address, then a comps request by the resolved property ID.
func (p *Provider) SearchComparables(ctx context.Context, address string, limit int) (*valuation.RawResponse, error) {
	property, err := p.fetchProperty(ctx, address)
	if err != nil {
		return nil, valuation.WrapError("fetch property", err)
	}

	propertyID, _ := property["id"].(string)
	if propertyID == "" {
		return nil, valuation.WrapError("fetch property", valuation.ErrNotFound)
	}

	comparables, err := p.fetchComparables(ctx, propertyID, limit)
	if err != nil {
		return nil, valuation.WrapError("fetch comparables", err)
	}

	return &valuation.RawResponse{
		Property:    property,
		Comparables: comparables,
	}, nil
}

// fetchProperty looks up the subject property by address.
func (p *Provider) fetchProperty(ctx context.Context, address string) (valuation.Document, error) {
	endpoint := fmt.Sprintf("%s/properties?address=%s", p.config.BaseURL, url.QueryEscape(address))

	body, err := p.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// The property endpoint may return a single object or a one-element
	// array depending on API version.
	var property valuation.Document
	if err := json.Unmarshal(body, &property); err != nil {
		var properties []valuation.Document
		if arrErr := json.Unmarshal(body, &properties); arrErr != nil {
			return nil, fmt.Errorf("unmarshal property response: %w", err)
		}
		if len(properties) == 0 {
			return nil, valuation.ErrNotFound
		}
		property = properties[0]
	}
	if len(property) == 0 {
		return nil, valuation.ErrNotFound
	}

	return property, nil
}

// fetchComparables fetches pre-ranked comparables for a resolved property.
func (p *Provider) fetchComparables(ctx context.Context, propertyID string, limit int) ([]valuation.Document, error) {
	endpoint := fmt.Sprintf("%s/properties/%s/comps?limit=%d",
		p.config.BaseURL, url.PathEscape(propertyID), limit)

	body, err := p.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var comparables []valuation.Document
	if err := json.Unmarshal(body, &comparables); err != nil {
		return nil, fmt.Errorf("unmarshal comparables response: %w", err)
	}

	return comparables, nil
}

// get executes an authenticated GET against the provider and returns the
// response body for 2xx responses.
func (p *Provider) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", p.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, valuation.ErrTimeout
		}
		return nil, valuation.ErrUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, p.mapHTTPError(resp.StatusCode, resp.Status, body)
	}

	return body, nil
}

// mapHTTPError maps provider status codes to valuation errors, carrying the
// provider's own message when the error body is parseable.
func (p *Provider) mapHTTPError(statusCode int, statusText string, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	message := errResp.Message
	if message == "" {
		message = statusText
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", valuation.ErrUnauthorized, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", valuation.ErrNotFound, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", valuation.ErrRateLimit, message)
	case http.StatusRequestTimeout:
		return fmt.Errorf("%w: %s", valuation.ErrTimeout, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", valuation.ErrUnavailable, message)
	default:
		return fmt.Errorf("rentcast API error (status %d): %s", statusCode, message)
	}
}

type apiErrorResponse struct {
	Message string `json:"message"`
}
