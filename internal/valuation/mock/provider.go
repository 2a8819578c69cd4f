package mock

import (
	"context"
	"log/slog"
	"strings"

	"github.com/comphound/comphound/internal/valuation"
)

// Provider is a mock valuation provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	SearchComparablesResponse *valuation.RawResponse
	SearchComparablesError    error

	// Call tracking for testing
	SearchComparablesCalls int
	LastAddress            string
	LastLimit              int
}

// New creates a new mock valuation provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// SearchComparables returns a canned subject property and comparables
func (p *Provider) SearchComparables(ctx context.Context, address string, limit int) (*valuation.RawResponse, error) {
	p.SearchComparablesCalls++
	p.LastAddress = address
	p.LastLimit = limit

	// If a custom response or error is set, use it
	if p.SearchComparablesError != nil {
		return nil, p.SearchComparablesError
	}
	if p.SearchComparablesResponse != nil {
		return p.SearchComparablesResponse, nil
	}

	street := address
	if idx := strings.Index(address, ","); idx > 0 {
		street = address[:idx]
	}

	// Default canned response: one subject with three sold comparables
	comparables := []valuation.Document{
		{
			"id":               "comp-1",
			"formattedAddress": "410 Maple Ave, Austin, TX 78704",
			"addressLine1":     "410 Maple Ave",
			"city":             "Austin",
			"state":            "TX",
			"zipCode":          "78704",
			"latitude":         30.2482,
			"longitude":        -97.7551,
			"propertyType":     "Single Family",
			"bedrooms":         3.0,
			"bathrooms":        2.0,
			"squareFootage":    1710.0,
			"lotSize":          6400.0,
			"yearBuilt":        1998.0,
			"lastSalePrice":    455000.0,
			"lastSaleDate":     "2025-11-02T00:00:00.000Z",
			"distance":         0.34,
			"correlation":      0.96,
		},
		{
			"id":               "comp-2",
			"formattedAddress": "88 Cedar Ct, Austin, TX 78704",
			"addressLine1":     "88 Cedar Ct",
			"city":             "Austin",
			"state":            "TX",
			"zipCode":          "78704",
			"latitude":         30.2447,
			"longitude":        -97.7602,
			"propertyType":     "Single Family",
			"bedrooms":         4.0,
			"bathrooms":        2.5,
			"squareFootage":    1925.0,
			"lotSize":          7100.0,
			"yearBuilt":        2004.0,
			"lastSalePrice":    492500.0,
			"lastSaleDate":     "2026-01-18T00:00:00.000Z",
			"distance":         0.61,
			"correlation":      0.91,
		},
		{
			"id":               "comp-3",
			"formattedAddress": "1207 Elm St, Austin, TX 78704",
			"addressLine1":     "1207 Elm St",
			"city":             "Austin",
			"state":            "TX",
			"zipCode":          "78704",
			"latitude":         30.2511,
			"longitude":        -97.7489,
			"propertyType":     "Single Family",
			"bedrooms":         3.0,
			"bathrooms":        2.0,
			"squareFootage":    1655.0,
			"lotSize":          5900.0,
			"yearBuilt":        1995.0,
			"lastSalePrice":    438000.0,
			"lastSaleDate":     "2025-09-27T00:00:00.000Z",
			"distance":         0.82,
			"correlation":      0.89,
		},
	}
	if limit > 0 && len(comparables) > limit {
		comparables = comparables[:limit]
	}

	return &valuation.RawResponse{
		Property: valuation.Document{
			"id":               "subject-1",
			"formattedAddress": address,
			"addressLine1":     street,
			"city":             "Austin",
			"state":            "TX",
			"zipCode":          "78704",
			"latitude":         30.2465,
			"longitude":        -97.7523,
			"propertyType":     "Single Family",
			"bedrooms":         3.0,
			"bathrooms":        2.0,
			"squareFootage":    1742.0,
			"lotSize":          6550.0,
			"yearBuilt":        2001.0,
			"lastSalePrice":    410000.0,
			"lastSaleDate":     "2022-06-14T00:00:00.000Z",
			"price":            468000.0,
			"rentEstimate":     2450.0,
		},
		Comparables: comparables,
	}, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.SearchComparablesCalls = 0
	p.LastAddress = ""
	p.LastLimit = 0
	p.SearchComparablesResponse = nil
	p.SearchComparablesError = nil
}
