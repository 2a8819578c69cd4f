// Package domain contains core business types and interfaces.
//
// This file defines the canonical property and comparable record shapes
// produced by the normalizer, and the persisted search record. These types
// are provider-agnostic: upstream payloads with drifting field names are
// reconciled into this shape before storage or display.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PropertyRecord is the canonical representation of a real-world property.
//
// Address is never empty: the normalizer reconstructs it from component
// fields or falls back to the caller's query string. All other attributes
// are optional and absent when the upstream payload did not carry them.
type PropertyRecord struct {
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"zipCode,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Bedrooms      *float64 `json:"bedrooms,omitempty"`
	Bathrooms     *float64 `json:"bathrooms,omitempty"`
	SquareFootage *float64 `json:"squareFootage,omitempty"`
	LotSize       *float64 `json:"lotSize,omitempty"`
	YearBuilt     *int     `json:"yearBuilt,omitempty"`
	PropertyType  string   `json:"propertyType,omitempty"`

	EstimatedValue *float64 `json:"estimatedValue,omitempty"`
	EstimatedRent  *float64 `json:"estimatedRent,omitempty"`
	LastSoldDate   string   `json:"lastSoldDate,omitempty"`
	LastSoldPrice  *float64 `json:"lastSoldPrice,omitempty"`

	ImageURL   string `json:"imageUrl,omitempty"`
	ListingURL string `json:"propertyUrl,omitempty"`
}

// HasCoordinates reports whether both geocoordinates are present.
func (p *PropertyRecord) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// IsResolvedSale reports whether the property carries a positive last-sold
// price, the signal that it represents a closed transaction rather than an
// active listing.
func (p *PropertyRecord) IsResolvedSale() bool {
	return p.LastSoldPrice != nil && *p.LastSoldPrice > 0
}

// ComparableRecord wraps a canonical property with the upstream-provided
// distance (miles) and similarity score. Both are optional and never
// computed locally.
type ComparableRecord struct {
	Property        PropertyRecord `json:"property"`
	Distance        *float64       `json:"distance,omitempty"`
	SimilarityScore *float64       `json:"similarityScore,omitempty"`
}

// SearchRecord is the persisted result of one search invocation. It is
// immutable after creation and owned exclusively by the requesting user;
// reads are scoped by owner-identity match.
type SearchRecord struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	QueryAddress     string
	Property         PropertyRecord
	Comparables      []ComparableRecord
	ComparablesCount int
	CreatedAt        time.Time
}

// SearchSummary is the lightweight history view of a search record.
type SearchSummary struct {
	ID               uuid.UUID `json:"id"`
	QueryAddress     string    `json:"propertyAddress"`
	ComparablesCount int       `json:"comparablesCount"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SearchHistory is one page of a user's search history plus the all-time
// total, so clients can page without a separate count request.
type SearchHistory struct {
	Searches []SearchSummary
	Total    int64
}
