// Package normalize converts raw valuation provider payloads into canonical
// property and comparable records.
//
// Normalization is a pure function of its input: address resolution, field
// aliasing, media derivation, resolved-sale filtering, and truncation all
// happen here so the rest of the system only ever sees canonical shapes.
package normalize

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/comphound/comphound/internal/domain"
	"github.com/comphound/comphound/internal/valuation"
)

const (
	streetViewURLTemplate = "https://maps.googleapis.com/maps/api/streetview?size=600x400&location=%s,%s"
	mapSearchURLTemplate  = "https://www.google.com/maps/search/?api=1&query=%s"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// Response normalizes one raw provider response. The subject property falls
// back to queryAddress when the payload carries no address-like field.
// Comparables are filtered to closed sales, then truncated to comparablesCap
// in upstream order. Upstream pre-ranks comparables by relevance, so the
// order is never changed here.
func Response(raw *valuation.RawResponse, queryAddress string, comparablesCap int) (*domain.PropertyRecord, []domain.ComparableRecord, error) {
	const op = "normalize.Response"

	if raw == nil || len(raw.Property) == 0 {
		return nil, nil, &domain.Error{
			Code:    domain.EUPSTREAM,
			Op:      op,
			Message: "property not found",
		}
	}

	subject := Property(raw.Property, queryAddress)

	comparables := make([]domain.ComparableRecord, 0, len(raw.Comparables))
	for _, doc := range raw.Comparables {
		comp, ok := Comparable(doc)
		if !ok {
			continue
		}
		comparables = append(comparables, comp)
	}
	if comparablesCap >= 0 && len(comparables) > comparablesCap {
		comparables = comparables[:comparablesCap]
	}

	return subject, comparables, nil
}

// Property normalizes a single property document. fallbackAddress is used
// when no address can be resolved from the document itself; it may be empty.
func Property(doc valuation.Document, fallbackAddress string) *domain.PropertyRecord {
	address, fromPayload := resolveAddress(doc)
	if !fromPayload {
		address = fallbackAddress
	}

	record := &domain.PropertyRecord{
		Address:        address,
		City:           stringField(doc, cityKeys),
		State:          stringField(doc, stateKeys),
		PostalCode:     stringField(doc, postalCodeKeys),
		Latitude:       floatField(doc, latitudeKeys),
		Longitude:      floatField(doc, longitudeKeys),
		Bedrooms:       floatField(doc, bedroomsKeys),
		Bathrooms:      floatField(doc, bathroomsKeys),
		SquareFootage:  floatField(doc, squareFootageKeys),
		LotSize:        floatField(doc, lotSizeKeys),
		YearBuilt:      intField(doc, yearBuiltKeys),
		PropertyType:   displayPropertyType(stringField(doc, propertyTypeKeys)),
		EstimatedValue: floatField(doc, estimatedValueKeys),
		EstimatedRent:  floatField(doc, estimatedRentKeys),
		LastSoldPrice:  floatField(doc, lastSoldPriceKeys),
		LastSoldDate:   stringField(doc, lastSoldDateKeys),
		ImageURL:       stringField(doc, imageURLKeys),
		ListingURL:     stringField(doc, listingURLKeys),
	}

	deriveMedia(record, fromPayload)
	return record
}

// Comparable normalizes one comparable entry. Entries either wrap their
// property under a "property" key or carry the fields inline; ranking
// metadata (distance, similarity) lives on the outer entry in both shapes.
// Returns ok=false when the comparable is not a closed sale.
func Comparable(doc valuation.Document) (domain.ComparableRecord, bool) {
	inner := doc
	if nested, ok := doc["property"].(map[string]any); ok {
		inner = valuation.Document(nested)
	}

	property := Property(inner, "")
	if !property.IsResolvedSale() {
		return domain.ComparableRecord{}, false
	}

	return domain.ComparableRecord{
		Property:        *property,
		Distance:        floatField(doc, distanceKeys),
		SimilarityScore: floatField(doc, similarityKeys),
	}, true
}

// resolveAddress builds the display address for a document. Preference
// order: composed address, formatted address, assembled street components.
// The second return reports whether the address came from the payload.
func resolveAddress(doc valuation.Document) (string, bool) {
	if addr := stringField(doc, addressKeys); addr != "" {
		return addr, true
	}
	if addr := stringField(doc, formattedKeys); addr != "" {
		return addr, true
	}

	parts := make([]string, 0, 4)
	for _, keys := range [][]string{streetKeys, cityKeys, stateKeys, postalCodeKeys} {
		if part := stringField(doc, keys); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", "), true
	}

	return "", false
}

// deriveMedia fills missing image and listing URLs. Imagery comes from a
// street-view template when coordinates exist. The listing URL prefers a
// map search on the resolved address; an address that fell back to the
// caller's query is not trusted for derivation, so coordinates are used
// instead when available.
func deriveMedia(record *domain.PropertyRecord, addressFromPayload bool) {
	hasCoords := record.HasCoordinates()

	if record.ImageURL == "" && hasCoords {
		record.ImageURL = fmt.Sprintf(streetViewURLTemplate,
			formatCoord(*record.Latitude), formatCoord(*record.Longitude))
	}

	if record.ListingURL == "" {
		switch {
		case addressFromPayload && record.Address != "":
			record.ListingURL = fmt.Sprintf(mapSearchURLTemplate, url.QueryEscape(record.Address))
		case hasCoords:
			query := formatCoord(*record.Latitude) + "," + formatCoord(*record.Longitude)
			record.ListingURL = fmt.Sprintf(mapSearchURLTemplate, url.QueryEscape(query))
		}
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// displayPropertyType converts provider type tokens like "single_family"
// into display form.
func displayPropertyType(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(raw)
	return titleCaser.String(cleaned)
}

// stringField returns the first non-empty string value among keys.
func stringField(doc valuation.Document, keys []string) string {
	for _, key := range keys {
		value, ok := doc[key]
		if !ok || value == nil {
			continue
		}
		if s, ok := value.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// floatField returns the first numeric value among keys. JSON numbers
// arrive as float64; integer and string forms from older payload versions
// are accepted too.
func floatField(doc valuation.Document, keys []string) *float64 {
	for _, key := range keys {
		value, ok := doc[key]
		if !ok || value == nil {
			continue
		}
		if f, ok := toFloat(value); ok {
			return &f
		}
	}
	return nil
}

// intField returns the first numeric value among keys, truncated to int.
func intField(doc valuation.Document, keys []string) *int {
	if f := floatField(doc, keys); f != nil {
		i := int(*f)
		return &i
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
