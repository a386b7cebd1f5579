// Package listing holds the vehicle listing record types, the merge rule between
// the two extraction sources, and the locale-specific normalizers.
package listing

import "strings"

// DefaultCurrency is the marketplace's local currency.
const DefaultCurrency = "PKR"

// PartialRecord is what a single extractor could recover from one listing node.
// A nil field means the extractor had nothing for it.
type PartialRecord struct {
	Title          *string
	URL            *string
	Price          *int64
	Currency       *string
	Year           *int
	Mileage        *string
	FuelType       *string
	Brand          *string
	EngineCapacity *string
	Transmission   *string
	Location       *string
	ImageURL       *string
	IsFeatured     *bool
	UpdatedAt      *string
}

// Record is a merged, persisted vehicle listing.
type Record struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Price          *int64  `json:"price"`
	Currency       string  `json:"currency"`
	Year           *int    `json:"year"`
	Mileage        *string `json:"mileage"`
	FuelType       *string `json:"fuel_type"`
	Brand          *string `json:"brand,omitempty"`
	EngineCapacity *string `json:"engine_capacity"`
	Transmission   *string `json:"transmission"`
	Location       *string `json:"location"`
	ImageURL       *string `json:"image_url"`
	IsFeatured     bool    `json:"is_featured"`
	UpdatedAt      *string `json:"updated_at"`
}

// Valid reports whether the record carries the minimum to be emitted.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && strings.TrimSpace(r.URL) != ""
}

// String returns a pointer to the trimmed s, or nil when s is blank.
func String(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences p, returning "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
