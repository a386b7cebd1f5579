package crawler

import (
	"fmt"
	"strings"

	"sjsage522/carlistingworker/internal/listing"
)

// PakWheels is the provider name of the default marketplace.
const PakWheels = "PakWheels"

// Profile describes a marketplace layout.
type Profile struct {
	BaseURL   string
	Currency  string
	Selectors Selectors
}

// Profiles holds the known marketplace layouts keyed by provider name.
var Profiles = map[string]Profile{
	PakWheels: {
		BaseURL:  "https://www.pakwheels.com",
		Currency: listing.DefaultCurrency,
		Selectors: Selectors{
			Listing:        "li.classified-listing",
			StructuredData: `script[type="application/ld+json"]`,
			TitleLink:      "a.car-name.ad-detail-path",
			Price:          ".price-details",
			Specs:          "ul.search-vehicle-info-2 li",
			Info:           "ul.search-vehicle-info li",
			Image:          ".img-box img",
			FeaturedClass:  "featured-listing",
			FeaturedBadge:  ".featured-label",
			UpdatedAt:      ".search-bottom .pull-right",
			NextPage:       `a[rel="next"], li.next_page a, .pagination .next a`,
		},
	},
}

// DefaultSelectors returns the selectors of the default marketplace.
func DefaultSelectors() Selectors {
	return Profiles[PakWheels].Selectors
}

// LookupProvider finds a profile by case-insensitive provider name.
func LookupProvider(name string) (string, bool) {
	for provider := range Profiles {
		if strings.EqualFold(provider, strings.TrimSpace(name)) {
			return provider, true
		}
	}
	return "", false
}

// NewMarketplaceCrawler creates a crawler that fetches over HTTP with the pool's identities.
func NewMarketplaceCrawler(opts Options, pool IdentityPool) (*Crawler, error) {
	if opts.Provider != "" {
		provider, ok := LookupProvider(opts.Provider)
		if !ok && opts.BaseURL == "" {
			return nil, fmt.Errorf("unknown provider %q and no base url", opts.Provider)
		}
		if ok {
			opts.Provider = provider
		}
	}
	opts = opts.withDefaults()
	return New(opts, &HTTPFetcher{Provider: opts.Provider}, pool)
}
