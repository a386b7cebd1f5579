package crawler

import (
	"time"

	"sjsage522/carlistingworker/internal/listing"
)

// Selectors contains CSS selectors for the elements of a search result page
type Selectors struct {
	Listing        string // one node per listing
	StructuredData string // embedded JSON-LD payload inside a listing node
	TitleLink      string
	Price          string
	Specs          string // ordered spec list: year, mileage, fuel, engine, transmission
	Info           string // secondary info list; the first item is the location
	Image          string
	FeaturedClass  string // class on the listing node itself
	FeaturedBadge  string
	UpdatedAt      string
	NextPage       string // explicit next link in the pagination control
}

// ImageAttrs lists the image attributes in order of preference, lazy-load first.
var ImageAttrs = []string{"data-original", "data-src", "src"}

// DefaultBlockTokens are the body substrings that mark an empty page as a block page.
var DefaultBlockTokens = []string{"captcha", "blocked", "access denied", "robot"}

// Options contains configuration for a crawler
type Options struct {
	Provider        string
	BaseURL         string
	Selectors       Selectors
	DefaultCurrency string

	Concurrency       int
	MaxRetries        int
	RetryBackoff      time.Duration
	MaxBackoff        time.Duration
	MinDelay          time.Duration
	MaxDelay          time.Duration
	RequestsPerSecond float64
	BlockTokens       []string
}

func (o Options) withDefaults() Options {
	if o.Provider == "" {
		o.Provider = PakWheels
	}
	if profile, ok := Profiles[o.Provider]; ok {
		if o.BaseURL == "" {
			o.BaseURL = profile.BaseURL
		}
		if o.Selectors == (Selectors{}) {
			o.Selectors = profile.Selectors
		}
		if o.DefaultCurrency == "" {
			o.DefaultCurrency = profile.Currency
		}
	}
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = listing.DefaultCurrency
	}
	if o.Concurrency < 1 {
		o.Concurrency = 5
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 2 * time.Minute
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = o.MinDelay
	}
	if len(o.BlockTokens) == 0 {
		o.BlockTokens = DefaultBlockTokens
	}
	return o
}

// StopReason says why a run stopped issuing fetches.
type StopReason string

const (
	StopTargetReached       StopReason = "target_reached"
	StopMaxPages            StopReason = "max_pages"
	StopFrontierExhausted   StopReason = "frontier_exhausted"
	StopIdentitiesExhausted StopReason = "identities_exhausted"
	StopCancelled           StopReason = "cancelled"
)

// Stats summarizes one run.
type Stats struct {
	RunID             string        `json:"run_id"`
	StartURL          string        `json:"start_url"`
	Saved             int           `json:"saved"`
	Skipped           int           `json:"skipped"`
	PagesVisited      int           `json:"pages_visited"`
	PagesFailed       int           `json:"pages_failed"`
	IdentitiesRetired int           `json:"identities_retired"`
	StopReason        StopReason    `json:"stop_reason"`
	Duration          time.Duration `json:"duration"`
}
