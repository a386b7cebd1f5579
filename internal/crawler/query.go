package crawler

import (
	"net/url"
	"strconv"
	"strings"

	"sjsage522/carlistingworker/helpers"
)

const (
	DefaultResultsWanted = 100
	DefaultMaxPages      = 20
)

// FilterSpec is the user-facing search description.
type FilterSpec struct {
	City  string
	Make  string
	Model string

	// nil means unbounded
	MinPrice *int
	MaxPrice *int
	MinYear  *int
	MaxYear  *int

	ResultsWanted int
	MaxPages      int

	// StartURL, when set, is used verbatim and overrides every filter above.
	StartURL string
}

// NewFilterSpec returns a FilterSpec with the default limits.
func NewFilterSpec() FilterSpec {
	return FilterSpec{ResultsWanted: DefaultResultsWanted, MaxPages: DefaultMaxPages}
}

// Normalize trims the text filters and coerces both limits to at least 1.
func (f FilterSpec) Normalize() FilterSpec {
	f.City = strings.TrimSpace(f.City)
	f.Make = strings.TrimSpace(f.Make)
	f.Model = strings.TrimSpace(f.Model)
	f.StartURL = strings.TrimSpace(f.StartURL)
	if f.ResultsWanted < 1 {
		f.ResultsWanted = 1
	}
	if f.MaxPages < 1 {
		f.MaxPages = 1
	}
	return f
}

// BuildSearchURL builds the first search page URL:
//
//	{base}/used-cars/{city}/{make}[-{model}]/?price_from=&price_to=&year_from=&year_to=
//
// Segments are lower-cased with whitespace runs turned into dashes. Model is only used
// together with make. Unset bounds are omitted.
func BuildSearchURL(baseURL string, f FilterSpec) string {
	if start := strings.TrimSpace(f.StartURL); start != "" {
		return start
	}

	path := strings.TrimRight(baseURL, "/") + "/used-cars/"

	if city := helpers.Slugify(f.City, "-"); city != "" {
		path += url.PathEscape(city) + "/"
	}

	if mk := helpers.Slugify(f.Make, "-"); mk != "" {
		segment := mk
		if model := helpers.Slugify(f.Model, "-"); model != "" {
			segment += "-" + model
		}
		path += url.PathEscape(segment) + "/"
	}

	params := url.Values{}
	setBound(params, "price_from", f.MinPrice)
	setBound(params, "price_to", f.MaxPrice)
	setBound(params, "year_from", f.MinYear)
	setBound(params, "year_to", f.MaxYear)

	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

func setBound(params url.Values, key string, v *int) {
	if v != nil {
		params.Set(key, strconv.Itoa(*v))
	}
}
