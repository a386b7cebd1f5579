package crawler

import (
	"context"

	"sjsage522/carlistingworker/helpers"
	"sjsage522/carlistingworker/services/session"
)

// Page is a fetched result page, already decoded to UTF-8.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves one URL under the given identity.
type Fetcher interface {
	Fetch(ctx context.Context, url string, id *session.Identity) (*Page, error)
}

// HTTPFetcher fetches with the identity's own client, cookie jar and headers.
type HTTPFetcher struct {
	Provider string
}

// Fetch sends a GET request. Failures are returned as CrawlerErrors (network, rate_limit, parsing).
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, id *session.Identity) (*Page, error) {
	body, status, err := helpers.FetchWithHeaders(ctx, id.Client, f.Provider, url, id.Header)
	if err != nil {
		return nil, err
	}
	return &Page{URL: url, StatusCode: status, Body: body}, nil
}
