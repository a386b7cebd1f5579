package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	crawlerrors "sjsage522/carlistingworker/pkg/errors"
)

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 10 * 1024 * 1024

// HTTP header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	}

	acceptLanguages = []string{
		"en-US,en;q=0.9",
		"en-PK,en;q=0.9,ur;q=0.8",
		"en-GB,en;q=0.9,en-US;q=0.8",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}
)

// BrowserHeaders builds a browser-like header set. Each identity keeps the set it
// was created with so that its fingerprint stays stable across requests.
func BrowserHeaders(rnd *mathrand.Rand) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Language", acceptLanguages[rnd.Intn(len(acceptLanguages))])
	h.Set("Cache-Control", "no-cache")
	h.Set("Referer", referers[rnd.Intn(len(referers))])
	h.Set("Pragma", "no-cache")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "cross-site")
	h.Set("Sec-Fetch-User", "?1")
	return h
}

// FetchWithHeaders sends an HTTP GET request with the given headers, converts the
// response body to UTF-8 (if needed) and returns it with the status code.
//
// 429/430 responses come back as rate-limit errors, any other non-2xx status and
// transport failures as network errors.
func FetchWithHeaders(ctx context.Context, client *http.Client, provider, url string, header http.Header) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, crawlerrors.NewNetwork(provider, "failed to create request", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, crawlerrors.NewNetwork(provider, "failed to fetch "+url, err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return nil, resp.StatusCode, crawlerrors.NewRateLimit(provider, ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, crawlerrors.NewNetwork(provider, fmt.Sprintf("fetch %s unexpected status code: %d", url, resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, resp.StatusCode, crawlerrors.NewNetwork(provider, "failed to read response body", err)
	}

	decoded, err := DecodeBody(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, resp.StatusCode, crawlerrors.NewParsing(provider, "failed to decode response body", err)
	}
	return decoded, resp.StatusCode, nil
}

// DecodeBody converts body to UTF-8 using the Content-Type header and the body itself.
func DecodeBody(body []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)

	// If already UTF-8, return as is
	if strings.EqualFold(name, "utf-8") {
		return body, nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseRetryAfter interprets a Retry-After header (seconds or HTTP date).
// Unparsable or missing values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
