package session

import (
	"fmt"
	mathrand "math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"sjsage522/carlistingworker/helpers"
)

// Identity is a reusable set of request credentials: proxy, headers and cookies.
type Identity struct {
	ID       string
	ProxyURL string
	Header   http.Header
	Client   *http.Client
}

// Key identifies the identity across runs. Proxy-backed identities are keyed by
// proxy so a tainted proxy stays tainted after a restart.
func (i *Identity) Key() string {
	if i.ProxyURL != "" {
		return "proxy:" + i.ProxyURL
	}
	return "direct:" + i.ID
}

// String returns a log-friendly label.
func (i *Identity) String() string {
	short := i.ID[:min(len(i.ID), 8)]
	if i.ProxyURL != "" {
		return short + "@" + redact(i.ProxyURL)
	}
	return short + "@direct"
}

// NewIdentity creates an identity with its own cookie jar, browser headers and,
// when proxyURL is set, a transport routed through that proxy (http, https, socks5).
func NewIdentity(proxyURL string, timeout time.Duration, rnd *mathrand.Rand) (*Identity, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil || parsed.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", redact(proxyURL))
		}
		switch parsed.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", parsed.Scheme)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}

	return &Identity{
		ID:       uuid.NewString(),
		ProxyURL: proxyURL,
		Header:   helpers.BrowserHeaders(rnd),
		Client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   timeout,
		},
	}, nil
}

// BuildIdentities creates one identity per proxy, or directCount proxy-less
// identities when no proxies are given.
func BuildIdentities(proxies []string, directCount int, timeout time.Duration) ([]*Identity, error) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	var identities []*Identity
	if len(proxies) == 0 {
		if directCount < 1 {
			directCount = 1
		}
		for i := 0; i < directCount; i++ {
			id, err := NewIdentity("", timeout, rnd)
			if err != nil {
				return nil, err
			}
			identities = append(identities, id)
		}
		return identities, nil
	}

	for _, p := range proxies {
		id, err := NewIdentity(p, timeout, rnd)
		if err != nil {
			return nil, err
		}
		identities = append(identities, id)
	}
	return identities, nil
}

// redact hides proxy credentials in logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
