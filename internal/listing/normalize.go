package listing

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	lakh  = 100_000
	crore = 10_000_000
)

var (
	priceStripRe = regexp.MustCompile(`[^\d.,]`)
	numberRe     = regexp.MustCompile(`\d+(?:\.\d+)?`)
	integerRe    = regexp.MustCompile(`\d+`)
	lakhRe       = regexp.MustCompile(`(?i)(?:^|[^a-z])(?:lacs?|lakhs?)\b`)
	croreRe      = regexp.MustCompile(`(?i)(?:^|[^a-z])crores?\b`)
	leadingIntRe = regexp.MustCompile(`^\s*[+-]?\d+`)
)

// ParsePrice turns displayed price text into an integer amount.
//
//	"PKR 12.5 lacs"  -> 1250000
//	"PKR 1.25 crore" -> 12500000
//	"PKR 12,500,000" -> 12500000
//
// It returns nil for empty or unparsable input.
func ParsePrice(text string) *int64 {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cleaned := strings.ReplaceAll(priceStripRe.ReplaceAllString(text, ""), ",", "")

	multiplier := 0.0
	switch {
	case lakhRe.MatchString(text):
		multiplier = lakh
	case croreRe.MatchString(text):
		multiplier = crore
	}

	if multiplier > 0 {
		num, err := strconv.ParseFloat(numberRe.FindString(cleaned), 64)
		if err != nil {
			return nil
		}
		v := int64(math.Round(num * multiplier))
		return &v
	}

	v, err := strconv.ParseInt(integerRe.FindString(cleaned), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// CanonicalImageURL drops the query string and fragment from an absolute image URL.
// Anything that does not parse as an absolute URL is returned unchanged.
func CanonicalImageURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host + u.EscapedPath()
}

// LeadingInt parses the integer prefix of s ("2018", "2018-01-01", "2018 model").
func LeadingInt(s string) *int {
	m := leadingIntRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return nil
	}
	return &v
}
