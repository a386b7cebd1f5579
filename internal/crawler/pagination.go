package crawler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NextPageURL derives the URL of page pageNo+1. An explicit next link in the pagination
// control wins; otherwise the "page" query parameter of currentURL is set to pageNo+1.
func NextPageURL(doc *goquery.Document, selector, currentURL string, pageNo int) (string, bool) {
	current, err := url.Parse(currentURL)
	if err != nil || current.Scheme == "" || current.Host == "" {
		return "", false
	}

	if doc != nil && selector != "" {
		var next string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr("href")
			href = strings.TrimSpace(href)
			if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
				return true
			}
			ref, err := url.Parse(href)
			if err != nil {
				return true
			}
			if resolved := current.ResolveReference(ref).String(); resolved != currentURL {
				next = resolved
				return false
			}
			return true
		})
		if next != "" {
			return next, true
		}
	}

	q := current.Query()
	q.Set("page", strconv.Itoa(pageNo+1))
	current.RawQuery = q.Encode()
	return current.String(), true
}
