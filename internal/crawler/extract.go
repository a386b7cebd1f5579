package crawler

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/carlistingworker/helpers"
	"sjsage522/carlistingworker/internal/listing"
)

// structuredTypes are the schema.org types accepted as a listing payload.
var structuredTypes = []string{"Product", "Car", "Vehicle"}

// ExtractStructured reads the embedded JSON-LD payload of a listing node.
// It returns nil when the payload is missing, malformed or of another type.
func ExtractStructured(node *goquery.Selection, selector, defaultCurrency string) *listing.PartialRecord {
	script := node.Find(selector).First()
	if script.Length() == 0 {
		return nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(script.Text())), &data); err != nil {
		return nil
	}
	if !hasStructuredType(data["@type"]) {
		return nil
	}

	p := &listing.PartialRecord{
		Title:    listing.String(stringOf(data["name"])),
		FuelType: listing.String(stringOf(data["fuelType"])),
		Brand:    listing.String(nameOf(data["brand"])),
		Year:     listing.LeadingInt(stringOf(data["modelDate"])),
		Mileage:  listing.String(nameOrValue(data["mileageFromOdometer"])),
	}

	offer := firstObject(data["offers"])
	p.Price = structuredPrice(offer["price"])
	p.Currency = listing.String(stringOf(offer["priceCurrency"]))
	if p.Currency == nil {
		p.Currency = listing.String(defaultCurrency)
	}
	return p
}

func hasStructuredType(v any) bool {
	var types []string
	switch t := v.(type) {
	case string:
		types = []string{t}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				types = append(types, s)
			}
		}
	}
	for _, t := range types {
		for _, accepted := range structuredTypes {
			if t == accepted {
				return true
			}
		}
	}
	return false
}

// stringOf renders JSON scalars as text; objects and arrays yield "".
func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// nameOf accepts either {"name": "..."} or a plain string.
func nameOf(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return stringOf(obj["name"])
	}
	return stringOf(v)
}

// nameOrValue accepts either {"value": ...} (QuantitativeValue) or a plain scalar.
func nameOrValue(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return stringOf(obj["value"])
	}
	return stringOf(v)
}

// firstObject returns v as an object, or the first object of an array.
func firstObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				return obj
			}
		}
	}
	return map[string]any{}
}

// structuredPrice is a plain numeric parse: structured prices are already in base units.
// Fractions are truncated. Zero and negative amounts count as missing.
func structuredPrice(v any) *int64 {
	var amount int64
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		amount = int64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		amount = int64(f)
	default:
		return nil
	}
	if amount <= 0 {
		return nil
	}
	return &amount
}

// MarkupExtractor reads listing fields from the visible markup of a listing node.
type MarkupExtractor struct {
	base      *url.URL
	selectors Selectors
}

// NewMarkupExtractor creates a markup extractor resolving relative links against baseURL.
func NewMarkupExtractor(baseURL string, selectors Selectors) (*MarkupExtractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	return &MarkupExtractor{base: base, selectors: selectors}, nil
}

// Extract never fails: any missing element leaves its field nil.
func (e *MarkupExtractor) Extract(node *goquery.Selection) *listing.PartialRecord {
	sel := e.selectors
	p := &listing.PartialRecord{}

	link := node.Find(sel.TitleLink).First()
	title := helpers.CleanText(link.Text())
	if title == "" {
		title, _ = link.Attr("title")
	}
	p.Title = listing.String(title)
	if href, ok := link.Attr("href"); ok {
		p.URL = listing.String(e.resolve(href))
	}

	p.Price = listing.ParsePrice(node.Find(sel.Price).First().Text())

	var specs []string
	node.Find(sel.Specs).Each(func(_ int, s *goquery.Selection) {
		specs = append(specs, helpers.CleanText(s.Text()))
	})
	spec := func(i int) *string {
		if i < len(specs) {
			return listing.String(specs[i])
		}
		return nil
	}
	if year := spec(0); year != nil {
		p.Year = listing.LeadingInt(*year)
	}
	p.Mileage = spec(1)
	p.FuelType = spec(2)
	p.EngineCapacity = spec(3)
	p.Transmission = spec(4)

	p.Location = listing.String(helpers.CleanText(node.Find(sel.Info).First().Text()))

	img := node.Find(sel.Image).First()
	for _, attr := range ImageAttrs {
		if src, ok := img.Attr(attr); ok && strings.TrimSpace(src) != "" {
			p.ImageURL = listing.String(listing.CanonicalImageURL(e.resolve(src)))
			break
		}
	}

	featured := (sel.FeaturedClass != "" && node.HasClass(sel.FeaturedClass)) ||
		(sel.FeaturedBadge != "" && node.Find(sel.FeaturedBadge).Length() > 0)
	p.IsFeatured = &featured

	p.UpdatedAt = listing.String(helpers.CleanText(node.Find(sel.UpdatedAt).First().Text()))

	return p
}

// resolve makes href absolute against the base origin. Unparsable input is kept as is.
func (e *MarkupExtractor) resolve(href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return e.base.ResolveReference(ref).String()
}
