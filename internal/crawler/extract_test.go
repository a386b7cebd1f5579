package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/carlistingworker/internal/listing"
)

const ldSelector = `script[type="application/ld+json"]`

func node(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<ul>" + html + "</ul>"))
	require.NoError(t, err)
	sel := doc.Find("li.classified-listing").First()
	require.Equal(t, 1, sel.Length())
	return sel
}

func withScript(payload string) string {
	return `<li class="classified-listing"><script type="application/ld+json">` + payload + `</script></li>`
}

func TestExtractStructured(t *testing.T) {
	p := ExtractStructured(node(t, listingHTML(7, true)), ldSelector, "PKR")
	require.NotNil(t, p)

	assert.Equal(t, "Toyota Corolla 7", *p.Title)
	assert.Equal(t, int64(4_500_007), *p.Price)
	assert.Equal(t, "PKR", *p.Currency)
	assert.Equal(t, 2018, *p.Year)
	assert.Equal(t, "65000", *p.Mileage)
	assert.Equal(t, "Petrol", *p.FuelType)
	assert.Equal(t, "Toyota", *p.Brand)

	// never supplied by structured data
	assert.Nil(t, p.URL)
	assert.Nil(t, p.ImageURL)
	assert.Nil(t, p.IsFeatured)
}

func TestExtractStructuredVariants(t *testing.T) {
	p := ExtractStructured(node(t, withScript(`{
		"@type": ["Car", "Product"],
		"name": "Honda Civic",
		"brand": "Honda",
		"offers": [{"price": 6250000.9}],
		"modelDate": 2021,
		"mileageFromOdometer": "12,000 km"
	}`)), ldSelector, "PKR")
	require.NotNil(t, p)

	assert.Equal(t, "Honda Civic", *p.Title)
	assert.Equal(t, "Honda", *p.Brand)
	// truncated, no unit inference
	assert.Equal(t, int64(6_250_000), *p.Price)
	assert.Equal(t, "PKR", *p.Currency)
	assert.Equal(t, 2021, *p.Year)
	assert.Equal(t, "12,000 km", *p.Mileage)
	assert.Nil(t, p.FuelType)
}

func TestExtractStructuredAbsent(t *testing.T) {
	testCases := map[string]string{
		"no script":     `<li class="classified-listing"><a class="car-name">x</a></li>`,
		"malformed":     withScript(`{"@type": "Product", "name": `),
		"wrong type":    withScript(`{"@type": "Organization", "name": "PakWheels"}`),
		"no type":       withScript(`{"name": "Toyota"}`),
		"not an object": withScript(`["Product"]`),
	}
	for name, html := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, ExtractStructured(node(t, html), ldSelector, "PKR"))
		})
	}
}

func TestExtractStructuredUnparsablePrice(t *testing.T) {
	p := ExtractStructured(node(t, withScript(`{"@type":"Product","name":"Alto","offers":{"price":"call","priceCurrency":"USD"}}`)), ldSelector, "PKR")
	require.NotNil(t, p)
	assert.Nil(t, p.Price)
	assert.Equal(t, "USD", *p.Currency)
}

func newMarkup(t *testing.T) *MarkupExtractor {
	t.Helper()
	m, err := NewMarkupExtractor("https://www.pakwheels.com", DefaultSelectors())
	require.NoError(t, err)
	return m
}

func TestMarkupExtract(t *testing.T) {
	p := newMarkup(t).Extract(node(t, listingHTML(3, false)))
	require.NotNil(t, p)

	assert.Equal(t, "Toyota Corolla GLi 2018 #3", *p.Title)
	assert.Equal(t, "https://www.pakwheels.com/used-cars/toyota-corolla-2018-for-sale-in-lahore-3", *p.URL)
	assert.Equal(t, int64(4_550_000), *p.Price)
	assert.Equal(t, 2018, *p.Year)
	assert.Equal(t, "65,000 km", *p.Mileage)
	assert.Equal(t, "Petrol", *p.FuelType)
	assert.Equal(t, "1300 cc", *p.EngineCapacity)
	assert.Equal(t, "Manual", *p.Transmission)
	assert.Equal(t, "Lahore", *p.Location)
	// lazy attribute wins, query dropped
	assert.Equal(t, "https://cache1.pakwheels.com/ad_pictures/3/corolla.jpg", *p.ImageURL)
	assert.False(t, *p.IsFeatured)
	assert.Equal(t, "Updated 2 hours ago", *p.UpdatedAt)
}

func TestMarkupExtractMissingElements(t *testing.T) {
	html := `<li class="classified-listing featured-listing">
		<a class="car-name ad-detail-path" href="https://www.pakwheels.com/used-cars/alto-1">Suzuki Alto</a>
		<ul class="search-vehicle-info-2"><li>2020</li><li>12,000 km</li></ul>
		<div class="img-box"><img src="https://cache1.pakwheels.com/alto.jpg"></div>
	</li>`

	p := newMarkup(t).Extract(node(t, html))
	require.NotNil(t, p)

	assert.Equal(t, "Suzuki Alto", *p.Title)
	assert.Equal(t, 2020, *p.Year)
	assert.Equal(t, "12,000 km", *p.Mileage)
	assert.Nil(t, p.FuelType)
	assert.Nil(t, p.EngineCapacity)
	assert.Nil(t, p.Transmission)
	assert.Nil(t, p.Price)
	assert.Nil(t, p.Location)
	assert.Nil(t, p.UpdatedAt)
	assert.Equal(t, "https://cache1.pakwheels.com/alto.jpg", *p.ImageURL)
	assert.True(t, *p.IsFeatured)
}

func TestMarkupExtractEmptyNode(t *testing.T) {
	p := newMarkup(t).Extract(node(t, `<li class="classified-listing"></li>`))
	require.NotNil(t, p)
	assert.Nil(t, p.Title)
	assert.Nil(t, p.URL)
	assert.False(t, *p.IsFeatured)

	rec := listing.Merge(nil, p, "PKR")
	assert.False(t, rec.Valid())
}

func TestMarkupExtractFeaturedBadgeAndDataSrc(t *testing.T) {
	html := `<li class="classified-listing">
		<span class="featured-label">Featured</span>
		<a class="car-name ad-detail-path" href="/used-cars/city-9">Honda City</a>
		<div class="img-box"><img data-src="//cache2.pakwheels.com/city.webp?w=300" src="data:image/gif;base64,R0lGOD"></div>
	</li>`

	p := newMarkup(t).Extract(node(t, html))
	assert.True(t, *p.IsFeatured)
	assert.Equal(t, "https://cache2.pakwheels.com/city.webp", *p.ImageURL)
}

func TestMergedRecordPrefersStructured(t *testing.T) {
	n := node(t, listingHTML(1, true))
	rec := listing.Merge(ExtractStructured(n, ldSelector, "PKR"), newMarkup(t).Extract(n), "PKR")

	require.True(t, rec.Valid())
	assert.Equal(t, "Toyota Corolla 1", rec.Title)
	assert.Equal(t, int64(4_500_001), *rec.Price)
	assert.Equal(t, "65000", *rec.Mileage)
	assert.Equal(t, "Toyota", *rec.Brand)
	assert.Equal(t, "1300 cc", *rec.EngineCapacity)
}

func TestNewMarkupExtractorRejectsRelativeBase(t *testing.T) {
	_, err := NewMarkupExtractor("/used-cars", DefaultSelectors())
	assert.Error(t, err)
}
