package crawler

import (
	"fmt"
	"strings"
)

// listingHTML renders one result-page listing node. i keeps urls and titles unique.
func listingHTML(i int, withStructured bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<li class="classified-listing">`)
	if withStructured {
		fmt.Fprintf(&b, `<script type="application/ld+json">{"@context":"https://schema.org","@type":"Product","name":"Toyota Corolla %d","brand":{"@type":"Brand","name":"Toyota"},"offers":{"@type":"Offer","price":"%d","priceCurrency":"PKR"},"modelDate":"2018","fuelType":"Petrol","mileageFromOdometer":{"@type":"QuantitativeValue","value":65000,"unitCode":"KMT"}}</script>`, i, 4_500_000+i)
	}
	fmt.Fprintf(&b, `<div class="img-box"><img src="/images/placeholder.gif" data-original="https://cache1.pakwheels.com/ad_pictures/%d/corolla.jpg?v=3"></div>`, i)
	fmt.Fprintf(&b, `<a class="car-name ad-detail-path" href="/used-cars/toyota-corolla-2018-for-sale-in-lahore-%d" title="Toyota Corolla GLi">Toyota Corolla GLi 2018 #%d</a>`, i, i)
	fmt.Fprintf(&b, `<div class="price-details generic-dark-grey">PKR 45.5 <span>lacs</span></div>`)
	fmt.Fprintf(&b, `<ul class="list-unstyled search-vehicle-info fs13"><li>Lahore</li><li>Punjab</li></ul>`)
	fmt.Fprintf(&b, `<ul class="list-unstyled search-vehicle-info-2 fs13"><li>2018</li><li>65,000 km</li><li>Petrol</li><li>1300 cc</li><li>Manual</li></ul>`)
	fmt.Fprintf(&b, `<div class="search-bottom"><div class="pull-right dated">Updated 2 hours ago</div></div>`)
	fmt.Fprintf(&b, `</li>`)
	return b.String()
}

// resultPage renders a search page with n listings numbered from first.
func resultPage(first, n int, nextHref string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Used cars for sale</title></head><body><ul class="list-unstyled search-results">`)
	for i := first; i < first+n; i++ {
		b.WriteString(listingHTML(i, true))
	}
	b.WriteString(`</ul>`)
	if nextHref != "" {
		fmt.Fprintf(&b, `<ul class="pagination"><li class="next_page"><a href="%s">Next</a></li></ul>`, nextHref)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

const captchaPage = `<!DOCTYPE html><html><body><h1>Please verify you are human</h1><div class="g-recaptcha">Complete the CAPTCHA to continue</div></body></html>`

const emptyPage = `<!DOCTYPE html><html><body><p>No results match your search.</p></body></html>`
