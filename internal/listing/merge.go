package listing

// Merge combines the structured-data and markup extractions of one listing node.
//
// Precedence, field by field:
//
//	title, price, currency, year,
//	mileage, fuel type, brand        structured, then markup
//	url, engine capacity,
//	transmission, location, image,
//	featured flag, updated at        markup only
//
// Either argument may be nil. Currency falls back to defaultCurrency.
func Merge(structured, markup *PartialRecord, defaultCurrency string) Record {
	if structured == nil {
		structured = &PartialRecord{}
	}
	if markup == nil {
		markup = &PartialRecord{}
	}

	r := Record{
		Title:          Value(firstString(structured.Title, markup.Title)),
		URL:            Value(markup.URL),
		Price:          firstInt64(structured.Price, markup.Price),
		Currency:       Value(firstString(structured.Currency, markup.Currency)),
		Year:           firstInt(structured.Year, markup.Year),
		Mileage:        firstString(structured.Mileage, markup.Mileage),
		FuelType:       firstString(structured.FuelType, markup.FuelType),
		Brand:          firstString(structured.Brand, markup.Brand),
		EngineCapacity: nonBlank(markup.EngineCapacity),
		Transmission:   nonBlank(markup.Transmission),
		Location:       nonBlank(markup.Location),
		ImageURL:       nonBlank(markup.ImageURL),
		UpdatedAt:      nonBlank(markup.UpdatedAt),
	}
	if markup.IsFeatured != nil {
		r.IsFeatured = *markup.IsFeatured
	}
	if r.Currency == "" {
		r.Currency = defaultCurrency
	}
	return r
}

func nonBlank(p *string) *string {
	if p == nil {
		return nil
	}
	return String(*p)
}

func firstString(values ...*string) *string {
	for _, v := range values {
		if s := nonBlank(v); s != nil {
			return s
		}
	}
	return nil
}

func firstInt64(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
