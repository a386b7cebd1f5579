package listing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func markupFixture() *PartialRecord {
	return &PartialRecord{
		Title:          ptr("Toyota Corolla GLi 2018"),
		URL:            ptr("https://www.pakwheels.com/used-cars/toyota-corolla-2018-123"),
		Price:          ptr(int64(4_999_999)),
		Currency:       ptr("PKR"),
		Year:           ptr(2018),
		Mileage:        ptr("65,000 km"),
		FuelType:       ptr("Petrol"),
		EngineCapacity: ptr("1300 cc"),
		Transmission:   ptr("Manual"),
		Location:       ptr("Lahore"),
		ImageURL:       ptr("https://cache1.pakwheels.com/a.jpg"),
		IsFeatured:     ptr(true),
		UpdatedAt:      ptr("Updated 2 hours ago"),
	}
}

func TestMergeStructuredWins(t *testing.T) {
	structured := &PartialRecord{
		Title:    ptr("Toyota Corolla 2018 GLi 1.3 VVTi"),
		Price:    ptr(int64(5_000_000)),
		Currency: ptr("PKR"),
		Year:     ptr(2017),
		Mileage:  ptr("65000"),
		FuelType: ptr("Gasoline"),
		Brand:    ptr("Toyota"),
	}

	r := Merge(structured, markupFixture(), DefaultCurrency)

	assert.Equal(t, "Toyota Corolla 2018 GLi 1.3 VVTi", r.Title)
	require.NotNil(t, r.Price)
	assert.Equal(t, int64(5_000_000), *r.Price)
	assert.Equal(t, 2017, *r.Year)
	assert.Equal(t, "65000", *r.Mileage)
	assert.Equal(t, "Gasoline", *r.FuelType)
	assert.Equal(t, "Toyota", *r.Brand)

	// markup-only fields
	assert.Equal(t, "https://www.pakwheels.com/used-cars/toyota-corolla-2018-123", r.URL)
	assert.Equal(t, "1300 cc", *r.EngineCapacity)
	assert.Equal(t, "Manual", *r.Transmission)
	assert.Equal(t, "Lahore", *r.Location)
	assert.Equal(t, "https://cache1.pakwheels.com/a.jpg", *r.ImageURL)
	assert.True(t, r.IsFeatured)
	assert.Equal(t, "Updated 2 hours ago", *r.UpdatedAt)
}

func TestMergeStructuredAbsent(t *testing.T) {
	r := Merge(nil, markupFixture(), DefaultCurrency)

	require.NotNil(t, r.Price)
	assert.Equal(t, int64(4_999_999), *r.Price)
	assert.Equal(t, "Toyota Corolla GLi 2018", r.Title)
	assert.Nil(t, r.Brand)
	assert.True(t, r.Valid())
}

func TestMergeNullStructuredFieldFallsBack(t *testing.T) {
	structured := &PartialRecord{Title: ptr("   "), Price: nil, Year: ptr(0)}

	r := Merge(structured, markupFixture(), DefaultCurrency)

	assert.Equal(t, "Toyota Corolla GLi 2018", r.Title)
	assert.Equal(t, int64(4_999_999), *r.Price)
	// zero is a value, not an absence
	assert.Equal(t, 0, *r.Year)
}

func TestMergeDefaultsCurrency(t *testing.T) {
	r := Merge(nil, &PartialRecord{Title: ptr("x"), URL: ptr("https://x")}, DefaultCurrency)
	assert.Equal(t, "PKR", r.Currency)
	assert.False(t, r.IsFeatured)
}

func TestRecordValid(t *testing.T) {
	assert.False(t, Merge(nil, &PartialRecord{Title: ptr("Civic")}, DefaultCurrency).Valid())
	assert.False(t, Merge(nil, &PartialRecord{URL: ptr("https://x")}, DefaultCurrency).Valid())
	assert.False(t, Merge(nil, nil, DefaultCurrency).Valid())
	assert.True(t, Merge(nil, &PartialRecord{Title: ptr("Civic"), URL: ptr("https://x")}, DefaultCurrency).Valid())
}

func TestRecordJSONShape(t *testing.T) {
	r := Merge(nil, &PartialRecord{Title: ptr("Civic"), URL: ptr("https://x")}, DefaultCurrency)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"title", "url", "price", "currency", "year", "mileage", "fuel_type",
		"engine_capacity", "transmission", "location", "image_url", "is_featured", "updated_at"} {
		assert.Contains(t, decoded, key)
	}
	assert.Nil(t, decoded["price"])
	assert.NotContains(t, decoded, "brand")
}
