package publisher

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/carlistingworker/internal/listing"
)

func TestPostgresPublisher(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping test")
	}
	ctx := testContext(t)

	publisher, err := NewPostgresPublisher(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres is not available, skipping test: %v", err)
	}
	defer publisher.Close()

	require.NoError(t, publisher.EnsureSchema(ctx))
	_, err = publisher.pool.Exec(ctx, "DELETE FROM listings WHERE url LIKE 'https://test.example.com/%'")
	require.NoError(t, err)

	before, err := publisher.Count(ctx)
	require.NoError(t, err)

	year := 2018
	records := []listing.Record{
		{Title: "Toyota Corolla", URL: "https://test.example.com/1", Currency: "PKR", Year: &year},
		{Title: "Toyota Corolla", URL: "https://test.example.com/1", Currency: "PKR"},
		{Title: "Honda City", URL: "https://test.example.com/2", Currency: "PKR", IsFeatured: true},
	}
	require.NoError(t, publisher.PushBatch(ctx, records))

	// the duplicate URL is skipped
	after, err := publisher.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, after)
}
