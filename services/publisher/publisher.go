// Package publisher contains the output sinks for listing records.
package publisher

import (
	"context"

	"sjsage522/carlistingworker/internal/listing"
)

// Publisher is an append-only batched output sink
type Publisher interface {
	// PushBatch appends records; no ordering across calls is promised
	PushBatch(ctx context.Context, records []listing.Record) error

	// Close closes the publisher connection
	Close() error
}

// Trimmer is implemented by sinks that bound their own size.
type Trimmer interface {
	// Trim trims the sink to its configured maximum length
	Trim(ctx context.Context) error
}

// Sink names accepted by the SINK setting.
const (
	SinkFile     = "file"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
)
