package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"sjsage522/carlistingworker/internal/listing"
	"sjsage522/carlistingworker/logger"
	crawlerrors "sjsage522/carlistingworker/pkg/errors"
)

// RedisField is the stream entry field holding the base64 encoded JSON record.
const RedisField = "b64_listing"

// RedisPublisher implements Publisher on a Redis stream
type RedisPublisher struct {
	client          *redis.Client
	stream          string
	streamMaxLength int64
	log             *logger.Logger
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, stream string, streamMaxLength int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		stream:          stream,
		streamMaxLength: streamMaxLength,
		log:             logger.ForPublisher(SinkRedis),
	}
}

// Ping checks the connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// PushBatch adds one stream entry per record in a single MULTI/EXEC transaction, so a
// failed batch leaves no entries behind. Each record is JSON encoded, then base64 encoded.
func (p *RedisPublisher) PushBatch(ctx context.Context, records []listing.Record) error {
	if len(records) == 0 {
		return nil
	}

	pipe := p.client.TxPipeline()
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return crawlerrors.NewPublisher(SinkRedis, "failed to encode record", err)
		}

		args := &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]interface{}{
				RedisField: base64.StdEncoding.EncodeToString(data),
			},
		}
		if p.streamMaxLength > 0 {
			args.MaxLen = p.streamMaxLength
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return crawlerrors.NewPublisher(SinkRedis, "XADD transaction failed", err)
	}

	p.log.Debug().Str("stream", p.stream).Int("records", len(records)).Msg("Batch published")
	return nil
}

// Trim trims the stream to the configured maximum length
func (p *RedisPublisher) Trim(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	if err := p.client.XTrimMaxLen(ctx, p.stream, p.streamMaxLength).Err(); err != nil {
		return crawlerrors.NewPublisher(SinkRedis, "stream trim failed", err)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
