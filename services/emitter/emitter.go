// Package emitter buffers listing records and pushes them to a publisher in batches.
package emitter

import (
	"context"
	"sync"

	"sjsage522/carlistingworker/internal/listing"
	"sjsage522/carlistingworker/logger"
	crawlerrors "sjsage522/carlistingworker/pkg/errors"
	"sjsage522/carlistingworker/services/publisher"
)

// DefaultBatchSize is the buffer size that triggers a flush.
const DefaultBatchSize = 25

// Emitter is safe for concurrent use. Records are pushed in batches of at most
// batchSize; a batch that fails to push stays buffered and is retried by the next flush.
type Emitter struct {
	mu        sync.Mutex
	buf       []listing.Record
	batchSize int
	pub       publisher.Publisher

	closeOnce sync.Once
	closeErr  error
	closed    bool

	pushed int
	log    *logger.Logger
}

// New creates an emitter on top of pub. batchSize < 1 falls back to DefaultBatchSize.
func New(pub publisher.Publisher, batchSize int) *Emitter {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Emitter{
		buf:       make([]listing.Record, 0, batchSize),
		batchSize: batchSize,
		pub:       pub,
		log:       logger.ForEmitter(),
	}
}

// Add buffers rec and flushes once the buffer reaches the batch size.
func (e *Emitter) Add(ctx context.Context, rec listing.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return crawlerrors.NewPublisher("emitter", "add after close", nil)
	}

	e.buf = append(e.buf, rec)
	if len(e.buf) < e.batchSize {
		return nil
	}
	return e.flushLocked(ctx)
}

// Flush pushes everything buffered.
func (e *Emitter) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked(ctx)
}

// Close runs the final flush. Only the first call does any work; later calls return
// the first call's result.
func (e *Emitter) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.closeErr = e.flushLocked(ctx)
		e.closed = true

		ev := e.log.Info()
		if e.closeErr != nil {
			ev = e.log.Error().Err(e.closeErr).Int("unflushed", len(e.buf))
		}
		ev.Int("pushed", e.pushed).Msg("Emitter closed")
	})
	return e.closeErr
}

// Pushed returns the number of records successfully handed to the publisher.
func (e *Emitter) Pushed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pushed
}

// Pending returns the number of buffered records.
func (e *Emitter) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buf)
}

// flushLocked pushes the buffer in batchSize chunks. The lock is held across the push
// so that no record is sent twice or skipped between concurrent flushes.
func (e *Emitter) flushLocked(ctx context.Context) error {
	for len(e.buf) > 0 {
		n := min(len(e.buf), e.batchSize)
		batch := make([]listing.Record, n)
		copy(batch, e.buf[:n])

		if err := e.pub.PushBatch(ctx, batch); err != nil {
			return crawlerrors.NewPublisher("emitter", "push batch failed", err)
		}

		e.buf = append(e.buf[:0], e.buf[n:]...)
		e.pushed += n
		e.log.Debug().Int("batch", n).Int("pushed", e.pushed).Msg("Batch pushed")
	}
	return nil
}
