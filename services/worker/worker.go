// Package worker drives crawl runs, once or on a fixed interval.
package worker

import (
	"context"
	"time"

	"sjsage522/carlistingworker/internal/crawler"
	"sjsage522/carlistingworker/logger"
	"sjsage522/carlistingworker/services/emitter"
	"sjsage522/carlistingworker/services/publisher"
)

// Runner runs one crawl.
type Runner interface {
	Run(ctx context.Context, f crawler.FilterSpec, sink crawler.Sink) (crawler.Stats, error)
}

// Worker handles the crawling and publishing process
type Worker struct {
	runner        Runner
	publisher     publisher.Publisher
	filter        crawler.FilterSpec
	batchSize     int
	crawlInterval time.Duration
	log           *logger.Logger
}

// NewWorker creates a new worker. A non-positive crawlInterval makes Start run once.
func NewWorker(
	runner Runner,
	pub publisher.Publisher,
	filter crawler.FilterSpec,
	batchSize int,
	crawlInterval time.Duration,
) *Worker {
	return &Worker{
		runner:        runner,
		publisher:     pub,
		filter:        filter,
		batchSize:     batchSize,
		crawlInterval: crawlInterval,
		log:           logger.ForWorker(),
	}
}

// Start runs crawls until ctx is done. In run-once mode the run's error is returned;
// in interval mode failed runs are logged and the loop goes on.
func (w *Worker) Start(ctx context.Context) error {
	if w.crawlInterval <= 0 {
		_, err := w.RunOnce(ctx)
		return err
	}

	w.log.Info().Dur("interval", w.crawlInterval).Msg("Worker started")
	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Error().Err(err).Msg("Crawl run failed")
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return nil
		case <-time.After(w.crawlInterval):
		}
	}
}

// RunOnce runs a single crawl with a fresh emitter, then trims the sink if it supports it.
func (w *Worker) RunOnce(ctx context.Context) (crawler.Stats, error) {
	start := time.Now()
	em := emitter.New(w.publisher, w.batchSize)

	stats, err := w.runner.Run(ctx, w.filter, em)

	if trimmer, ok := w.publisher.(publisher.Trimmer); ok {
		if terr := trimmer.Trim(context.WithoutCancel(ctx)); terr != nil {
			w.log.Warn().Err(terr).Msg("Sink trim failed")
		}
	}

	w.log.Info().
		Str("run_id", stats.RunID).
		Int("saved", stats.Saved).
		Int("pushed", em.Pushed()).
		Str("stop_reason", string(stats.StopReason)).
		Dur("elapsed", time.Since(start)).
		Msg("Crawl run complete")

	return stats, err
}
