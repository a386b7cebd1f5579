package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sjsage522/carlistingworker/helpers"
	"sjsage522/carlistingworker/internal/listing"
	"sjsage522/carlistingworker/logger"
	crawlerrors "sjsage522/carlistingworker/pkg/errors"
	"sjsage522/carlistingworker/services/session"
)

// Sink receives the records of a run. Close flushes whatever is still buffered and is
// called exactly once at the end of every run.
type Sink interface {
	Add(ctx context.Context, rec listing.Record) error
	Close(ctx context.Context) error
}

// IdentityPool hands out identities exclusively.
type IdentityPool interface {
	Acquire(ctx context.Context) (*session.Identity, error)
	Release(id *session.Identity)
	Retire(id *session.Identity, reason string) int
}

// reviver is implemented by pools whose retired identities can come back once their
// taint expires.
type reviver interface {
	Revive() int
}

// Crawler runs the fetch/parse/enqueue loop over a marketplace's search results.
type Crawler struct {
	opts     Options
	fetcher  Fetcher
	pool     IdentityPool
	markup   *MarkupExtractor
	throttle *Throttle
	log      *logger.Logger
}

// New creates a crawler.
func New(opts Options, fetcher Fetcher, pool IdentityPool) (*Crawler, error) {
	opts = opts.withDefaults()

	markup, err := NewMarkupExtractor(opts.BaseURL, opts.Selectors)
	if err != nil {
		return nil, crawlerrors.NewConfiguration("invalid crawler options", err)
	}
	if fetcher == nil || pool == nil {
		return nil, crawlerrors.NewConfiguration("crawler needs a fetcher and an identity pool", nil)
	}

	return &Crawler{
		opts:     opts,
		fetcher:  fetcher,
		pool:     pool,
		markup:   markup,
		throttle: NewThrottle(opts.RequestsPerSecond, opts.MinDelay, opts.MaxDelay),
		log:      logger.ForCrawler(opts.Provider),
	}, nil
}

// GetProvider returns the provider name for the crawler
func (c *Crawler) GetProvider() string {
	return c.opts.Provider
}

// Run crawls the search results described by f and hands every valid record to sink.
// sink is closed exactly once before Run returns, whatever the outcome.
//
// Per-page failures never fail the run. Run only returns an error when the start page
// could not be fetched at all, or when the final flush fails.
func (c *Crawler) Run(ctx context.Context, f FilterSpec, sink Sink) (stats Stats, err error) {
	f = f.Normalize()
	seed := BuildSearchURL(c.opts.BaseURL, f)
	runID := uuid.NewString()
	started := time.Now()

	log := c.log.WithFields(logger.Fields{"run_id": runID})
	log.Info().
		Str("url", seed).
		Int("results_wanted", f.ResultsWanted).
		Int("max_pages", f.MaxPages).
		Int("concurrency", c.opts.Concurrency).
		Msg("Starting crawl")

	if r, ok := c.pool.(reviver); ok {
		if n := r.Revive(); n > 0 {
			log.Info().Int("identities", n).Msg("Reusing identities with expired taint")
		}
	}

	state := NewCrawlState(f.ResultsWanted, f.MaxPages, PageRequest{URL: seed, PageNo: 1})

	defer func() {
		if cerr := sink.Close(context.WithoutCancel(ctx)); cerr != nil {
			log.Error().Err(cerr).Msg("Final flush failed")
			if err == nil {
				err = cerr
			}
		}
	}()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-watchCtx.Done()
		if ctx.Err() != nil {
			state.Stop(StopCancelled)
		}
	}()

	var g errgroup.Group
	for i := 0; i < c.opts.Concurrency; i++ {
		g.Go(func() error {
			for {
				req, ok := state.Next()
				if !ok {
					return nil
				}
				c.processPage(ctx, log, state, sink, req, req.URL == seed && req.PageNo == 1)
				if ctx.Err() != nil {
					state.Stop(StopCancelled)
				}
				state.Done()
			}
		})
	}
	_ = g.Wait()

	stats = state.Stats()
	stats.RunID = runID
	stats.StartURL = seed
	stats.Duration = time.Since(started)

	log.Info().
		Int("saved", stats.Saved).
		Int("skipped", stats.Skipped).
		Int("pages", stats.PagesVisited).
		Int("failed", stats.PagesFailed).
		Int("retired", stats.IdentitiesRetired).
		Str("stop_reason", string(stats.StopReason)).
		Dur("duration", stats.Duration).
		Msg("Crawl finished")

	if seedErr := state.SeedError(); seedErr != nil {
		return stats, crawlerrors.NewNetwork(c.opts.Provider, "start url unreachable: "+seed, seedErr)
	}
	return stats, nil
}

// processPage fetches and parses one page, retrying up to MaxRetries times.
// Transport failures back off exponentially; a block retires the identity and
// retries at once with another one.
func (c *Crawler) processPage(ctx context.Context, log *logger.Logger, state *CrawlState, sink Sink, req PageRequest, isSeed bool) {
	pageLog := log.WithFields(logger.Fields{"url": req.URL, "page": req.PageNo})

	var lastErr error
	attempts := c.opts.MaxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		id, err := c.pool.Acquire(ctx)
		if err != nil {
			if errors.Is(err, session.ErrExhausted) {
				pageLog.Warn().Msg("No identity left, abandoning page")
				state.Stop(StopIdentitiesExhausted)
				state.Fail()
			}
			return
		}

		if err := c.throttle.Wait(ctx); err != nil {
			c.pool.Release(id)
			return
		}

		page, err := c.fetcher.Fetch(ctx, req.URL, id)
		if err != nil {
			c.pool.Release(id)
			lastErr = err
			if ctx.Err() != nil {
				return
			}

			pageLog.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("identity", id.String()).
				Msg("Fetch failed")

			if !crawlerrors.IsRetryable(err) || attempt == attempts {
				break
			}
			if err := sleep(ctx, c.backoff(attempt, err)); err != nil {
				return
			}
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
		if err != nil {
			c.pool.Release(id)
			lastErr = crawlerrors.NewParsing(c.opts.Provider, "HTML parsing failed", err)
			break
		}

		nodes := doc.Find(c.opts.Selectors.Listing)
		if nodes.Length() == 0 && helpers.ContainsAnyFold(string(page.Body), c.opts.BlockTokens) {
			remaining := c.pool.Retire(id, "block page")
			state.Retired()
			lastErr = crawlerrors.NewBlocked(c.opts.Provider, "block page at "+req.URL)
			pageLog.Warn().
				Int("attempt", attempt).
				Str("identity", id.String()).
				Int("identities_left", remaining).
				Msg("Block detected, retiring identity")
			if logger.IsDebugEnabled() {
				pageLog.Debug().
					Str("title", helpers.CleanText(doc.Find("title").First().Text())).
					Int("status", page.StatusCode).
					Msg("Block page")
			}
			continue
		}
		c.pool.Release(id)

		state.Parsed()
		saved := c.emit(ctx, pageLog, state, sink, nodes)

		if nodes.Length() > 0 && state.ShouldContinue(req.PageNo) {
			if next, ok := NextPageURL(doc, c.opts.Selectors.NextPage, req.URL, req.PageNo); ok {
				state.Enqueue(PageRequest{URL: next, PageNo: req.PageNo + 1})
			}
		}

		if nodes.Length() == 0 {
			pageLog.Warn().Msg("No listings found on page")
		}
		pageLog.Info().
			Int("listings", nodes.Length()).
			Int("saved", saved).
			Msg("Page processed")
		return
	}

	state.Fail()
	pageLog.Error().Err(lastErr).Int("attempts", attempts).Msg("Abandoning page")
	if isSeed && !crawlerrors.IsType(lastErr, crawlerrors.ErrorTypeBlocked) {
		state.SeedFailed(lastErr)
	}
}

// emit extracts the listing nodes in document order and stops as soon as the
// run-wide target is reached.
func (c *Crawler) emit(ctx context.Context, log *logger.Logger, state *CrawlState, sink Sink, nodes *goquery.Selection) int {
	saved := 0
	for i := 0; i < nodes.Length(); i++ {
		node := nodes.Eq(i)

		structured := ExtractStructured(node, c.opts.Selectors.StructuredData, c.opts.DefaultCurrency)
		rec := listing.Merge(structured, c.markup.Extract(node), c.opts.DefaultCurrency)
		if !rec.Valid() {
			state.Skip()
			continue
		}
		if !state.ClaimSlot() {
			break
		}
		saved++
		if err := sink.Add(ctx, rec); err != nil {
			// the record stays buffered for the next flush
			log.Warn().Err(err).Str("listing", rec.URL).Msg("Batch push failed")
		}
	}
	return saved
}

func (c *Crawler) backoff(attempt int, err error) time.Duration {
	d := c.opts.RetryBackoff << (attempt - 1)
	if d <= 0 || d > c.opts.MaxBackoff {
		d = c.opts.MaxBackoff
	}

	var ce *crawlerrors.CrawlerError
	if errors.As(err, &ce) && ce.RetryAfter > d {
		d = ce.RetryAfter
		if d > c.opts.MaxBackoff {
			d = c.opts.MaxBackoff
		}
	}
	return d
}

// String describes the crawler for logs.
func (c *Crawler) String() string {
	return fmt.Sprintf("%s(%s)", c.opts.Provider, c.opts.BaseURL)
}
