package crawler

import "sync"

// PageRequest is one frontier entry.
type PageRequest struct {
	URL    string
	PageNo int
}

// CrawlState is the only state shared between the workers of a run: the saved and
// dispatched counters and the frontier. Every stop condition is evaluated here under
// one lock, so workers never act on stale local copies.
type CrawlState struct {
	mu   sync.Mutex
	cond *sync.Cond

	wanted   int
	maxPages int

	saved      int
	skipped    int
	dispatched int
	failed     int
	retired    int
	parsed     int
	inFlight   int

	frontier []PageRequest
	seen     map[string]bool

	stopped bool
	reason  StopReason

	seedErr error
}

// NewCrawlState creates the state of a run seeded with one page.
func NewCrawlState(wanted, maxPages int, seed PageRequest) *CrawlState {
	s := &CrawlState{
		wanted:   wanted,
		maxPages: maxPages,
		frontier: []PageRequest{seed},
		seen:     map[string]bool{seed.URL: true},
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Next blocks until a page can be dispatched, returning false once the run is stopping.
// A dispatched page must be handed back with Done.
func (s *CrawlState) Next() (PageRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.stopped {
			return PageRequest{}, false
		}
		if s.saved >= s.wanted {
			s.stopLocked(StopTargetReached)
			continue
		}
		if len(s.frontier) > 0 {
			if s.dispatched >= s.maxPages {
				s.stopLocked(StopMaxPages)
				continue
			}
			req := s.frontier[0]
			s.frontier = s.frontier[1:]
			s.dispatched++
			s.inFlight++
			return req, true
		}
		if s.inFlight == 0 {
			if s.dispatched >= s.maxPages {
				s.stopLocked(StopMaxPages)
			} else {
				s.stopLocked(StopFrontierExhausted)
			}
			continue
		}
		s.cond.Wait()
	}
}

// Done marks a dispatched page as finished.
func (s *CrawlState) Done() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Enqueue appends a page to the frontier. Already seen URLs and enqueues after
// the run started stopping are dropped.
func (s *CrawlState) Enqueue(req PageRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.seen[req.URL] {
		return false
	}
	s.seen[req.URL] = true
	s.frontier = append(s.frontier, req)
	s.cond.Broadcast()
	return true
}

// ShouldContinue reports whether a page with pageNo may enqueue its successor.
func (s *CrawlState) ShouldContinue(pageNo int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped && s.saved < s.wanted && pageNo < s.maxPages
}

// ClaimSlot reserves one of the wanted records. It returns false once the target is reached.
func (s *CrawlState) ClaimSlot() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saved >= s.wanted {
		return false
	}
	s.saved++
	if s.saved >= s.wanted {
		s.stopLocked(StopTargetReached)
	}
	return true
}

// Skip counts a discarded listing node.
func (s *CrawlState) Skip() {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
}

// Parsed counts a page whose markup was processed.
func (s *CrawlState) Parsed() {
	s.mu.Lock()
	s.parsed++
	s.mu.Unlock()
}

// Fail counts an abandoned page.
func (s *CrawlState) Fail() {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
}

// Retired counts an identity retired during this run.
func (s *CrawlState) Retired() {
	s.mu.Lock()
	s.retired++
	s.mu.Unlock()
}

// SeedFailed records that the start page could not be fetched.
func (s *CrawlState) SeedFailed(err error) {
	s.mu.Lock()
	s.seedErr = err
	s.mu.Unlock()
}

// SeedError returns the start page error if no page was ever parsed.
func (s *CrawlState) SeedError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parsed > 0 {
		return nil
	}
	return s.seedErr
}

// Stop stops dispatching. The first reason wins.
func (s *CrawlState) Stop(reason StopReason) {
	s.mu.Lock()
	s.stopLocked(reason)
	s.mu.Unlock()
}

func (s *CrawlState) stopLocked(reason StopReason) {
	if !s.stopped {
		s.stopped = true
		s.reason = reason
	}
	s.cond.Broadcast()
}

// Stats returns a snapshot of the counters.
func (s *CrawlState) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Saved:             s.saved,
		Skipped:           s.skipped,
		PagesVisited:      s.dispatched,
		PagesFailed:       s.failed,
		IdentitiesRetired: s.retired,
		StopReason:        s.reason,
	}
}
