package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"sjsage522/carlistingworker/logger"
	"sjsage522/carlistingworker/services/cache"
)

// ErrExhausted is returned by Acquire once every identity has been retired.
var ErrExhausted = errors.New("session: all identities retired")

const taintKeyPrefix = "identity:tainted:"

type state int

const (
	stateAvailable state = iota
	stateInUse
	stateRetired
)

// Pool hands out identities exclusively, one holder at a time. A retired identity is
// not handed out again while its taint is still in the cache; Revive brings back the
// ones whose taint has expired.
type Pool struct {
	mu         sync.Mutex
	identities map[string]*Identity
	states     map[string]state
	retired    int

	available chan *Identity
	exhausted chan struct{}

	cache    cache.CacheService
	taintTTL time.Duration
	log      *logger.Logger
}

// NewPool creates a pool from identities. The ones already tainted in cacheSvc start retired.
func NewPool(identities []*Identity, cacheSvc cache.CacheService, taintTTL time.Duration) *Pool {
	log := logger.ForSession()

	p := &Pool{
		identities: make(map[string]*Identity),
		states:     make(map[string]state),
		available:  make(chan *Identity, len(identities)),
		exhausted:  make(chan struct{}),
		cache:      cacheSvc,
		taintTTL:   taintTTL,
		log:        log,
	}

	for _, id := range identities {
		p.identities[id.ID] = id
		if p.isTainted(id) {
			log.Warn().Str("identity", id.String()).Msg("Skipping identity tainted by an earlier run")
			p.states[id.ID] = stateRetired
			p.retired++
			continue
		}
		p.states[id.ID] = stateAvailable
		p.available <- id
	}

	if len(p.identities) == p.retired {
		close(p.exhausted)
	}

	log.Info().
		Int("identities", len(p.identities)-p.retired).
		Int("tainted", p.retired).
		Msg("Identity pool ready")
	return p
}

// Acquire blocks until an identity is free, the pool is exhausted, or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Identity, error) {
	p.mu.Lock()
	exhausted := p.exhausted
	p.mu.Unlock()

	select {
	case id := <-p.available:
		p.mu.Lock()
		p.states[id.ID] = stateInUse
		p.mu.Unlock()
		return id, nil
	case <-exhausted:
		return nil, ErrExhausted
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a healthy identity to the pool.
func (p *Pool) Release(id *Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.states[id.ID] != stateInUse {
		return
	}
	p.states[id.ID] = stateAvailable
	p.available <- id
}

// Retire permanently removes an identity after suspected detection.
// It returns the number of identities that are still usable.
func (p *Pool) Retire(id *Identity, reason string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, known := p.states[id.ID]
	if !known || st == stateRetired {
		return len(p.identities) - p.retired
	}

	p.states[id.ID] = stateRetired
	p.retired++

	if p.cache != nil {
		if err := p.cache.Set(taintKeyPrefix+id.Key(), []byte(reason), p.taintTTL); err != nil {
			p.log.Warn().Err(err).Str("identity", id.String()).Msg("Failed to persist identity taint")
		}
	}

	remaining := len(p.identities) - p.retired
	p.log.Warn().
		Str("identity", id.String()).
		Str("reason", reason).
		Int("remaining", remaining).
		Msg("Identity retired")

	if remaining == 0 {
		close(p.exhausted)
	}
	return remaining
}

// Size returns the number of identities that have not been retired.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.identities) - p.retired
}

// Retired returns the number of identities currently retired.
func (p *Pool) Retired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retired
}

// Revive returns retired identities whose taint has expired to the pool and reports
// how many came back. Without a cache there is no expiry and nothing is revived.
func (p *Pool) Revive() int {
	if p.cache == nil {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	wasExhausted := len(p.identities) == p.retired
	revived := 0
	for key, id := range p.identities {
		if p.states[key] != stateRetired || p.isTainted(id) {
			continue
		}
		p.states[key] = stateAvailable
		p.retired--
		revived++
		p.available <- id
	}

	if revived > 0 {
		if wasExhausted {
			p.exhausted = make(chan struct{})
		}
		p.log.Info().
			Int("revived", revived).
			Int("remaining", len(p.identities)-p.retired).
			Msg("Identity taints expired")
	}
	return revived
}

func (p *Pool) isTainted(id *Identity) bool {
	if p.cache == nil {
		return false
	}
	_, err := p.cache.Get(taintKeyPrefix + id.Key())
	return err == nil
}
