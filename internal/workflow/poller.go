package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"po-tracker/internal/core"
)

// Config tunes the poll engine. Zero values take the production defaults
// matching the upstream workflow's rate expectations.
type Config struct {
	Interval      time.Duration // time between attempts per PO (default 5s)
	MaxAttempts   int           // attempt budget per PO (default 120)
	CacheTTL      time.Duration // how long one observation stays fresh (default 5m)
	MaxConcurrent int64         // outstanding upstream fetches across all POs (default 6)
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 120
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 6
	}
	return c
}

// UpdateFunc receives each observed status change for a tracked PO.
type UpdateFunc func(ctx context.Context, poNumber string, observed Status, normalized string)

// StopCheckFunc reports an external stop condition, e.g. "this PO now has an
// Epicor PO number". Checked before every attempt.
type StopCheckFunc func(ctx context.Context, poNumber string) bool

// Tracker runs one self-terminating poll loop per PO business number. Loops
// are independent: a failing upstream call for one PO never stops the others.
type Tracker struct {
	src      Source
	cfg      Config
	cache    *statusCache
	sem      *semaphore.Weighted
	log      zerolog.Logger
	onUpdate UpdateFunc
	stopWhen StopCheckFunc

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker builds a Tracker. onUpdate must be non-nil; stopWhen may be nil.
func NewTracker(src Source, onUpdate UpdateFunc, stopWhen StopCheckFunc, log zerolog.Logger, cfg Config) *Tracker {
	cfg = cfg.withDefaults()
	return &Tracker{
		src:      src,
		cfg:      cfg,
		cache:    newStatusCache(cfg.CacheTTL),
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		log:      log,
		onUpdate: onUpdate,
		stopWhen: stopWhen,
		active:   make(map[string]context.CancelFunc),
	}
}

// Track starts polling poNumber unless a loop for it is already running.
// Returns true if a new loop was started.
func (t *Tracker) Track(ctx context.Context, poNumber string) bool {
	if poNumber == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, running := t.active[poNumber]; running {
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	t.active[poNumber] = cancel
	t.wg.Add(1)
	go t.loop(loopCtx, poNumber)
	return true
}

// Stop cancels the loop for one PO, if any.
func (t *Tracker) Stop(poNumber string) {
	t.mu.Lock()
	cancel, ok := t.active[poNumber]
	t.mu.Unlock()
	if ok {
		cancel()
	}
}

// StopAll cancels every loop, waits for them to exit, and drops the cache.
func (t *Tracker) StopAll() {
	t.mu.Lock()
	for _, cancel := range t.active {
		cancel()
	}
	t.mu.Unlock()
	t.wg.Wait()
	t.cache.clear()
}

// Tracking reports whether a loop is currently running for poNumber.
func (t *Tracker) Tracking(poNumber string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[poNumber]
	return ok
}

// Lookup returns the latest workflow observation for poNumber, serving the
// TTL cache when fresh and fetching otherwise. On-demand callers (list and
// detail views) go through here so they never duplicate the poll loops' calls.
func (t *Tracker) Lookup(ctx context.Context, poNumber string) (*Status, error) {
	if poNumber == "" {
		return nil, nil
	}
	if st, ok := t.cache.get(poNumber); ok {
		return &st, nil
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	fetched, err := t.src.FetchStatus(ctx, poNumber)
	t.sem.Release(1)
	if err != nil {
		return nil, err
	}
	if fetched == nil {
		return nil, nil
	}
	t.cache.put(poNumber, *fetched)
	return fetched, nil
}

func (t *Tracker) loop(ctx context.Context, poNumber string) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		delete(t.active, poNumber)
		t.mu.Unlock()
	}()

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	lastNormalized := ""
	for attempts := 0; attempts < t.cfg.MaxAttempts; attempts++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if t.attempt(ctx, poNumber, &lastNormalized) {
			return
		}
	}
	t.log.Debug().Str("po_number", poNumber).Msg("workflow poll attempt budget exhausted")
}

// attempt performs one poll tick. Returns true when the loop should stop.
// Upstream failures are swallowed and retried on the next tick.
func (t *Tracker) attempt(ctx context.Context, poNumber string, lastNormalized *string) bool {
	if t.stopWhen != nil && t.stopWhen(ctx, poNumber) {
		return true
	}

	if err := t.sem.Acquire(ctx, 1); err != nil {
		return true
	}
	fetched, err := t.src.FetchStatus(ctx, poNumber)
	t.sem.Release(1)
	if err != nil {
		t.log.Warn().Err(err).Str("po_number", poNumber).Msg("workflow status fetch failed")
		return false
	}
	if fetched == nil {
		return false
	}
	t.cache.put(poNumber, *fetched)
	st := *fetched

	normalized := core.NormalizeStatus(st.Status)
	if normalized != *lastNormalized {
		*lastNormalized = normalized
		t.onUpdate(ctx, poNumber, st, normalized)
	}
	return core.IsTerminalStatus(normalized)
}
