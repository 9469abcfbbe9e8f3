package warnings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-warnings/internal/observability"
)

// DefaultFetchTimeout bounds a single upstream fetch.
const DefaultFetchTimeout = 10 * time.Second

const refreshKey = "feed"

// Status summarizes the cache for diagnostics.
type Status struct {
	LastAttempt time.Time `json:"lastAttempt"`
	LastSuccess time.Time `json:"lastSuccess"`
	LastError   string    `json:"lastError,omitempty"`
	Alerts      int       `json:"alerts"`
	HasSnapshot bool      `json:"hasSnapshot"`
}

// cacheState is swapped as a whole; it is never modified after being stored.
type cacheState struct {
	snapshot    *Snapshot
	lastErr     error
	lastAttempt time.Time
	lastSuccess time.Time
}

type subscriber struct {
	id uint64
	fn Observer
}

// Cache polls the warnings feed on demand and keeps the last good snapshot.
// Refresh is safe to call concurrently: overlapping calls share one fetch.
type Cache struct {
	fetcher Fetcher
	timeout time.Duration
	clock   clockwork.Clock
	logger  zerolog.Logger
	metrics *observability.Metrics

	group singleflight.Group
	state atomic.Pointer[cacheState]
	// fetchSlot is held until the fetcher returns, even after a timeout.
	fetchSlot chan struct{}

	mu          sync.RWMutex
	subscribers []subscriber
	nextID      uint64
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithTimeout overrides DefaultFetchTimeout.
func WithTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock sets the time source used to stamp snapshots.
func WithClock(clock clockwork.Clock) CacheOption {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewCache creates a Cache reading from fetcher.
func NewCache(fetcher Fetcher, logger zerolog.Logger, metrics *observability.Metrics, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher: fetcher,
		timeout: DefaultFetchTimeout,
		clock:   clockwork.NewRealClock(),
		logger:  logger,
		metrics: metrics,

		fetchSlot: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(&cacheState{})
	return c
}

// Refresh fetches and parses the feed. On success the new snapshot replaces the
// previous one and every subscriber is notified. On failure the previous
// snapshot is kept and a *FetchError is returned.
func (c *Cache) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, shared := c.group.Do(refreshKey, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})
	if shared {
		c.logger.Debug().Msg("joined in-flight refresh")
	}
	if err != nil {
		return Snapshot{}, err
	}
	return *v.(*Snapshot), nil
}

func (c *Cache) refresh(ctx context.Context) (*Snapshot, error) {
	start := c.clock.Now()
	defer func() {
		c.metrics.RefreshDuration.Observe(c.clock.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.fetch(ctx)
	if err != nil {
		return nil, c.fail(start, err)
	}

	alerts, skipped, err := ParseFeed(data)
	if err != nil {
		return nil, c.fail(start, err)
	}
	for _, skipErr := range skipped {
		c.logger.Warn().Err(skipErr).Msg("skipping malformed alert record")
	}
	c.metrics.SkippedRecords.Add(float64(len(skipped)))

	now := c.clock.Now().UTC()
	prev := c.state.Load()
	seq := uint64(1)
	if prev.snapshot != nil {
		seq = prev.snapshot.Seq + 1
	}
	snap := &Snapshot{Seq: seq, FetchedAt: now, Alerts: alerts}
	c.state.Store(&cacheState{
		snapshot:    snap,
		lastAttempt: start,
		lastSuccess: now,
	})

	c.metrics.Refreshes.WithLabelValues("success").Inc()
	c.metrics.LastSuccess.Set(float64(now.Unix()))
	c.metrics.SnapshotAlerts.Set(float64(len(alerts)))
	c.logger.Info().
		Uint64("seq", seq).
		Int("alerts", len(alerts)).
		Int("skipped", len(skipped)).
		Msg("feed refreshed")

	c.notify(*snap)
	return snap, nil
}

// fetch runs the fetcher under ctx and gives up at the deadline even if the
// fetcher itself ignores cancellation. An abandoned fetch keeps the slot until
// it returns, so at most one upstream call is ever in flight.
func (c *Cache) fetch(ctx context.Context) ([]byte, error) {
	select {
	case c.fetchSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("previous fetch still running: %w", ctx.Err())
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() { <-c.fetchSlot }()
		data, err := c.fetcher.Fetch(ctx)
		done <- result{data: data, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ctx.Err(), r.err)
		}
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) fail(attempt time.Time, err error) error {
	fe := asFetchError(err)

	prev := c.state.Load()
	c.state.Store(&cacheState{
		snapshot:    prev.snapshot,
		lastErr:     fe,
		lastAttempt: attempt,
		lastSuccess: prev.lastSuccess,
	})

	c.metrics.Refreshes.WithLabelValues(string(fe.Kind)).Inc()
	c.logger.Error().
		Err(fe.Err).
		Str("kind", string(fe.Kind)).
		Bool("stale", prev.snapshot != nil).
		Msg("feed refresh failed; keeping last good snapshot")
	return fe
}

// Current returns the last good snapshot, if any. It never blocks on a refresh.
func (c *Cache) Current() (Snapshot, bool) {
	st := c.state.Load()
	if st.snapshot == nil {
		return Snapshot{}, false
	}
	return *st.snapshot, true
}

// LastError returns the error of the most recent refresh, or nil if it succeeded.
func (c *Cache) LastError() error {
	return c.state.Load().lastErr
}

// Status reports the timestamps and outcome of recent refreshes.
func (c *Cache) Status() Status {
	st := c.state.Load()
	s := Status{
		LastAttempt: st.lastAttempt,
		LastSuccess: st.lastSuccess,
		HasSnapshot: st.snapshot != nil,
	}
	if st.lastErr != nil {
		s.LastError = st.lastErr.Error()
	}
	if st.snapshot != nil {
		s.Alerts = len(st.snapshot.Alerts)
	}
	return s
}

// CheckReadiness returns nil once a snapshot is available.
func (c *Cache) CheckReadiness(_ context.Context) error {
	st := c.state.Load()
	if st.snapshot != nil {
		return nil
	}
	if st.lastErr != nil {
		return fmt.Errorf("no snapshot yet: %w", st.lastErr)
	}
	return errors.New("no snapshot yet")
}

// Subscription is returned by Subscribe and removes the observer on Unsubscribe.
type Subscription struct {
	cache *Cache
	id    uint64
	once  sync.Once
}

// Subscribe registers fn for every future successful refresh. Missed snapshots
// are not replayed; callers wanting the current state should read Current.
func (c *Cache) Subscribe(fn Observer) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.subscribers = append(c.subscribers, subscriber{id: c.nextID, fn: fn})
	return &Subscription{cache: c, id: c.nextID}
}

// Unsubscribe stops further notifications. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		c := s.cache
		c.mu.Lock()
		defer c.mu.Unlock()

		for i, sub := range c.subscribers {
			if sub.id == s.id {
				c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
				return
			}
		}
	})
}

func (c *Cache) notify(snap Snapshot) {
	c.mu.RLock()
	subs := make([]subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.RUnlock()

	for _, sub := range subs {
		c.deliver(sub, snap)
	}
}

// deliver calls one observer; a panic is logged and does not reach the others.
func (c *Cache) deliver(sub subscriber, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.ObserverPanics.Inc()
			c.logger.Error().
				Uint64("subscriber", sub.id).
				Str("panic", fmt.Sprint(r)).
				Msg("snapshot observer panicked")
		}
	}()
	sub.fn(snap)
}
