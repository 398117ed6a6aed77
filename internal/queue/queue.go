// Package queue serializes requests to a quota-constrained generation
// provider. A single drain goroutine enforces minimum inter-dispatch spacing,
// a sliding per-window quota ceiling, staleness rejection, and quota-aware
// retry with exponential backoff. The drain flag and window counters are the
// only cross-request shared state in the service; every mutation happens
// under the queue mutex.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"atelier/internal/genprovider"
)

var (
	// ErrQueueTimeout rejects entries that waited longer than the staleness
	// bound before being dequeued.
	ErrQueueTimeout = errors.New("queue: entry timed out before dispatch")
	// ErrQuotaExceeded reports that the provider kept signalling quota
	// exhaustion through the whole retry budget.
	ErrQuotaExceeded = errors.New("queue: provider quota exceeded")
)

type Config struct {
	MinInterval    time.Duration
	WindowDuration time.Duration
	WindowCeiling  int
	StaleAfter     time.Duration
	MaxAttempts    int
	QuotaBackoff   time.Duration
	RetryDelay     time.Duration
	CoolDown       time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinInterval <= 0 {
		c.MinInterval = 600 * time.Millisecond
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = time.Minute
	}
	if c.WindowCeiling <= 0 {
		c.WindowCeiling = 10
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.QuotaBackoff <= 0 {
		c.QuotaBackoff = 10 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	// CoolDown may legitimately be zero.
	return c
}

// Result resolves one enqueued request.
type Result struct {
	Artifact *genprovider.Artifact
	Err      error
}

type entry struct {
	req      genprovider.Request
	enqueued time.Time
	out      chan Result
}

// Status is a point-in-time snapshot for observability.
type Status struct {
	Depth         int       `json:"depth"`
	Draining      bool      `json:"draining"`
	WindowCount   int       `json:"windowCount"`
	WindowCeiling int       `json:"windowCeiling"`
	WindowResetAt time.Time `json:"windowResetAt"`
}

// Queue is safe for concurrent use.
type Queue struct {
	adapter genprovider.Adapter
	cfg     Config
	log     zerolog.Logger

	mu           sync.Mutex
	pending      []*entry
	draining     bool
	windowStart  time.Time
	windowCount  int
	lastDispatch time.Time
}

func New(adapter genprovider.Adapter, cfg Config, log zerolog.Logger) *Queue {
	q := &Queue{
		adapter: adapter,
		cfg:     cfg.withDefaults(),
		log:     log.With().Str("component", "queue").Logger(),
	}
	return q
}

// Enqueue appends the request and returns a channel that resolves exactly
// once with the outcome. There is no cancel API; staleness rejection bounds
// how long an abandoned entry can linger.
func (q *Queue) Enqueue(req genprovider.Request) <-chan Result {
	e := &entry{req: req, enqueued: time.Now(), out: make(chan Result, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, e)
	start := !q.draining
	if start {
		q.draining = true
	}
	depth := len(q.pending)
	q.mu.Unlock()

	q.log.Info().Int("depth", depth).Bool("starting_drain", start).Msg("enqueued")
	if start {
		go q.drain()
	}
	return e.out
}

// Status reports the queue's current shape.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Depth:         len(q.pending),
		Draining:      q.draining,
		WindowCount:   q.windowCount,
		WindowCeiling: q.cfg.WindowCeiling,
		WindowResetAt: q.windowStart.Add(q.cfg.WindowDuration),
	}
}

// drain processes entries FIFO until the queue is empty, then clears the
// draining flag. Only one drain loop runs at a time; the flag is checked and
// set under the same lock as the pending list.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		e := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.process(e)

		if q.cfg.CoolDown > 0 {
			time.Sleep(q.cfg.CoolDown)
		}
	}
}

func (q *Queue) process(e *entry) {
	if waited := time.Since(e.enqueued); waited > q.cfg.StaleAfter {
		q.log.Warn().Dur("waited", waited).Msg("rejecting stale entry")
		e.out <- Result{Err: fmt.Errorf("%w after %s", ErrQueueTimeout, waited.Round(time.Second))}
		return
	}

	q.waitForSlot()

	art, err := q.dispatchWithRetry(e.req)
	if err == nil {
		q.mu.Lock()
		q.lastDispatch = time.Now()
		q.windowCount++
		q.mu.Unlock()
	}
	e.out <- Result{Artifact: art, Err: err}
}

// waitForSlot sleeps until both the minimum inter-dispatch interval and the
// quota window allow another dispatch.
func (q *Queue) waitForSlot() {
	q.mu.Lock()
	last := q.lastDispatch
	q.mu.Unlock()
	if !last.IsZero() {
		if wait := q.cfg.MinInterval - time.Since(last); wait > 0 {
			time.Sleep(wait)
		}
	}

	q.mu.Lock()
	now := time.Now()
	if q.windowStart.IsZero() || now.Sub(q.windowStart) > q.cfg.WindowDuration {
		q.windowStart = now
		q.windowCount = 0
	}
	var wait time.Duration
	if q.windowCount >= q.cfg.WindowCeiling {
		wait = q.windowStart.Add(q.cfg.WindowDuration).Sub(now)
	}
	q.mu.Unlock()

	if wait > 0 {
		q.log.Info().Dur("wait", wait).Msg("quota window exhausted, waiting for reset")
		time.Sleep(wait)
		q.mu.Lock()
		q.windowStart = time.Now()
		q.windowCount = 0
		q.mu.Unlock()
	}
}

// dispatchWithRetry calls the adapter up to MaxAttempts times. Quota errors
// back off exponentially from QuotaBackoff; other errors wait one fixed
// RetryDelay. The last non-quota error propagates unchanged so the caller
// sees the root cause.
func (q *Queue) dispatchWithRetry(req genprovider.Request) (*genprovider.Artifact, error) {
	var last error
	for attempt := 0; attempt < q.cfg.MaxAttempts; attempt++ {
		art, err := q.adapter.Generate(context.Background(), req)
		if err == nil {
			return art, nil
		}
		last = err
		if genprovider.IsQuotaError(err) {
			if attempt == q.cfg.MaxAttempts-1 {
				return nil, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
			}
			backoff := q.cfg.QuotaBackoff * time.Duration(1<<attempt)
			q.log.Warn().Err(err).Dur("backoff", backoff).Int("attempt", attempt+1).Msg("quota error, backing off")
			time.Sleep(backoff)
			continue
		}
		if attempt == q.cfg.MaxAttempts-1 {
			return nil, err
		}
		q.log.Warn().Err(err).Int("attempt", attempt+1).Msg("dispatch failed, retrying")
		time.Sleep(q.cfg.RetryDelay)
	}
	return nil, last
}
