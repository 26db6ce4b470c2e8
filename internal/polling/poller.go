package polling

import (
	"context"
	"sync"
	"time"

	"github.com/recipeclip/recipeclip-tracker/internal/logger"
)

// DefaultInterval is the happy-path delay between fetches.
const DefaultInterval = 2 * time.Second

// Config configures a Poller. Fetch and Done are required.
type Config[T any] struct {
	// Fetch retrieves the current value. Its errors are caught by the
	// poller; they never propagate to the caller.
	Fetch func(ctx context.Context) (T, error)
	// Done inspects a fetched value and reports whether polling should stop.
	Done func(T) bool

	// Interval is the delay after a successful fetch. Defaults to 2s.
	Interval time.Duration
	// ErrorRetryDelay is the delay after a failed fetch.
	// Defaults to Interval.
	ErrorRetryDelay time.Duration
	// MaxConsecutiveErrors halts polling permanently once that many fetches
	// fail in a row. 0 means unlimited.
	MaxConsecutiveErrors int

	// OnResult fires after every successful fetch.
	OnResult func(T)
	// OnComplete fires once, with the value for which Done returned true.
	OnComplete func(T)
	// OnError fires after every failed fetch, including the one that
	// exhausts the budget.
	OnError func(error)
}

// Poller repeatedly invokes a fetch function until the stop predicate is
// satisfied, tolerating up to a budget of consecutive transient failures.
// Start and Stop are driven externally; the poller never restarts itself
// after giving up.
type Poller[T any] struct {
	cfg Config[T]

	mu                sync.Mutex
	running           bool
	timer             *time.Timer
	consecutiveErrors int
	lastResult        T
	hasResult         bool
	lastErr           error
}

// New creates a poller. Zero config values get defaults.
func New[T any](cfg Config[T]) *Poller[T] {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ErrorRetryDelay <= 0 {
		cfg.ErrorRetryDelay = cfg.Interval
	}
	return &Poller[T]{cfg: cfg}
}

// Start resets the error counter and performs the first fetch immediately,
// without waiting for the interval. Calling Start on a running poller does
// nothing.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.consecutiveErrors = 0
	p.mu.Unlock()

	go p.fetchOnce(ctx)
}

// Stop cancels any pending scheduled fetch. Idempotent; safe before Start.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// LastResult returns the most recent successfully fetched value.
func (p *Poller[T]) LastResult() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastResult, p.hasResult
}

// LastErr returns the most recent fetch error, or nil.
func (p *Poller[T]) LastErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// ConsecutiveErrors returns the current consecutive-failure count.
func (p *Poller[T]) ConsecutiveErrors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consecutiveErrors
}

// IsRunning reports whether the poller is active (started, not stopped,
// budget not exhausted, predicate not yet satisfied).
func (p *Poller[T]) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// fetchOnce performs a single fetch and decides what happens next.
func (p *Poller[T]) fetchOnce(ctx context.Context) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if ctx.Err() != nil {
		p.Stop()
		return
	}

	result, err := p.cfg.Fetch(ctx)
	if err != nil {
		p.handleFailure(ctx, err)
		return
	}
	p.handleSuccess(ctx, result)
}

func (p *Poller[T]) handleSuccess(ctx context.Context, result T) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.consecutiveErrors = 0
	p.lastResult = result
	p.hasResult = true
	p.lastErr = nil
	done := p.cfg.Done(result)
	if done {
		p.running = false
	}
	p.mu.Unlock()

	if p.cfg.OnResult != nil {
		p.cfg.OnResult(result)
	}
	if done {
		if p.cfg.OnComplete != nil {
			p.cfg.OnComplete(result)
		}
		return
	}

	p.schedule(ctx, p.cfg.Interval)
}

func (p *Poller[T]) handleFailure(ctx context.Context, err error) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.consecutiveErrors++
	p.lastErr = err
	exhausted := p.cfg.MaxConsecutiveErrors > 0 && p.consecutiveErrors >= p.cfg.MaxConsecutiveErrors
	if exhausted {
		// Fatal give-up: no further fetch is ever scheduled by this poller.
		p.running = false
	}
	count := p.consecutiveErrors
	p.mu.Unlock()

	if p.cfg.OnError != nil {
		p.cfg.OnError(err)
	}

	if exhausted {
		logger.Warnf("polling", "handleFailure", "halting after %d consecutive errors: %v", count, err)
		return
	}

	p.schedule(ctx, p.cfg.ErrorRetryDelay)
}

// schedule arms the next fetch.
func (p *Poller[T]) schedule(ctx context.Context, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.timer = time.AfterFunc(delay, func() {
		p.mu.Lock()
		p.timer = nil
		running := p.running
		p.mu.Unlock()
		if !running {
			return
		}
		p.fetchOnce(ctx)
	})
}
