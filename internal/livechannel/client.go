package livechannel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/recipeclip/recipeclip-tracker/internal/job"
	"github.com/recipeclip/recipeclip-tracker/internal/logger"
)

const (
	// DefaultReconnectDelay is the fixed delay between reconnect attempts.
	DefaultReconnectDelay = 3 * time.Second
	// DefaultMaxReconnects bounds reconnect attempts per client instance.
	// A successful open resets the budget.
	DefaultMaxReconnects = 5
)

var (
	// ErrUnauthorized means the stream rejected the bearer token (401/403).
	// Never retried; the coordinator falls back to polling.
	ErrUnauthorized = errors.New("live channel unauthorized")
	// ErrNon200Status means the stream endpoint answered with an unexpected status.
	ErrNon200Status = errors.New("live channel non-200 HTTP status")
)

// Config configures a live channel subscription for one job.
type Config struct {
	// StreamURL is the full stream endpoint, e.g. <base>/jobs/{id}/stream.
	StreamURL string
	// Token is the bearer credential presented when opening the stream.
	Token string
	// ProcessingStatus is the wire string for the transitional job status.
	ProcessingStatus string

	// ReconnectDelay is the fixed delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnects bounds consecutive reconnect attempts.
	MaxReconnects int
	// ShouldReconnect lets the caller veto reconnection for a given error.
	// nil means always reconnect (within the budget).
	ShouldReconnect func(error) bool

	// OnOpen fires when the stream is established.
	OnOpen func()
	// OnUpdate delivers each parsed snapshot. Malformed payloads are logged
	// and dropped before reaching this callback.
	OnUpdate func(*job.Snapshot)
	// OnError delivers connection-level errors. Connect never fails
	// synchronously; every failure arrives here.
	OnError func(error)
	// OnGiveUp fires once when the client stops permanently without having
	// seen a terminal snapshot: auth rejection, reconnect budget exhausted,
	// or the predicate vetoed. The coordinator uses this to fail over.
	OnGiveUp func(error)

	// HTTPClient overrides the default streaming client. Tests use this.
	HTTPClient *http.Client
}

// Client maintains a single logical subscription to the per-job update
// stream. It reconnects on transient errors with a constant delay until its
// budget runs out, and permanently stops once a terminal snapshot arrives.
type Client struct {
	cfg Config

	mu        sync.Mutex
	parentCtx context.Context
	cancel    context.CancelFunc
	timer     *time.Timer
	policy    backoff.BackOff
	active    bool
	connected bool
	closed    bool
	terminal  bool
}

// New creates a live channel client. Zero config values get defaults.
func New(cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = DefaultMaxReconnects
	}
	if cfg.HTTPClient == nil {
		// No client-level timeout: the stream stays open indefinitely.
		cfg.HTTPClient = &http.Client{}
	}
	c := &Client{cfg: cfg}
	c.policy = c.newPolicy()
	return c
}

// newPolicy builds the reconnect schedule: a fixed delay capped at
// MaxReconnects attempts. No exponential growth; the budget is small enough
// that adaptive backoff buys nothing.
func (c *Client) newPolicy() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.ReconnectDelay), uint64(c.cfg.MaxReconnects))
}

// Connect opens the subscription. Idempotent: a second call while a
// connection handle exists (or a reconnect is pending) does nothing.
// Failures are reported through OnError, never returned.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.active || c.closed || c.terminal {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.parentCtx = ctx
	c.policy = c.newPolicy()
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(streamCtx)
}

// Disconnect tears the subscription down: cancels any pending reconnect,
// closes the active stream, and suppresses all further callbacks. Safe to
// call repeatedly or before Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	c.active = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsConnected reports whether the stream is currently established.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// run opens the stream and consumes events until the stream ends.
func (c *Client) run(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.StreamURL, nil)
	if err != nil {
		c.handleError(fmt.Errorf("failed to create stream request: %w", err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		c.handleError(fmt.Errorf("stream open failed: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.handleError(fmt.Errorf("%w: got %d", ErrUnauthorized, resp.StatusCode))
		return
	}
	if resp.StatusCode != http.StatusOK {
		c.handleError(fmt.Errorf("%w: got %d", ErrNon200Status, resp.StatusCode))
		return
	}

	c.markOpened()

	var eventName string
	var data strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		// Blank line dispatches the accumulated event.
		if line == "" {
			if done := c.dispatch(eventName, data.String()); done {
				return
			}
			eventName = ""
			data.Reset()
			continue
		}

		// Comment lines keep the connection alive, nothing more.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			eventName = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}

	if err := scanner.Err(); err != nil {
		c.handleError(fmt.Errorf("stream read failed: %w", err))
		return
	}
	c.handleError(errors.New("stream closed by server"))
}

// splitField splits an SSE "field: value" line.
func splitField(line string) (string, string) {
	parts := strings.SplitN(line, ":", 2)
	field := parts[0]
	value := ""
	if len(parts) == 2 {
		value = strings.TrimPrefix(parts[1], " ")
	}
	return field, value
}

// dispatch handles one complete event. Returns true when the event carried a
// terminal snapshot and the stream must shut down for good.
func (c *Client) dispatch(eventName, payload string) bool {
	if payload == "" {
		return false
	}
	// The backend sends both unnamed message events and named job_update
	// events depending on its version; they carry the same payload.
	switch eventName {
	case "", "message", "job_update":
	default:
		return false
	}

	snapshot, err := job.ParseSnapshot([]byte(payload), c.cfg.ProcessingStatus)
	if err != nil {
		// Malformed payloads are not connection errors: log and drop.
		logger.Warnf("livechannel", "dispatch", "dropping malformed update: %v", err)
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return true
	}
	if snapshot.IsTerminal() {
		// Terminal status permanently suppresses reconnection, regardless
		// of the caller's reconnect predicate.
		c.terminal = true
		c.active = false
		c.connected = false
	}
	onUpdate := c.cfg.OnUpdate
	terminal := c.terminal
	c.mu.Unlock()

	if onUpdate != nil {
		onUpdate(snapshot)
	}
	return terminal
}

// markOpened records a successful open: connected, budget reset.
func (c *Client) markOpened() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.connected = true
	c.policy = c.newPolicy()
	onOpen := c.cfg.OnOpen
	c.mu.Unlock()

	if onOpen != nil {
		onOpen()
	}
	logger.Debugf("livechannel", "markOpened", "stream established: %s", c.cfg.StreamURL)
}

// handleError surfaces a connection-level error and decides whether to
// schedule a reconnect.
func (c *Client) handleError(err error) {
	c.mu.Lock()
	if c.closed || c.terminal {
		c.mu.Unlock()
		return
	}
	c.connected = false

	retry := c.shouldReconnect(err)
	var delay time.Duration
	if retry {
		delay = c.policy.NextBackOff()
		if delay == backoff.Stop {
			retry = false
		}
	}
	if !retry {
		c.active = false
	}
	onError := c.cfg.OnError
	onGiveUp := c.cfg.OnGiveUp
	c.mu.Unlock()

	if onError != nil {
		onError(err)
	}

	if !retry {
		logger.Warnf("livechannel", "handleError", "giving up on stream: %v", err)
		if onGiveUp != nil {
			onGiveUp(err)
		}
		return
	}

	logger.Debugf("livechannel", "handleError", "reconnecting in %s after: %v", delay, err)
	c.scheduleReconnect(delay)
}

// shouldReconnect applies the error classification: auth failures never
// retry; everything else defers to the caller's predicate.
func (c *Client) shouldReconnect(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return false
	}
	if c.cfg.ShouldReconnect != nil {
		return c.cfg.ShouldReconnect(err)
	}
	return true
}

// scheduleReconnect arms the reconnect timer. Must be called without the lock.
func (c *Client) scheduleReconnect(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.terminal {
		return
	}
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.closed || c.terminal || c.parentCtx == nil || c.parentCtx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		streamCtx, cancel := context.WithCancel(c.parentCtx)
		c.cancel = cancel
		c.mu.Unlock()

		c.run(streamCtx)
	})
}
