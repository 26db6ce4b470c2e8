package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/recipeclip/recipeclip-tracker/internal/auth"
	"github.com/recipeclip/recipeclip-tracker/internal/job"
	"github.com/recipeclip/recipeclip-tracker/internal/livechannel"
	"github.com/recipeclip/recipeclip-tracker/internal/logger"
	"github.com/recipeclip/recipeclip-tracker/internal/polling"
)

// Transport identifies which mechanism currently observes job state.
type Transport string

const (
	TransportNone    Transport = "none"
	TransportLive    Transport = "live"
	TransportPolling Transport = "polling"
)

const (
	tokenRetryDelay    = 2 * time.Second
	tokenRetryAttempts = 5
)

// Config configures a Coordinator for one tracking session.
type Config struct {
	// JobID identifies the extraction job to track.
	JobID string
	// StreamURL is the live update endpoint for this job.
	StreamURL string
	// FetchStatus is the already-authenticated status fetch used by the
	// polling path. The live channel instead takes an explicit bearer token
	// from Tokens; the asymmetry mirrors the backend contract.
	FetchStatus func(ctx context.Context, jobID string) (*job.Snapshot, error)
	// Tokens supplies the bearer credential for the live channel.
	Tokens auth.TokenProvider
	// LiveEnabled arms the live channel path. When false the session runs
	// on polling alone.
	LiveEnabled bool
	// ProcessingStatus is the wire string for the transitional job status.
	ProcessingStatus string

	ReconnectDelay           time.Duration
	MaxReconnects            int
	PollInterval             time.Duration
	ErrorRetryDelay          time.Duration
	MaxConsecutivePollErrors int
	// ShouldReconnect optionally vetoes live channel reconnection per error.
	ShouldReconnect func(error) bool

	// OnSnapshot delivers every normalized snapshot, including terminal
	// duplicates arriving after completion was dispatched.
	OnSnapshot func(*job.Snapshot)
	// OnComplete fires exactly once per session, with the first terminal
	// snapshot observed from either transport.
	OnComplete func(*job.Snapshot)
	// OnError fires when a transport is out of options: the polling budget
	// is exhausted and there is nowhere left to fall back to.
	OnError func(error)
	// OnTransportChange fires when the session engages a transport, both on
	// the initial choice and on the live-to-polling failover.
	OnTransportChange func(Transport)
}

// Coordinator tracks one extraction job to completion. It owns transport
// selection (live channel first, polling as the one-way fallback), folds
// both transports' updates into a single snapshot stream, and guarantees
// the completion callback fires at most once per session. The transports
// only emit events; every piece of tracker state is written here, under one
// lock.
type Coordinator struct {
	cfg Config

	live   *livechannel.Client
	poller *polling.Poller[*job.Snapshot]

	mu         sync.Mutex
	parentCtx  context.Context
	transport  Transport
	snapshot   *job.Snapshot
	lastErr    error
	completed  bool // terminal snapshot latched, one-way
	dispatched bool // completion callback actually invoked
	closed     bool // consumer tore the session down
}

// New creates a coordinator. Start must be called to begin tracking.
func New(cfg Config) *Coordinator {
	c := &Coordinator{
		cfg:       cfg,
		transport: TransportNone,
	}

	c.poller = polling.New(polling.Config[*job.Snapshot]{
		Fetch: func(ctx context.Context) (*job.Snapshot, error) {
			return cfg.FetchStatus(ctx, cfg.JobID)
		},
		Done:                 func(s *job.Snapshot) bool { return s.IsTerminal() },
		Interval:             cfg.PollInterval,
		ErrorRetryDelay:      cfg.ErrorRetryDelay,
		MaxConsecutiveErrors: cfg.MaxConsecutivePollErrors,
		OnResult:             c.handleSnapshot,
		OnError:              c.handlePollError,
	})

	return c
}

// Start begins the tracking session. When the live channel is enabled the
// coordinator first acquires a credential asynchronously; no transport is
// active until that resolves. Without the live channel it goes straight to
// polling.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	c.parentCtx = ctx
	c.mu.Unlock()

	if !c.cfg.LiveEnabled {
		c.engagePolling(ctx)
		return
	}
	go c.acquireTokenAndConnect(ctx)
}

// Stop tears the session down: both transports stop, pending timers are
// cancelled, and no callback fires afterwards. Idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.teardownTransports()
}

// Retry clears the error state and re-engages whichever transport is
// appropriate: the polling loop if the session already fell back to
// polling, otherwise another live attempt. A session whose completion has
// been dispatched is genuinely over; Retry is then a no-op.
func (c *Coordinator) Retry() {
	c.mu.Lock()
	if c.closed || c.dispatched {
		c.mu.Unlock()
		return
	}
	c.lastErr = nil
	c.completed = false
	ctx := c.parentCtx
	transport := c.transport
	c.mu.Unlock()

	if ctx == nil {
		return
	}

	if transport == TransportPolling {
		c.poller.Start(ctx)
		return
	}
	if !c.cfg.LiveEnabled {
		c.engagePolling(ctx)
		return
	}
	go c.acquireTokenAndConnect(ctx)
}

// Snapshot returns the last normalized snapshot, or nil.
func (c *Coordinator) Snapshot() *job.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Err returns the last transport error, or nil.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// IsConnected reports whether the live channel is currently established.
func (c *Coordinator) IsConnected() bool {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()
	return live != nil && live.IsConnected()
}

// ActiveTransport reports which transport the session currently relies on.
// Exposed for observability; consumers should not branch on it.
func (c *Coordinator) ActiveTransport() Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

// Completed reports whether the terminal latch has tripped.
func (c *Coordinator) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// acquireTokenAndConnect resolves a bearer token with a few constant-delay
// retries, then arms the live channel. If no credential shows up the
// session falls back to polling rather than idling in limbo: the poll path
// is authenticated through FetchStatus and needs no token here.
func (c *Coordinator) acquireTokenAndConnect(ctx context.Context) {
	var token string
	operation := func() error {
		var err error
		token, err = c.cfg.Tokens.AccessToken(ctx)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(tokenRetryDelay), uint64(tokenRetryAttempts)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		logger.Warnf("tracker", "acquireTokenAndConnect", "no credential for live channel, falling back to polling: %v", err)
		c.engagePolling(ctx)
		return
	}

	c.mu.Lock()
	if c.closed || c.completed {
		c.mu.Unlock()
		return
	}
	// A retry can land here while an earlier live client exists; reuse it so
	// Connect stays idempotent for the session.
	if c.live == nil {
		c.live = livechannel.New(livechannel.Config{
			StreamURL:        c.cfg.StreamURL,
			Token:            token,
			ProcessingStatus: c.cfg.ProcessingStatus,
			ReconnectDelay:   c.cfg.ReconnectDelay,
			MaxReconnects:    c.cfg.MaxReconnects,
			ShouldReconnect:  c.cfg.ShouldReconnect,
			OnOpen:           c.handleLiveOpen,
			OnUpdate:         c.handleSnapshot,
			OnError:          c.handleLiveError,
			OnGiveUp:         c.handleLiveGiveUp,
		})
	}
	changed := c.transport != TransportLive
	c.transport = TransportLive
	live := c.live
	c.mu.Unlock()

	logger.Debugf("tracker", "acquireTokenAndConnect", "live channel armed for job %s", c.cfg.JobID)
	if changed && c.cfg.OnTransportChange != nil {
		c.cfg.OnTransportChange(TransportLive)
	}
	live.Connect(ctx)
}

// engagePolling activates the fallback transport. One-directional: once a
// session is on polling it stays there (Retry restarts the poll loop, it
// does not resurrect the live channel).
func (c *Coordinator) engagePolling(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.completed {
		c.mu.Unlock()
		return
	}
	changed := c.transport != TransportPolling
	c.transport = TransportPolling
	c.mu.Unlock()

	logger.Infof("tracker", "engagePolling", "polling job %s", c.cfg.JobID)
	if changed && c.cfg.OnTransportChange != nil {
		c.cfg.OnTransportChange(TransportPolling)
	}
	c.poller.Start(ctx)
}

func (c *Coordinator) handleLiveOpen() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

func (c *Coordinator) handleLiveError(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	// Transient live errors are retried inside the channel client; they are
	// recorded but not surfaced through OnError while a fallback remains.
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Coordinator) handleLiveGiveUp(err error) {
	c.mu.Lock()
	if c.closed || c.completed || c.transport == TransportPolling {
		c.mu.Unlock()
		return
	}
	ctx := c.parentCtx
	c.mu.Unlock()

	logger.Warnf("tracker", "handleLiveGiveUp", "live channel unavailable for job %s: %v", c.cfg.JobID, err)
	c.engagePolling(ctx)
}

func (c *Coordinator) handlePollError(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.lastErr = err
	completed := c.completed
	onError := c.cfg.OnError
	c.mu.Unlock()

	// Budget exhaustion is the end of the line: there is no further
	// transport to fall back to, so the consumer hears about it.
	if !c.poller.IsRunning() && !completed {
		logger.Error("tracker", "handlePollError", err)
		if onError != nil {
			onError(err)
		}
	}
}

// handleSnapshot folds an inbound snapshot from either transport into the
// session state. The first terminal snapshot trips the completion latch and
// tears the transports down; later terminal snapshots (duplicates, races
// between transports, stale deliveries) still refresh the displayed
// snapshot but never re-dispatch.
func (c *Coordinator) handleSnapshot(snapshot *job.Snapshot) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.snapshot = snapshot
	first := snapshot.IsTerminal() && !c.completed
	if first {
		c.completed = true
		c.dispatched = true
		c.lastErr = nil
	}
	onSnapshot := c.cfg.OnSnapshot
	onComplete := c.cfg.OnComplete
	c.mu.Unlock()

	if onSnapshot != nil {
		onSnapshot(snapshot)
	}
	if !first {
		return
	}

	if snapshot.Status == job.StatusCompleted && !snapshot.HasResult() {
		logger.Warnf("tracker", "handleSnapshot", "job %s completed without a recipe id", c.cfg.JobID)
	}

	c.teardownTransports()
	if onComplete != nil {
		onComplete(snapshot)
	}
}

// teardownTransports stops both transports, cancelling any pending
// reconnect or poll timers. Safe on every exit path, including sessions
// where a transport was never engaged.
func (c *Coordinator) teardownTransports() {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	if live != nil {
		live.Disconnect()
	}
	c.poller.Stop()
}
