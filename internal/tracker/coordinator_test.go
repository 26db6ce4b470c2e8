package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/recipeclip/recipeclip-tracker/internal/auth"
	"github.com/recipeclip/recipeclip-tracker/internal/job"
)

func terminalSnapshot() *job.Snapshot {
	return &job.Snapshot{JobID: "job-1", Status: job.StatusCompleted, Progress: 100, RecipeID: "rec-1"}
}

func TestPollingOnlySessionCompletes(t *testing.T) {
	var fetches atomic.Int32
	completed := make(chan *job.Snapshot, 1)

	c := New(Config{
		JobID: "job-1",
		FetchStatus: func(ctx context.Context, jobID string) (*job.Snapshot, error) {
			n := fetches.Add(1)
			if n < 3 {
				return &job.Snapshot{JobID: jobID, Status: job.StatusProcessing, Progress: int(n) * 30}, nil
			}
			return terminalSnapshot(), nil
		},
		Tokens:       &auth.StaticProvider{},
		LiveEnabled:  false,
		PollInterval: 5 * time.Millisecond,
		OnComplete:   func(s *job.Snapshot) { completed <- s },
	})
	defer c.Stop()

	c.Start(context.Background())

	select {
	case s := <-completed:
		if s.RecipeID != "rec-1" {
			t.Errorf("unexpected completion snapshot: %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	if got := c.ActiveTransport(); got != TransportPolling {
		t.Errorf("expected polling transport, got %q", got)
	}
	if !c.Completed() {
		t.Error("expected completed state")
	}
}

func TestLiveSessionCompletes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-live" {
			t.Errorf("expected live channel bearer header, got %q", got)
		}
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "data: {\"job_id\": \"job-1\", \"status\": \"processing\", \"progress_percentage\": 60}\n\n")
		fmt.Fprint(w, "data: {\"job_id\": \"job-1\", \"status\": \"completed\", \"progress_percentage\": 100, \"recipe_id\": \"rec-1\"}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	completed := make(chan *job.Snapshot, 1)
	var snapshots atomic.Int32

	c := New(Config{
		JobID:     "job-1",
		StreamURL: server.URL,
		FetchStatus: func(ctx context.Context, jobID string) (*job.Snapshot, error) {
			t.Error("polling must not engage while the live channel works")
			return nil, errors.New("unexpected")
		},
		Tokens:      &auth.StaticProvider{Token: "tok-live"},
		LiveEnabled: true,
		OnSnapshot:  func(*job.Snapshot) { snapshots.Add(1) },
		OnComplete:  func(s *job.Snapshot) { completed <- s },
	})
	defer c.Stop()

	c.Start(context.Background())

	select {
	case s := <-completed:
		if s.Status != job.StatusCompleted {
			t.Errorf("expected completed, got %q", s.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	if got := snapshots.Load(); got != 2 {
		t.Errorf("expected 2 snapshots, got %d", got)
	}
	if got := c.ActiveTransport(); got != TransportLive {
		t.Errorf("expected live transport, got %q", got)
	}
}

func TestFallsBackToPollingWhenLiveGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	completed := make(chan *job.Snapshot, 1)
	transports := make(chan Transport, 4)

	c := New(Config{
		JobID:     "job-1",
		StreamURL: server.URL,
		FetchStatus: func(ctx context.Context, jobID string) (*job.Snapshot, error) {
			return terminalSnapshot(), nil
		},
		Tokens:            &auth.StaticProvider{Token: "tok-stale"},
		LiveEnabled:       true,
		ReconnectDelay:    5 * time.Millisecond,
		PollInterval:      5 * time.Millisecond,
		OnComplete:        func(s *job.Snapshot) { completed <- s },
		OnTransportChange: func(tr Transport) { transports <- tr },
	})
	defer c.Stop()

	c.Start(context.Background())

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the polling fallback to complete")
	}

	if got := c.ActiveTransport(); got != TransportPolling {
		t.Errorf("expected polling transport after fallback, got %q", got)
	}
	if first := <-transports; first != TransportLive {
		t.Errorf("expected the session to try live first, got %q", first)
	}
	if second := <-transports; second != TransportPolling {
		t.Errorf("expected a polling failover notification, got %q", second)
	}
}

func TestCompletionDispatchesExactlyOnce(t *testing.T) {
	var completions atomic.Int32
	var snapshots atomic.Int32

	c := New(Config{
		JobID: "job-1",
		FetchStatus: func(ctx context.Context, jobID string) (*job.Snapshot, error) {
			return terminalSnapshot(), nil
		},
		Tokens:     &auth.StaticProvider{},
		OnSnapshot: func(*job.Snapshot) { snapshots.Add(1) },
		OnComplete: func(*job.Snapshot) { completions.Add(1) },
	})
	defer c.Stop()

	c.mu.Lock()
	c.parentCtx = context.Background()
	c.mu.Unlock()

	// Duplicate terminal snapshots can arrive when both transports observe
	// the same finish, or when the backend re-delivers. Only the first one
	// dispatches; all of them refresh the displayed snapshot.
	c.handleSnapshot(terminalSnapshot())
	c.handleSnapshot(terminalSnapshot())
	c.handleSnapshot(&job.Snapshot{JobID: "job-1", Status: job.StatusFailed})

	if got := completions.Load(); got != 1 {
		t.Errorf("expected exactly 1 completion dispatch, got %d", got)
	}
	if got := snapshots.Load(); got != 3 {
		t.Errorf("expected every snapshot to reach OnSnapshot, got %d", got)
	}
	if s := c.Snapshot(); s == nil || s.Status != job.StatusFailed {
		t.Errorf("expected the latest snapshot to be retained, got %+v", s)
	}
}

func TestRetryAfterCompletionIsNoOp(t *testing.T) {
	var fetches atomic.Int32
	completed := make(chan *job.Snapshot, 1)

	c := New(Config{
		JobID: "job-1",
		FetchStatus: func(ctx context.Context, jobID string) (*job.Snapshot, error) {
			fetches.Add(1)
			return terminalSnapshot(), nil
		},
		Tokens:       &auth.StaticProvider{},
		PollInterval: 5 * time.Millisecond,
		OnComplete:   func(s *job.Snapshot) { completed <- s },
	})
	defer c.Stop()

	c.Start(context.Background())
	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	before := fetches.Load()
	c.Retry()
	time.Sleep(50 * time.Millisecond)

	if got := fetches.Load(); got != before {
		t.Errorf("expected Retry after completion to do nothing, got %d extra fetches", got-before)
	}
	select {
	case <-completed:
		t.Error("expected no second completion dispatch")
	default:
	}
}

func TestPollBudgetExhaustionSurfacesError(t *testing.T) {
	fetchErr := errors.New("backend down")
	failed := make(chan error, 1)

	c := New(Config{
		JobID: "job-1",
		FetchStatus: func(ctx context.Context, jobID string) (*job.Snapshot, error) {
			return nil, fetchErr
		},
		Tokens:                   &auth.StaticProvider{},
		PollInterval:             5 * time.Millisecond,
		MaxConsecutivePollErrors: 3,
		OnError:                  func(err error) { failed <- err },
	})
	defer c.Stop()

	c.Start(context.Background())

	select {
	case err := <-failed:
		if !errors.Is(err, fetchErr) {
			t.Errorf("expected the fetch error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the error dispatch")
	}
	if !errors.Is(c.Err(), fetchErr) {
		t.Errorf("expected the error to be retained, got %v", c.Err())
	}
}

func TestRetryRestartsExhaustedPolling(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	failed := make(chan error, 1)
	completed := make(chan *job.Snapshot, 1)

	c := New(Config{
		JobID: "job-1",
		FetchStatus: func(ctx context.Context, jobID string) (*job.Snapshot, error) {
			if fail.Load() {
				return nil, errors.New("backend down")
			}
			return terminalSnapshot(), nil
		},
		Tokens:                   &auth.StaticProvider{},
		PollInterval:             5 * time.Millisecond,
		MaxConsecutivePollErrors: 2,
		OnError:                  func(err error) { failed <- err },
		OnComplete:               func(s *job.Snapshot) { completed <- s },
	})
	defer c.Stop()

	c.Start(context.Background())
	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the poll budget to exhaust")
	}

	fail.Store(false)
	c.Retry()

	select {
	case s := <-completed:
		if s.Status != job.StatusCompleted {
			t.Errorf("expected completion after retry, got %q", s.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected Retry to restart the poll loop")
	}
}

func TestStopSuppressesCallbacks(t *testing.T) {
	var completions atomic.Int32

	c := New(Config{
		JobID: "job-1",
		FetchStatus: func(ctx context.Context, jobID string) (*job.Snapshot, error) {
			return terminalSnapshot(), nil
		},
		Tokens:     &auth.StaticProvider{},
		OnComplete: func(*job.Snapshot) { completions.Add(1) },
	})

	c.Stop()
	c.Stop()
	c.handleSnapshot(terminalSnapshot())

	if got := completions.Load(); got != 0 {
		t.Errorf("expected no dispatch after Stop, got %d", got)
	}
}
