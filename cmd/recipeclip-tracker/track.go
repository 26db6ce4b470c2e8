package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/recipeclip/recipeclip-tracker/internal/apiclient"
	"github.com/recipeclip/recipeclip-tracker/internal/auth"
	"github.com/recipeclip/recipeclip-tracker/internal/cli"
	"github.com/recipeclip/recipeclip-tracker/internal/config"
	"github.com/recipeclip/recipeclip-tracker/internal/history"
	"github.com/recipeclip/recipeclip-tracker/internal/job"
	"github.com/recipeclip/recipeclip-tracker/internal/logger"
	"github.com/recipeclip/recipeclip-tracker/internal/tracker"
)

func runTrack() {
	trackCmd := flag.NewFlagSet("track", flag.ExitOnError)
	jobFlag := trackCmd.String("job", "", "Job identifier to track")
	noLive := trackCmd.Bool("no-live", false, "Skip the live channel and poll only")
	timeoutFlag := trackCmd.Int("timeout", 900, "Give up after this many seconds")
	trackCmd.Parse(os.Args[2:])

	req, err := cli.ParseTrackRequest(*jobFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig()
	client := newAPIClient(cfg)
	os.Exit(trackJob(cfg, client, req.JobID, !*noLive, time.Duration(*timeoutFlag)*time.Second))
}

// trackJob runs one tracking session to completion and returns the process
// exit code. Shared by `track` and `extract`.
func trackJob(cfg *config.Config, client *apiclient.Client, jobID string, wantLive bool, timeout time.Duration) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	liveEnabled := wantLive && cfg.LiveChannelEnabled
	if liveEnabled {
		liveEnabled = liveSupported(ctx, client, cfg)
	}

	store := job.NewStore(cfg.StateDir)
	events := history.NewStore(cfg.StateDir)
	recordEvent(events, history.Event{Type: "track_started", JobID: jobID})

	done := make(chan *job.Snapshot, 1)
	failed := make(chan error, 1)

	coord := tracker.New(tracker.Config{
		JobID:                    jobID,
		StreamURL:                cfg.APIBaseURL + "/jobs/" + jobID + "/stream",
		FetchStatus:              client.FetchStatus,
		Tokens:                   auth.FromConfig(cfg.AccessToken, cfg.TokenFile),
		LiveEnabled:              liveEnabled,
		ProcessingStatus:         cfg.ProcessingStatus,
		ReconnectDelay:           cfg.ReconnectDelay(),
		MaxReconnects:            cfg.MaxReconnects,
		PollInterval:             cfg.PollInterval(),
		ErrorRetryDelay:          cfg.ErrorRetryDelay(),
		MaxConsecutivePollErrors: cfg.MaxConsecutivePollErrors,
		OnTransportChange: func(tr tracker.Transport) {
			recordEvent(events, history.Event{
				Type:  "transport_changed",
				JobID: jobID,
				Data:  map[string]string{"transport": string(tr)},
			})
			if tr == tracker.TransportPolling && liveEnabled {
				fmt.Println("Live updates unavailable, switching to polling.")
			}
		},
		OnSnapshot: func(s *job.Snapshot) {
			printSnapshotLine(s)
			if err := store.Save(s); err != nil {
				logger.Warnf("cmd", "track", "cannot cache snapshot: %v", err)
			}
		},
		OnComplete: func(s *job.Snapshot) {
			done <- s
		},
		OnError: func(err error) {
			failed <- err
		},
	})

	coord.Start(ctx)
	defer coord.Stop()

	select {
	case s := <-done:
		return finishSession(events, jobID, s)
	case err := <-failed:
		fmt.Fprintf(os.Stderr, "Lost contact with the backend: %v\n", err)
		recordEvent(events, history.Event{Type: "track_failed", JobID: jobID, Message: err.Error()})
		return 1
	case <-time.After(timeout):
		fmt.Fprintf(os.Stderr, "Gave up after %s; the job may still be running. Check later with:\n", timeout)
		fmt.Fprintf(os.Stderr, "  recipeclip-tracker status --job %s\n", jobID)
		recordEvent(events, history.Event{Type: "track_timeout", JobID: jobID})
		return 1
	}
}

func finishSession(events *history.Store, jobID string, s *job.Snapshot) int {
	switch s.Status {
	case job.StatusCompleted:
		fmt.Printf("\nExtraction complete. Recipe: %s\n", s.RecipeID)
		recordEvent(events, history.Event{
			Type:   "track_completed",
			Status: string(s.Status),
			JobID:  jobID,
			Data:   map[string]string{"recipe_id": s.RecipeID},
		})
		return 0
	case job.StatusFailed:
		msg := s.ErrorMessage
		if msg == "" {
			msg = "the backend reported no reason"
		}
		fmt.Fprintf(os.Stderr, "\nExtraction failed: %s\n", msg)
		recordEvent(events, history.Event{Type: "track_completed", Status: string(s.Status), JobID: jobID, Message: msg})
		return 1
	default:
		// A completion dispatch with a non-terminal status is a coordinator
		// bug; surface it rather than guessing.
		fmt.Fprintf(os.Stderr, "\nSession ended in unexpected state %q\n", s.Status)
		return 1
	}
}

func printSnapshotLine(s *job.Snapshot) {
	step := s.CurrentStep
	if step == "" {
		step = string(s.Status)
	}
	fmt.Printf("[%3d%%] %-10s %s\n", s.DisplayProgress(), s.Status, step)
}

func recordEvent(events *history.Store, ev history.Event) {
	if err := events.Append(ev); err != nil {
		logger.Warnf("cmd", "history", "cannot record event: %v", err)
	}
}
