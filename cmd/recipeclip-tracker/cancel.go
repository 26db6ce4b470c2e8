package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/recipeclip/recipeclip-tracker/internal/cli"
	"github.com/recipeclip/recipeclip-tracker/internal/history"
)

func runCancel() {
	cancelCmd := flag.NewFlagSet("cancel", flag.ExitOnError)
	jobFlag := cancelCmd.String("job", "", "Job identifier to cancel")
	yesFlag := cancelCmd.Bool("yes", false, "Cancel without prompting")
	cancelCmd.Parse(os.Args[2:])

	req, err := cli.ParseTrackRequest(*jobFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig()
	client := newAPIClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout())
	defer cancel()

	summary := &cli.CancelSummary{JobID: req.JobID}
	if snapshot, fetchErr := client.FetchStatus(ctx, req.JobID); fetchErr == nil {
		summary.Status = string(snapshot.Status)
		summary.CurrentStep = snapshot.CurrentStep
		if snapshot.IsTerminal() {
			fmt.Printf("Job %s already finished (%s); nothing to cancel.\n", req.JobID, snapshot.Status)
			return
		}
	}

	cli.NewConfirmer().ConfirmOrExit(summary, *yesFlag)

	if err := client.CancelJob(ctx, req.JobID); err != nil {
		fmt.Fprintf(os.Stderr, "Cancellation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Cancellation requested for job %s\n", req.JobID)
	recordEvent(history.NewStore(cfg.StateDir), history.Event{Type: "job_cancelled", JobID: req.JobID})
}
