package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/recipeclip/recipeclip-tracker/internal/cli"
	"github.com/recipeclip/recipeclip-tracker/internal/history"
)

func runExtract() {
	extractCmd := flag.NewFlagSet("extract", flag.ExitOnError)
	urlFlag := extractCmd.String("url", "", "Recipe page URL to extract")
	noLive := extractCmd.Bool("no-live", false, "Skip the live channel and poll only")
	noWait := extractCmd.Bool("no-wait", false, "Submit only, do not track to completion")
	timeoutFlag := extractCmd.Int("timeout", 900, "Give up after this many seconds")
	extractCmd.Parse(os.Args[2:])

	req, err := cli.ParseExtractRequest(*urlFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig()
	client := newAPIClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout())
	jobID, err := client.SubmitExtraction(ctx, req.SourceURL)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Submission failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Submitted extraction job %s for %s\n", jobID, req.SourceURL)
	recordEvent(history.NewStore(cfg.StateDir), history.Event{
		Type:  "job_submitted",
		JobID: jobID,
		Data:  map[string]string{"source_url": req.SourceURL},
	})

	if *noWait {
		fmt.Printf("Track it with: recipeclip-tracker track --job %s\n", jobID)
		return
	}
	os.Exit(trackJob(cfg, client, jobID, !*noLive, time.Duration(*timeoutFlag)*time.Second))
}
