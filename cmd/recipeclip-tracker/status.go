package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/recipeclip/recipeclip-tracker/internal/cli"
	"github.com/recipeclip/recipeclip-tracker/internal/job"
)

func runStatus() {
	statusCmd := flag.NewFlagSet("status", flag.ExitOnError)
	jobFlag := statusCmd.String("job", "", "Job identifier to inspect")
	statusCmd.Parse(os.Args[2:])

	req, err := cli.ParseTrackRequest(*jobFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig()
	client := newAPIClient(cfg)
	store := job.NewStore(cfg.StateDir)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout())
	defer cancel()

	snapshot, err := client.FetchStatus(ctx, req.JobID)
	if err != nil {
		cached, cacheErr := store.Load(req.JobID)
		if cacheErr != nil || cached == nil {
			fmt.Fprintf(os.Stderr, "Cannot reach the backend and no cached status exists: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Backend unreachable (%v), showing cached status:\n\n", err)
		printSnapshot(cached, true)
		os.Exit(0)
	}

	if saveErr := store.Save(snapshot); saveErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot cache snapshot: %v\n", saveErr)
	}
	printSnapshot(snapshot, false)
}

func printSnapshot(s *job.Snapshot, cached bool) {
	fmt.Printf("Job:      %s\n", s.JobID)
	fmt.Printf("Status:   %s\n", s.Status)
	fmt.Printf("Progress: %d%%\n", s.DisplayProgress())
	if s.CurrentStep != "" {
		fmt.Printf("Step:     %s\n", s.CurrentStep)
	}
	if s.RecipeID != "" {
		fmt.Printf("Recipe:   %s\n", s.RecipeID)
	}
	if s.ErrorMessage != "" {
		fmt.Printf("Error:    %s\n", s.ErrorMessage)
	}
	if cached {
		fmt.Printf("Updated:  %s\n", formatAge(s.UpdatedAt))
	}
}
