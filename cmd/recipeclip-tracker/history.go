package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/recipeclip/recipeclip-tracker/internal/history"
)

func runHistory() {
	historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
	limitFlag := historyCmd.Int("limit", 20, "Maximum number of entries to show")
	jobFlag := historyCmd.String("job", "", "Only show entries for this job")
	statusFlag := historyCmd.String("status", "", "Only show entries with this status")
	historyCmd.Parse(os.Args[2:])

	cfg := loadConfig()
	events, err := history.NewStore(cfg.StateDir).List(*limitFlag, *jobFlag, *statusFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot read history: %v\n", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		fmt.Println("No history entries.")
		return
	}

	for _, ev := range events {
		line := fmt.Sprintf("%s  %-16s", ev.Timestamp, ev.Type)
		if ev.JobID != "" {
			line += "  " + ev.JobID
		}
		if ev.Status != "" {
			line += "  [" + ev.Status + "]"
		}
		if ev.Message != "" {
			line += "  " + ev.Message
		}
		fmt.Println(line)
	}
}
