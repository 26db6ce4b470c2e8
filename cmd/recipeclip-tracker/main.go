package main

import (
	"fmt"
	"os"

	"github.com/recipeclip/recipeclip-tracker/internal/logger"
)

// trackerVersion is stamped manually on release.
const trackerVersion = "0.4.2"

func main() {
	logger.Init()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "extract":
		runExtract()
	case "track":
		runTrack()
	case "status":
		runStatus()
	case "cancel":
		runCancel()
	case "history":
		runHistory()
	case "init":
		runInit()
	case "version":
		runVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: recipeclip-tracker <command>

Commands:
  extract   Submit a recipe extraction job and track it to completion
  track     Track an existing extraction job to completion
  status    Show the current (or last cached) status of a job
  cancel    Cancel a running extraction job
  history   Show tracking session history
  init      Initialize operator settings
  version   Show client and backend versions
  help      Show this help

Examples:
  recipeclip-tracker extract --url https://example.com/best-lasagna
  recipeclip-tracker track --job job-8f3a21
  recipeclip-tracker status --job job-8f3a21
  recipeclip-tracker cancel --job job-8f3a21 --yes`)
}
