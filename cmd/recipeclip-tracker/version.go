package main

import (
	"context"
	"fmt"
	"os"

	"github.com/recipeclip/recipeclip-tracker/internal/compat"
)

func runVersion() {
	fmt.Printf("recipeclip-tracker %s\n", trackerVersion)

	cfg := loadConfig()
	client := newAPIClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout())
	defer cancel()

	info, err := client.Version(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backend version unavailable: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("backend %s\n", info.Version)

	supported, err := compat.SupportsStream(info.Version, cfg.StreamInitVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot determine live channel support: %v\n", err)
		os.Exit(1)
	}
	if supported {
		fmt.Println("live channel: supported")
	} else {
		fmt.Printf("live channel: unsupported (backend needs >= %s)\n", cfg.StreamInitVersion)
	}
}
