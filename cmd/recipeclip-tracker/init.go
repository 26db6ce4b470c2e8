package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/recipeclip/recipeclip-tracker/internal/settings"
)

func runInit() {
	path, err := settings.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	current, err := settings.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot read existing settings: %v\n", err)
		os.Exit(1)
	}
	if current.Initialized {
		fmt.Printf("Settings already exist at %s; values below become the new defaults.\n\n", path)
	}

	reader := bufio.NewReader(os.Stdin)
	st := &settings.Settings{
		LiveChannelEnabled: promptYesNo(reader, "Enable the live update channel?", true),
		PollIntervalMS:     promptInt(reader, "Polling interval in milliseconds", 2000),
		Initialized:        true,
	}

	if err := settings.Save(path, st); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot write settings: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nSettings written to %s\n", path)
}
