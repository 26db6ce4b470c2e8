package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/recipeclip/recipeclip-tracker/internal/apiclient"
	"github.com/recipeclip/recipeclip-tracker/internal/auth"
	"github.com/recipeclip/recipeclip-tracker/internal/compat"
	"github.com/recipeclip/recipeclip-tracker/internal/config"
	"github.com/recipeclip/recipeclip-tracker/internal/logger"
	"github.com/recipeclip/recipeclip-tracker/internal/settings"
)

// loadConfig loads the environment configuration and overlays any
// operator settings written by `init`. Fatal on invalid configuration.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	path, err := settings.DefaultPath()
	if err != nil {
		return cfg
	}
	st, err := settings.Load(path)
	if err != nil {
		logger.Warnf("cmd", "config", "ignoring unreadable settings file: %v", err)
		return cfg
	}
	if st.Initialized {
		cfg.LiveChannelEnabled = st.LiveChannelEnabled
		if st.PollIntervalMS > 0 {
			cfg.PollIntervalMS = st.PollIntervalMS
		}
	}
	return cfg
}

func newAPIClient(cfg *config.Config) *apiclient.Client {
	tokens := auth.FromConfig(cfg.AccessToken, cfg.TokenFile)
	return apiclient.NewClient(cfg.APIBaseURL, cfg.FetchTimeout(), tokens, cfg.ProcessingStatus)
}

// liveSupported asks the backend for its version and checks it against
// the stream-init threshold. Unknown versions do not block the live
// channel; only a backend that positively predates stream support does.
func liveSupported(ctx context.Context, client *apiclient.Client, cfg *config.Config) bool {
	info, err := client.Version(ctx)
	if err != nil {
		logger.Warnf("cmd", "compat", "backend version unavailable, assuming stream support: %v", err)
		return true
	}
	ok, err := compat.SupportsStream(info.Version, cfg.StreamInitVersion)
	if err != nil {
		logger.Warnf("cmd", "compat", "cannot compare backend version %q: %v", info.Version, err)
		return true
	}
	if !ok {
		logger.Infof("cmd", "compat", "backend %s predates stream support (needs >= %s), using polling",
			info.Version, cfg.StreamInitVersion)
	}
	return ok
}

func promptYesNo(reader *bufio.Reader, question string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Printf("%s [%s]: ", question, hint)
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

func promptInt(reader *bufio.Reader, question string, def int) int {
	fmt.Printf("%s [%d]: ", question, def)
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	n, err := strconv.Atoi(line)
	if err != nil || n <= 0 {
		fmt.Printf("Invalid number, keeping %d\n", def)
		return def
	}
	return n
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String() + " ago"
}
