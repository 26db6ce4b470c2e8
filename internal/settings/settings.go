package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Settings stores operator preferences written by the init command.
type Settings struct {
	LiveChannelEnabled bool `json:"live_channel_enabled"`
	PollIntervalMS     int  `json:"poll_interval_ms"`
	Initialized        bool `json:"initialized"`
}

// DefaultPath returns the default path for tracker settings.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}
	return filepath.Join(homeDir, ".recipeclip-tracker.config"), nil
}

// Load reads settings from the provided path. A missing file is not an
// error; it means init has never run, and zero settings come back.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, err
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	return &settings, nil
}

// Save writes settings to the provided path.
func Save(path string, settings *Settings) error {
	if settings.PollIntervalMS < 0 {
		return fmt.Errorf("poll_interval_ms must not be negative")
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	return nil
}
