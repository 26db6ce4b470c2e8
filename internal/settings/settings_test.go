package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.config")

	saved := &Settings{
		LiveChannelEnabled: false,
		PollIntervalMS:     1500,
		Initialized:        true,
	}
	if err := Save(path, saved); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if loaded.LiveChannelEnabled != saved.LiveChannelEnabled ||
		loaded.PollIntervalMS != saved.PollIntervalMS ||
		!loaded.Initialized {
		t.Errorf("loaded settings do not match: %+v", loaded)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestLoadMissingFile(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "nope.config"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Initialized {
		t.Error("expected uninitialized settings for a missing file")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.config")
	if err := os.WriteFile(path, []byte("{{"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected an error for a corrupt settings file")
	}
}

func TestSaveRejectsNegativeInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.config")
	if err := Save(path, &Settings{PollIntervalMS: -1}); err == nil {
		t.Error("expected an error for a negative poll interval")
	}
}
