package job

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store caches the last observed snapshot per job on disk so the status
// command can show something without a network round trip. The tracker
// itself never reads from here; all tracking state is in-memory.
type Store struct {
	stateDir string
}

// NewStore creates a new Store rooted at the given state directory.
func NewStore(stateDir string) *Store {
	return &Store{
		stateDir: stateDir,
	}
}

// Load reads the cached snapshot for a job.
// Returns nil if no snapshot has been cached.
func (s *Store) Load(jobID string) (*Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

// Save persists the snapshot to disk atomically.
func (s *Store) Save(snapshot *Snapshot) error {
	if snapshot.JobID == "" {
		return fmt.Errorf("snapshot has no job id")
	}

	jobDir := filepath.Join(s.stateDir, "jobs", snapshot.JobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.atomicWrite(s.snapshotPath(snapshot.JobID), data); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return nil
}

// snapshotPath returns the path to the cached snapshot for a job.
func (s *Store) snapshotPath(jobID string) string {
	return filepath.Join(s.stateDir, "jobs", jobID, "snapshot.json")
}

// atomicWrite writes data to a file atomically using a temporary file and rename.
func (s *Store) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil // Prevent cleanup

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
