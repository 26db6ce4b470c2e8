package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status represents the lifecycle state of an extraction job as reported by
// the backend.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further status transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Parse errors.
var (
	ErrInvalidPayload = errors.New("invalid job update payload")
	ErrMissingStatus  = errors.New("job update payload has no status")
	ErrUnknownStatus  = errors.New("unknown job status")
)

// Snapshot is the latest known state of an extraction job at a point in
// time. Snapshots are immutable per update; the tracker replaces them, it
// never mutates them.
type Snapshot struct {
	JobID        string    `json:"job_id"`
	Status       Status    `json:"status"`
	Progress     int       `json:"progress_percentage"`
	CurrentStep  string    `json:"current_step,omitempty"`
	RecipeID     string    `json:"recipe_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// IsTerminal reports whether the snapshot carries a terminal status.
func (s *Snapshot) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// HasResult reports whether a completed snapshot carries a recipe to load.
// A completed snapshot without a recipe ID is a recoverable anomaly
// ("complete but no result"), not a parse failure.
func (s *Snapshot) HasResult() bool {
	return s.Status == StatusCompleted && s.RecipeID != ""
}

// DisplayProgress clamps the progress percentage to [0, 100] for rendering.
// The tracker itself forwards the raw value unchanged; clamping is strictly
// a presentation concern.
func (s *Snapshot) DisplayProgress() int {
	if s.Progress < 0 {
		return 0
	}
	if s.Progress > 100 {
		return 100
	}
	return s.Progress
}

// ParseSnapshot decodes a raw update payload into a Snapshot. The payload is
// always bytes; both live channel events and poll responses go through this
// one parse step. transitional is the wire string the backend uses for the
// in-flight status (historically "processing" or "in_progress") and is
// normalized to StatusProcessing. Unknown fields are ignored so the backend
// can evolve its payloads without breaking the client.
func ParseSnapshot(data []byte, transitional string) (*Snapshot, error) {
	var raw struct {
		JobID        string    `json:"job_id"`
		Status       string    `json:"status"`
		Progress     int       `json:"progress_percentage"`
		CurrentStep  string    `json:"current_step"`
		RecipeID     string    `json:"recipe_id"`
		ErrorMessage string    `json:"error_message"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if raw.Status == "" {
		return nil, ErrMissingStatus
	}

	status, err := normalizeStatus(raw.Status, transitional)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		JobID:        raw.JobID,
		Status:       status,
		Progress:     raw.Progress,
		CurrentStep:  raw.CurrentStep,
		RecipeID:     raw.RecipeID,
		ErrorMessage: raw.ErrorMessage,
		CreatedAt:    raw.CreatedAt,
		UpdatedAt:    raw.UpdatedAt,
	}, nil
}

func normalizeStatus(raw, transitional string) (Status, error) {
	if transitional != "" && raw == transitional {
		return StatusProcessing, nil
	}
	switch Status(raw) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
}
