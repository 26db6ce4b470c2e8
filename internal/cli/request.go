// Package cli provides shared helpers for CLI commands.
package cli

import (
	"errors"
	"net/url"
	"strings"
)

// Validation errors.
var (
	ErrJobIDRequired = errors.New("--job flag is required")
	ErrInvalidJobID  = errors.New("job id must not contain whitespace")
	ErrURLRequired   = errors.New("--url flag is required")
	ErrInvalidURL    = errors.New("--url must be a valid absolute http(s) URL")
	ErrURLScheme     = errors.New("--url must use http or https")
)

// TrackRequest represents a validated track/cancel request.
type TrackRequest struct {
	JobID string
}

// ExtractRequest represents a validated extraction submission.
type ExtractRequest struct {
	SourceURL string
}

// ParseTrackRequest validates a job identifier.
// Job IDs are opaque backend strings; the only client-side rules are
// non-emptiness and no embedded whitespace.
func ParseTrackRequest(jobID string) (*TrackRequest, error) {
	trimmed := strings.TrimSpace(jobID)
	if trimmed == "" {
		return nil, ErrJobIDRequired
	}
	if strings.ContainsAny(trimmed, " \t\n") {
		return nil, ErrInvalidJobID
	}
	return &TrackRequest{JobID: trimmed}, nil
}

// ParseExtractRequest validates a recipe source URL.
func ParseExtractRequest(sourceURL string) (*ExtractRequest, error) {
	trimmed := strings.TrimSpace(sourceURL)
	if trimmed == "" {
		return nil, ErrURLRequired
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, ErrURLScheme
	}

	return &ExtractRequest{SourceURL: trimmed}, nil
}
