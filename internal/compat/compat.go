package compat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// NormalizeVersion trims whitespace and a leading "v" prefix.
func NormalizeVersion(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "v")
	return value
}

// SupportsStream reports whether a backend at backendVersion serves the
// per-job live update stream. streamInitVersion is the release that
// introduced the stream endpoint; backends below it only support polling.
// An empty streamInitVersion means every backend is assumed to support it.
func SupportsStream(backendVersion, streamInitVersion string) (bool, error) {
	streamInitVersion = NormalizeVersion(streamInitVersion)
	if streamInitVersion == "" {
		return true, nil
	}
	backendVersion = NormalizeVersion(backendVersion)
	if backendVersion == "" {
		return false, errors.New("backend version is empty")
	}

	backend, err := version.NewVersion(backendVersion)
	if err != nil {
		return false, fmt.Errorf("invalid backend version %q: %w", backendVersion, err)
	}
	streamInit, err := version.NewVersion(streamInitVersion)
	if err != nil {
		return false, fmt.Errorf("invalid stream init version %q: %w", streamInitVersion, err)
	}

	return backend.GreaterThanOrEqual(streamInit), nil
}
