package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrNoToken means no credential is currently available. The tracker treats
// this as "tracking deferred", not as a failure.
var ErrNoToken = errors.New("no access token available")

// TokenProvider supplies a bearer token for the live update channel.
// Implementations may block on I/O; callers pass a context.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticProvider returns a fixed token. Used for tests and for operators who
// export RECIPECLIP_ACCESS_TOKEN directly.
type StaticProvider struct {
	Token string
}

// AccessToken returns the configured token, or ErrNoToken when empty.
func (p *StaticProvider) AccessToken(ctx context.Context) (string, error) {
	if strings.TrimSpace(p.Token) == "" {
		return "", ErrNoToken
	}
	return p.Token, nil
}

// tokenFile is the on-disk format written by the RecipeClip app after sign-in.
type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// FileProvider reads a token file and caches the result until it expires.
// The refresh flow that writes the file is out of scope here; this is only
// the read side of the token handoff.
type FileProvider struct {
	Path string

	mu     sync.Mutex
	cached string
	expiry time.Time
}

// NewFileProvider creates a FileProvider for the given path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// AccessToken returns the cached token if still valid, otherwise re-reads
// the file. A missing file yields ErrNoToken; a malformed file is an error.
func (p *FileProvider) AccessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" && (p.expiry.IsZero() || time.Now().Before(p.expiry)) {
		return p.cached, nil
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("failed to parse token file: %w", err)
	}

	token := strings.TrimSpace(tf.AccessToken)
	if token == "" {
		return "", ErrNoToken
	}
	if !tf.ExpiresAt.IsZero() && !time.Now().Before(tf.ExpiresAt) {
		return "", ErrNoToken
	}

	p.cached = token
	p.expiry = tf.ExpiresAt
	return token, nil
}

// FromConfig picks a provider from the configured credentials: a static
// token wins over a token file; with neither, the provider always reports
// ErrNoToken and the tracker runs on polling alone.
func FromConfig(accessToken, tokenFilePath string) TokenProvider {
	if strings.TrimSpace(accessToken) != "" {
		return &StaticProvider{Token: accessToken}
	}
	if strings.TrimSpace(tokenFilePath) != "" {
		return NewFileProvider(tokenFilePath)
	}
	return &StaticProvider{}
}
