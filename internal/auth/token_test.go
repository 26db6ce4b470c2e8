package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()

	p := &StaticProvider{Token: "tok-123"}
	token, err := p.AccessToken(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("expected %q, got %q", "tok-123", token)
	}

	empty := &StaticProvider{}
	if _, err := empty.AccessToken(ctx); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	if err := os.WriteFile(path, []byte(`{"access_token": "tok-file"}`), 0600); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(path)
	token, err := p.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-file" {
		t.Errorf("expected %q, got %q", "tok-file", token)
	}
}

func TestFileProviderMissingFile(t *testing.T) {
	p := NewFileProvider(filepath.Join(t.TempDir(), "nope.json"))
	if _, err := p.AccessToken(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestFileProviderMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(path)
	_, err := p.AccessToken(context.Background())
	if err == nil || errors.Is(err, ErrNoToken) {
		t.Errorf("expected a parse error, got %v", err)
	}
}

func TestFileProviderExpiredToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	expired := time.Now().Add(-time.Hour).Format(time.RFC3339)
	content := `{"access_token": "tok-old", "expires_at": "` + expired + `"}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(path)
	if _, err := p.AccessToken(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken for an expired token, got %v", err)
	}
}

func TestFileProviderCachesUntilExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	content := `{"access_token": "tok-cached", "expires_at": "` + future + `"}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(path)
	if _, err := p.AccessToken(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Deleting the file must not matter while the cached token is valid.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	token, err := p.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("expected the cached token, got error %v", err)
	}
	if token != "tok-cached" {
		t.Errorf("expected %q, got %q", "tok-cached", token)
	}
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()

	if p, ok := FromConfig("tok", "/tmp/ignored").(*StaticProvider); !ok || p.Token != "tok" {
		t.Errorf("expected a static provider for an explicit token, got %T", FromConfig("tok", "/tmp/ignored"))
	}
	if _, ok := FromConfig("", "/tmp/token.json").(*FileProvider); !ok {
		t.Errorf("expected a file provider when only a path is set")
	}
	none := FromConfig("", "")
	if _, err := none.AccessToken(ctx); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken with no credentials, got %v", err)
	}
}
