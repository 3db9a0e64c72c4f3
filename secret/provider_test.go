package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	p := NewEnvProvider(func(k string) (string, bool) {
		if k == "TAVILY_API_KEY" {
			return "tvly-123", true
		}
		return "", false
	})

	got, err := p.Resolve(context.Background(), "TAVILY_API_KEY")
	if err != nil || got != "tvly-123" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
	if _, err := p.Resolve(context.Background(), "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jwt_hmac"), []byte("s3cr3t\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := NewFileProvider(dir)

	got, err := p.Resolve(context.Background(), "jwt_hmac")
	if err != nil || got != "s3cr3t" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}

	tests := []struct {
		ref  string
		want error
	}{
		{"missing", ErrNotFound},
		{"../etc/passwd", ErrInvalidRef},
		{"/etc/passwd", ErrInvalidRef},
	}
	for _, tt := range tests {
		if _, err := p.Resolve(context.Background(), tt.ref); !errors.Is(err, tt.want) {
			t.Errorf("Resolve(%q) err = %v, want %v", tt.ref, err, tt.want)
		}
	}
}
