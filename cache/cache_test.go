package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", ErrInvalidKey},
		{"identifier key", "cnpj:11222333000181", nil},
		{"too long", strings.Repeat("x", MaxKeyLength+1), ErrKeyTooLong},
		{"contains newline", "cep:01310\n100", ErrInvalidKey},
		{"contains carriage return", "cep:01310\r100", ErrInvalidKey},
		{"whitespace only", "   ", ErrInvalidKey},
		{"max length exactly", strings.Repeat("x", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key); err != tt.wantErr {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestReadThrough(t *testing.T) {
	c := NewLRUCache(LRUConfig{MaxSize: 10})
	ctx := context.Background()
	loads := 0
	load := func(context.Context) ([]byte, error) {
		loads++
		return []byte(`{"cep":"01310100"}`), nil
	}

	v, hit, err := ReadThrough(ctx, c, "cep:01310100", load)
	if err != nil || hit || string(v) != `{"cep":"01310100"}` {
		t.Fatalf("first ReadThrough() = (%s, %v, %v), want loaded miss", v, hit, err)
	}
	v, hit, err = ReadThrough(ctx, c, "cep:01310100", load)
	if err != nil || !hit || string(v) != `{"cep":"01310100"}` {
		t.Fatalf("second ReadThrough() = (%s, %v, %v), want hit", v, hit, err)
	}
	if loads != 1 {
		t.Errorf("loads = %d, want 1", loads)
	}
}

func TestReadThrough_ErrorsAreNotCached(t *testing.T) {
	c := NewLRUCache(LRUConfig{})
	ctx := context.Background()
	boom := errors.New("upstream 502")

	_, _, err := ReadThrough(ctx, c, "k", func(context.Context) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("ReadThrough() error = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after failed load", c.Len())
	}
}

func TestReadThrough_InvalidKeyBypassesCache(t *testing.T) {
	c := NewLRUCache(LRUConfig{})

	v, hit, err := ReadThrough(context.Background(), c, "", func(context.Context) ([]byte, error) {
		return []byte("x"), nil
	})
	if err != nil || hit || string(v) != "x" {
		t.Errorf("ReadThrough() = (%s, %v, %v)", v, hit, err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestReadThrough_NilCache(t *testing.T) {
	_, _, err := ReadThrough(context.Background(), nil, "k", nil)
	if !errors.Is(err, ErrNilCache) {
		t.Errorf("ReadThrough(nil) error = %v, want ErrNilCache", err)
	}
}
