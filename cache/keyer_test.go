package cache

import (
	"strings"
	"testing"
)

func TestIdentifierKey(t *testing.T) {
	if got := IdentifierKey("cnpj", "11222333000181"); got != "cnpj:11222333000181" {
		t.Errorf("IdentifierKey() = %q", got)
	}
	if IdentifierKey("cep", "01310100") == IdentifierKey("cnpj", "01310100") {
		t.Error("kinds must not collide")
	}
}

func TestDefaultKeyer_Deterministic(t *testing.T) {
	keyer := NewDefaultKeyer()

	tests := []struct {
		name string
		a, b any
	}{
		{"map order", map[string]any{"q": "acme", "max": 5}, map[string]any{"max": 5, "q": "acme"}},
		{"nested maps", map[string]any{"opts": map[string]any{"z": 1, "a": 2}}, map[string]any{"opts": map[string]any{"a": 2, "z": 1}}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k1, err := keyer.Key("search", tt.a)
			if err != nil {
				t.Fatalf("Key() error = %v", err)
			}
			k2, err := keyer.Key("search", tt.b)
			if err != nil {
				t.Fatalf("Key() error = %v", err)
			}
			if k1 != k2 {
				t.Errorf("keys differ: %s vs %s", k1, k2)
			}
		})
	}
}

func TestDefaultKeyer_Distinguishes(t *testing.T) {
	keyer := NewDefaultKeyer()

	tests := []struct {
		name     string
		ns1, ns2 string
		a, b     any
	}{
		{"array order", "search", "search", map[string]any{"d": []any{"a", "b"}}, map[string]any{"d": []any{"b", "a"}}},
		{"namespace", "search", "news", "acme", "acme"},
		{"nil vs empty", "search", "search", nil, map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k1, _ := keyer.Key(tt.ns1, tt.a)
			k2, _ := keyer.Key(tt.ns2, tt.b)
			if k1 == k2 {
				t.Errorf("keys equal: %s", k1)
			}
		})
	}
}

func TestDefaultKeyer_Format(t *testing.T) {
	key, err := NewDefaultKeyer().Key("search", map[string]any{"q": "acme ltda"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}

	hash, ok := strings.CutPrefix(key, "cache:search:")
	if !ok {
		t.Fatalf("Key() = %q, want cache:search: prefix", key)
	}
	if len(hash) != 16 {
		t.Errorf("hash length = %d, want 16", len(hash))
	}
	for _, c := range hash {
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			t.Fatalf("hash %q is not lowercase hex", hash)
		}
	}
	if err := ValidateKey(key); err != nil {
		t.Errorf("ValidateKey(%q) = %v", key, err)
	}
}

func TestDefaultKeyer_Unmarshalable(t *testing.T) {
	if _, err := NewDefaultKeyer().Key("search", make(chan int)); err == nil {
		t.Error("Key(chan) error = nil, want error")
	}
}
