package shortcode

import (
	"strings"
	"testing"
)

const urlSafeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

func TestNewLength(t *testing.T) {
	code, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if len(code) != Length {
		t.Errorf("expected code of length %d, got %q (%d)", Length, code, len(code))
	}
}

func TestNewAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := New()
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		for _, r := range code {
			if !strings.ContainsRune(urlSafeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the URL-safe alphabet", code, r)
			}
		}
	}
}

func TestNewCollisionResistance(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code, err := New()
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		if _, ok := seen[code]; ok {
			t.Fatalf("duplicate code %q after %d draws", code, i)
		}
		seen[code] = struct{}{}
	}
}
