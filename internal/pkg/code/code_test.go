package code

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("generates codes of the requested length", func(t *testing.T) {
		c, err := New(8)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(c) != 8 {
			t.Errorf("expected length 8, got %d", len(c))
		}
	})

	t.Run("falls back to the default length", func(t *testing.T) {
		c, err := New(0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(c) != DefaultLength {
			t.Errorf("expected length %d, got %d", DefaultLength, len(c))
		}
	})

	t.Run("only draws from the unambiguous alphabet", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			c, err := New(12)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			for _, r := range c {
				if !strings.ContainsRune(alphabet, r) {
					t.Fatalf("code %q contains %q outside the alphabet", c, r)
				}
			}
		}
	})

	t.Run("successive codes differ", func(t *testing.T) {
		a, _ := New(12)
		b, _ := New(12)
		if a == b {
			t.Errorf("two random codes matched: %q", a)
		}
	})
}
