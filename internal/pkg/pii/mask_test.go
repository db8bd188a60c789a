package pii

import "testing"

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"typical address", "visitor@example.com", "v***@example.com"},
		{"single letter local part", "a@example.com", "a***@example.com"},
		{"subdomain host", "ops@mail.example.co.uk", "o***@mail.example.co.uk"},
		{"missing local part", "@example.com", MaskedPlaceholder},
		{"missing host", "visitor@", MaskedPlaceholder},
		{"not an email", "visitor", MaskedPlaceholder},
		{"empty", "", MaskedPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskEmail(tt.input); got != tt.want {
				t.Errorf("MaskEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMaskEmailPtr(t *testing.T) {
	if got := MaskEmailPtr(nil); got != "anonymous" {
		t.Errorf("MaskEmailPtr(nil) = %q, want %q", got, "anonymous")
	}
	email := "visitor@example.com"
	if got := MaskEmailPtr(&email); got != "v***@example.com" {
		t.Errorf("MaskEmailPtr(&email) = %q, want %q", got, "v***@example.com")
	}
}
