package pii

import "strings"

// MaskedPlaceholder replaces values that cannot be partially masked.
const MaskedPlaceholder = "[REDACTED]"

// MaskEmail obscures the local part of an email address so log lines stay
// debuggable without storing the full address. "visitor@example.com" becomes
// "v***@example.com". Inputs that do not look like an email are fully
// replaced.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return MaskedPlaceholder
	}
	return email[:1] + "***" + email[at:]
}

// MaskEmailPtr is MaskEmail for optional addresses; nil maps to "anonymous".
func MaskEmailPtr(email *string) string {
	if email == nil {
		return "anonymous"
	}
	return MaskEmail(*email)
}
