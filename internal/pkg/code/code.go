// Package code generates coupon codes.
package code

import (
	"crypto/rand"
	"fmt"
)

// alphabet deliberately omits ambiguous characters (0/O, 1/I/L) so codes
// survive being read aloud or typed from a printed voucher.
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// DefaultLength is the code length used when callers pass a non-positive one.
const DefaultLength = 10

// New returns a random coupon code of the given length drawn from the
// unambiguous alphabet. Randomness comes from crypto/rand; uniqueness is
// enforced by the store, with callers regenerating on collision.
func New(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
