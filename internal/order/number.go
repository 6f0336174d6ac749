package order

import (
	"crypto/rand"
	"fmt"
)

const numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const numberLength = 10

// NewNumber draws a 10-character uppercase order number. Uniqueness is
// enforced by the database; callers retry on collision.
func NewNumber() (string, error) {
	buf := make([]byte, numberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return string(buf), nil
}
