package hashing

import (
	"crypto/rand"
	"fmt"
	"io"
)

// randomBytes reads n bytes from r, or from crypto/rand when r is nil.
func randomBytes(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropySource, err)
	}
	return b, nil
}
