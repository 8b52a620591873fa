package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// DefaultCodeLength gives a five digit join code: large enough that
	// collisions among concurrently live sessions stay rare, short enough
	// to read out loud in the field.
	DefaultCodeLength = 5

	MinCodeLength = 4
	MaxCodeLength = 6
)

// RandomCodeGenerator produces uniformly random fixed-length numeric codes.
type RandomCodeGenerator struct{}

// NewCode returns a zero-padded numeric string of the requested length.
func (RandomCodeGenerator) NewCode(length int) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", fmt.Errorf("code length %d out of range [%d,%d]", length, MinCodeLength, MaxCodeLength)
	}

	bound := big.NewInt(1)
	for i := 0; i < length; i++ {
		bound.Mul(bound, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("generate join code: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}
