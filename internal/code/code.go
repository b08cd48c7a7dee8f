package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_generator.go github.com/svetlov/captchabot/internal/code Generator

// Alphabet is the set of characters a captcha code is drawn from.
// Visually ambiguous characters (0/O, 1/I) are excluded.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultLength is the code length used when none is configured
const DefaultLength = 5

// Generator produces random captcha codes
type Generator interface {
	// Generate returns a random code of the given length
	Generate(length int) (string, error)
}

// Config for the code generator
type Config struct{}

// Default implements Generator using a cryptographically secure source.
// The code is a security gate, however weak, so math/rand is not enough.
type Default struct{}

// New creates a new code generator
func New(cfg *Config) *Default {
	return &Default{}
}

// Generate returns a code of the given length drawn uniformly, with
// replacement, from Alphabet. Lengths below 1 fall back to DefaultLength.
func (g *Default) Generate(length int) (string, error) {
	if length < 1 {
		length = DefaultLength
	}

	max := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}

	return string(buf), nil
}
