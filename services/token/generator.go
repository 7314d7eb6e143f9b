package token

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// MaxDigits bounds numeric code length.
const MaxDigits = 64

// digitCeiling is the largest multiple of ten that fits in a byte; bytes at or
// above it are rejected so every digit is uniform.
const digitCeiling = 250

type Generator struct {
	rand io.Reader
}

// NewGenerator returns a generator drawing from r, or from crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Generate returns digits decimal digits, or an opaque lowercase UUID when digits is zero.
func (g *Generator) Generate(digits int) (string, error) {
	if digits < 0 || digits > MaxDigits {
		return "", ErrInvalidDigitCount
	}
	if digits == 0 {
		return g.opaque()
	}
	return g.numeric(digits)
}

func (g *Generator) numeric(digits int) (string, error) {
	code := make([]byte, 0, digits)
	buf := make([]byte, digits)

	for len(code) < digits {
		need := digits - len(code)
		if _, err := io.ReadFull(g.rand, buf[:need]); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf[:need] {
			if b >= digitCeiling {
				continue
			}
			code = append(code, '0'+b%10)
		}
	}

	return string(code), nil
}

func (g *Generator) opaque() (string, error) {
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return "", fmt.Errorf("failed to generate opaque code: %w", err)
	}
	return id.String(), nil
}
