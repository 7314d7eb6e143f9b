package token

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	AlgorithmSHA512   = "sha512"
	AlgorithmSHA3_512 = "sha3-512"

	hashSeparator   = ":"
	digestSeparator = "$"
)

var hashConstructors = map[string]func() hash.Hash{
	AlgorithmSHA512:   sha512.New,
	AlgorithmSHA3_512: sha3.New512,
}

// Hasher digests (identity, code) pairs. Both inputs are lowercased before
// hashing, so codes compare case-insensitively.
type Hasher struct {
	algorithm string
}

func NewHasher(algorithm string) (*Hasher, error) {
	if algorithm == "" {
		algorithm = AlgorithmSHA512
	}
	if _, ok := hashConstructors[algorithm]; !ok {
		return nil, ErrUnsupportedAlgorithm
	}
	return &Hasher{algorithm: algorithm}, nil
}

func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash returns "<algorithm>$<hex digest>".
func (h *Hasher) Hash(key Key, code string) string {
	return h.algorithm + digestSeparator + hex.EncodeToString(digest(h.algorithm, key, code))
}

// Verify recomputes the digest with the algorithm recorded in stored, so
// changing the configured algorithm does not invalidate outstanding codes.
func (h *Hasher) Verify(key Key, code, stored string) bool {
	algorithm, encoded, ok := strings.Cut(stored, digestSeparator)
	if !ok {
		return false
	}
	if _, known := hashConstructors[algorithm]; !known {
		return false
	}

	expected, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(digest(algorithm, key, code), expected) == 1
}

func digest(algorithm string, key Key, code string) []byte {
	h := hashConstructors[algorithm]()
	h.Write([]byte(strings.ToLower(key.String())))
	h.Write([]byte(hashSeparator))
	h.Write([]byte(strings.ToLower(code)))
	return h.Sum(nil)
}
