package chain

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// ErrUnknownAlgorithm is returned by ParseAlgorithm for unsupported names.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Algorithm names the hash function used to derive block digests.
type Algorithm string

// Supported digest algorithms. SHA3_256 keeps the underscore so it reads
// like the algorithm's name.
const (
	SHA256     Algorithm = "sha256"
	SHA3_256   Algorithm = "sha3-256"
	BLAKE2b256 Algorithm = "blake2b-256"
)

// DefaultAlgorithm is SHA-256, which keeps digests interoperable with the
// reference ledger.
const DefaultAlgorithm = SHA256

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256, SHA3_256, BLAKE2b256}
}

// ParseAlgorithm maps a case-insensitive name to an Algorithm.
// The empty string selects DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultAlgorithm, nil
	case SHA256:
		return SHA256, nil
	case SHA3_256:
		return SHA3_256, nil
	case BLAKE2b256:
		return BLAKE2b256, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// newHash returns a fresh hash.Hash for a. Unrecognised values fall back to
// SHA-256 so digest computation stays total.
func (a Algorithm) newHash() hash.Hash {
	switch a {
	case SHA3_256:
		return sha3.New256()
	case BLAKE2b256:
		h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
		return h
	default:
		return sha256.New()
	}
}
