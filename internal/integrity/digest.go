package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// ChunkSize is the read buffer used while hashing. Memory stays bounded
// regardless of file size.
const ChunkSize = 4096

// Algorithm selects the 256-bit content hash.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm accepts "sha256" (also the empty string) and "blake3".
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256", "sha-256":
		return SHA256, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unknown digest algorithm %q", name)
	}
}

// Label is the upper-case name used in status lines, e.g. "SHA256".
func (a Algorithm) Label() string {
	return strings.ToUpper(string(a))
}

func (a Algorithm) newHash() hash.Hash {
	if a == BLAKE3 {
		return blake3.New()
	}
	return sha256.New()
}

// Digester hashes files with a fixed algorithm.
type Digester struct {
	Algorithm Algorithm
}

// NewDigester returns a Digester for algo. An empty algo means SHA-256.
func NewDigester(algo Algorithm) *Digester {
	if algo == "" {
		algo = SHA256
	}
	return &Digester{Algorithm: algo}
}

// Digest returns the lowercase hex digest of the file at path.
func (d *Digester) Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := d.Algorithm.newHash()
	buf := make([]byte, ChunkSize)
	// Hide *os.File's WriterTo so CopyBuffer reads through buf.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{f}, buf); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest returns the SHA-256 hex digest of the file at path.
func Digest(path string) (string, error) {
	return NewDigester(SHA256).Digest(path)
}
