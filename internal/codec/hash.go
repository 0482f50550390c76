package codec

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// forestDomainKey separates blueprint fingerprints from any other BLAKE3 use.
// The bytes are the ASCII domain name zero-padded to 32 bytes.
var forestDomainKey = [32]byte{
	'q', 'u', 'd', 'e', 'x', '.', 'b', 'l', 'u', 'e', 'p', 'r', 'i', 'n', 't', '.',
	'f', 'o', 'r', 'e', 's', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Fingerprint returns the keyed BLAKE3 hash of the deterministic CBOR
// encoding of v. Equal values always fingerprint equally.
//
// Postcondition: Returns the digest or the encoding error.
func Fingerprint(v any) (Hash, error) {
	data, err := Marshal(v)
	if err != nil {
		return Hash{}, fmt.Errorf("encoding for fingerprint: %w", err)
	}
	hasher, err := blake3.NewKeyed(forestDomainKey[:])
	if err != nil {
		return Hash{}, fmt.Errorf("creating keyed hasher: %w", err)
	}
	_, _ = hasher.Write(data)
	var digest Hash
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// String returns the lowercase hex encoding of the digest.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters, for log lines and tables.
func (h Hash) Short() string {
	return h.String()[:12]
}

// IsZero reports whether h is the zero digest.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash parses a 64-character hex digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parsing hash: %w", err)
	}
	if len(decoded) != len(h) {
		return h, fmt.Errorf("hash is %d bytes, want %d", len(decoded), len(h))
	}
	copy(h[:], decoded)
	return h, nil
}
