// Package snapshot persists the raw forest behind a resolved tree so later
// runs can skip parsing the definition files.
//
// A snapshot file is a six-byte header (the magic "QDXS", a format version,
// and a compression tag), the uncompressed payload length as a big-endian
// uint32, and the payload: the deterministic CBOR encoding of the forest,
// its fingerprint, and its source label. Reading verifies the fingerprint
// and re-resolves the forest, so a tree is never taken from disk as is.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cory-johannsen/qudex/internal/blueprint"
	"github.com/cory-johannsen/qudex/internal/codec"
)

// Version is the current snapshot format version.
const Version uint8 = 1

// maxPayload bounds the declared payload length read from a header.
const maxPayload = 1 << 30

var magic = [4]byte{'Q', 'D', 'X', 'S'}

var (
	// ErrBadMagic reports a file that is not a snapshot.
	ErrBadMagic = errors.New("snapshot: bad magic")
	// ErrUnsupportedVersion reports a snapshot written by an incompatible version.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	// ErrFingerprintMismatch reports a payload whose forest does not hash to
	// the recorded fingerprint.
	ErrFingerprintMismatch = errors.New("snapshot: fingerprint mismatch")
)

type payload struct {
	Fingerprint codec.Hash              `cbor:"1,keyasint"`
	Source      string                  `cbor:"2,keyasint,omitempty"`
	Templates   []blueprint.RawTemplate `cbor:"3,keyasint"`
}

// Write encodes tree's forest to w. When compression would not shrink the
// payload it is stored uncompressed and the header says so.
//
// Precondition: tree must be non-nil.
func Write(w io.Writer, tree *blueprint.Tree, c Compression) error {
	data, err := codec.Marshal(payload{
		Fingerprint: tree.Fingerprint(),
		Source:      tree.Source(),
		Templates:   tree.Templates(),
	})
	if err != nil {
		return fmt.Errorf("snapshot: encoding forest: %w", err)
	}
	if len(data) > maxPayload {
		return fmt.Errorf("snapshot: payload of %d bytes exceeds limit", len(data))
	}

	body, err := compress(data, c)
	if errors.Is(err, errIncompressible) {
		body, c = data, CompressionNone
	} else if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	var header [10]byte
	copy(header[:4], magic[:])
	header[4] = Version
	header[5] = byte(c)
	binary.BigEndian.PutUint32(header[6:], uint32(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("snapshot: writing header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("snapshot: writing payload: %w", err)
	}
	return nil
}

// Read decodes a snapshot and rebuilds its tree with blueprint.Resolve. The
// recorded source label is applied before opts.
//
// Postcondition: Returns a freshly resolved tree whose fingerprint equals the
// recorded one, or a non-nil error.
func Read(r io.Reader, opts ...blueprint.Option) (*blueprint.Tree, error) {
	var header [10]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("snapshot: reading header: %w", err)
	}
	if [4]byte(header[:4]) != magic {
		return nil, ErrBadMagic
	}
	if header[4] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header[4])
	}
	c := Compression(header[5])
	size := binary.BigEndian.Uint32(header[6:])
	if size > maxPayload {
		return nil, fmt.Errorf("snapshot: declared payload of %d bytes exceeds limit", size)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading payload: %w", err)
	}
	data, err := decompress(body, c, int(size))
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	var p payload
	if err := codec.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("snapshot: decoding forest: %w", err)
	}
	sum, err := codec.Fingerprint(p.Templates)
	if err != nil {
		return nil, fmt.Errorf("snapshot: fingerprinting forest: %w", err)
	}
	if sum != p.Fingerprint {
		return nil, fmt.Errorf("%w: recorded %s, computed %s", ErrFingerprintMismatch, p.Fingerprint.Short(), sum.Short())
	}

	tree, err := blueprint.Resolve(p.Templates, append([]blueprint.Option{blueprint.WithSource(p.Source)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return tree, nil
}

// WriteFile writes a snapshot to path through a temporary file in the same
// directory, so readers never observe a partial snapshot.
func WriteFile(path string, tree *blueprint.Tree, c Compression) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = Write(bw, tree, c); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// ReadFile reads the snapshot at path.
func ReadFile(path string, opts ...blueprint.Option) (*blueprint.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f), opts...)
}
