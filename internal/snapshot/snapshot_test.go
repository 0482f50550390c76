package snapshot_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/qudex/internal/blueprint"
	"github.com/cory-johannsen/qudex/internal/snapshot"
)

func sampleTree(t *testing.T, n int) *blueprint.Tree {
	t.Helper()
	templates := []blueprint.RawTemplate{{
		Name: "Object",
		Ops: []blueprint.AttributeOp{
			blueprint.Set("part_Render", blueprint.Fields{"DisplayName": "object", "RenderString": "?"}),
			blueprint.Ensure("part_Physics"),
		},
	}}
	for i := range n {
		templates = append(templates, blueprint.RawTemplate{
			Name:   fmt.Sprintf("Thing%d", i),
			Parent: "Object",
			Ops: []blueprint.AttributeOp{
				blueprint.MergeField("part_Render", "DisplayName", fmt.Sprintf("thing number %d", i)),
				blueprint.MergeField("part_Physics", "Weight", "5"),
				blueprint.Remove("part_Missing"),
			},
		})
	}
	tree, err := blueprint.Resolve(templates, blueprint.WithSource("fixture.xml"))
	require.NoError(t, err)
	return tree
}

func assertSameTree(t *testing.T, want, got *blueprint.Tree) {
	t.Helper()
	assert.Equal(t, want.Fingerprint(), got.Fingerprint())
	assert.Equal(t, want.Source(), got.Source())
	assert.NotEqual(t, want.ID(), got.ID())
	require.Equal(t, want.Names(), got.Names())
	for _, name := range want.Names() {
		a, _ := want.Lookup(name)
		b, _ := got.Lookup(name)
		assert.Equal(t, a.Attributes(), b.Attributes(), name)
	}
}

func TestRoundTrip_AllCompressions(t *testing.T) {
	tree := sampleTree(t, 200)
	for _, c := range []snapshot.Compression{snapshot.CompressionNone, snapshot.CompressionLZ4, snapshot.CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, snapshot.Write(&buf, tree, c))
			assert.Equal(t, []byte("QDXS"), buf.Bytes()[:4])
			assert.Equal(t, byte(c), buf.Bytes()[5])

			got, err := snapshot.Read(&buf)
			require.NoError(t, err)
			assertSameTree(t, tree, got)
		})
	}
}

func TestWrite_TinyForest(t *testing.T) {
	// Payloads too small to shrink are stored uncompressed.
	tree := sampleTree(t, 0)
	for _, c := range []snapshot.Compression{snapshot.CompressionLZ4, snapshot.CompressionZstd} {
		var buf bytes.Buffer
		require.NoError(t, snapshot.Write(&buf, tree, c))
		tag := snapshot.Compression(buf.Bytes()[5])
		assert.Contains(t, []snapshot.Compression{snapshot.CompressionNone, c}, tag)

		got, err := snapshot.Read(&buf)
		require.NoError(t, err)
		assertSameTree(t, tree, got)
	}
}

func TestRead_Errors(t *testing.T) {
	tree := sampleTree(t, 50)
	var buf bytes.Buffer
	require.NoError(t, snapshot.Write(&buf, tree, snapshot.CompressionNone))
	good := buf.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		data := bytes.Clone(good)
		data[0] = 'X'
		_, err := snapshot.Read(bytes.NewReader(data))
		assert.ErrorIs(t, err, snapshot.ErrBadMagic)
	})
	t.Run("version", func(t *testing.T) {
		data := bytes.Clone(good)
		data[4] = 99
		_, err := snapshot.Read(bytes.NewReader(data))
		assert.ErrorIs(t, err, snapshot.ErrUnsupportedVersion)
	})
	t.Run("truncated header", func(t *testing.T) {
		_, err := snapshot.Read(bytes.NewReader(good[:3]))
		assert.Error(t, err)
	})
	t.Run("truncated payload", func(t *testing.T) {
		_, err := snapshot.Read(bytes.NewReader(good[:len(good)-5]))
		assert.Error(t, err)
	})
	t.Run("tampered forest", func(t *testing.T) {
		data := bytes.Clone(good)
		i := bytes.Index(data, []byte("thing number 7"))
		require.Positive(t, i)
		data[i] = 'T'
		_, err := snapshot.Read(bytes.NewReader(data))
		assert.ErrorIs(t, err, snapshot.ErrFingerprintMismatch)
	})
}

func TestRead_OversizedHeaderRejected(t *testing.T) {
	header := func(c snapshot.Compression, size uint32) []byte {
		h := []byte{'Q', 'D', 'X', 'S', snapshot.Version, byte(c), 0, 0, 0, 0}
		binary.BigEndian.PutUint32(h[6:], size)
		return h
	}
	body := bytes.Repeat([]byte{0x42}, 16)

	t.Run("lz4", func(t *testing.T) {
		data := append(header(snapshot.CompressionLZ4, 1<<30), body...)
		_, err := snapshot.Read(bytes.NewReader(data))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compressed bytes can hold")
	})
	t.Run("zstd", func(t *testing.T) {
		data := append(header(snapshot.CompressionZstd, 1<<30), body...)
		_, err := snapshot.Read(bytes.NewReader(data))
		assert.Error(t, err)
	})
	t.Run("over limit", func(t *testing.T) {
		data := append(header(snapshot.CompressionNone, 1<<31), body...)
		_, err := snapshot.Read(bytes.NewReader(data))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds limit")
	})
}

func TestWriteFileReadFile(t *testing.T) {
	tree := sampleTree(t, 20)
	path := filepath.Join(t.TempDir(), "qudex.snap")
	require.NoError(t, snapshot.WriteFile(path, tree, snapshot.CompressionLZ4))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")

	got, err := snapshot.ReadFile(path, blueprint.WithSource("override"))
	require.NoError(t, err)
	assert.Equal(t, "override", got.Source())
	assert.Equal(t, tree.Fingerprint(), got.Fingerprint())

	_, err = snapshot.ReadFile(filepath.Join(t.TempDir(), "missing.snap"))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	for _, c := range []snapshot.Compression{snapshot.CompressionNone, snapshot.CompressionLZ4, snapshot.CompressionZstd} {
		got, err := snapshot.ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := snapshot.ParseCompression("gzip")
	assert.Error(t, err)
}

func TestRoundTrip_Property_RandomFields(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		templates := []blueprint.RawTemplate{{Name: "Object"}}
		for i := range n {
			templates = append(templates, blueprint.RawTemplate{
				Name:   fmt.Sprintf("T%d", i),
				Parent: templates[rapid.IntRange(0, i).Draw(t, "parent")].Name,
				Ops: []blueprint.AttributeOp{
					blueprint.MergeField(
						rapid.SampledFrom([]string{"a", "b", "c"}).Draw(t, "tag"),
						rapid.StringMatching(`[A-Za-z]{1,6}`).Draw(t, "field"),
						rapid.String().Draw(t, "value"),
					),
				},
			})
		}
		tree, err := blueprint.Resolve(templates)
		if err != nil {
			t.Fatal(err)
		}
		c := rapid.SampledFrom([]snapshot.Compression{snapshot.CompressionNone, snapshot.CompressionLZ4, snapshot.CompressionZstd}).Draw(t, "compression")

		var buf bytes.Buffer
		if err := snapshot.Write(&buf, tree, c); err != nil {
			t.Fatal(err)
		}
		got, err := snapshot.Read(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if got.Fingerprint() != tree.Fingerprint() {
			t.Fatal("fingerprint changed across snapshot")
		}
	})
}
