package workload

import (
	"bytes"
	"encoding/binary"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_RoundTrip(t *testing.T) {
	generated, err := Generate(GenConfig{Seed: 9, Ops: 300, MinSize: 1, MaxSize: 1 << 20, FreeRatio: 0.3})
	require.NoError(t, err)

	for name, ops := range map[string][]Op{
		"empty":     {},
		"demo":      DemoScript(),
		"generated": generated,
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteTrace(&buf, ops))
			got, err := ReadTrace(&buf)
			require.NoError(t, err)
			assert.Equal(t, len(ops), len(got))
			if len(ops) > 0 {
				assert.Equal(t, ops, got)
			}
		})
	}
}

func TestTrace_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.trace")
	require.NoError(t, WriteTraceFile(path, DemoScript()))
	ops, err := ReadTraceFile(path)
	require.NoError(t, err)
	assert.Equal(t, DemoScript(), ops)

	_, err = ReadTraceFile(filepath.Join(t.TempDir(), "missing.trace"))
	assert.Error(t, err)
}

// recompress rewrites the uncompressed contents of a trace.
func recompress(t *testing.T, trace []byte, edit func([]byte) []byte) []byte {
	t.Helper()
	dec, err := zstd.NewReader(bytes.NewReader(trace))
	require.NoError(t, err)
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	require.NoError(t, err)

	var out bytes.Buffer
	enc, err := zstd.NewWriter(&out)
	require.NoError(t, err)
	_, err = enc.Write(edit(raw))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return out.Bytes()
}

func TestTrace_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrace(&buf, DemoScript()))
	trace := buf.Bytes()

	t.Run("not zstd", func(t *testing.T) {
		_, err := ReadTrace(strings.NewReader("alloc a 100\n"))
		assert.ErrorIs(t, err, ErrCorruptTrace)
	})

	t.Run("flipped byte", func(t *testing.T) {
		bad := recompress(t, trace, func(raw []byte) []byte {
			raw[5] ^= 0xff
			return raw
		})
		_, err := ReadTrace(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrCorruptTrace)
		assert.ErrorContains(t, err, "checksum")
	})

	t.Run("truncated", func(t *testing.T) {
		bad := recompress(t, trace, func(raw []byte) []byte { return raw[:4] })
		_, err := ReadTrace(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrCorruptTrace)
	})

	t.Run("dropped record with valid checksum", func(t *testing.T) {
		bad := recompress(t, trace, func(raw []byte) []byte {
			body := raw[:len(raw)-checksumSize]
			// The last record is "status": 1-byte length, tag, kind.
			body = body[:len(body)-3]
			return binary.LittleEndian.AppendUint64(body, xxhash.Sum64(body))
		})
		_, err := ReadTrace(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrCorruptTrace)
		assert.ErrorContains(t, err, "declares")
	})

	t.Run("wrong magic", func(t *testing.T) {
		var raw bytes.Buffer
		enc, err := zstd.NewWriter(&raw)
		require.NoError(t, err)
		body := []byte{2, 0x08, 0x01} // header record without magic
		_, err = enc.Write(binary.LittleEndian.AppendUint64(body, xxhash.Sum64(body)))
		require.NoError(t, err)
		require.NoError(t, enc.Close())

		_, err = ReadTrace(&raw)
		assert.ErrorIs(t, err, ErrCorruptTrace)
		assert.ErrorContains(t, err, "not a memsim trace")
	})
}

func TestDigest(t *testing.T) {
	a := Digest(DemoScript())
	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest(DemoScript()))

	changed := DemoScript()
	changed[0].Size = 101
	assert.NotEqual(t, a, Digest(changed))
}

func TestBufferPool(t *testing.T) {
	p := newBufferPool(1, 8, 16)
	b := p.Get()
	assert.Equal(t, 8, cap(b))
	b = append(b, "hello"...)
	p.Put(b)
	reused := p.Get()
	assert.Empty(t, reused)
	assert.Equal(t, 8, cap(reused))

	p.Put(make([]byte, 0, 32)) // too large to keep
	assert.Equal(t, 8, cap(p.Get()))
}
