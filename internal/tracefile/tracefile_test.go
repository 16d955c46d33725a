package tracefile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/uopsim/internal/sampler"
	"github.com/eigerco/uopsim/pkg/serialization/codec"
)

func testWindows() []sampler.Window {
	return []sampler.Window{
		{
			Core: 2, Index: 0, FirstInstruction: 101,
			Records: []sampler.Record{
				{EIP: 4096, Op: sampler.OpExecute},
				{EIP: 4100, Op: sampler.OpLoad, Address: 0x7fff1000, Size: 8},
				{EIP: 4104, Op: sampler.OpBranch, Taken: true},
			},
		},
		{
			Core: 2, Index: 1, FirstInstruction: 251,
			Records: []sampler.Record{
				{EIP: 8192, Op: sampler.OpStore, Address: 0x2000, Size: 4},
			},
		},
	}
}

func writeAll(t *testing.T, c codec.Codec) *bytes.Buffer {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, 2, c)
	require.NoError(t, err)
	for _, win := range testWindows() {
		require.NoError(t, w.WriteWindow(win))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, uint32(2), w.Windows())
	return buf
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []codec.Codec{&codec.CompactCodec{}, &codec.JSONCodec{}} {
		t.Run(c.Name(), func(t *testing.T) {
			buf := writeAll(t, c)

			r, err := NewReader(buf)
			require.NoError(t, err)
			assert.Equal(t, uint32(2), r.Header().Core)
			assert.Equal(t, c.Name(), r.Header().Codec)

			entries, err := r.ReadAll()
			require.NoError(t, err)
			require.Len(t, entries, 2)
			for i, win := range testWindows() {
				assert.Equal(t, win, entries[i].Window)
			}
			assert.NotEqual(t, entries[0].Digest, entries[1].Digest)
		})
	}
}

func TestDigestMismatch(t *testing.T) {
	buf := writeAll(t, &codec.CompactCodec{})
	data := buf.Bytes()
	// flip the last byte of the second window's digest
	data[len(data)-1] ^= 0xff

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestTruncatedWindow(t *testing.T) {
	data := writeAll(t, &codec.CompactCodec{}).Bytes()

	r, err := NewReader(bytes.NewReader(data[:len(data)-10]))
	require.NoError(t, err)

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestBadHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	data := writeAll(t, &codec.CompactCodec{}).Bytes()
	data[0] = 'X'
	_, err = NewReader(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestCreateAndOpen(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, 5)
	assert.Equal(t, "core-5.trace", path[len(dir)+1:])

	w, err := Create(path, 5, &codec.CompactCodec{})
	require.NoError(t, err)
	require.NoError(t, w.WriteWindow(testWindows()[1]))
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteWindow(testWindows()[0]), ErrClosed)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	entries, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testWindows()[1], entries[0].Window)
}

func TestCreateFailsUpFront(t *testing.T) {
	_, err := Create(PathFor(t.TempDir()+"/missing", 0), 0, &codec.CompactCodec{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDump(t *testing.T) {
	data := writeAll(t, &codec.CompactCodec{}).Bytes()

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	entries, err := r.ReadAll()
	require.NoError(t, err)

	expectedDump := fmt.Sprintf(`# core 2 codec binary version 1
# window 0 first 101 records 3 digest %s
Exe 4096
Load 4100 2147422208 8
Branch 4104 1
# window 1 first 251 records 1 digest %s
Store 8192 8192 4
`, entries[0].Digest.Short(), entries[1].Digest.Short())

	r, err = NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	out := &bytes.Buffer{}
	require.NoError(t, Dump(out, r))
	actualDump := out.String()

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expectedDump),
		B:        difflib.SplitLines(actualDump),
		FromFile: "Expected",
		FromDate: "",
		ToFile:   "Actual",
		ToDate:   "",
		Context:  1,
	})
	if diff != "" {
		t.Fatalf("Dump mismatch:\n%s", diff)
	}
}
