package shaders

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToBytecodeLittleEndian(t *testing.T) {
	code, err := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203, 1}, code)
}

func TestBytesToBytecodeMisaligned(t *testing.T) {
	_, err := bytesToBytecode([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrMisalignedBytecode))

	_, err = bytesToBytecode(nil)
	assert.True(t, errors.Is(err, ErrMisalignedBytecode))
}

func TestLoadPair(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/vert.spv": {Data: []byte{0x03, 0x02, 0x23, 0x07}},
		"shaders/frag.spv": {Data: []byte{0x03, 0x02, 0x23, 0x07, 0xff, 0, 0, 0}},
	}

	pair, err := LoadPair(context.Background(), fsys, "shaders/vert.spv", "shaders/frag.spv")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203}, pair.Vertex)
	assert.Equal(t, []uint32{0x07230203, 0xff}, pair.Fragment)
}

func TestLoadPairMissingStage(t *testing.T) {
	fsys := fstest.MapFS{
		"vert.spv": {Data: []byte{0, 0, 0, 0}},
	}

	_, err := LoadPair(context.Background(), fsys, "vert.spv", "frag.spv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frag.spv")
}

func TestLoadMisalignedFile(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.spv": {Data: []byte{1, 2, 3, 4, 5}},
	}

	_, err := Load(fsys, "bad.spv")
	assert.True(t, errors.Is(err, ErrMisalignedBytecode))
}
