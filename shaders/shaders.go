// Package shaders loads compiled SPIR-V blobs for the triangle pipeline. The GLSL
// sources live in src/ and are compiled into this directory with glslc.
package shaders

//go:generate glslc src/triangle.vert -o vert.spv
//go:generate glslc src/triangle.frag -o frag.spv

import (
	"context"
	"io/fs"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

const wordSize = 4

var ErrMisalignedBytecode = errors.New("shader bytecode is not a whole number of 32-bit words")

// Pair holds the two stages of the graphics pipeline as SPIR-V code words.
type Pair struct {
	Vertex   []uint32
	Fragment []uint32
}

func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%wordSize != 0 {
		return nil, errors.Wrapf(ErrMisalignedBytecode, "%d bytes", len(b))
	}

	byteCode := make([]uint32, len(b)/wordSize)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * wordSize
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode, nil
}

// Load reads a whole shader file from fsys.
func Load(fsys fs.FS, name string) ([]uint32, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", name)
	}

	code, err := bytesToBytecode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return code, nil
}

// LoadPair reads the vertex and fragment stages concurrently.
func LoadPair(ctx context.Context, fsys fs.FS, vertex, fragment string) (Pair, error) {
	var pair Pair

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		code, err := Load(fsys, vertex)
		pair.Vertex = code
		return err
	})
	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		code, err := Load(fsys, fragment)
		pair.Fragment = code
		return err
	})

	err := group.Wait()
	if err != nil {
		return Pair{}, err
	}
	return pair, nil
}
