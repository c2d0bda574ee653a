package stl

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/meshtest"
)

const (
	headerSize   = 80
	triangleSize = 50
)

// TestRoundTrip writes a grid in binary STL and reads it back
func TestRoundTrip(t *testing.T) {
	orig := meshtest.Grid("grid", 1, 5)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, orig))
	assert.Equal(t, headerSize+4+len(orig.Faces)*triangleSize, buf.Len())

	got, err := Read(&buf, "grid")
	require.NoError(t, err)
	require.NoError(t, got.Validate())
	assert.Equal(t, "grid", got.Name)
	// corners are shared again after reading
	assert.Len(t, got.Vertices, len(orig.Vertices))
	require.Len(t, got.Faces, len(orig.Faces))

	for fi, f := range got.Faces {
		for k := range f {
			want := orig.Vertices[orig.Faces[fi][k]]
			have := got.Vertices[f[k]]
			assert.InDelta(t, want.X, have.X, 1e-6)
			assert.InDelta(t, want.Y, have.Y, 1e-6)
			assert.InDelta(t, want.Z, have.Z, 1e-6)
		}
	}
}

func TestReadASCII(t *testing.T) {
	src := `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 1 0 0
      vertex 1 1 0
      vertex 0 1 0
    endloop
  endfacet
endsolid tri
`
	m, err := Read(strings.NewReader(src), "tri")
	require.NoError(t, err)
	assert.Len(t, m.Vertices, 4)
	assert.Equal(t, [][3]int{{0, 1, 2}, {1, 3, 2}}, m.Faces)
	assert.Equal(t, r3.Vec{X: 1, Y: 1}, m.Vertices[3])
}

func TestReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, meshtest.Grid("grid", 1, 3)))
	data := buf.Bytes()[:buf.Len()-10]

	_, err := Read(bytes.NewReader(data), "grid")
	assert.True(t, errors.Is(err, ErrTruncated))

	// cut on a triangle boundary
	whole := buf.Bytes()[:buf.Len()-triangleSize]
	_, err = Read(bytes.NewReader(whole), "grid")
	assert.True(t, errors.Is(err, ErrTruncated))

	_, err = Read(bytes.NewReader([]byte("short")), "x")
	assert.Error(t, err)
}
