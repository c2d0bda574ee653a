// Package stl reads and writes triangle meshes in the STL format.
// Binary files are written; both binary and ASCII files can be read.
package stl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/unixpickle/model3d/fileformats"
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// ErrTruncated is returned when a file ends in the middle of a triangle.
var ErrTruncated = errors.New("stl: truncated triangle data")

// Write writes the mesh in binary STL using its local coordinates. The facet
// normal is the geometric face normal; shading normals cannot be represented.
func Write(w io.Writer, m *models.Mesh) error {
	if uint64(len(m.Faces)) > math.MaxUint32 {
		return fmt.Errorf("stl: %d triangles do not fit the format", len(m.Faces))
	}
	bw := bufio.NewWriter(w)
	sw, err := fileformats.NewSTLWriter(bw, uint32(len(m.Faces)))
	if err != nil {
		return err
	}
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if l := r3.Norm(n); l > 0 {
			n = r3.Scale(1/l, n)
		}
		if err := sw.WriteTriangle(vec32(n), [3][3]float32{vec32(a), vec32(b), vec32(c)}); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func vec32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// Read parses a binary or ASCII STL stream into a mesh. Corners with identical
// coordinates share one vertex.
func Read(r io.Reader, name string) (*models.Mesh, error) {
	sr, err := fileformats.NewSTLReader(r)
	if err != nil {
		return nil, truncated(err)
	}
	m := models.NewMesh(name)
	index := make(map[r3.Vec]int)
	vertex := func(p [3]float32) int {
		v := r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
		if i, ok := index[v]; ok {
			return i
		}
		i := len(m.Vertices)
		index[v] = i
		m.Vertices = append(m.Vertices, v)
		return i
	}
	for {
		_, corners, err := sr.ReadTriangle()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, truncated(err)
		}
		m.Faces = append(m.Faces, [3]int{vertex(corners[0]), vertex(corners[1]), vertex(corners[2])})
	}
	if sr.IsBinary() && uint64(len(m.Faces)) < uint64(sr.NumTriangles()) {
		return nil, fmt.Errorf("%w: %d of %d triangles present", ErrTruncated, len(m.Faces), sr.NumTriangles())
	}
	return m, nil
}

func truncated(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return err
}
