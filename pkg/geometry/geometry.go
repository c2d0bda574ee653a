// Package geometry provides read-only access to the world-space vertices of a
// mesh group along with the order statistics the later stages build on.
package geometry

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// ErrEmptyGroup is returned when a bounding box is requested for a group with no vertices.
var ErrEmptyGroup = errors.New("mesh group has no vertices")

// MinExtent is the floor applied to measured heights so ratios never divide by zero.
const MinExtent = 1e-6

// Stride returns the subsampling stride for a buffer of count vertices under limit.
// A limit of zero or less disables subsampling.
func Stride(count, limit int) int {
	if limit <= 0 || count <= limit {
		return 1
	}
	s := count / limit
	if s < 1 {
		s = 1
	}
	return s
}

// Bounds returns the axis-aligned bounding box of all world-space vertices in the group.
func Bounds(g *models.MeshGroup) (r3.Box, error) {
	if g == nil || g.VertexCount() == 0 {
		return r3.Box{}, ErrEmptyGroup
	}
	inf := math.Inf(1)
	box := r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, m := range g.Meshes {
		for i := range m.Vertices {
			box = extend(box, g.WorldOf(m, i))
		}
	}
	return box, nil
}

// MeshBounds returns the bounding box of a single mesh in world space.
func MeshBounds(m *models.Mesh) (r3.Box, error) {
	return Bounds(models.NewMeshGroup(m.Name, m))
}

func extend(b r3.Box, p r3.Vec) r3.Box {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// Height returns the vertical extent of a box, never less than MinExtent.
func Height(b r3.Box) float64 {
	return math.Max(MinExtent, b.Max.Z-b.Min.Z)
}

// Size returns the extent of a box along each axis.
func Size(b r3.Box) r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// WorldVertices returns the world-space vertices of every mesh in the group.
// When limit is positive each mesh whose vertex count exceeds it is subsampled
// with a fixed stride starting at index zero, so repeated calls on unchanged
// geometry return the same sequence.
func WorldVertices(g *models.MeshGroup, limit int) []r3.Vec {
	var pts []r3.Vec
	for _, m := range g.Meshes {
		step := Stride(len(m.Vertices), limit)
		for i := 0; i < len(m.Vertices); i += step {
			pts = append(pts, g.WorldOf(m, i))
		}
	}
	return pts
}

// Zs extracts the Z components of points.
func Zs(pts []r3.Vec) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Z
	}
	return out
}

// Xs extracts the X components of points.
func Xs(pts []r3.Vec) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.X
	}
	return out
}

// Quantile returns the order statistic at fraction p of a sorted copy of vals,
// using the nearest rank (n-1)*p rounded half to even. Empty input yields 0.
func Quantile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	vs := sortedCopy(vals)
	i := int(math.RoundToEven(float64(len(vs)-1) * p))
	if i < 0 {
		i = 0
	}
	if i > len(vs)-1 {
		i = len(vs) - 1
	}
	return vs[i]
}

// Median returns the median of vals, averaging the middle pair for even counts.
func Median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	vs := sortedCopy(vals)
	if n%2 == 0 {
		return (vs[n/2-1] + vs[n/2]) / 2
	}
	return vs[n/2]
}

func sortedCopy(vals []float64) []float64 {
	vs := make([]float64, len(vals))
	copy(vs, vals)
	sort.Float64s(vs)
	return vs
}

// Centroid returns the mean of pts, or the origin for an empty set.
func Centroid(pts []r3.Vec) r3.Vec {
	if len(pts) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, p := range pts {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(pts)), sum)
}

// BoxCenter returns the center of a box.
func BoxCenter(b r3.Box) r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}
