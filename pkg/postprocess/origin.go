package postprocess

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// DefaultFootBand is the fraction of the mesh height treated as the feet.
const DefaultFootBand = 0.02

// RecenterToFeet moves the mesh origin to the horizontal median of the
// vertices in its lowest band, at the height of its lowest vertex. Local
// vertices are shifted and the transform compensates, so world positions do
// not change. It returns the new origin in world space.
func RecenterToFeet(m *models.Mesh, bandFrac float64) r3.Vec {
	if len(m.Vertices) == 0 {
		return m.Transform.Translation
	}
	Bake(m)

	zMin, zMax := math.Inf(1), math.Inf(-1)
	for _, v := range m.Vertices {
		zMin = math.Min(zMin, v.Z)
		zMax = math.Max(zMax, v.Z)
	}
	band := math.Max(1e-5, (zMax-zMin)*bandFrac)

	var xs, ys []float64
	for _, v := range m.Vertices {
		if v.Z <= zMin+band {
			xs = append(xs, v.X)
			ys = append(ys, v.Y)
		}
	}
	origin := r3.Vec{X: upperMedian(xs), Y: upperMedian(ys), Z: zMin}

	for i, v := range m.Vertices {
		m.Vertices[i] = r3.Sub(v, origin)
	}
	m.Transform = models.Transform{Translation: origin, Scale: 1}
	return origin
}

// upperMedian returns the element at index n/2 of the sorted values, which is
// always an actual sample.
func upperMedian(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	return s[len(s)/2]
}
