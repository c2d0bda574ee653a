package landmark

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
	"headfit/pkg/geometry"
)

const (
	widthLowPercentile  = 0.05
	widthHighPercentile = 0.95

	// parallelLimit is the |n.X| above which X is too close to the normal
	// to seed the in-plane basis and Y is used instead.
	parallelLimit = 0.9
)

// PlaneBasis returns an orthonormal pair (u, v) spanning the plane with normal n.
func PlaneBasis(n r3.Vec) (u, v r3.Vec) {
	ref := r3.Vec{X: 1}
	if math.Abs(r3.Dot(n, ref)) > parallelLimit {
		ref = r3.Vec{Y: 1}
	}
	u = r3.Unit(r3.Sub(ref, r3.Scale(r3.Dot(ref, n), n)))
	v = r3.Unit(r3.Cross(n, u))
	return u, v
}

// Metrics measures the ring's median radius and trimmed width in its own plane.
func Metrics(pts []r3.Vec, center, normal r3.Vec) models.RingMetrics {
	if len(pts) == 0 {
		return models.RingMetrics{}
	}
	u, v := PlaneBasis(normal)
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	rs := make([]float64, len(pts))
	for i, p := range pts {
		d := r3.Sub(p, center)
		xs[i] = r3.Dot(d, u)
		ys[i] = r3.Dot(d, v)
		rs[i] = math.Hypot(xs[i], ys[i])
	}
	sort.Float64s(xs)
	sort.Float64s(ys)
	width := 0.5 * (span(xs) + span(ys))
	return models.RingMetrics{Radius: geometry.Median(rs), Width: width}
}

// span is the distance between the 5th and 95th percentile of sorted values.
func span(sorted []float64) float64 {
	last := float64(len(sorted) - 1)
	return sorted[int(widthHighPercentile*last)] - sorted[int(widthLowPercentile*last)]
}
