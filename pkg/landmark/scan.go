package landmark

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
	"headfit/pkg/geometry"
)

// DefaultMinPoints is the smallest ring a scan will measure.
const DefaultMinPoints = 24

// ScanParams describes one sweep over a height range.
type ScanParams struct {
	ZMin, ZMax float64
	Band       float64

	// Steps is the number of intervals; Steps+1 heights are evaluated
	Steps int

	// MinPoints rings smaller than this are skipped (0 means DefaultMinPoints)
	MinPoints int

	// Cap is the per-mesh vertex cap for ring extraction (0 means DefaultRingCap)
	Cap int
}

func (p ScanParams) minPoints() int {
	if p.MinPoints <= 0 {
		return DefaultMinPoints
	}
	return p.MinPoints
}

func (p ScanParams) limit() int {
	if p.Cap <= 0 {
		return DefaultRingCap
	}
	return p.Cap
}

// Heights returns the Steps+1 evenly spaced sample heights of the sweep.
func (p ScanParams) Heights() []float64 {
	steps := p.Steps
	if steps < 1 {
		return []float64{p.ZMin}
	}
	zs := make([]float64, steps+1)
	for i := range zs {
		zs[i] = p.ZMin + (p.ZMax-p.ZMin)*float64(i)/float64(steps)
	}
	return zs
}

// Sample is one evaluated height of a sweep.
type Sample struct {
	Z       float64
	Count   int
	Radius  float64
	Width   float64
	Skipped bool
}

// Profile is the full record of a sweep, kept for diagnostics.
type Profile struct {
	Name    string
	Samples []Sample
}

// Scan sweeps the height range and returns the ring with the smallest positive
// radius. The first minimum wins ties. It reports false when no height produced
// a ring with at least MinPoints points and a positive radius.
func Scan(g *models.MeshGroup, p ScanParams) (models.Landmark, bool) {
	lm, found, _ := ScanProfile(g, p)
	return lm, found
}

// ScanProfile is Scan that also returns every evaluated sample.
func ScanProfile(g *models.MeshGroup, p ScanParams) (models.Landmark, bool, Profile) {
	var (
		best  models.Landmark
		found bool
		prof  Profile
	)
	bestR := math.Inf(1)
	for _, z := range p.Heights() {
		ring := RingAt(g, z, p.Band, p.limit())
		s := Sample{Z: z, Count: len(ring.Points)}
		if len(ring.Points) < p.minPoints() {
			s.Skipped = true
			prof.Samples = append(prof.Samples, s)
			continue
		}
		fit := FitPlane(ring.Points)
		m := Metrics(ring.Points, fit.Center, fit.Normal)
		s.Radius, s.Width = m.Radius, m.Width
		prof.Samples = append(prof.Samples, s)
		if m.Radius > 0 && m.Radius < bestR {
			bestR = m.Radius
			best = models.Landmark{Z: z, Fit: fit, Metrics: m}
			found = true
		}
	}
	return best, found, prof
}

// FallbackRing estimates a landmark from a single ring at z. The center is the
// ring centroid, or the box center at height z when the ring is empty. Radius
// is the median distance to that center, floored at geometry.MinExtent, and
// width is twice the radius.
func FallbackRing(g *models.MeshGroup, z, band float64, limit int, box r3.Box) models.Landmark {
	ring := RingAt(g, z, band, limit)
	var center r3.Vec
	if len(ring.Points) > 0 {
		center = geometry.Centroid(ring.Points)
	} else {
		c := geometry.BoxCenter(box)
		center = r3.Vec{X: c.X, Y: c.Y, Z: z}
	}
	dists := make([]float64, 0, len(ring.Points))
	for _, p := range ring.Points {
		dists = append(dists, r3.Norm(r3.Sub(p, center)))
	}
	r := math.Max(geometry.MinExtent, geometry.Median(dists))
	return models.Landmark{
		Z:        z,
		Fit:      models.PlaneFit{Center: center, Normal: Up},
		Metrics:  models.RingMetrics{Radius: r, Width: 2 * r},
		Fallback: true,
	}
}

// RingWidth measures the trimmed width of a single ring at z. When the ring has
// fewer than minPoints points it falls back to the mean horizontal extent of box
// and reports false.
func RingWidth(g *models.MeshGroup, z, band float64, minPoints, limit int, box r3.Box) (float64, bool) {
	if minPoints <= 0 {
		minPoints = DefaultMinPoints
	}
	ring := RingAt(g, z, band, limit)
	if len(ring.Points) < minPoints {
		size := geometry.Size(box)
		return 0.5 * (size.X + size.Y), false
	}
	fit := FitPlane(ring.Points)
	return Metrics(ring.Points, fit.Center, fit.Normal).Width, true
}
