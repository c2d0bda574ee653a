// Package landmark locates anatomical constrictions (neck, head base) on a mesh
// group by sweeping thin horizontal rings and measuring their cross-section.
//
// Every function here derives its result from the group's current geometry.
// Nothing is cached, so a landmark computed before a scale or translation must
// be recomputed afterwards rather than reused.
package landmark

import (
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
	"headfit/pkg/geometry"
)

// DefaultRingCap is the per-mesh vertex cap used when extracting rings.
const DefaultRingCap = 8000

// RingAt collects the world-space vertices with z-band <= v.z <= z+band.
// Each mesh is subsampled with the same stride rule as geometry.WorldVertices.
// The result may be empty.
func RingAt(g *models.MeshGroup, z, band float64, limit int) models.RingSample {
	ring := models.RingSample{Z: z, Band: band}
	lo, hi := z-band, z+band
	for _, m := range g.Meshes {
		step := geometry.Stride(len(m.Vertices), limit)
		for i := 0; i < len(m.Vertices); i += step {
			w := g.WorldOf(m, i)
			if w.Z >= lo && w.Z <= hi {
				ring.Points = append(ring.Points, w)
			}
		}
	}
	return ring
}

// RingCentroid returns the centroid of the ring at z, and false when the ring is empty.
func RingCentroid(g *models.MeshGroup, z, band float64, limit int) (r3.Vec, bool) {
	ring := RingAt(g, z, band, limit)
	if len(ring.Points) == 0 {
		return r3.Vec{}, false
	}
	return geometry.Centroid(ring.Points), true
}
