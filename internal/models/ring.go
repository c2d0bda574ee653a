package models

import "gonum.org/v1/gonum/spatial/r3"

// RingSample is the set of vertices inside a thin height band around Z.
// It is recomputed from the current geometry every time it is needed.
type RingSample struct {
	Z      float64
	Band   float64
	Points []r3.Vec
}

// PlaneFit is a best-fit plane through a point set.
type PlaneFit struct {
	Center r3.Vec
	Normal r3.Vec
}

// RingMetrics are robust size estimates of a ring in its own plane.
type RingMetrics struct {
	// Radius is the median in-plane distance to the center
	Radius float64

	// Width is the mean of the 5th-95th percentile spans along the two in-plane axes
	Width float64
}

// Landmark is the minimal-radius cross-section found by a scan.
type Landmark struct {
	Z       float64
	Fit     PlaneFit
	Metrics RingMetrics

	// Fallback is set when no scanned ring qualified and the landmark was
	// estimated from a single fixed-height ring or the bounding box.
	Fallback bool
}

// PlacementState is the translation accumulated on the head group during placement.
type PlacementState struct {
	Translation r3.Vec

	// HorizontalMoved is the distance covered by the convergence loop alone
	HorizontalMoved float64

	// HorizontalApplied is HorizontalMoved plus the unconditional extra offset
	HorizontalApplied float64

	// Converged reports whether the loop stopped within tolerance
	Converged bool

	// SafetyLift is the Z correction applied by the final gap check
	SafetyLift float64
}
