// Package scale solves the uniform scale that fits the head onto the body from
// three independent proportion constraints.
package scale

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// denomFloor guards every ratio against division by a vanishing measurement.
const denomFloor = 1e-9

// identityTolerance is the distance from 1 below which scaling is skipped.
const identityTolerance = 1e-8

// ErrInvalidParams is wrapped by Params.Validate.
var ErrInvalidParams = errors.New("invalid scale parameters")

// Params are the tuned fractions and bounds of the solver.
type Params struct {
	// MarginRadius is the share of the neck radius the head base may occupy
	MarginRadius float64

	// MaxHeadHeightFrac caps head height as a fraction of body height
	MaxHeadHeightFrac float64

	// HeadShoulderFrac caps head-base width as a fraction of shoulder width
	HeadShoulderFrac float64

	Min, Max float64

	// FailsafeCap replaces any raw scale that is non-finite or above it
	FailsafeCap float64

	// ShrinkBias is applied after all constraints, then re-clamped
	ShrinkBias float64
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		MarginRadius:      0.86,
		MaxHeadHeightFrac: 0.072,
		HeadShoulderFrac:  0.235,
		Min:               0.28,
		Max:               0.56,
		FailsafeCap:       0.68,
		ShrinkBias:        0.92,
	}
}

// Validate rejects bounds that cannot satisfy the clamp invariant.
func (p Params) Validate() error {
	switch {
	case !(p.Min > 0) || !(p.Max > 0):
		return fmt.Errorf("%w: clamp bounds must be positive, got [%g, %g]", ErrInvalidParams, p.Min, p.Max)
	case p.Min > p.Max:
		return fmt.Errorf("%w: min %g exceeds max %g", ErrInvalidParams, p.Min, p.Max)
	case !(p.ShrinkBias > 0):
		return fmt.Errorf("%w: shrink bias must be positive, got %g", ErrInvalidParams, p.ShrinkBias)
	case !(p.FailsafeCap > 0):
		return fmt.Errorf("%w: failsafe cap must be positive, got %g", ErrInvalidParams, p.FailsafeCap)
	}
	return nil
}

// Inputs are the measurements taken from the unscaled meshes.
type Inputs struct {
	NeckRadius     float64
	HeadBaseRadius float64
	BodyHeight     float64
	HeadHeight     float64
	ShoulderWidth  float64
	HeadBaseWidth  float64
}

// Result records each constraint alongside the final scale.
type Result struct {
	SRadius float64
	SHeight float64
	SWidth  float64
	Raw     float64

	// Failsafe is set when the raw value was non-finite or above the cap
	Failsafe bool

	Scale float64
}

// Solve combines the radius, height and width constraints. The most
// restrictive one wins; the result is always inside [p.Min, p.Max].
func Solve(in Inputs, p Params) Result {
	r := Result{
		SRadius: (in.NeckRadius * p.MarginRadius) / math.Max(denomFloor, in.HeadBaseRadius),
		SHeight: (p.MaxHeadHeightFrac * in.BodyHeight) / math.Max(denomFloor, in.HeadHeight),
		SWidth:  (p.HeadShoulderFrac * in.ShoulderWidth) / math.Max(denomFloor, in.HeadBaseWidth),
	}
	r.Raw = minOf(r.SRadius, r.SHeight, r.SWidth)

	s := clamp(r.Raw, p.Min, p.Max)
	if !isFinite(r.Raw) || s > p.FailsafeCap {
		s = math.Min(p.FailsafeCap, p.Max)
		r.Failsafe = true
	}
	r.Scale = clamp(s*p.ShrinkBias, p.Min, p.Max)
	return r
}

// minOf returns the smallest value, propagating NaN so the failsafe sees it.
func minOf(vals ...float64) float64 {
	m := math.Inf(1)
	for _, v := range vals {
		if math.IsNaN(v) {
			return v
		}
		m = math.Min(m, v)
	}
	return m
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clamp bounds v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApplyAboutPivot scales every vertex of the group about a world-space pivot:
// new = pivot + s*(old - pivot). Local buffers are rewritten so the group's
// pending translation and each mesh transform are left untouched.
func ApplyAboutPivot(g *models.MeshGroup, s float64, pivot r3.Vec) {
	if math.Abs(s-1) < identityTolerance {
		return
	}
	for _, m := range g.Meshes {
		local := m.Transform.Inverse(r3.Sub(pivot, g.Pending))
		for i, v := range m.Vertices {
			m.Vertices[i] = r3.Add(local, r3.Scale(s, r3.Sub(v, local)))
		}
	}
}

// ScaleHeight maps a world height through the same pivot scaling, for
// carrying a measured landmark height across ApplyAboutPivot.
func ScaleHeight(z, s float64, pivot r3.Vec) float64 {
	return pivot.Z + s*(z-pivot.Z)
}
