// Package placement seats a scaled head group on a body group: XY centering on
// the neck, Z seating by order statistics, a bounded horizontal-bias
// convergence loop and a final anti-overlap correction.
package placement

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
	"headfit/pkg/geometry"
	"headfit/pkg/landmark"
)

// gapTolerance absorbs rounding when re-measuring a gap that was just corrected.
const gapTolerance = 1e-12

// Config holds the placement constants. All distances are world units.
type Config struct {
	// GapZ is the clearance established by Z seating
	GapZ float64

	// MinSafeGap is the hard floor enforced by the safety correction
	MinSafeGap float64

	// RingBandRatio sets the ring band as a fraction of the head height
	RingBandRatio float64

	// HeadBaseP and BodyTopP are the order statistics for head base and body top
	HeadBaseP float64
	BodyTopP  float64

	// TorsoBandLow and TorsoBandHigh bound the torso band as fractions of body
	// height below the neck: [neck - Low*Hb, neck - High*Hb]
	TorsoBandLow  float64
	TorsoBandHigh float64

	// HorizontalBias is added to the torso centerline to get the target X
	HorizontalBias float64

	// RightMax caps the total distance moved by the convergence loop
	RightMax float64

	// RightIters caps the number of loop iterations
	RightIters int

	// RightStep is the largest single step
	RightStep float64

	// RightEps is the shortfall at which the loop counts as converged
	RightEps float64

	// ExtraHorizontalOffset is applied once after the loop
	ExtraHorizontalOffset float64

	// VertexCap limits the vertices used for order statistics
	VertexCap int

	// RingCap limits the vertices used for ring extraction
	RingCap int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		GapZ:                  0.0005,
		MinSafeGap:            0.0002,
		RingBandRatio:         0.012,
		HeadBaseP:             0.14,
		BodyTopP:              0.985,
		TorsoBandLow:          0.23,
		TorsoBandHigh:         0.06,
		HorizontalBias:        0.014,
		RightMax:              0.080,
		RightIters:            8,
		RightStep:             0.008,
		RightEps:              0.0015,
		ExtraHorizontalOffset: 0.006,
		VertexCap:             60000,
		RingCap:               landmark.DefaultRingCap,
	}
}

// Anchor is what the solver needs to know about the body and the head-base
// landmark. RingZ is the current world height of the head-base landmark and is
// moved along with the head by every Z translation the solver applies.
type Anchor struct {
	NeckCenter r3.Vec
	NeckZ      float64
	BodyHeight float64
	BodyTopZ   float64
	RingZ      float64

	// FallbackCenter stands in for the head ring centroid when the ring comes
	// back empty. It moves with the head.
	FallbackCenter r3.Vec
}

// Solver runs the placement steps against one head/body pair.
type Solver struct {
	cfg   Config
	state models.PlacementState
}

// NewSolver creates a solver with the given configuration.
func NewSolver(cfg Config) *Solver {
	return &Solver{cfg: cfg}
}

// State returns the accumulated placement.
func (s *Solver) State() models.PlacementState {
	return s.state
}

func (s *Solver) move(head *models.MeshGroup, a *Anchor, d r3.Vec) {
	head.Translate(d)
	s.state.Translation = r3.Add(s.state.Translation, d)
	a.RingZ += d.Z
	a.FallbackCenter = r3.Add(a.FallbackCenter, d)
}

func (s *Solver) headBand(head *models.MeshGroup) float64 {
	box, err := geometry.Bounds(head)
	if err != nil {
		return s.cfg.RingBandRatio * geometry.MinExtent
	}
	return s.cfg.RingBandRatio * geometry.Height(box)
}

// headRingCenter returns the centroid of the head ring at the anchor height,
// or the anchor's fallback when the ring is empty.
func (s *Solver) headRingCenter(head *models.MeshGroup, a *Anchor, band float64) (r3.Vec, bool) {
	c, ok := landmark.RingCentroid(head, a.RingZ, band, s.cfg.RingCap)
	if !ok {
		return a.FallbackCenter, false
	}
	return c, true
}

// CenterXY moves the head so its base ring centroid sits over the neck center.
// An empty ring leaves the head where it is and reports false.
func (s *Solver) CenterXY(head *models.MeshGroup, a *Anchor) bool {
	c, ok := landmark.RingCentroid(head, a.RingZ, s.headBand(head), s.cfg.RingCap)
	if !ok {
		return false
	}
	a.FallbackCenter = c
	s.move(head, a, r3.Vec{X: a.NeckCenter.X - c.X, Y: a.NeckCenter.Y - c.Y})
	return true
}

// HeadBaseZ is the HeadBaseP order statistic of the head's vertex heights.
func (s *Solver) HeadBaseZ(head *models.MeshGroup) float64 {
	return geometry.Quantile(geometry.Zs(geometry.WorldVertices(head, s.cfg.VertexCap)), s.cfg.HeadBaseP)
}

// BodyTopZ is the BodyTopP order statistic of the body's vertex heights.
func (s *Solver) BodyTopZ(body *models.MeshGroup) float64 {
	return geometry.Quantile(geometry.Zs(geometry.WorldVertices(body, s.cfg.VertexCap)), s.cfg.BodyTopP)
}

// SeatZ moves the head vertically so its base sits GapZ above the body top.
// It returns the applied offset.
func (s *Solver) SeatZ(head *models.MeshGroup, a *Anchor) float64 {
	dz := (a.BodyTopZ + s.cfg.GapZ) - s.HeadBaseZ(head)
	s.move(head, a, r3.Vec{Z: dz})
	return dz
}

// TorsoCenterX is the median X of body vertices in the band below the neck,
// or the body box center when the band is empty.
func (s *Solver) TorsoCenterX(body *models.MeshGroup, a *Anchor) float64 {
	lo := a.NeckZ - s.cfg.TorsoBandLow*a.BodyHeight
	hi := a.NeckZ - s.cfg.TorsoBandHigh*a.BodyHeight
	var xs []float64
	for _, p := range geometry.WorldVertices(body, s.cfg.VertexCap) {
		if p.Z >= lo && p.Z <= hi {
			xs = append(xs, p.X)
		}
	}
	if len(xs) == 0 {
		box, err := geometry.Bounds(body)
		if err != nil {
			return 0
		}
		return geometry.BoxCenter(box).X
	}
	return geometry.Quantile(xs, 0.5)
}

// ConvergeHorizontal steps the head in +X until its ring centroid is within
// RightEps of the torso centerline plus HorizontalBias. The loop is bounded by
// RightIters iterations and RightMax total movement, whichever comes first.
// ExtraHorizontalOffset is applied afterwards regardless of the outcome.
func (s *Solver) ConvergeHorizontal(head, body *models.MeshGroup, a *Anchor) {
	target := s.TorsoCenterX(body, a) + s.cfg.HorizontalBias
	band := s.headBand(head)
	moved := 0.0
	converged := false
	for i := 0; i < s.cfg.RightIters; i++ {
		c, _ := s.headRingCenter(head, a, band)
		shortfall := target - c.X
		if shortfall <= s.cfg.RightEps {
			converged = true
			break
		}
		step := math.Min(s.cfg.RightStep, shortfall)
		if moved+step > s.cfg.RightMax {
			step = math.Max(0, s.cfg.RightMax-moved)
		}
		if step <= 0 {
			break
		}
		s.move(head, a, r3.Vec{X: step})
		moved += step
	}
	if s.cfg.ExtraHorizontalOffset != 0 {
		s.move(head, a, r3.Vec{X: s.cfg.ExtraHorizontalOffset})
	}
	s.state.HorizontalMoved = moved
	s.state.HorizontalApplied = moved + s.cfg.ExtraHorizontalOffset
	s.state.Converged = converged
}

// SafetyCorrect recomputes the head base and body top and lifts the head by the
// deficit when the gap between them is below MinSafeGap. It returns the lift,
// which is zero when the gap already holds.
func (s *Solver) SafetyCorrect(head, body *models.MeshGroup, a *Anchor) float64 {
	bodyTop := s.BodyTopZ(body)
	gap := s.HeadBaseZ(head) - bodyTop
	if gap >= s.cfg.MinSafeGap-gapTolerance {
		return 0
	}
	fix := s.cfg.MinSafeGap - gap
	s.move(head, a, r3.Vec{Z: fix})
	s.state.SafetyLift += fix
	return fix
}

// Run executes all four steps in order and returns the final state.
func (s *Solver) Run(head, body *models.MeshGroup, a *Anchor) models.PlacementState {
	s.CenterXY(head, a)
	s.SeatZ(head, a)
	s.ConvergeHorizontal(head, body, a)
	s.SafetyCorrect(head, body, a)
	return s.state
}
