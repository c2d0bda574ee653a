package scale

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

func TestSolveReferenceScenario(t *testing.T) {
	in := Inputs{
		NeckRadius:     0.20,
		HeadBaseRadius: 0.10,
		BodyHeight:     1.0,
		HeadHeight:     0.15,
		ShoulderWidth:  0.30,
		HeadBaseWidth:  0.12,
	}
	r := Solve(in, DefaultParams())

	tests := []struct {
		name      string
		got, want float64
	}{
		{"radius candidate", r.SRadius, 1.72},
		{"height candidate", r.SHeight, 0.48},
		{"width candidate", r.SWidth, 0.5875},
		{"raw scale", r.Raw, 0.48},
		{"final scale", r.Scale, 0.4416},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-12 {
			t.Errorf("Expected %s %g, got %g", tt.name, tt.want, tt.got)
		}
	}
	if r.Failsafe {
		t.Errorf("Expected no failsafe for the reference inputs")
	}
}

func TestSolveClampInvariant(t *testing.T) {
	p := DefaultParams()
	inf := math.Inf(1)
	cases := []struct {
		name string
		in   Inputs
	}{
		{"all zero", Inputs{}},
		{"zero denominators", Inputs{NeckRadius: 1, BodyHeight: 1, ShoulderWidth: 1}},
		{"tiny head", Inputs{NeckRadius: 1, HeadBaseRadius: 1e-12, BodyHeight: 1, HeadHeight: 1e-12, ShoulderWidth: 1, HeadBaseWidth: 1e-12}},
		{"huge head", Inputs{NeckRadius: 1e-9, HeadBaseRadius: 1e9, BodyHeight: 1, HeadHeight: 1e9, ShoulderWidth: 1, HeadBaseWidth: 1e9}},
		{"infinite numerators", Inputs{NeckRadius: inf, HeadBaseRadius: 1, BodyHeight: inf, HeadHeight: 1, ShoulderWidth: inf, HeadBaseWidth: 1}},
		{"nan measurement", Inputs{NeckRadius: math.NaN(), HeadBaseRadius: 1, BodyHeight: 1, HeadHeight: 1, ShoulderWidth: 1, HeadBaseWidth: 1}},
		{"negative measurement", Inputs{NeckRadius: -1, HeadBaseRadius: 1, BodyHeight: 1, HeadHeight: 1, ShoulderWidth: 1, HeadBaseWidth: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Solve(tc.in, p)
			assert.GreaterOrEqual(t, r.Scale, p.Min)
			assert.LessOrEqual(t, r.Scale, p.Max)
		})
	}
}

func TestSolveFailsafe(t *testing.T) {
	p := DefaultParams()
	p.Max = 2.0

	t.Run("non-finite raw", func(t *testing.T) {
		r := Solve(Inputs{NeckRadius: math.Inf(1), HeadBaseRadius: 1, BodyHeight: math.Inf(1), HeadHeight: 1, ShoulderWidth: math.Inf(1), HeadBaseWidth: 1}, p)
		assert.True(t, r.Failsafe)
		assert.InDelta(t, 0.68*0.92, r.Scale, 1e-12)
	})

	t.Run("above cap", func(t *testing.T) {
		r := Solve(Inputs{NeckRadius: 1, HeadBaseRadius: 1, BodyHeight: 100, HeadHeight: 1, ShoulderWidth: 100, HeadBaseWidth: 1}, p)
		assert.True(t, r.Failsafe)
		assert.InDelta(t, 0.68*0.92, r.Scale, 1e-12)
	})
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.Min, p.Max = 0.6, 0.5
	assert.True(t, errors.Is(p.Validate(), ErrInvalidParams))

	p = DefaultParams()
	p.ShrinkBias = 0
	assert.Error(t, p.Validate())
}

func TestApplyAboutPivot(t *testing.T) {
	m := models.NewMesh("head")
	m.Vertices = []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 3, Y: 1, Z: 5}}
	m.Transform = models.Transform{Translation: r3.Vec{X: 1}, Scale: 2}
	g := models.NewMeshGroup("head", m)
	g.Translate(r3.Vec{Z: 1})

	pivot := r3.Vec{X: 3, Y: 2, Z: 3}
	before := []r3.Vec{g.WorldOf(m, 0), g.WorldOf(m, 1)}
	ApplyAboutPivot(g, 0.5, pivot)

	for i, old := range before {
		want := r3.Add(pivot, r3.Scale(0.5, r3.Sub(old, pivot)))
		got := g.WorldOf(m, i)
		assert.InDelta(t, want.X, got.X, 1e-12)
		assert.InDelta(t, want.Y, got.Y, 1e-12)
		assert.InDelta(t, want.Z, got.Z, 1e-12)
	}
	assert.Equal(t, r3.Vec{Z: 1}, g.Pending)

	t.Run("identity is a no-op", func(t *testing.T) {
		snapshot := append([]r3.Vec(nil), m.Vertices...)
		ApplyAboutPivot(g, 1+1e-10, pivot)
		assert.Equal(t, snapshot, m.Vertices)
	})

	assert.InDelta(t, 2.0, ScaleHeight(1, 0.5, r3.Vec{Z: 3}), 1e-12)
}
