package geometry

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// lineMesh builds a mesh of n vertices stacked along Z at unit spacing
func lineMesh(name string, n int) *models.Mesh {
	m := models.NewMesh(name)
	for i := 0; i < n; i++ {
		m.Vertices = append(m.Vertices, r3.Vec{X: float64(i % 7), Y: float64(i % 3), Z: float64(i)})
	}
	return m
}

func TestBounds(t *testing.T) {
	t.Run("empty group fails", func(t *testing.T) {
		_, err := Bounds(models.NewMeshGroup("empty"))
		if !errors.Is(err, ErrEmptyGroup) {
			t.Errorf("Expected ErrEmptyGroup, got %v", err)
		}
	})

	t.Run("includes mesh transform and pending translation", func(t *testing.T) {
		m := models.NewMesh("a")
		m.Vertices = []r3.Vec{{X: -1, Y: -1, Z: 0}, {X: 1, Y: 2, Z: 3}}
		m.Transform = models.Transform{Translation: r3.Vec{X: 10}, Scale: 2}
		g := models.NewMeshGroup("g", m)
		g.Translate(r3.Vec{Z: 1})

		box, err := Bounds(g)
		if err != nil {
			t.Fatalf("Bounds failed: %v", err)
		}
		if want := (r3.Vec{X: 8, Y: -2, Z: 1}); box.Min != want {
			t.Errorf("Expected min %v, got %v", want, box.Min)
		}
		if want := (r3.Vec{X: 12, Y: 4, Z: 7}); box.Max != want {
			t.Errorf("Expected max %v, got %v", want, box.Max)
		}
		if h := Height(box); h != 6 {
			t.Errorf("Expected height 6, got %g", h)
		}
	})
}

func TestWorldVertices(t *testing.T) {
	g := models.NewMeshGroup("g", lineMesh("a", 1000), lineMesh("b", 37))

	t.Run("no cap returns every vertex", func(t *testing.T) {
		if n := len(WorldVertices(g, 0)); n != 1037 {
			t.Errorf("Expected 1037 vertices, got %d", n)
		}
	})

	t.Run("cap is deterministic", func(t *testing.T) {
		first := WorldVertices(g, 300)
		second := WorldVertices(g, 300)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("subsample changed between calls (-first +second):\n%s", diff)
		}
	})

	t.Run("cap keeps ceil(count/stride) points per mesh", func(t *testing.T) {
		// stride for 1000 under 300 is 3 -> 334 points; 37 is under the cap
		pts := WorldVertices(g, 300)
		if len(pts) != 334+37 {
			t.Fatalf("Expected %d vertices, got %d", 334+37, len(pts))
		}
		if pts[0].Z != 0 || pts[1].Z != 3 {
			t.Errorf("Expected heights 0 and 3, got %g and %g", pts[0].Z, pts[1].Z)
		}
	})
}

func TestStride(t *testing.T) {
	tests := []struct {
		count, limit, want int
	}{
		{10, 0, 1},
		{10, 10, 1},
		{11, 10, 1},
		{20, 10, 2},
		{35, 10, 3},
	}
	for _, tt := range tests {
		if got := Stride(tt.count, tt.limit); got != tt.want {
			t.Errorf("Stride(%d, %d): expected %d, got %d", tt.count, tt.limit, tt.want, got)
		}
	}
}

func TestQuantile(t *testing.T) {
	vals := []float64{5, 1, 4, 2, 3}
	tests := []struct {
		name string
		vals []float64
		p    float64
		want float64
	}{
		{"empty", nil, 0.5, 0},
		{"lowest", vals, 0, 1},
		{"highest", vals, 1, 5},
		{"middle", vals, 0.5, 3},
		// (5-1)*0.625 = 2.5 rounds half to even -> index 2
		{"half index rounds to even", vals, 0.625, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quantile(tt.vals, tt.p); got != tt.want {
				t.Errorf("Expected %g, got %g", tt.want, got)
			}
		})
	}

	if diff := cmp.Diff([]float64{5, 1, 4, 2, 3}, vals); diff != "" {
		t.Errorf("input was reordered (-want +got):\n%s", diff)
	}
}

func TestMedian(t *testing.T) {
	if got := Median(nil); got != 0 {
		t.Errorf("Expected 0 for empty input, got %g", got)
	}
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("Expected 2, got %g", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("Expected 2.5, got %g", got)
	}
}

func TestCentroid(t *testing.T) {
	if c := Centroid(nil); c != (r3.Vec{}) {
		t.Errorf("Expected origin for empty input, got %v", c)
	}
	c := Centroid([]r3.Vec{{X: 1}, {Y: 2}, {Z: 3}})
	want := r3.Vec{X: 1.0 / 3, Y: 2.0 / 3, Z: 1}
	if r3.Norm(r3.Sub(c, want)) > 1e-12 {
		t.Errorf("Expected %v, got %v", want, c)
	}
}
