package postprocess

import (
	"sort"

	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// PlaneDecimator removes vertices whose neighbourhood is nearly flat, using
// model3d's vertex decimation, and searches the plane distance tolerance for
// the smallest one that meets the target. model3d only accepts closed
// manifold meshes; anything else, and any remainder over target, goes to
// Fallback.
type PlaneDecimator struct {
	// MaxTolerance bounds the search as a fraction of the bounding diagonal
	MaxTolerance float64

	// Steps is the number of bisection steps
	Steps int

	// Fallback finishes the job, EdgeCollapse when nil
	Fallback Decimator
}

// NewPlaneDecimator returns a PlaneDecimator with stock search settings.
func NewPlaneDecimator() PlaneDecimator {
	return PlaneDecimator{MaxTolerance: 0.05, Steps: 12}
}

func (p PlaneDecimator) fallback() Decimator {
	if p.Fallback == nil {
		return EdgeCollapse{}
	}
	return p.Fallback
}

// Reduce implements Decimator.
func (p PlaneDecimator) Reduce(m *models.Mesh, target int) {
	if m.TriangleCount() <= target {
		return
	}
	src := toModel3D(m)
	if src.NeedsRepair() || len(src.SingularVertices()) > 0 {
		p.fallback().Reduce(m, target)
		return
	}

	lo, hi := 0.0, src.Max().Dist(src.Min())*p.MaxTolerance
	best := decimatePlanar(src, hi)
	if best.NumTriangles() <= target {
		for i := 0; i < p.Steps; i++ {
			mid := (lo + hi) / 2
			d := decimatePlanar(src, mid)
			if d.NumTriangles() <= target {
				hi, best = mid, d
			} else {
				lo = mid
			}
		}
	}

	fromModel3D(m, best)
	if m.TriangleCount() > target {
		p.fallback().Reduce(m, target)
	}
}

func decimatePlanar(src *model3d.Mesh, eps float64) *model3d.Mesh {
	d := model3d.Decimator{PlaneDistance: eps, BoundaryDistance: eps}
	return d.Decimate(src)
}

func toModel3D(m *models.Mesh) *model3d.Mesh {
	out := model3d.NewMesh()
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		out.Add(&model3d.Triangle{
			model3d.XYZ(a.X, a.Y, a.Z),
			model3d.XYZ(b.X, b.Y, b.Z),
			model3d.XYZ(c.X, c.Y, c.Z),
		})
	}
	return out
}

// fromModel3D replaces the buffers of m with the triangles of src. model3d
// keeps triangles in a map, so they are sorted to give a stable layout.
func fromModel3D(m *models.Mesh, src *model3d.Mesh) {
	tris := src.TriangleSlice()
	sort.Slice(tris, func(i, j int) bool { return triangleLess(tris[i], tris[j]) })

	index := make(map[model3d.Coord3D]int, len(tris)/2)
	verts := make([]r3.Vec, 0, len(tris)/2)
	faces := make([][3]int, 0, len(tris))
	for _, t := range tris {
		var f [3]int
		for k, c := range t {
			i, ok := index[c]
			if !ok {
				i = len(verts)
				index[c] = i
				verts = append(verts, r3.Vec{X: c.X, Y: c.Y, Z: c.Z})
			}
			f[k] = i
		}
		faces = append(faces, f)
	}
	m.Vertices = verts
	m.Faces = faces
	m.Normals = nil
}

func triangleLess(a, b *model3d.Triangle) bool {
	for k := 0; k < 3; k++ {
		for _, d := range [][2]float64{{a[k].X, b[k].X}, {a[k].Y, b[k].Y}, {a[k].Z, b[k].Z}} {
			if d[0] != d[1] {
				return d[0] < d[1]
			}
		}
	}
	return false
}

var _ Decimator = PlaneDecimator{}
