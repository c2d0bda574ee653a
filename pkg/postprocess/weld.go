package postprocess

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// weldPoint is a vertex position tagged with its index in the mesh.
type weldPoint struct {
	r3.Vec
	index int
}

// Compare implements the kdtree.Comparable interface
func (p weldPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(weldPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p weldPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p weldPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(weldPoint)
	return r3.Norm2(r3.Sub(p.Vec, q.Vec))
}

// weldPoints satisfies kdtree.Interface
type weldPoints []weldPoint

func (p weldPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p weldPoints) Len() int                              { return len(p) }
func (p weldPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p weldPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(weldPlane{weldPoints: p, Dim: d}, kdtree.MedianOfRandoms(weldPlane{weldPoints: p, Dim: d}, 100))
}

// weldPlane implements sort.Interface and kdtree.SortSlicer for weldPoints
type weldPlane struct {
	weldPoints
	kdtree.Dim
}

func (p weldPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.weldPoints[i].X < p.weldPoints[j].X
	case 1:
		return p.weldPoints[i].Y < p.weldPoints[j].Y
	case 2:
		return p.weldPoints[i].Z < p.weldPoints[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p weldPlane) Slice(start, end int) kdtree.SortSlicer {
	return weldPlane{weldPoints: p.weldPoints[start:end], Dim: p.Dim}
}

func (p weldPlane) Swap(i, j int) {
	p.weldPoints[i], p.weldPoints[j] = p.weldPoints[j], p.weldPoints[i]
}

// Weld merges vertices that lie within dist of each other. Vertices are
// visited in index order and each unclaimed vertex absorbs every unclaimed
// neighbour in range, keeping its own position, so the result does not depend
// on the tree layout. Faces that collapse onto fewer than three distinct
// vertices are dropped. It returns the number of vertices merged away.
func Weld(m *models.Mesh, dist float64) int {
	n := len(m.Vertices)
	if n == 0 || dist <= 0 {
		return 0
	}

	pts := make(weldPoints, n)
	for i, v := range m.Vertices {
		pts[i] = weldPoint{Vec: v, index: i}
	}
	tree := kdtree.New(pts, false)

	rep := make([]int, n)
	for i := range rep {
		rep[i] = -1
	}
	r2 := dist * dist
	for i, v := range m.Vertices {
		if rep[i] >= 0 {
			continue
		}
		rep[i] = i
		keeper := kdtree.NewDistKeeper(r2)
		tree.NearestSet(keeper, weldPoint{Vec: v, index: i})
		for _, c := range keeper.Heap {
			if c.Comparable == nil {
				continue
			}
			j := c.Comparable.(weldPoint).index
			if rep[j] < 0 {
				rep[j] = i
			}
		}
	}

	remap := make([]int, n)
	verts := make([]r3.Vec, 0, n)
	for i, v := range m.Vertices {
		if rep[i] != i {
			continue
		}
		remap[i] = len(verts)
		verts = append(verts, v)
	}
	faces := make([][3]int, 0, len(m.Faces))
	for _, f := range m.Faces {
		a, b, c := remap[rep[f[0]]], remap[rep[f[1]]], remap[rep[f[2]]]
		if a == b || b == c || a == c {
			continue
		}
		faces = append(faces, [3]int{a, b, c})
	}
	merged := n - len(verts)
	m.Vertices = verts
	m.Faces = faces
	m.Normals = nil
	return merged
}

// RemoveLoose drops vertices that no face references and returns how many
// were removed.
func RemoveLoose(m *models.Mesh) int {
	used := make([]bool, len(m.Vertices))
	for _, f := range m.Faces {
		used[f[0]], used[f[1]], used[f[2]] = true, true, true
	}
	removed := 0
	for _, u := range used {
		if !u {
			removed++
		}
	}
	if removed > 0 {
		compact(m, used)
	}
	return removed
}
