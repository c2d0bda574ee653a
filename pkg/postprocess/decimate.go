package postprocess

import (
	"container/heap"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// Decimator reduces a mesh to at most target faces in place.
type Decimator interface {
	Reduce(m *models.Mesh, target int)
}

// DecimateResult reports what Decimate did.
type DecimateResult struct {
	Ratio   float64
	Applied bool
	Before  int
	After   int
}

// Decimate brings the mesh toward target triangles. The keep ratio
// target/current is clamped to [minRatio, maxRatio] and meshes already at or
// under target are left alone. A nil decimator uses EdgeCollapse.
func Decimate(m *models.Mesh, target int, minRatio, maxRatio float64, d Decimator) DecimateResult {
	res := DecimateResult{Ratio: 1, Before: m.TriangleCount(), After: m.TriangleCount()}
	if target <= 0 || res.Before <= target {
		return res
	}
	ratio := float64(target) / float64(res.Before)
	ratio = math.Max(minRatio, math.Min(maxRatio, ratio))
	if d == nil {
		d = EdgeCollapse{}
	}
	d.Reduce(m, int(ratio*float64(res.Before)))
	m.Normals = nil
	res.Ratio = ratio
	res.Applied = true
	res.After = m.TriangleCount()
	return res
}

// EdgeCollapse repeatedly collapses the shortest remaining edge into its
// midpoint. Ties are broken by vertex index so the result is deterministic.
type EdgeCollapse struct{}

type collapseEdge struct {
	a, b   int
	length float64
	va, vb int
}

type edgeHeap []collapseEdge

func (h edgeHeap) Len() int { return len(h) }
func (h edgeHeap) Less(i, j int) bool {
	if h[i].length != h[j].length {
		return h[i].length < h[j].length
	}
	if h[i].a != h[j].a {
		return h[i].a < h[j].a
	}
	return h[i].b < h[j].b
}
func (h edgeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *edgeHeap) Push(x any)   { *h = append(*h, x.(collapseEdge)) }
func (h *edgeHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Reduce implements Decimator.
func (EdgeCollapse) Reduce(m *models.Mesh, target int) {
	if target < 1 {
		target = 1
	}
	n := len(m.Vertices)
	pos := append([]r3.Vec(nil), m.Vertices...)
	faces := append([][3]int(nil), m.Faces...)
	alive := make([]bool, len(faces))
	live := len(faces)
	incident := make([][]int, n)
	for fi, f := range faces {
		alive[fi] = true
		for _, v := range f {
			incident[v] = append(incident[v], fi)
		}
	}

	dead := make([]bool, n)
	version := make([]int, n)
	h := &edgeHeap{}
	push := func(a, b int) {
		if a > b {
			a, b = b, a
		}
		heap.Push(h, collapseEdge{a: a, b: b, length: r3.Norm(r3.Sub(pos[a], pos[b])), va: version[a], vb: version[b]})
	}

	seen := make(map[[2]int]bool)
	for _, f := range faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			if !seen[[2]int{a, b}] {
				seen[[2]int{a, b}] = true
				push(a, b)
			}
		}
	}

	for live > target && h.Len() > 0 {
		e := heap.Pop(h).(collapseEdge)
		if dead[e.a] || dead[e.b] || version[e.a] != e.va || version[e.b] != e.vb {
			continue
		}
		a, b := e.a, e.b
		pos[a] = r3.Scale(0.5, r3.Add(pos[a], pos[b]))
		dead[b] = true
		version[a]++

		for _, fi := range incident[b] {
			if !alive[fi] {
				continue
			}
			f := &faces[fi]
			for k := range f {
				if f[k] == b {
					f[k] = a
				}
			}
			if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
				alive[fi] = false
				live--
				continue
			}
			incident[a] = append(incident[a], fi)
		}
		incident[b] = nil

		neighbours := make(map[int]bool)
		kept := incident[a][:0]
		for _, fi := range incident[a] {
			if !alive[fi] {
				continue
			}
			kept = append(kept, fi)
			for _, v := range faces[fi] {
				if v != a {
					neighbours[v] = true
				}
			}
		}
		incident[a] = dedupe(kept)

		order := make([]int, 0, len(neighbours))
		for v := range neighbours {
			order = append(order, v)
		}
		sort.Ints(order)
		for _, v := range order {
			push(a, v)
		}
	}

	keep := make([]bool, n)
	out := make([][3]int, 0, live)
	for fi, f := range faces {
		if !alive[fi] {
			continue
		}
		out = append(out, f)
		keep[f[0]], keep[f[1]], keep[f[2]] = true, true, true
	}
	m.Vertices = pos
	m.Faces = out
	compact(m, keep)
}

func dedupe(ids []int) []int {
	sort.Ints(ids)
	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}
