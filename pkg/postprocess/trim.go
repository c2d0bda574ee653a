// Package postprocess turns the placed head and body groups into one clean
// mesh: trimming hidden head geometry, merging, welding, normals, origin and
// decimation to a triangle budget.
package postprocess

import (
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// Trim deletes every vertex of the group whose world Z is below zCut, along
// with every face that touches one. It returns the number of vertices removed.
func Trim(g *models.MeshGroup, zCut float64) int {
	removed := 0
	for _, m := range g.Meshes {
		keep := make([]bool, len(m.Vertices))
		for i := range m.Vertices {
			keep[i] = g.WorldOf(m, i).Z >= zCut
			if !keep[i] {
				removed++
			}
		}
		compact(m, keep)
	}
	return removed
}

// compact drops vertices with keep[i] false and every face referencing them,
// preserving the order of what remains. Shading normals are discarded.
func compact(m *models.Mesh, keep []bool) {
	remap := make([]int, len(m.Vertices))
	verts := make([]r3.Vec, 0, len(m.Vertices))
	for i, v := range m.Vertices {
		if !keep[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(verts)
		verts = append(verts, v)
	}
	faces := make([][3]int, 0, len(m.Faces))
	for _, f := range m.Faces {
		a, b, c := remap[f[0]], remap[f[1]], remap[f[2]]
		if a < 0 || b < 0 || c < 0 {
			continue
		}
		faces = append(faces, [3]int{a, b, c})
	}
	m.Vertices = verts
	m.Faces = faces
	m.Normals = nil
}

// Merge bakes both groups' transforms into world coordinates and concatenates
// them into a single mesh with an identity transform. The groups are not
// modified but should not be used for placement afterwards.
func Merge(name string, groups ...*models.MeshGroup) *models.Mesh {
	out := models.NewMesh(name)
	for _, g := range groups {
		for _, m := range g.Meshes {
			base := len(out.Vertices)
			for i := range m.Vertices {
				out.Vertices = append(out.Vertices, g.WorldOf(m, i))
			}
			for _, f := range m.Faces {
				out.Faces = append(out.Faces, [3]int{f[0] + base, f[1] + base, f[2] + base})
			}
		}
	}
	return out
}

// Bake applies a mesh's own transform to its vertices and resets it to identity.
func Bake(m *models.Mesh) {
	for i, v := range m.Vertices {
		m.Vertices[i] = m.Transform.Apply(v)
	}
	m.Transform = models.Identity()
}
