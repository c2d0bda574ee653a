package postprocess

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// DefaultShadingAngle is the auto-smooth threshold in degrees.
const DefaultShadingAngle = 60.0

// faceNormal returns the area-weighted normal of a face: its length is twice
// the triangle area.
func faceNormal(m *models.Mesh, f [3]int) r3.Vec {
	a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}

func unitOrZero(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// RecomputeNormals rebuilds the per-corner shading normals. Each corner takes
// the area-weighted average of the normals of the faces around its vertex whose
// orientation is within angleDeg of its own face; sharper neighbours are left
// out so hard edges stay hard.
func RecomputeNormals(m *models.Mesh, angleDeg float64) {
	weighted := make([]r3.Vec, len(m.Faces))
	unit := make([]r3.Vec, len(m.Faces))
	incident := make([][]int, len(m.Vertices))
	for fi, f := range m.Faces {
		weighted[fi] = faceNormal(m, f)
		unit[fi] = unitOrZero(weighted[fi])
		for _, v := range f {
			incident[v] = append(incident[v], fi)
		}
	}

	cosLimit := math.Cos(angleDeg * math.Pi / 180)
	normals := make([][3]r3.Vec, len(m.Faces))
	for fi, f := range m.Faces {
		for k, v := range f {
			var sum r3.Vec
			for _, gi := range incident[v] {
				if gi != fi && r3.Dot(unit[fi], unit[gi]) < cosLimit {
					continue
				}
				sum = r3.Add(sum, weighted[gi])
			}
			n := unitOrZero(sum)
			if n == (r3.Vec{}) {
				n = unit[fi]
			}
			normals[fi][k] = n
		}
	}
	m.Normals = normals
}
