package models

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform places a mesh's local vertices in world space.
// World position is Translation + Scale*local. A zero Scale is treated as 1
// so the zero value is the identity.
type Transform struct {
	Translation r3.Vec
	Scale       float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

func (t Transform) scale() float64 {
	if t.Scale == 0 {
		return 1
	}
	return t.Scale
}

// Apply maps a local point into world space.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.Translation, r3.Scale(t.scale(), p))
}

// Inverse maps a world point back into the local frame.
func (t Transform) Inverse(p r3.Vec) r3.Vec {
	return r3.Scale(1/t.scale(), r3.Sub(p, t.Translation))
}

// Mesh is a triangle mesh with its own local vertex buffer.
type Mesh struct {
	// Name is the object name from the source file
	Name string

	// Vertices are local-space positions
	Vertices []r3.Vec

	// Faces index into Vertices, counter-clockwise winding
	Faces [][3]int

	// Normals holds one shading normal per face corner. It is nil until
	// normals are recomputed and is dropped by any topology edit.
	Normals [][3]r3.Vec

	// Transform places the mesh in world space
	Transform Transform
}

// NewMesh creates an empty mesh with an identity transform.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name, Transform: Identity()}
}

// TriangleCount returns the number of faces in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// World returns vertex i in world space, ignoring any group translation.
func (m *Mesh) World(i int) r3.Vec {
	return m.Transform.Apply(m.Vertices[i])
}

// Validate checks that every face references an existing vertex.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for fi, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("mesh %q: face %d references vertex %d of %d", m.Name, fi, idx, n)
			}
		}
	}
	if m.Normals != nil && len(m.Normals) != len(m.Faces) {
		return fmt.Errorf("mesh %q: %d normal triples for %d faces", m.Name, len(m.Normals), len(m.Faces))
	}
	return nil
}

// MeshGroup is the set of meshes that make up one logical part (head or body).
// Pending is a translation applied on top of every member's transform and is
// carried until the group is baked into a merged mesh.
type MeshGroup struct {
	Name    string
	Meshes  []*Mesh
	Pending r3.Vec
}

// NewMeshGroup creates a group over the given meshes with no pending translation.
func NewMeshGroup(name string, meshes ...*Mesh) *MeshGroup {
	return &MeshGroup{Name: name, Meshes: meshes}
}

// VertexCount returns the total number of vertices across all member meshes.
func (g *MeshGroup) VertexCount() int {
	n := 0
	for _, m := range g.Meshes {
		n += len(m.Vertices)
	}
	return n
}

// TriangleCount returns the total number of faces across all member meshes.
func (g *MeshGroup) TriangleCount() int {
	n := 0
	for _, m := range g.Meshes {
		n += len(m.Faces)
	}
	return n
}

// WorldOf returns vertex i of member m in world space, including Pending.
func (g *MeshGroup) WorldOf(m *Mesh, i int) r3.Vec {
	return r3.Add(g.Pending, m.World(i))
}

// Translate adds d to the pending translation.
func (g *MeshGroup) Translate(d r3.Vec) {
	g.Pending = r3.Add(g.Pending, d)
}
