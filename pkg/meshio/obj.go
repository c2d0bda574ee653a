// Package meshio reads and writes Wavefront OBJ meshes and dispatches mesh
// loading by file extension.
package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
	"headfit/pkg/stl"
)

var (
	// ErrInputNotFound is returned when a mesh path does not exist.
	ErrInputNotFound = errors.New("input mesh not found")

	// ErrInputUnreadable is returned when a mesh file cannot be parsed or holds no geometry.
	ErrInputUnreadable = errors.New("input mesh unreadable")
)

// Load reads the meshes in path. OBJ files yield one mesh per object
// statement; STL files yield a single mesh named after the file.
func Load(path string) ([]*models.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInputUnreadable, path, err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var meshes []*models.Mesh
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		var m *models.Mesh
		m, err = stl.Read(f, name)
		if m != nil {
			meshes = []*models.Mesh{m}
		}
	default:
		meshes, err = ReadOBJ(f, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputUnreadable, path, err)
	}

	total := 0
	for _, m := range meshes {
		total += len(m.Vertices)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: %s: no vertices", ErrInputUnreadable, path)
	}
	return meshes, nil
}

// LoadGroup loads path into a mesh group named name.
func LoadGroup(name, path string) (*models.MeshGroup, error) {
	meshes, err := Load(path)
	if err != nil {
		return nil, err
	}
	return models.NewMeshGroup(name, meshes...), nil
}

// ReadOBJ parses vertex positions and faces from an OBJ stream. Polygons are
// fan-triangulated, negative indices are resolved relative to the vertices read
// so far and texture or normal references are ignored. Each "o" or "g"
// statement that is followed by faces starts a new mesh; vertex indices stay
// global across the file as the format requires.
func ReadOBJ(r io.Reader, name string) ([]*models.Mesh, error) {
	var (
		verts  []r3.Vec
		meshes []*objMesh
		cur    *objMesh
	)
	start := func(n string) {
		if cur != nil && len(cur.faces) == 0 {
			cur.name = n
			return
		}
		cur = &objMesh{name: n}
		meshes = append(meshes, cur)
	}
	start(name)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs three coordinates", line)
			}
			var c [3]float64
			for k := 0; k < 3; k++ {
				val, err := strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %v", line, err)
				}
				c[k] = val
			}
			verts = append(verts, r3.Vec{X: c[0], Y: c[1], Z: c[2]})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least three vertices", line)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				i, err := parseIndex(ref, len(verts))
				if err != nil {
					return nil, fmt.Errorf("line %d: %v", line, err)
				}
				idx = append(idx, i)
			}
			for k := 1; k+1 < len(idx); k++ {
				cur.faces = append(cur.faces, [3]int{idx[0], idx[k], idx[k+1]})
			}
		case "o", "g":
			if len(fields) > 1 {
				start(strings.Join(fields[1:], " "))
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	out := make([]*models.Mesh, 0, len(meshes))
	for _, om := range meshes {
		if len(om.faces) == 0 && len(meshes) > 1 {
			continue
		}
		out = append(out, om.build(verts, len(meshes) == 1))
	}
	return out, nil
}

type objMesh struct {
	name  string
	faces [][3]int
}

// build gives the mesh its own vertex buffer holding only what its faces use.
// A file with a single object keeps every vertex, including unreferenced ones.
func (om *objMesh) build(verts []r3.Vec, all bool) *models.Mesh {
	m := models.NewMesh(om.name)
	if all {
		m.Vertices = append([]r3.Vec(nil), verts...)
		m.Faces = om.faces
		return m
	}
	remap := make(map[int]int)
	for _, f := range om.faces {
		var nf [3]int
		for k, v := range f {
			j, ok := remap[v]
			if !ok {
				j = len(m.Vertices)
				remap[v] = j
				m.Vertices = append(m.Vertices, verts[v])
			}
			nf[k] = j
		}
		m.Faces = append(m.Faces, nf)
	}
	return m
}

func parseIndex(ref string, count int) (int, error) {
	if slash := strings.IndexByte(ref, '/'); slash >= 0 {
		ref = ref[:slash]
	}
	i, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("bad vertex reference %q", ref)
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += count
	default:
		return 0, fmt.Errorf("vertex reference 0 is invalid")
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("vertex reference %s out of range (%d vertices)", ref, count)
	}
	return i, nil
}

// WriteOBJ writes a mesh in its local coordinates. When the mesh carries
// shading normals they are written as vn records and referenced per corner.
func WriteOBJ(w io.Writer, m *models.Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d vertices, %d faces\n", len(m.Vertices), len(m.Faces))
	fmt.Fprintf(bw, "o %s\n", m.Name)
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %s %s %s\n", ff(v.X), ff(v.Y), ff(v.Z))
	}
	withNormals := len(m.Normals) == len(m.Faces) && len(m.Faces) > 0
	if withNormals {
		for _, tri := range m.Normals {
			for _, n := range tri {
				fmt.Fprintf(bw, "vn %s %s %s\n", ff(n.X), ff(n.Y), ff(n.Z))
			}
		}
		fmt.Fprintln(bw, "s 1")
	}
	for fi, f := range m.Faces {
		if withNormals {
			n := fi*3 + 1
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", f[0]+1, n, f[1]+1, n+1, f[2]+1, n+2)
			continue
		}
		fmt.Fprintf(bw, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}
	return bw.Flush()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
