package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/model3d/model3d"

	"headfit/internal/meshtest"
	"headfit/internal/models"
)

func sphere(t *testing.T, n int) *models.Mesh {
	t.Helper()
	m := models.NewMesh("sphere")
	fromModel3D(m, model3d.NewMeshIcosphere(model3d.Origin, 1, n))
	require.NoError(t, m.Validate())
	return m
}

func TestModel3DConversion(t *testing.T) {
	m := sphere(t, 4)
	assert.Equal(t, 320, m.TriangleCount())
	// closed sphere: V - E + F = 2 with E = 3F/2
	assert.Equal(t, 162, len(m.Vertices))

	back := toModel3D(m)
	assert.Equal(t, 320, back.NumTriangles())
	assert.False(t, back.NeedsRepair())

	again := models.NewMesh("again")
	fromModel3D(again, back)
	assert.Equal(t, m.Vertices, again.Vertices)
	assert.Equal(t, m.Faces, again.Faces)
}

func TestPlaneDecimator(t *testing.T) {
	t.Run("closed mesh meets the target", func(t *testing.T) {
		m := sphere(t, 8)
		require.Equal(t, 1280, m.TriangleCount())

		d := NewPlaneDecimator()
		d.Reduce(m, 400)
		require.NoError(t, m.Validate())
		assert.LessOrEqual(t, m.TriangleCount(), 400)
		assert.Greater(t, m.TriangleCount(), 0)
	})

	t.Run("open mesh goes to the fallback", func(t *testing.T) {
		m := meshtest.Grid("grid", 1, 10)
		var calls, got int
		d := NewPlaneDecimator()
		d.Fallback = reducerFunc(func(m *models.Mesh, target int) {
			calls++
			got = target
		})
		d.Reduce(m, 50)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 50, got)
		assert.Equal(t, 162, m.TriangleCount())
	})

	t.Run("under target is untouched", func(t *testing.T) {
		m := sphere(t, 2)
		before := append([][3]int(nil), m.Faces...)
		NewPlaneDecimator().Reduce(m, 1000)
		assert.Equal(t, before, m.Faces)
	})

	t.Run("through Decimate", func(t *testing.T) {
		m := sphere(t, 8)
		res := Decimate(m, 500, 0.1, 0.6, NewPlaneDecimator())
		assert.True(t, res.Applied)
		assert.LessOrEqual(t, res.After, 500)
		assert.Nil(t, m.Normals)
	})
}
