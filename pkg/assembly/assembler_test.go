package assembly

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/meshtest"
	"headfit/pkg/config"
	"headfit/pkg/meshio"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

// writeCase writes a body with a narrow neck column and an offset head into
// <tmp>/<name>/ and returns the directory.
func writeCase(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)

	body := meshtest.Lathe("body", r3.Vec{}, 0, 1, 201, 32, meshtest.Waist(0.2, 0.06, 0.9, 0.12, 0.1))
	head := meshtest.Lathe("head", r3.Vec{X: 2, Y: -1}, 3, 3.3, 61, 32, meshtest.Waist(0.12, 0.08, 3.06, 0.01, 0.05))
	require.NoError(t, meshio.Save(filepath.Join(dir, "body.obj"), body))
	require.NoError(t, meshio.Save(filepath.Join(dir, "head.obj"), head))
	return dir
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "export")
	cfg.Postprocess.TargetTriangleBudget = 4000
	return cfg
}

// TestProcess runs the whole pipeline on synthetic parts
func TestProcess(t *testing.T) {
	dir := writeCase(t, "case_a")
	cfg := testConfig(t)
	cfg.Output.ExportAssembled = true
	cfg.Output.DiagnosticsDir = filepath.Join(t.TempDir(), "diag")

	a := NewAssembler(&Params{
		HeadPath: filepath.Join(dir, "head.obj"),
		BodyPath: filepath.Join(dir, "body.obj"),
		Config:   cfg,
		Now:      fixedNow,
	})
	require.NoError(t, a.Process())

	res, err := a.GetResult()
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "case_a", res.Case)
	assert.Equal(t, "20261019_120000", res.Stamp)
	assert.NotEmpty(t, res.RunID)

	t.Run("landmarks", func(t *testing.T) {
		body, head := a.Measurements()
		assert.False(t, body.Neck.Fallback)
		assert.InDelta(t, 0.06, body.Neck.Metrics.Radius, 1e-3)
		assert.GreaterOrEqual(t, body.Neck.Z, 0.77)
		assert.LessOrEqual(t, body.Neck.Z, 0.82)
		assert.InDelta(t, 0.0, body.Neck.Fit.Center.X, 1e-9)

		assert.False(t, head.Base.Fallback)
		assert.InDelta(t, 0.08, head.Base.Metrics.Radius, 1e-3)
		assert.InDelta(t, 0.3, head.Height, 1e-9)
	})

	t.Run("scale", func(t *testing.T) {
		// the height ratio 0.072/0.3 is the binding constraint and is clamped up
		assert.InDelta(t, 0.28, res.ScaleUsed, 1e-12)
		assert.False(t, res.ScaleFailsafe)
	})

	t.Run("placement", func(t *testing.T) {
		st := a.Placement()
		assert.InDelta(t, st.HorizontalApplied, res.HorizontalBiasApplied, 1e-12)
		if !res.Converged {
			assert.InDelta(t, cfg.Placement.RightMax, st.HorizontalMoved, 1e-12)
		}
	})

	t.Run("outputs", func(t *testing.T) {
		want := filepath.Join(cfg.Output.Dir, "case_a_final_20261019_120000.obj")
		assert.Equal(t, want, res.OutputPath)
		require.NotNil(t, res.AssembledPath)
		assert.FileExists(t, *res.AssembledPath)

		meshes, err := meshio.Load(res.OutputPath)
		require.NoError(t, err)
		require.Len(t, meshes, 1)
		assert.Equal(t, res.FinalTriangleCount, meshes[0].TriangleCount())
		assert.LessOrEqual(t, res.FinalTriangleCount, 4000)
		assert.Greater(t, res.FinalTriangleCount, 0)

		// decimation pulls extremes inward a little
		assert.Greater(t, res.BoundingSize.Z, 0.9)
		assert.Greater(t, res.BoundingSize.X, 0.3)
		assert.LessOrEqual(t, res.BoundingSize.X, 0.4+1e-9)

		assert.FileExists(t, filepath.Join(cfg.Output.DiagnosticsDir, "scans.html"))
		assert.FileExists(t, filepath.Join(cfg.Output.DiagnosticsDir, "neck_scan.png"))
	})

	t.Run("feet origin", func(t *testing.T) {
		m := a.Mesh()
		assert.InDelta(t, 0.0, m.Transform.Translation.X, 1e-9)
		assert.InDelta(t, 0.0, m.Transform.Translation.Z, 1e-12)
	})
}

func TestProcessDeterministic(t *testing.T) {
	dir := writeCase(t, "twice")
	run := func() (Result, []r3.Vec) {
		cfg := testConfig(t)
		a := NewAssembler(&Params{
			HeadPath: filepath.Join(dir, "head.obj"),
			BodyPath: filepath.Join(dir, "body.obj"),
			Config:   cfg,
			Now:      fixedNow,
		})
		require.NoError(t, a.Process())
		res, err := a.GetResult()
		require.NoError(t, err)
		return res, a.Mesh().Vertices
	}

	r1, v1 := run()
	r2, v2 := run()
	assert.NotEqual(t, r1.RunID, r2.RunID)
	assert.Equal(t, r1.ScaleUsed, r2.ScaleUsed)
	assert.Equal(t, r1.HorizontalBiasApplied, r2.HorizontalBiasApplied)
	assert.Equal(t, r1.FinalTriangleCount, r2.FinalTriangleCount)
	assert.Equal(t, r1.BoundingSize, r2.BoundingSize)
	assert.Equal(t, v1, v2)
}

func TestProcessErrors(t *testing.T) {
	dir := writeCase(t, "errs")

	t.Run("missing head", func(t *testing.T) {
		a := NewAssembler(&Params{
			HeadPath: filepath.Join(dir, "nope.obj"),
			BodyPath: filepath.Join(dir, "body.obj"),
			Config:   testConfig(t),
		})
		err := a.Process()
		assert.True(t, errors.Is(err, meshio.ErrInputNotFound))
		_, err = a.GetResult()
		assert.True(t, errors.Is(err, ErrNotProcessed))
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Scale.Min = 2
		a := NewAssembler(&Params{
			HeadPath: filepath.Join(dir, "nope.obj"),
			BodyPath: filepath.Join(dir, "body.obj"),
			Config:   cfg,
		})
		// configuration is rejected before any input is touched
		assert.True(t, errors.Is(a.Process(), config.ErrInvalid))
	})

	t.Run("no partial output", func(t *testing.T) {
		cfg := testConfig(t)
		a := NewAssembler(&Params{
			HeadPath: filepath.Join(dir, "head.obj"),
			BodyPath: filepath.Join(dir, "missing.obj"),
			Config:   cfg,
		})
		require.Error(t, a.Process())
		_, err := os.Stat(cfg.Output.Dir)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestCaseNameAndOutputName(t *testing.T) {
	a := NewAssembler(&Params{HeadPath: filepath.Join("in", "scene_7", "head.obj"), Now: fixedNow})
	assert.Equal(t, "scene_7", a.name)

	a.cfg.Output.Dir = "out"
	a.cfg.Output.Format = "STL"
	assert.Equal(t, filepath.Join("out", "scene_7_final_20261019_120000.stl"), a.outputName("final"))
	a.cfg.Output.Timestamp = false
	assert.Equal(t, filepath.Join("out", "scene_7_assembled.stl"), a.outputName("assembled"))

	b := NewAssembler(&Params{HeadPath: "head.obj", CaseName: "given"})
	assert.Equal(t, "given", b.name)
	c := NewAssembler(&Params{HeadPath: "head.obj"})
	assert.Equal(t, "case", c.name)
}

func TestWriteJSON(t *testing.T) {
	r := Result{
		RunID:              "id",
		Case:               "c",
		Status:             "ok",
		FinalTriangleCount: 42,
		BoundingSize:       Size{X: 1, Y: 2, Z: 3},
		ScaleUsed:          0.44,
		OutputPath:         "out.obj",
	}
	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, JSONBegin, lines[0])
	assert.Equal(t, JSONEnd, lines[2])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, 42.0, decoded["final_triangle_count"])
	assert.Nil(t, decoded["assembled_path"])
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}, decoded["bounding_size"])
}
