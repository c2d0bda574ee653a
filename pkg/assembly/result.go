package assembly

import (
	"encoding/json"
	"fmt"
	"io"

	"headfit/internal/models"
	"headfit/pkg/geometry"
)

// Markers delimit the JSON record on stdout for callers that scrape logs.
const (
	JSONBegin = "===ASSEMBLE_JSON_BEGIN==="
	JSONEnd   = "===ASSEMBLE_JSON_END==="
)

// Size is an axis-aligned extent.
type Size struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ResultParams echoes the overridable parameters the run used.
type ResultParams struct {
	ShrinkBias            float64 `json:"shrink_bias"`
	HorizontalBias        float64 `json:"horizontal_bias"`
	ExtraHorizontalOffset float64 `json:"extra_horizontal_offset"`
	TargetTriangles       int     `json:"target_triangles"`
	WeldDistance          float64 `json:"weld_distance"`
	ShadingAngle          float64 `json:"shading_angle"`
}

// Result is the record handed to downstream tooling after a run.
type Result struct {
	RunID  string `json:"run_id"`
	Case   string `json:"case"`
	Stamp  string `json:"stamp"`
	Status string `json:"status"`

	FinalTriangleCount    int     `json:"final_triangle_count"`
	BoundingSize          Size    `json:"bounding_size"`
	ScaleUsed             float64 `json:"scale_used"`
	HorizontalBiasApplied float64 `json:"horizontal_bias_applied"`

	// Converged reports whether the horizontal loop met its tolerance
	Converged bool `json:"converged"`

	// ScaleFailsafe is set when the raw scale was rejected
	ScaleFailsafe bool `json:"scale_failsafe"`

	OutputPath    string  `json:"output_path"`
	AssembledPath *string `json:"assembled_path"`

	Params ResultParams `json:"params"`
}

func (a *Assembler) buildResult(outputPath, assembledPath string) Result {
	r := Result{
		RunID:                 a.runID,
		Case:                  a.name,
		Stamp:                 a.stamp,
		Status:                "ok",
		FinalTriangleCount:    a.merged.TriangleCount(),
		ScaleUsed:             a.scaleR.Scale,
		HorizontalBiasApplied: a.place.HorizontalApplied,
		Converged:             a.place.Converged,
		ScaleFailsafe:         a.scaleR.Failsafe,
		OutputPath:            outputPath,
		Params: ResultParams{
			ShrinkBias:            a.cfg.Scale.ShrinkBias,
			HorizontalBias:        a.cfg.Placement.HorizontalBias,
			ExtraHorizontalOffset: a.cfg.Placement.ExtraHorizontalOffset,
			TargetTriangles:       a.cfg.Postprocess.TargetTriangleBudget,
			WeldDistance:          a.cfg.Postprocess.WeldDistance,
			ShadingAngle:          a.cfg.Postprocess.ShadingAngleThreshold,
		},
	}
	if assembledPath != "" {
		r.AssembledPath = &assembledPath
	}
	r.BoundingSize = boundingSize(a.merged)
	return r
}

func boundingSize(m *models.Mesh) Size {
	box, err := geometry.MeshBounds(m)
	if err != nil {
		return Size{}
	}
	s := geometry.Size(box)
	return Size{X: s.X, Y: s.Y, Z: s.Z}
}

// WriteJSON writes the result between the begin and end markers.
func (r Result) WriteJSON(w io.Writer) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n%s\n", JSONBegin, data, JSONEnd)
	return err
}
