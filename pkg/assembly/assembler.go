// Package assembly drives the full head-on-body pipeline: load both parts,
// measure landmarks, solve the head scale, place the head, trim, merge,
// clean up and export.
package assembly

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/logging"
	"headfit/internal/models"
	"headfit/pkg/config"
	"headfit/pkg/geometry"
	"headfit/pkg/landmark"
	"headfit/pkg/meshio"
	"headfit/pkg/placement"
	"headfit/pkg/postprocess"
	"headfit/pkg/scale"
	"headfit/pkg/visualization"
)

// ErrNotProcessed is returned by accessors called before Process succeeds.
var ErrNotProcessed = errors.New("assembly has not been processed")

// Params holds the inputs of one assembly run.
type Params struct {
	// HeadPath and BodyPath are the source meshes (.obj or .stl)
	HeadPath string
	BodyPath string

	// OutputPath overrides the generated final mesh path
	OutputPath string

	// CaseName labels outputs; defaults to the head file's directory name
	CaseName string

	// Config holds every tunable; nil means config.DefaultConfig()
	Config *config.Config

	// Now supplies the run timestamp; nil means time.Now
	Now func() time.Time
}

// BodyMeasurements are the landmarks taken from the body before placement.
type BodyMeasurements struct {
	Bounds        r3.Box
	Height        float64
	TopZ          float64
	Neck          models.Landmark
	ShoulderWidth float64

	// ShoulderFallback is set when the shoulder ring was too sparse and the
	// box extent was used instead
	ShoulderFallback bool
}

// HeadMeasurements are the landmarks taken from the head before scaling.
type HeadMeasurements struct {
	Bounds r3.Box
	Height float64
	BaseZ  float64
	Base   models.Landmark
}

// Assembler handles one head/body assembly.
//
// The process consists of several steps:
// 1. Loading both meshes
// 2. Measuring the body (neck, body top, shoulders)
// 3. Measuring the head (base ring)
// 4. Solving and applying the head scale about the neck center
// 5. Placing the head
// 6. Trimming head geometry hidden inside the body and merging
// 7. Cleaning up and exporting the merged mesh
type Assembler struct {
	params *Params
	cfg    *config.Config

	runID string
	stamp string
	name  string

	head *models.MeshGroup
	body *models.MeshGroup

	bodyM  BodyMeasurements
	headM  HeadMeasurements
	scaleR scale.Result
	place  models.PlacementState

	merged *models.Mesh
	report postprocess.Report
	viewer *visualization.Viewer

	result    Result
	processed bool
}

// NewAssembler creates a new assembler for the provided parameters.
func NewAssembler(params *Params) *Assembler {
	cfg := params.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	now := time.Now
	if params.Now != nil {
		now = params.Now
	}
	return &Assembler{
		params: params,
		cfg:    cfg,
		runID:  uuid.NewString(),
		stamp:  now().Format("20060102_150405"),
		name:   defaultCaseName(params),
		viewer: visualization.NewViewer(),
	}
}

func defaultCaseName(p *Params) string {
	if p.CaseName != "" {
		return p.CaseName
	}
	dir := filepath.Base(filepath.Dir(p.HeadPath))
	if dir == "." || dir == string(filepath.Separator) || dir == "" {
		return "case"
	}
	return dir
}

// outputName builds "<case>_<kind>[_<stamp>].<ext>" inside the output directory.
func (a *Assembler) outputName(kind string) string {
	name := a.name + "_" + kind
	if a.cfg.Output.Timestamp {
		name += "_" + a.stamp
	}
	return filepath.Join(a.cfg.Output.Dir, name+"."+strings.ToLower(a.cfg.Output.Format))
}

// Process runs the complete assembly pipeline. The final mesh is written only
// after every stage has succeeded.
func (a *Assembler) Process() error {
	log := logging.Logger().With("run", a.runID, "case", a.name)

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	// Step 1: Load both parts
	log.Info("Step 1: Loading meshes", "head", a.params.HeadPath, "body", a.params.BodyPath)
	var err error
	if a.head, err = meshio.LoadGroup("head", a.params.HeadPath); err != nil {
		return fmt.Errorf("failed to load head: %w", err)
	}
	if a.body, err = meshio.LoadGroup("body", a.params.BodyPath); err != nil {
		return fmt.Errorf("failed to load body: %w", err)
	}
	log.Debug("Loaded", "head_vertices", a.head.VertexCount(), "body_vertices", a.body.VertexCount())

	// Step 2: Body landmarks
	log.Info("Step 2: Measuring body")
	if err := a.measureBody(); err != nil {
		return fmt.Errorf("failed to measure body: %w", err)
	}
	log.Info("Body measured",
		"neck_z", a.bodyM.Neck.Z, "neck_radius", a.bodyM.Neck.Metrics.Radius,
		"neck_fallback", a.bodyM.Neck.Fallback, "body_top", a.bodyM.TopZ,
		"shoulder_width", a.bodyM.ShoulderWidth)

	// Step 3: Head landmarks
	log.Info("Step 3: Measuring head")
	if err := a.measureHead(); err != nil {
		return fmt.Errorf("failed to measure head: %w", err)
	}
	log.Info("Head measured",
		"base_z", a.headM.Base.Z, "base_radius", a.headM.Base.Metrics.Radius,
		"base_width", a.headM.Base.Metrics.Width, "base_fallback", a.headM.Base.Fallback)

	// Step 4: Scale
	log.Info("Step 4: Solving head scale")
	anchor := a.solveScale()
	if a.scaleR.Failsafe {
		log.Warn("Raw scale rejected, failsafe used", "raw", a.scaleR.Raw)
	}
	log.Info("Scale applied", "scale", a.scaleR.Scale,
		"s_radius", a.scaleR.SRadius, "s_height", a.scaleR.SHeight, "s_width", a.scaleR.SWidth)

	// Step 5: Placement
	log.Info("Step 5: Placing head")
	solver := placement.NewSolver(a.cfg.PlacementConfig())
	a.place = solver.Run(a.head, a.body, anchor)
	if !a.place.Converged {
		log.Warn("Horizontal bias did not converge", "moved", a.place.HorizontalMoved)
	}
	log.Info("Head placed",
		"translation", fmt.Sprintf("(%.5f, %.5f, %.5f)", a.place.Translation.X, a.place.Translation.Y, a.place.Translation.Z),
		"horizontal", a.place.HorizontalApplied, "safety_lift", a.place.SafetyLift)

	// Step 6: Trim and merge
	log.Info("Step 6: Trimming and merging")
	if a.cfg.Trim.Enabled {
		cut := a.bodyM.TopZ + a.cfg.Trim.Margin
		removed := postprocess.Trim(a.head, cut)
		log.Debug("Trimmed head", "cut_z", cut, "vertices_removed", removed)
	}
	a.merged = postprocess.Merge(a.name, a.head, a.body)

	var assembledPath string
	if a.cfg.Output.ExportAssembled {
		assembledPath = a.outputName("assembled")
		if err := meshio.Save(assembledPath, a.merged); err != nil {
			return fmt.Errorf("failed to export assembled mesh: %w", err)
		}
		log.Info("Assembled mesh saved", "path", assembledPath)
	}

	// Step 7: Cleanup and export
	log.Info("Step 7: Preparing final mesh")
	a.report = postprocess.Prepare(a.merged, a.cfg.PostprocessOptions())
	log.Info("Final mesh prepared",
		"welded", a.report.Welded, "loose_removed", a.report.LooseRemoved,
		"decimated", a.report.Decimation.Applied, "ratio", a.report.Decimation.Ratio,
		"triangles", a.report.Triangles)

	outputPath := a.params.OutputPath
	if outputPath == "" {
		outputPath = a.outputName("final")
	}
	if err := meshio.Save(outputPath, a.merged); err != nil {
		return fmt.Errorf("failed to export final mesh: %w", err)
	}
	log.Info("Final mesh saved", "path", outputPath)

	if dir := a.cfg.Output.DiagnosticsDir; dir != "" {
		written, err := a.viewer.SaveAll(dir)
		if err != nil {
			log.Warn("Failed to save scan diagnostics", "err", err)
		} else {
			log.Debug("Scan diagnostics saved", "files", len(written))
		}
	}

	a.result = a.buildResult(outputPath, assembledPath)
	a.processed = true
	return nil
}

// measureBody finds the body top, the neck ring and the shoulder width.
func (a *Assembler) measureBody() error {
	box, err := geometry.Bounds(a.body)
	if err != nil {
		return err
	}
	sc := a.cfg.Scan
	h := geometry.Height(box)
	band := sc.RingBandRatio * h
	topZ := geometry.Quantile(geometry.Zs(geometry.WorldVertices(a.body, sc.VertexCap)), a.cfg.Placement.BodyTopP)

	params := landmark.ScanParams{
		ZMin:      box.Min.Z + sc.NeckZMin*h,
		ZMax:      box.Min.Z + sc.NeckZMax*h,
		Band:      band,
		Steps:     sc.NeckSteps,
		MinPoints: sc.MinPoints,
		Cap:       sc.RingCap,
	}
	neck, found, profile := landmark.ScanProfile(a.body, params)
	if !found {
		neck = landmark.FallbackRing(a.body, topZ, band, sc.RingCap, box)
	}
	profile.Name = "Neck"
	a.viewer.Add(profile, neck.Z)

	shoulderZ := neck.Z - sc.ShoulderOffset*h
	shoulderBand := math.Max(sc.ShoulderBandFactor*band, sc.ShoulderMinBand)
	width, ok := landmark.RingWidth(a.body, shoulderZ, shoulderBand, sc.MinPoints, sc.RingCap, box)

	a.bodyM = BodyMeasurements{
		Bounds:           box,
		Height:           h,
		TopZ:             topZ,
		Neck:             neck,
		ShoulderWidth:    width,
		ShoulderFallback: !ok,
	}
	return nil
}

// measureHead finds the head base order statistic and the head-base ring.
func (a *Assembler) measureHead() error {
	box, err := geometry.Bounds(a.head)
	if err != nil {
		return err
	}
	sc := a.cfg.Scan
	h := geometry.Height(box)
	band := sc.RingBandRatio * h
	baseZ := geometry.Quantile(geometry.Zs(geometry.WorldVertices(a.head, sc.VertexCap)), a.cfg.Placement.HeadBaseP)

	params := landmark.ScanParams{
		ZMin:      box.Min.Z + sc.HeadZMin*h,
		ZMax:      box.Min.Z + sc.HeadZMax*h,
		Band:      band,
		Steps:     sc.HeadSteps,
		MinPoints: sc.MinPoints,
		Cap:       sc.RingCap,
	}
	base, found, profile := landmark.ScanProfile(a.head, params)
	if !found {
		base = landmark.FallbackRing(a.head, baseZ, band, sc.RingCap, box)
	}
	profile.Name = "Head base"
	a.viewer.Add(profile, base.Z)

	a.headM = HeadMeasurements{Bounds: box, Height: h, BaseZ: baseZ, Base: base}
	return nil
}

// solveScale computes the head scale, applies it about the neck center and
// returns the placement anchor with the head-base landmark carried through
// the scale.
func (a *Assembler) solveScale() *placement.Anchor {
	in := scale.Inputs{
		NeckRadius:     a.bodyM.Neck.Metrics.Radius,
		HeadBaseRadius: a.headM.Base.Metrics.Radius,
		BodyHeight:     a.bodyM.Height,
		HeadHeight:     a.headM.Height,
		ShoulderWidth:  a.bodyM.ShoulderWidth,
		HeadBaseWidth:  a.headM.Base.Metrics.Width,
	}
	a.scaleR = scale.Solve(in, a.cfg.ScaleParams())

	pivot := a.bodyM.Neck.Fit.Center
	s := a.scaleR.Scale
	scale.ApplyAboutPivot(a.head, s, pivot)

	headCenter := a.headM.Base.Fit.Center
	return &placement.Anchor{
		NeckCenter:     pivot,
		NeckZ:          a.bodyM.Neck.Z,
		BodyHeight:     a.bodyM.Height,
		BodyTopZ:       a.bodyM.TopZ,
		RingZ:          scale.ScaleHeight(a.headM.Base.Z, s, pivot),
		FallbackCenter: r3.Add(pivot, r3.Scale(s, r3.Sub(headCenter, pivot))),
	}
}

// GetResult returns the result record of a successful run.
func (a *Assembler) GetResult() (Result, error) {
	if !a.processed {
		return Result{}, ErrNotProcessed
	}
	return a.result, nil
}

// Measurements returns the body and head landmarks taken during Process.
func (a *Assembler) Measurements() (BodyMeasurements, HeadMeasurements) {
	return a.bodyM, a.headM
}

// Placement returns the accumulated head placement.
func (a *Assembler) Placement() models.PlacementState {
	return a.place
}

// Mesh returns the final merged mesh.
func (a *Assembler) Mesh() *models.Mesh {
	return a.merged
}
