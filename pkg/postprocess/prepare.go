package postprocess

import (
	"headfit/internal/models"
)

// Options controls Prepare.
type Options struct {
	// WeldDistance merges vertices closer than this
	WeldDistance float64

	// ShadingAngle is the auto-smooth threshold in degrees
	ShadingAngle float64

	// FootBand is the fraction of the height used to find the feet
	FootBand float64

	// TargetTriangles is the decimation budget, zero disables decimation
	TargetTriangles int

	// MinRatio and MaxRatio clamp the decimation keep ratio
	MinRatio float64
	MaxRatio float64

	// Decimator overrides the default edge collapse
	Decimator Decimator
}

// DefaultOptions returns the stock cleanup settings.
func DefaultOptions() Options {
	return Options{
		WeldDistance:    0.001,
		ShadingAngle:    DefaultShadingAngle,
		FootBand:        DefaultFootBand,
		TargetTriangles: 80000,
		MinRatio:        0.10,
		MaxRatio:        0.60,
	}
}

// Report summarizes a Prepare run.
type Report struct {
	Welded       int
	LooseRemoved int
	Decimation   DecimateResult
	Triangles    int
}

// Prepare runs the export cleanup on a merged mesh: bake the transform, weld,
// drop loose vertices, recompute shading normals, recenter the origin to the
// feet and decimate. Normals are rebuilt after decimation when it ran.
func Prepare(m *models.Mesh, opts Options) Report {
	var r Report
	Bake(m)
	r.Welded = Weld(m, opts.WeldDistance)
	r.LooseRemoved = RemoveLoose(m)
	RecomputeNormals(m, opts.ShadingAngle)
	RecenterToFeet(m, opts.FootBand)
	r.Decimation = Decimate(m, opts.TargetTriangles, opts.MinRatio, opts.MaxRatio, opts.Decimator)
	if r.Decimation.Applied {
		RecomputeNormals(m, opts.ShadingAngle)
	}
	r.Triangles = m.TriangleCount()
	return r
}
