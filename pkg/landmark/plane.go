package landmark

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"headfit/internal/models"
	"headfit/pkg/geometry"
)

// Up is the vertical axis. Meshes are assumed to be Z-up.
var Up = r3.Vec{Z: 1}

// FitPlane fits a plane through pts by principal component analysis.
// The normal is the eigenvector of the covariance matrix with the smallest
// eigenvalue. With fewer than three points the normal defaults to Up.
func FitPlane(pts []r3.Vec) models.PlaneFit {
	center := geometry.Centroid(pts)
	if len(pts) < 3 {
		return models.PlaneFit{Center: center, Normal: Up}
	}

	data := mat.NewDense(len(pts), 3, nil)
	for i, p := range pts {
		data.SetRow(i, []float64{p.X, p.Y, p.Z})
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return models.PlaneFit{Center: center, Normal: Up}
	}
	// Values are in ascending order; column 0 is the least-variance direction.
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	n := r3.Vec{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	if r3.Norm(n) == 0 {
		return models.PlaneFit{Center: center, Normal: Up}
	}
	return models.PlaneFit{Center: center, Normal: r3.Unit(n)}
}
