// Package meshtest builds synthetic meshes with known dimensions for tests.
package meshtest

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"headfit/internal/models"
)

// Lathe builds an open tube around a vertical axis through center. Layer i sits
// at zMin + i*(zMax-zMin)/(layers-1) with radius profile(z). Adjacent layers are
// joined by two triangles per segment.
func Lathe(name string, center r3.Vec, zMin, zMax float64, layers, segments int, profile func(z float64) float64) *models.Mesh {
	m := models.NewMesh(name)
	for i := 0; i < layers; i++ {
		z := zMin
		if layers > 1 {
			z = zMin + (zMax-zMin)*float64(i)/float64(layers-1)
		}
		r := profile(z)
		for j := 0; j < segments; j++ {
			a := 2 * math.Pi * float64(j) / float64(segments)
			m.Vertices = append(m.Vertices, r3.Vec{
				X: center.X + r*math.Cos(a),
				Y: center.Y + r*math.Sin(a),
				Z: z,
			})
		}
	}
	for i := 0; i+1 < layers; i++ {
		for j := 0; j < segments; j++ {
			a := i*segments + j
			b := i*segments + (j+1)%segments
			c := (i+1)*segments + j
			d := (i+1)*segments + (j+1)%segments
			m.Faces = append(m.Faces, [3]int{a, b, d}, [3]int{a, d, c})
		}
	}
	return m
}

// Cylinder is a Lathe with constant radius.
func Cylinder(name string, center r3.Vec, radius, zMin, zMax float64, layers, segments int) *models.Mesh {
	return Lathe(name, center, zMin, zMax, layers, segments, func(float64) float64 { return radius })
}

// Waist returns a radius profile equal to r0 within flat of z0, ramping
// linearly to r over ramp beyond that, and r elsewhere.
func Waist(r, r0, z0, flat, ramp float64) func(z float64) float64 {
	return func(z float64) float64 {
		d := math.Abs(z-z0) - flat
		if d <= 0 {
			return r0
		}
		if d >= ramp {
			return r
		}
		return r0 + (r-r0)*d/ramp
	}
}

// Grid builds a flat square grid of n*n vertices in the plane z = 0 with side
// length size, centered on the origin.
func Grid(name string, size float64, n int) *models.Mesh {
	m := models.NewMesh(name)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Vertices = append(m.Vertices, r3.Vec{
				X: size*float64(i)/float64(n-1) - size/2,
				Y: size*float64(j)/float64(n-1) - size/2,
			})
		}
	}
	for i := 0; i+1 < n; i++ {
		for j := 0; j+1 < n; j++ {
			a := i*n + j
			b := (i+1)*n + j
			c := i*n + j + 1
			d := (i+1)*n + j + 1
			m.Faces = append(m.Faces, [3]int{a, b, d}, [3]int{a, d, c})
		}
	}
	return m
}
