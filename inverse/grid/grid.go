// Package grid builds the regular planar meshes used by the current
// reconstruction: a source plane below the sensors on which dipoles are
// placed, and a sensor plane on which the reconstructed field is
// evaluated. Coordinates are millimetres; the plane is square and
// centred on the z axis at a fixed height.
package grid

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mcg/errs"
)

// Default plane geometries, in millimetres.
const (
	DefaultSourceWidth    = 240.0
	DefaultSourceHeight   = -40.0
	DefaultSourceInterval = 16.0

	DefaultSensorWidth    = 400.0
	DefaultSensorHeight   = 40.0
	DefaultSensorInterval = 25.0

	// DefaultBaseline is the default gradiometer baseline in millimetres.
	DefaultBaseline = 50.0
)

// Grid is a square mesh of points in a horizontal plane. Points run
// row-major with x varying fastest, so cell i*N()+j sits at
// (Coordinate()[j], Coordinate()[i], height).
type Grid struct {
	width    float64
	height   float64
	interval float64
	coord    []float64
}

// New creates a width x width mesh at the given height, with points
// spaced interval apart along each axis. The first point of each axis
// lies at -width/2; when interval divides width evenly the last point
// lies at +width/2.
func New(width, height, interval float64) (*Grid, error) {
	if math.IsNaN(width) || math.IsInf(width, 0) || width <= 0 {
		return nil, fmt.Errorf("grid: width %g: %w", width, errs.ErrDomain)
	}
	if math.IsNaN(height) || math.IsInf(height, 0) {
		return nil, fmt.Errorf("grid: height %g: %w", height, errs.ErrDomain)
	}
	if math.IsNaN(interval) || math.IsInf(interval, 0) || interval <= 0 {
		return nil, fmt.Errorf("grid: interval %g: %w", interval, errs.ErrDomain)
	}
	if interval > width {
		return nil, fmt.Errorf("grid: interval %g exceeds width %g: %w",
			interval, width, errs.ErrDomain)
	}

	// Axis points are -width/2 + k*interval for every k keeping the
	// point below width/2 + interval. The epsilon absorbs rounding when
	// interval divides width exactly.
	n := int(math.Ceil((width+interval)/interval - 1e-9))
	coord := make([]float64, n)
	for k := range coord {
		coord[k] = -0.5*width + float64(k)*interval
	}

	return &Grid{width: width, height: height, interval: interval, coord: coord}, nil
}

// N returns the number of points per axis.
func (g *Grid) N() int {
	return len(g.coord)
}

// Width returns the nominal plane width in millimetres.
func (g *Grid) Width() float64 {
	return g.width
}

// Height returns the plane height (z) in millimetres.
func (g *Grid) Height() float64 {
	return g.height
}

// Interval returns the point spacing in millimetres.
func (g *Grid) Interval() float64 {
	return g.interval
}

// Coordinate returns the axis points shared by x and y.
func (g *Grid) Coordinate() []float64 {
	out := make([]float64, len(g.coord))
	copy(out, g.coord)
	return out
}

// Cells returns all N()*N() mesh points row-major with x varying
// fastest.
func (g *Grid) Cells() [][3]float64 {
	n := len(g.coord)
	cells := make([][3]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cells[i*n+j] = [3]float64{g.coord[j], g.coord[i], g.height}
		}
	}
	return cells
}

// X returns the mesh x coordinates, one row per y point.
func (g *Grid) X() [][]float64 {
	n := len(g.coord)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		copy(out[i], g.coord)
	}
	return out
}

// Y returns the mesh y coordinates, one row per y point.
func (g *Grid) Y() [][]float64 {
	n := len(g.coord)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = g.coord[i]
		}
	}
	return out
}
