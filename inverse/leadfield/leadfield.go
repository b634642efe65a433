// Package leadfield builds the forward operator of the current
// reconstruction: the matrix relating unit dipole moments on a source
// plane to the field each sensor picks up. Three analytic kernels are
// available, and the matrix exposes a whitened truncated-SVD
// pseudo-inverse together with a virtual lead field that evaluates the
// reconstructed sources on an arbitrary sensor plane.
//
// Geometry is in millimetres. The kernel output carries a fixed scale
// of 1e5 so that unit dipole moments map onto the femtotesla range the
// acquisition works in.
package leadfield

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/inverse/grid"
)

const kernelScale = 100000.0

// Matrix is a dense lead field: one row per sensor, one column per
// source cell and dipole component, cell-major.
type Matrix struct {
	data     *mat.Dense
	src      *grid.Grid
	model    Model
	axis     Axis
	baseline float64
	inverses map[int]*mat.Dense
}

// Build assembles the forward matrix for sensors at the given positions
// with the given pickup directions. A zero baseline treats every sensor
// as a magnetometer; a positive baseline subtracts a second pickup
// coil displaced by baseline millimetres along +z, forming an axial
// gradiometer.
func Build(positions, directions [][3]float64, src *grid.Grid, model Model, axis Axis, baseline float64) (*Matrix, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("leadfield: no sensor positions: %w", errs.ErrShape)
	}
	if len(positions) != len(directions) {
		return nil, fmt.Errorf("leadfield: %d positions for %d directions: %w",
			len(positions), len(directions), errs.ErrShape)
	}
	if src == nil {
		return nil, fmt.Errorf("leadfield: nil source grid: %w", errs.ErrDomain)
	}
	if !model.valid() {
		return nil, fmt.Errorf("leadfield: %s: %w", model, errs.ErrDomain)
	}
	if !axis.valid() {
		return nil, fmt.Errorf("leadfield: %s: %w", axis, errs.ErrDomain)
	}
	if math.IsNaN(baseline) || math.IsInf(baseline, 0) || baseline < 0 {
		return nil, fmt.Errorf("leadfield: baseline %g: %w", baseline, errs.ErrDomain)
	}

	cells := src.Cells()
	moments := axis.components()
	rows := len(positions)
	cols := len(cells) * len(moments)

	data := mat.NewDense(rows, cols, nil)
	for i := range positions {
		for j, cell := range cells {
			for k, q := range moments {
				v := pickup(model, positions[i], directions[i], cell, q, baseline)
				data.Set(i, j*len(moments)+k, v)
			}
		}
	}

	return &Matrix{
		data:     data,
		src:      src,
		model:    model,
		axis:     axis,
		baseline: baseline,
	}, nil
}

// Dims returns the matrix dimensions (sensors, cells times components).
func (m *Matrix) Dims() (rows, cols int) {
	return m.data.Dims()
}

// At returns one matrix entry.
func (m *Matrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Grid returns the source grid the matrix was built on.
func (m *Matrix) Grid() *grid.Grid {
	return m.src
}

// Model returns the forward kernel.
func (m *Matrix) Model() Model {
	return m.model
}

// Axis returns the dipole component axis.
func (m *Matrix) Axis() Axis {
	return m.axis
}

// Baseline returns the gradiometer baseline in millimetres.
func (m *Matrix) Baseline() float64 {
	return m.baseline
}

// pickup evaluates the field a sensor measures from a unit dipole q at
// cell. Magnetometers project onto the absolute pickup direction;
// gradiometers subtract the displaced top coil along the signed
// direction.
func pickup(model Model, position, direction, cell, q [3]float64, baseline float64) float64 {
	if baseline == 0 {
		b := bxyz(model, position, cell, q)
		return b[0]*math.Abs(direction[0]) +
			b[1]*math.Abs(direction[1]) +
			b[2]*math.Abs(direction[2])
	}
	top := position
	top[2] += baseline
	bottom := bxyz(model, position, cell, q)
	upper := bxyz(model, top, cell, q)
	return (bottom[0]-upper[0])*direction[0] +
		(bottom[1]-upper[1])*direction[1] +
		(bottom[2]-upper[2])*direction[2]
}

// bxyz evaluates the kernel field at position for a unit dipole moment
// q placed at cell.
func bxyz(model Model, position, cell, q [3]float64) [3]float64 {
	switch model {
	case ModelSpherical:
		return sphericalField(position, cell, q)
	case ModelFree:
		return freeField(position, cell, q)
	default:
		return horizontalField(position, cell, q)
	}
}

// sphericalField is the Sarvas solution for a dipole inside a spherical
// conductor centred on the origin.
func sphericalField(p, c, q [3]float64) [3]float64 {
	x, y, z := p[0], p[1], p[2]
	x0, y0, z0 := c[0], c[1], c[2]
	qx, qy, qz := q[0], q[1], q[2]

	r := math.Sqrt(x*x + y*y + z*z)
	dx, dy, dz := x-x0, y-y0, z-z0
	a := math.Sqrt(dx*dx + dy*dy + dz*dz)
	ar := dx*x + dy*y + dz*z
	pc := x*x0 + y*y0 + z*z0

	f := a * (r*a + r*r - pc)
	dfx := x*(a*a/r+a) + dx*(a+2*r+ar/a)
	dfy := y*(a*a/r+a) + dy*(a+2*r+ar/a)
	dfz := z*(a*a/r+a) + dz*(a+2*r+ar/a)

	cx := qy*z0 - qz*y0
	cy := qz*x0 - qx*z0
	cz := qx*y0 - qy*x0
	qcr := cx*x + cy*y + cz*z

	f2 := f * f
	return [3]float64{
		kernelScale * (cx/f - qcr*dfx/f2),
		kernelScale * (cy/f - qcr*dfy/f2),
		kernelScale * (cz/f - qcr*dfz/f2),
	}
}

// horizontalField is the half-space solution with purely horizontal
// volume currents.
func horizontalField(p, c, q [3]float64) [3]float64 {
	x, y, z := p[0], p[1], p[2]
	x0, y0, z0 := c[0], c[1], c[2]
	qx, qy := q[0], q[1]

	dx, dy, dz := x-x0, y-y0, z-z0
	a := math.Sqrt(dx*dx + dy*dy + dz*dz)

	k := a * (a + dz)
	dkx := dx * (2 + dz/a)
	dky := dy * (2 + dz/a)
	dkz := dz*(2+dz/a) + a

	cross := qx*dy - qy*dx
	k2 := k * k
	return [3]float64{
		kernelScale * (qy/k + cross*dkx/k2),
		kernelScale * (-qx/k + cross*dky/k2),
		kernelScale * (cross * dkz / k2),
	}
}

// freeField is the free-space dipole field Q x d / |d|^3.
func freeField(p, c, q [3]float64) [3]float64 {
	dx, dy, dz := p[0]-c[0], p[1]-c[1], p[2]-c[2]
	qx, qy, qz := q[0], q[1], q[2]

	r := math.Sqrt(dx*dx + dy*dy + dz*dz)
	r3 := r * r * r
	return [3]float64{
		kernelScale * (qy*dz - qz*dy) / r3,
		kernelScale * (qz*dx - qx*dz) / r3,
		kernelScale * (qx*dy - qy*dx) / r3,
	}
}
