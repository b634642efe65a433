package leadfield

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/inverse/grid"
)

// PseudoInverse returns the truncated-SVD pseudo-inverse of the lead
// field, keeping the given number of singular values. Columns are
// whitened by the square root of their inverse norm before the
// decomposition and the whitening is folded back into the result, so
// the return maps measured fields directly onto dipole amplitudes.
//
// The result is cached per eigenvalue count and must be treated as
// read-only. The method is not safe for concurrent use on one Matrix.
func (m *Matrix) PseudoInverse(eigenvalues int) (*mat.Dense, error) {
	rows, cols := m.data.Dims()
	limit := rows
	if cols < limit {
		limit = cols
	}
	if eigenvalues < 1 || eigenvalues > limit {
		return nil, fmt.Errorf("leadfield: %d eigenvalues for a %dx%d matrix: %w",
			eigenvalues, rows, cols, errs.ErrDomain)
	}
	if inv, ok := m.inverses[eigenvalues]; ok {
		return inv, nil
	}

	// Whitening weights per column. Columns with zero norm stay zero
	// instead of blowing up, leaving the matching source silent.
	white := make([]float64, cols)
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			v := m.data.At(i, j)
			sum += v * v
		}
		if sum > 0 {
			white[j] = math.Sqrt(1 / math.Sqrt(sum))
		}
	}

	special := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			special.Set(i, j, m.data.At(i, j)*white[j])
		}
	}

	var svd mat.SVD
	if !svd.Factorize(special, mat.SVDThin) {
		return nil, fmt.Errorf("leadfield: svd of the %dx%d whitened matrix did not converge", rows, cols)
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// V_k * diag(1/s_k), then times U_k^T, then the whitening on the
	// left again.
	scaled := mat.NewDense(cols, eigenvalues, nil)
	for j := 0; j < eigenvalues; j++ {
		for i := 0; i < cols; i++ {
			scaled.Set(i, j, v.At(i, j)/s[j])
		}
	}
	var core mat.Dense
	core.Mul(scaled, u.Slice(0, rows, 0, eigenvalues).T())

	inv := mat.NewDense(cols, rows, nil)
	for i := 0; i < cols; i++ {
		for j := 0; j < rows; j++ {
			inv.Set(i, j, white[i]*core.At(i, j))
		}
	}

	if m.inverses == nil {
		m.inverses = make(map[int]*mat.Dense)
	}
	m.inverses[eigenvalues] = inv
	return inv, nil
}

// Virtual builds the lead field of an ideal magnetometer plane: one
// row per sensor grid point, picking up the field component along axis
// with no baseline. Multiplying it with reconstructed dipole
// amplitudes evaluates the field on that plane.
func (m *Matrix) Virtual(sensor *grid.Grid, axis Axis) (*mat.Dense, error) {
	if sensor == nil {
		return nil, fmt.Errorf("leadfield: nil sensor grid: %w", errs.ErrDomain)
	}
	if !axis.valid() {
		return nil, fmt.Errorf("leadfield: %s: %w", axis, errs.ErrDomain)
	}

	positions := sensor.Cells()
	cells := m.src.Cells()
	moments := m.axis.components()
	dir := axis.unitVector()

	out := mat.NewDense(len(positions), len(cells)*len(moments), nil)
	for i := range positions {
		for j, cell := range cells {
			for k, q := range moments {
				v := pickup(m.model, positions[i], dir, cell, q, 0)
				out.Set(i, j*len(moments)+k, v)
			}
		}
	}
	return out, nil
}
