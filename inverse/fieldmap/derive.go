package fieldmap

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-mcg/tabular"
)

// currentScale converts unit-spacing field gradients to ampere metres.
const currentScale = 1e-9

var arrowColumns = []string{
	"tail [mm]", "head [mm]", "vector", "distance [A m]", "angle [deg]",
}

var poleColumns = []string{
	"time [s]", "min coordinate [mm]", "max coordinate [mm]",
	"vector", "distance [mm]", "angle [deg]", "ratio",
}

// gradientRows differentiates along the first index with unit spacing:
// central differences inside, one-sided at the edges.
func gradientRows(z [][]float64) [][]float64 {
	m := len(z)
	out := make([][]float64, m)
	for i := range out {
		out[i] = make([]float64, len(z[i]))
	}
	for j := range z[0] {
		out[0][j] = z[1][j] - z[0][j]
		out[m-1][j] = z[m-1][j] - z[m-2][j]
		for i := 1; i < m-1; i++ {
			out[i][j] = (z[i+1][j] - z[i-1][j]) / 2
		}
	}
	return out
}

// gradientCols differentiates along the second index.
func gradientCols(z [][]float64) [][]float64 {
	out := make([][]float64, len(z))
	for i, row := range z {
		n := len(row)
		out[i] = make([]float64, n)
		out[i][0] = row[1] - row[0]
		out[i][n-1] = row[n-1] - row[n-2]
		for j := 1; j < n-1; j++ {
			out[i][j] = (row[j+1] - row[j-1]) / 2
		}
	}
	return out
}

// currentFrame is the tangential current magnitude of one field frame.
func currentFrame(z [][]float64) [][]float64 {
	g0, g1 := gradientRows(z), gradientCols(z)
	out := make([][]float64, len(z))
	for i := range out {
		out[i] = make([]float64, len(z[i]))
		for j := range out[i] {
			out[i][j] = math.Sqrt(g0[i][j]*g0[i][j]+g1[i][j]*g1[i][j]) * currentScale
		}
	}
	return out
}

// arrowsTable lists the current vector at every mesh point of one
// frame. The vector is the row gradient minus i times the column
// gradient; heads are tails displaced by that vector.
func arrowsTable(frame, x, y [][]float64) *tabular.Table {
	out := tabular.New(arrowColumns...)
	g0, g1 := gradientRows(frame), gradientCols(frame)
	for i := range frame {
		for j := range frame[i] {
			v := complex(g0[i][j], -g1[i][j])
			tail := [2]float64{x[i][j], y[i][j]}
			head := [2]float64{tail[0] + real(v), tail[1] + imag(v)}
			_ = out.Append(tail, head, v, cmplx.Abs(v)*currentScale, degreeAngle(v))
		}
	}
	return out
}

// appendPoleRow locates the field extremes of one frame and appends
// their geometry: coordinates, the min-to-max vector, its length and
// angle, and the length relative to the mesh diagonal. Ties resolve to
// the first mesh point in row-major order.
func appendPoleRow(out *tabular.Table, when float64, frame, x, y [][]float64, norm float64) {
	maxI, maxJ := 0, 0
	minI, minJ := 0, 0
	for i := range frame {
		for j := range frame[i] {
			if frame[i][j] > frame[maxI][maxJ] {
				maxI, maxJ = i, j
			}
			if frame[i][j] < frame[minI][minJ] {
				minI, minJ = i, j
			}
		}
	}

	v := complex(x[maxI][maxJ]-x[minI][minJ], y[maxI][maxJ]-y[minI][minJ])
	dist := cmplx.Abs(v)
	_ = out.Append(
		when,
		[2]float64{x[minI][minJ], y[minI][minJ]},
		[2]float64{x[maxI][maxJ], y[maxI][maxJ]},
		v,
		dist,
		degreeAngle(v),
		dist/norm,
	)
}

// degreeAngle maps a current vector onto the clinical angle
// convention: clockwise degrees from the +x axis, with a clean zero
// for the zero vector.
func degreeAngle(v complex128) float64 {
	deg := -180 * math.Atan2(imag(v), real(v)) / math.Pi
	if deg == 0 {
		return 0
	}
	return deg
}
