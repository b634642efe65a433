// Package series holds one-dimensional frequency series, the results of
// spectral transforms: an amplitude spectrum, a power spectral density
// or an amplitude spectral density over a uniform frequency axis.
package series

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/tabular"
	"github.com/cwbudde/algo-mcg/unit"
)

// Series is an immutable value-over-frequency vector. The axis is
// implicit: bin k sits at f0 + k*df.
type Series struct {
	values []float64
	unit   unit.Unit
	f0     float64
	df     float64
	name   string
}

// New creates a series over the axis f0 + k*df. name records the
// producing transform ("fft", "psd", "asd") and labels tabular output.
func New(values []float64, u unit.Unit, f0, df float64, name string) (*Series, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("series: empty values: %w", errs.ErrDomain)
	}
	if df <= 0 || math.IsNaN(df) || math.IsInf(df, 0) {
		return nil, fmt.Errorf("series: bin width %g: %w", df, errs.ErrDomain)
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return &Series{values: vals, unit: u, f0: f0, df: df, name: name}, nil
}

// Values returns a copy of the series values.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Unit returns the value unit.
func (s *Series) Unit() unit.Unit { return s.unit }

// F0 returns the frequency of the first bin in Hz.
func (s *Series) F0() float64 { return s.f0 }

// Df returns the bin width in Hz.
func (s *Series) Df() float64 { return s.df }

// Len returns the number of bins.
func (s *Series) Len() int { return len(s.values) }

// Name returns the provenance label ("fft", "psd", "asd").
func (s *Series) Name() string { return s.name }

// Frequencies returns the frequency axis f0 + k*df.
func (s *Series) Frequencies() []float64 {
	out := make([]float64, len(s.values))
	for k := range out {
		out[k] = s.f0 + float64(k)*s.df
	}
	return out
}

// At returns the value at the bin nearest to freq, the earlier bin on
// ties. Frequencies outside the axis snap to the first or last bin.
func (s *Series) At(freq float64) unit.Quantity {
	return unit.Q(s.values[s.nearestBin(freq)], s.unit)
}

func (s *Series) nearestBin(freq float64) int {
	pos := (freq - s.f0) / s.df
	k := int(math.Floor(pos))
	if pos-float64(k) > 0.5 {
		k++
	}
	if k < 0 {
		k = 0
	}
	if k > len(s.values)-1 {
		k = len(s.values) - 1
	}
	return k
}

// Crop returns the bins with frequency in the half-open span [f1, f2).
// Bounds beyond the axis clamp to it; a span that covers no bins is
// rejected.
func (s *Series) Crop(f1, f2 float64) (*Series, error) {
	if f2 <= f1 {
		return nil, fmt.Errorf("series: crop span [%g, %g): %w", f1, f2, errs.ErrDomain)
	}

	const eps = 1e-9
	k0 := int(math.Ceil((f1-s.f0)/s.df - eps))
	k1 := int(math.Ceil((f2-s.f0)/s.df - eps))
	if k0 < 0 {
		k0 = 0
	}
	if k1 > len(s.values) {
		k1 = len(s.values)
	}
	if k1 <= k0 {
		return nil, fmt.Errorf("series: crop span [%g, %g) covers no bins: %w", f1, f2, errs.ErrDomain)
	}

	vals := make([]float64, k1-k0)
	copy(vals, s.values[k0:k1])
	return &Series{
		values: vals,
		unit:   s.unit,
		f0:     s.f0 + float64(k0)*s.df,
		df:     s.df,
		name:   s.name,
	}, nil
}

// ArgMax returns the frequency of the largest value, the first one on
// ties.
func (s *Series) ArgMax() float64 {
	best := 0
	for k, v := range s.values {
		if v > s.values[best] {
			best = k
		}
	}
	return s.f0 + float64(best)*s.df
}

// Max returns the largest value.
func (s *Series) Max() unit.Quantity {
	best := s.values[0]
	for _, v := range s.values[1:] {
		if v > best {
			best = v
		}
	}
	return unit.Q(best, s.unit)
}

// Tabular renders the series with one row per bin. The value column is
// labeled by provenance and unit, e.g. "psd [1e-30 T^2 s]".
func (s *Series) Tabular() *tabular.Table {
	name := s.name
	if name == "" {
		name = "value"
	}
	out := tabular.New("frequency [Hz]", fmt.Sprintf("%s [%s]", name, s.unit))
	for k, v := range s.values {
		_ = out.Append(s.f0+float64(k)*s.df, v)
	}
	return out
}
