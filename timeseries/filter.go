package timeseries

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mcg/dsp/filter/biquad"
	"github.com/cwbudde/algo-mcg/dsp/filter/design"
	"github.com/cwbudde/algo-mcg/errs"
)

// flatteningFreq is the drift-estimate cutoff subtracted after
// filtering: a 2nd-order Butterworth lowpass at 1 Hz tracks the slow
// baseline wander of the magnetometers without touching cardiac bands.
const flatteningFreq = 1.0

// maxFilterOrder bounds the Butterworth cascade; beyond 8 the cascaded
// biquads stop buying selectivity that MCG data can resolve.
const maxFilterOrder = 8

// FilterOption configures the filter methods.
type FilterOption func(*filterConfig)

type filterConfig struct {
	order   int
	q       float64
	flatten bool
}

// WithOrder overrides the Butterworth order (1 to 8). The default is 4
// for Bandpass and 2 for Lowpass and Highpass.
func WithOrder(order int) FilterOption {
	return func(c *filterConfig) {
		c.order = order
	}
}

// WithQ overrides the notch quality factor. The default is 30.
func WithQ(q float64) FilterOption {
	return func(c *filterConfig) {
		c.q = q
	}
}

// WithoutFlattening disables the drift-removal step that follows the
// filter pass by default.
func WithoutFlattening() FilterOption {
	return func(c *filterConfig) {
		c.flatten = false
	}
}

// Bandpass keeps the band between low and high Hz: an order-n highpass
// cascade at low followed by an order-n lowpass cascade at high, run as
// one causal forward pass per channel.
func (a *Array) Bandpass(low, high float64, opts ...FilterOption) (*Array, error) {
	cfg := filterConfig{order: 4, flatten: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := a.checkCutoff(low); err != nil {
		return nil, err
	}
	if err := a.checkCutoff(high); err != nil {
		return nil, err
	}
	if low >= high {
		return nil, fmt.Errorf("timeseries: band edges %g >= %g Hz: %w", low, high, errs.ErrDomain)
	}
	if err := checkOrder(cfg.order); err != nil {
		return nil, err
	}

	rows := a.applySections(design.ButterworthBand(low, high, cfg.order, a.sampleRate))
	if cfg.flatten {
		a.flattenRows(rows)
	}

	return a.derive(rows), nil
}

// Lowpass keeps frequencies below freq Hz. Flattening is skipped when
// the cutoff itself is at or under the flattening frequency, where the
// kept band is the drift the flattening would remove.
func (a *Array) Lowpass(freq float64, opts ...FilterOption) (*Array, error) {
	cfg := filterConfig{order: 2, flatten: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := a.checkCutoff(freq); err != nil {
		return nil, err
	}
	if err := checkOrder(cfg.order); err != nil {
		return nil, err
	}

	rows := a.applySections(design.ButterworthLP(freq, cfg.order, a.sampleRate))
	if cfg.flatten && freq > flatteningFreq {
		a.flattenRows(rows)
	}

	return a.derive(rows), nil
}

// Highpass keeps frequencies above freq Hz.
func (a *Array) Highpass(freq float64, opts ...FilterOption) (*Array, error) {
	cfg := filterConfig{order: 2, flatten: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := a.checkCutoff(freq); err != nil {
		return nil, err
	}
	if err := checkOrder(cfg.order); err != nil {
		return nil, err
	}

	rows := a.applySections(design.ButterworthHP(freq, cfg.order, a.sampleRate))
	if cfg.flatten {
		a.flattenRows(rows)
	}

	return a.derive(rows), nil
}

// Notch suppresses a narrow band around freq Hz, typically the 50 or
// 60 Hz mains line and its harmonics.
func (a *Array) Notch(freq float64, opts ...FilterOption) (*Array, error) {
	cfg := filterConfig{q: 30, flatten: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := a.checkCutoff(freq); err != nil {
		return nil, err
	}
	if !(cfg.q > 0) {
		return nil, fmt.Errorf("timeseries: notch Q %g must be > 0: %w", cfg.q, errs.ErrDomain)
	}

	rows := a.applySections([]biquad.Coefficients{design.Notch(freq, cfg.q, a.sampleRate)})
	if cfg.flatten {
		a.flattenRows(rows)
	}

	return a.derive(rows), nil
}

// Flattened subtracts a 2nd-order Butterworth lowpass of the signal
// from itself, removing baseline drift below freq Hz per channel.
func (a *Array) Flattened(freq float64) (*Array, error) {
	if err := a.checkCutoff(freq); err != nil {
		return nil, err
	}

	rows := copyMatrix(a.data)
	subtractLowpassed(rows, freq, a.sampleRate)

	return a.derive(rows), nil
}

// applySections runs one biquad cascade over every channel, resetting
// the filter state between channels.
func (a *Array) applySections(sections []biquad.Coefficients) [][]float64 {
	chain := biquad.NewChain(sections)
	out := make([][]float64, len(a.data))
	for i, row := range a.data {
		buf := append([]float64(nil), row...)
		chain.Reset()
		chain.ProcessBlock(buf)
		out[i] = buf
	}

	return out
}

// flattenRows removes the sub-1 Hz drift from already-filtered rows in
// place. Skipped when the sample rate leaves no room below Nyquist for
// the drift estimate.
func (a *Array) flattenRows(rows [][]float64) {
	if flatteningFreq >= a.sampleRate/2 {
		return
	}

	subtractLowpassed(rows, flatteningFreq, a.sampleRate)
}

// subtractLowpassed subtracts a 2nd-order Butterworth lowpass at freq
// from every row, in place.
func subtractLowpassed(rows [][]float64, freq, sampleRate float64) {
	chain := biquad.NewChain(design.ButterworthLP(freq, 2, sampleRate))
	var drift []float64
	for _, row := range rows {
		drift = append(drift[:0], row...)
		chain.Reset()
		chain.ProcessBlock(drift)
		for k := range row {
			row[k] -= drift[k]
		}
	}
}

// checkCutoff validates a filter frequency against the Nyquist limit.
func (a *Array) checkCutoff(freq float64) error {
	nyquist := a.sampleRate / 2
	if math.IsNaN(freq) || freq <= 0 || freq >= nyquist {
		return fmt.Errorf("timeseries: cutoff %g Hz outside (0, %g): %w", freq, nyquist, errs.ErrDomain)
	}

	return nil
}

func checkOrder(order int) error {
	if order < 1 || order > maxFilterOrder {
		return fmt.Errorf("timeseries: filter order %d outside [1, %d]: %w", order, maxFilterOrder, errs.ErrDomain)
	}

	return nil
}
