package timeseries

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mcg/dsp/spectrum"
	"github.com/cwbudde/algo-mcg/dsp/window"
	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/series"
	"github.com/cwbudde/algo-mcg/unit"
)

// SpectralOption configures PSD and ASD estimation.
type SpectralOption func(*spectralConfig)

type spectralConfig struct {
	segmentSeconds float64
	overlapSeconds float64
	windowType     window.Type
	average        spectrum.Average
}

// WithSegmentLength sets the Welch segment length in seconds. The
// default is the whole record, one segment.
func WithSegmentLength(seconds float64) SpectralOption {
	return func(c *spectralConfig) {
		c.segmentSeconds = seconds
	}
}

// WithOverlap sets the overlap between consecutive Welch segments in
// seconds. The default is 0.
func WithOverlap(seconds float64) SpectralOption {
	return func(c *spectralConfig) {
		c.overlapSeconds = seconds
	}
}

// WithSpectralWindow sets the segment taper. The default is Hann.
func WithSpectralWindow(t window.Type) SpectralOption {
	return func(c *spectralConfig) {
		c.windowType = t
	}
}

// WithAverage sets how per-segment periodograms are combined. The
// default is the bias-corrected median.
func WithAverage(avg spectrum.Average) SpectralOption {
	return func(c *spectralConfig) {
		c.average = avg
	}
}

// singleChannel hands out the lone channel's samples, rejecting
// multi-channel buffers: reduce via Read, ToAvg or ToRMS first.
func (a *Array) singleChannel() ([]float64, error) {
	if len(a.data) != 1 {
		return nil, fmt.Errorf("timeseries: spectral transform needs a single channel, have %d: %w",
			len(a.data), errs.ErrIncompatible)
	}

	if a.Length() < 2 {
		return nil, fmt.Errorf("timeseries: spectral transform needs at least 2 samples: %w", errs.ErrDomain)
	}

	return a.data[0], nil
}

// FFT returns the single-sided amplitude spectrum |X_k|/N on the exact
// DFT bin axis k*sampleRate/N, keeping the sample unit.
func (a *Array) FFT() (*series.Series, error) {
	ch, err := a.singleChannel()
	if err != nil {
		return nil, err
	}

	_, amps, err := spectrum.AmplitudeSpectrum(ch, a.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("timeseries: fft: %w", err)
	}

	df := a.sampleRate / float64(len(ch))

	return series.New(amps, a.unit, 0, df, "fft")
}

// PSD estimates the one-sided power spectral density by Welch's method:
// per-segment mean removal, tapering, density scaling and one-sided
// folding, segments combined by bias-corrected median or mean. The
// result carries unit squared times seconds.
func (a *Array) PSD(opts ...SpectralOption) (*series.Series, error) {
	ch, err := a.singleChannel()
	if err != nil {
		return nil, err
	}

	cfg := spectralConfig{windowType: window.TypeHann, average: spectrum.AverageMedian}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	segment := len(ch)
	if cfg.segmentSeconds != 0 {
		if math.IsNaN(cfg.segmentSeconds) || cfg.segmentSeconds < 0 {
			return nil, fmt.Errorf("timeseries: segment length %g s must be > 0: %w",
				cfg.segmentSeconds, errs.ErrDomain)
		}
		if cfg.segmentSeconds > a.Duration() {
			return nil, fmt.Errorf("timeseries: segment length %g s exceeds the %g s record: %w",
				cfg.segmentSeconds, a.Duration(), errs.ErrDomain)
		}

		segment = int(cfg.segmentSeconds * a.sampleRate)
	}
	if segment < 2 {
		return nil, fmt.Errorf("timeseries: segment of %d samples is too short: %w", segment, errs.ErrDomain)
	}

	overlap := 0
	if cfg.overlapSeconds != 0 {
		if math.IsNaN(cfg.overlapSeconds) || cfg.overlapSeconds < 0 {
			return nil, fmt.Errorf("timeseries: overlap %g s must be >= 0: %w",
				cfg.overlapSeconds, errs.ErrDomain)
		}

		overlap = int(cfg.overlapSeconds * a.sampleRate)
	}
	if overlap >= segment {
		return nil, fmt.Errorf("timeseries: overlap %g s covers the whole segment: %w",
			cfg.overlapSeconds, errs.ErrDomain)
	}

	freqs, psd, err := spectrum.Welch(ch, a.sampleRate,
		spectrum.WithSegmentLength(segment),
		spectrum.WithOverlap(overlap),
		spectrum.WithWindow(cfg.windowType),
		spectrum.WithAverage(cfg.average))
	if err != nil {
		return nil, fmt.Errorf("timeseries: psd: %w", err)
	}

	return series.New(psd, a.unit.Squared().Mul(unit.Second), 0, freqs[1]-freqs[0], "psd")
}

// ASD is the square root of the PSD, in unit times root-seconds.
func (a *Array) ASD(opts ...SpectralOption) (*series.Series, error) {
	psd, err := a.PSD(opts...)
	if err != nil {
		return nil, err
	}

	values := psd.Values()
	for i, v := range values {
		values[i] = math.Sqrt(v)
	}

	u, err := psd.Unit().Sqrt()
	if err != nil {
		return nil, fmt.Errorf("timeseries: asd: %w", err)
	}

	return series.New(values, u, psd.F0(), psd.Df(), "asd")
}
