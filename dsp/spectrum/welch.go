package spectrum

import (
	"fmt"

	"github.com/cwbudde/algo-mcg/dsp/window"
	"github.com/cwbudde/algo-mcg/stats"
	"github.com/cwbudde/algo-vecmath"
)

// Average selects how Welch combines per-segment periodograms.
type Average int

const (
	// AverageMedian takes the per-bin median across segments and divides
	// by the small-sample median bias. Robust against burst artifacts,
	// which is why it is the default.
	AverageMedian Average = iota
	// AverageMean takes the per-bin arithmetic mean across segments.
	AverageMean
)

// Option configures Welch estimation.
type Option func(*welchConfig)

type welchConfig struct {
	segmentLength int
	overlap       int
	windowType    window.Type
	average       Average
}

// WithSegmentLength sets the samples per segment. Defaults to 256.
// Values larger than the signal are clamped to the signal length.
func WithSegmentLength(n int) Option {
	return func(c *welchConfig) {
		c.segmentLength = n
	}
}

// WithOverlap sets the samples shared between consecutive segments.
// Defaults to 0.
func WithOverlap(n int) Option {
	return func(c *welchConfig) {
		c.overlap = n
	}
}

// WithWindow sets the taper applied to each segment. Defaults to Hann.
// The periodic form is always used since segments are FFT frames.
func WithWindow(t window.Type) Option {
	return func(c *welchConfig) {
		c.windowType = t
	}
}

// WithAverage sets how per-segment periodograms are combined.
func WithAverage(a Average) Option {
	return func(c *welchConfig) {
		c.average = a
	}
}

// Welch estimates the one-sided power spectral density of signal using
// Welch's method of averaged modified periodograms.
//
// Each segment has its mean removed, is tapered by the configured window
// and transformed; periodograms are scaled by 1/(sampleRate*sum(w^2)) so
// the result is a density. All bins except DC and, for even segment
// lengths, Nyquist are doubled to fold negative frequencies in. The
// returned axis is freqs[k] = k*sampleRate/segmentLength with
// segmentLength/2+1 bins.
func Welch(signal []float64, sampleRate float64, opts ...Option) (freqs, psd []float64, err error) {
	if len(signal) < 2 {
		return nil, nil, fmt.Errorf("welch requires at least 2 samples: %d", len(signal))
	}
	if sampleRate <= 0 {
		return nil, nil, fmt.Errorf("welch sample rate must be > 0: %g", sampleRate)
	}

	cfg := welchConfig{
		segmentLength: 256,
		windowType:    window.TypeHann,
		average:       AverageMedian,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	nper := cfg.segmentLength
	if nper <= 0 {
		return nil, nil, fmt.Errorf("welch segment length must be > 0: %d", nper)
	}
	if nper > len(signal) {
		nper = len(signal)
	}
	if cfg.overlap < 0 || cfg.overlap >= nper {
		return nil, nil, fmt.Errorf("welch overlap %d out of range [0, %d)", cfg.overlap, nper)
	}

	win := window.Generate(cfg.windowType, nper, window.WithPeriodic())
	sumSq := 0.0
	for _, w := range win {
		sumSq += w * w
	}
	if sumSq == 0 {
		return nil, nil, fmt.Errorf("welch window has zero power")
	}
	scale := 1 / (sampleRate * sumSq)

	tr, err := newTransformer(nper)
	if err != nil {
		return nil, nil, err
	}

	step := nper - cfg.overlap
	nseg := (len(signal)-nper)/step + 1
	nbins := nper/2 + 1

	periodograms := make([][]float64, 0, nseg)
	seg := make([]float64, nper)
	for s := 0; s < nseg; s++ {
		start := s * step
		copy(seg, signal[start:start+nper])

		mean := stats.Mean(seg)
		for i := range seg {
			seg[i] -= mean
		}
		vecmath.MulBlockInPlace(seg, win)

		bins, err := tr.halfSpectrum(seg)
		if err != nil {
			return nil, nil, err
		}
		p := Power(bins)
		for k := range p {
			p[k] *= scale
		}
		// Fold the negative half in. DC has no mirror, and neither does
		// Nyquist when the segment length is even.
		last := nbins - 1
		if nper%2 != 0 {
			last = nbins
		}
		for k := 1; k < last; k++ {
			p[k] *= 2
		}
		periodograms = append(periodograms, p)
	}

	psd = make([]float64, nbins)
	switch cfg.average {
	case AverageMean:
		for _, p := range periodograms {
			for k := range psd {
				psd[k] += p[k]
			}
		}
		inv := 1 / float64(nseg)
		for k := range psd {
			psd[k] *= inv
		}
	default:
		bias := medianBias(nseg)
		column := make([]float64, nseg)
		for k := range psd {
			for s := range periodograms {
				column[s] = periodograms[s][k]
			}
			psd[k] = stats.Median(column) / bias
		}
	}

	freqs = make([]float64, nbins)
	df := sampleRate / float64(nper)
	for k := range freqs {
		freqs[k] = float64(k) * df
	}
	return freqs, psd, nil
}

// medianBias returns the expected ratio between the median and the mean
// of n independent exponentially distributed periodogram estimates:
// 1 + sum_{k=1}^{(n-1)/2} (1/(2k+1) - 1/(2k)). Dividing the median by
// this factor makes it a consistent estimator of the mean.
func medianBias(n int) float64 {
	bias := 1.0
	for k := 1; k <= (n-1)/2; k++ {
		bias += 1/float64(2*k+1) - 1/float64(2*k)
	}
	return bias
}
