package spectrum

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// transformer computes one-sided complex spectra for a fixed input length.
// Power-of-two lengths run on the radix-2 plan, everything else on the
// mixed-radix real transform. Scratch buffers are reused across calls, so
// one transformer can process many segments without allocating.
type transformer struct {
	n    int
	plan *algofft.Plan[complex128]
	fft  *fourier.FFT
	in   []complex128
	full []complex128
	half []complex128
}

func newTransformer(n int) (*transformer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("transform length must be > 0: %d", n)
	}
	t := &transformer{n: n, half: make([]complex128, n/2+1)}
	if n&(n-1) == 0 {
		plan, err := algofft.NewPlan64(n)
		if err != nil {
			return nil, fmt.Errorf("fft plan: %w", err)
		}
		t.plan = plan
		t.in = make([]complex128, n)
		t.full = make([]complex128, n)
		return t, nil
	}
	t.fft = fourier.NewFFT(n)
	return t, nil
}

// halfSpectrum returns the unnormalized DFT bins k = 0..n/2. The returned
// slice is owned by the transformer and overwritten on the next call.
func (t *transformer) halfSpectrum(signal []float64) ([]complex128, error) {
	if len(signal) != t.n {
		return nil, fmt.Errorf("transform input length %d, want %d", len(signal), t.n)
	}
	if t.plan != nil {
		for i, x := range signal {
			t.in[i] = complex(x, 0)
		}
		if err := t.plan.Forward(t.full, t.in); err != nil {
			return nil, fmt.Errorf("fft forward: %w", err)
		}
		copy(t.half, t.full[:len(t.half)])
		return t.half, nil
	}
	return t.fft.Coefficients(t.half, signal), nil
}

// AmplitudeSpectrum computes the single-sided amplitude spectrum of signal.
//
// Bin k holds |X[k]|/n for k < n/2, where X is the unnormalized DFT of the
// full signal, and freqs[k] = k*sampleRate/n. A sine of amplitude A at an
// exact bin frequency therefore shows up with height A/2. No window is
// applied and the mean is not removed.
func AmplitudeSpectrum(signal []float64, sampleRate float64) (freqs, amps []float64, err error) {
	if len(signal) < 2 {
		return nil, nil, fmt.Errorf("amplitude spectrum requires at least 2 samples: %d", len(signal))
	}
	if sampleRate <= 0 {
		return nil, nil, fmt.Errorf("amplitude spectrum sample rate must be > 0: %g", sampleRate)
	}

	n := len(signal)
	tr, err := newTransformer(n)
	if err != nil {
		return nil, nil, err
	}
	bins, err := tr.halfSpectrum(signal)
	if err != nil {
		return nil, nil, err
	}

	nbins := n / 2
	amps = Magnitude(bins[:nbins])
	inv := 1 / float64(n)
	freqs = make([]float64, nbins)
	for k := range amps {
		amps[k] *= inv
		freqs[k] = float64(k) * sampleRate * inv
	}
	return freqs, amps, nil
}
