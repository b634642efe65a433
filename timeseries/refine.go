package timeseries

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-mcg/dsp/conv"
	"github.com/cwbudde/algo-mcg/dsp/window"
	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/stats"
	"github.com/cwbudde/algo-mcg/unit"
)

// baselineBins is the histogram resolution for modal baseline guesses.
const baselineBins = 100

// OffsetCorrection rebases every channel onto its modal amplitude: the
// record is split into windows of interval seconds, each window votes
// with its histogram mode, and the median of the votes is subtracted.
// An interval longer than the record means one window.
func (a *Array) OffsetCorrection(interval float64) (*Array, error) {
	if math.IsNaN(interval) || interval <= 0 {
		return nil, fmt.Errorf("timeseries: offset interval %g s must be > 0: %w", interval, errs.ErrDomain)
	}

	win := int(interval * a.sampleRate)
	if win < 1 {
		return nil, fmt.Errorf("timeseries: offset interval %g s is shorter than one sample: %w",
			interval, errs.ErrDomain)
	}

	n := a.Length()
	if win > n {
		win = n
	}

	data := make([][]float64, len(a.data))
	for i, row := range a.data {
		var modes []float64
		for start := 0; start < n; start += win {
			end := start + win
			if end > n {
				end = n
			}

			modes = append(modes, stats.HistogramMode(row[start:end], baselineBins))
		}

		baseline := stats.Median(modes)
		out := make([]float64, n)
		for k, x := range row {
			out[k] = x - baseline
		}

		data[i] = out
	}

	return a.derive(data), nil
}

// OffsetCorrectionAt rebases every channel onto its value at the sample
// nearest to t, so all channels read zero there.
func (a *Array) OffsetCorrectionAt(t float64) (*Array, error) {
	if math.IsNaN(t) {
		return nil, fmt.Errorf("timeseries: timestamp is NaN: %w", errs.ErrDomain)
	}

	k := a.nearestIndex(t)
	data := make([][]float64, len(a.data))
	for i, row := range a.data {
		offset := row[k]
		out := make([]float64, len(row))
		for j, x := range row {
			out[j] = x - offset
		}

		data[i] = out
	}

	return a.derive(data), nil
}

// RMS reduces every channel to its root-mean-square over consecutive
// non-overlapping windows of stride seconds. The result keeps t0 and
// runs at 1/stride Hz; a trailing partial window is dropped.
func (a *Array) RMS(stride float64) (*Array, error) {
	if math.IsNaN(stride) || stride <= 0 {
		return nil, fmt.Errorf("timeseries: rms stride %g s must be > 0: %w", stride, errs.ErrDomain)
	}

	win := int(stride * a.sampleRate)
	if win < 1 {
		return nil, fmt.Errorf("timeseries: rms stride %g s is shorter than one sample: %w",
			stride, errs.ErrDomain)
	}

	count := a.Length() / win
	if count < 1 {
		return nil, fmt.Errorf("timeseries: rms stride %g s exceeds the record: %w", stride, errs.ErrDomain)
	}

	data := make([][]float64, len(a.data))
	for i, row := range a.data {
		out := make([]float64, count)
		for w := 0; w < count; w++ {
			out[w] = stats.RMS(row[w*win : (w+1)*win])
		}

		data[i] = out
	}

	out := a.derive(data)
	out.sampleRate = 1 / stride

	return out, nil
}

// Area returns per channel the mean absolute amplitude over [start, end)
// times the span duration, in unit-seconds.
func (a *Array) Area(start, end float64) ([]unit.Quantity, error) {
	cropped, err := a.Crop(start, end)
	if err != nil {
		return nil, err
	}

	span := cropped.Duration()
	qu := a.unit.Mul(unit.Second)
	out := make([]unit.Quantity, len(cropped.data))
	for i, row := range cropped.data {
		var sum float64
		for _, x := range row {
			sum += math.Abs(x)
		}

		out[i] = unit.Q(sum/float64(len(row))*span, qu)
	}

	return out, nil
}

// Integral returns per channel the signed mean amplitude over
// [start, end) times the span duration, in unit-seconds.
func (a *Array) Integral(start, end float64) ([]unit.Quantity, error) {
	cropped, err := a.Crop(start, end)
	if err != nil {
		return nil, err
	}

	span := cropped.Duration()
	qu := a.unit.Mul(unit.Second)
	out := make([]unit.Quantity, len(cropped.data))
	for i, row := range cropped.data {
		out[i] = unit.Q(stats.Mean(row)*span, qu)
	}

	return out, nil
}

// ToAvg reduces all channels to one by the across-channel mean at each
// sample. The summary channel has no sensor geometry.
func (a *Array) ToAvg() (*Array, error) {
	return a.reduceAcross("avg", stats.Mean)
}

// ToRMS reduces all channels to one by the across-channel RMS at each
// sample. The summary channel has no sensor geometry.
func (a *Array) ToRMS() (*Array, error) {
	return a.reduceAcross("rms", stats.RMS)
}

func (a *Array) reduceAcross(label string, reduce func([]float64) float64) (*Array, error) {
	if len(a.data) == 1 {
		return nil, fmt.Errorf("timeseries: %s needs more than one channel: %w", label, errs.ErrIncompatible)
	}

	n := a.Length()
	row := make([]float64, n)
	column := make([]float64, len(a.data))
	for k := 0; k < n; k++ {
		for i := range a.data {
			column[i] = a.data[i][k]
		}

		row[k] = reduce(column)
	}

	out := a.derive([][]float64{row})
	out.numbers = []int{1}
	out.labels = []string{label}
	out.positions = nil
	out.directions = nil

	return out, nil
}

// SmoothOption configures Smooth.
type SmoothOption func(*smoothConfig)

type smoothConfig struct {
	windowLen  int
	windowType window.Type
}

// WithWindowLen sets the smoothing kernel length in samples. The
// default is 20; lengths under 3 leave the signal unchanged.
func WithWindowLen(n int) SmoothOption {
	return func(c *smoothConfig) {
		c.windowLen = n
	}
}

// WithSmoothWindow sets the kernel shape. The default is Hamming; the
// rectangular kernel gives a plain moving average.
func WithSmoothWindow(t window.Type) SmoothOption {
	return func(c *smoothConfig) {
		c.windowType = t
	}
}

// Smooth convolves every channel with a normalized window kernel. The
// signal is extended by reflected copies on both ends first, so the
// output has no edge transients and keeps the input length.
func (a *Array) Smooth(opts ...SmoothOption) (*Array, error) {
	cfg := smoothConfig{windowLen: 20, windowType: window.TypeHamming}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	wl := cfg.windowLen
	if wl < 3 {
		return a.derive(copyMatrix(a.data)), nil
	}

	n := a.Length()
	if wl > n {
		return nil, fmt.Errorf("timeseries: smoothing window %d exceeds %d samples: %w", wl, n, errs.ErrDomain)
	}

	kernel := window.Generate(cfg.windowType, wl)
	var sum float64
	for _, w := range kernel {
		sum += w
	}
	if sum == 0 {
		return nil, fmt.Errorf("timeseries: smoothing kernel %s[%d] sums to zero: %w",
			cfg.windowType, wl, errs.ErrDomain)
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	data := make([][]float64, len(a.data))
	for i, row := range a.data {
		padded := reflectPad(row, wl-1)
		smoothed, err := conv.Convolve(padded, kernel, conv.ModeValid)
		if err != nil {
			return nil, fmt.Errorf("timeseries: smooth: %w", err)
		}

		// Valid-mode output spans n+wl-1 samples; cut the centered n.
		front := wl / 2
		data[i] = append([]float64(nil), smoothed[front:front+n]...)
	}

	return a.derive(data), nil
}

// reflectPad extends x by p mirrored samples on each side, excluding
// the edge sample itself. Requires p < len(x).
func reflectPad(x []float64, p int) []float64 {
	n := len(x)
	out := make([]float64, 0, n+2*p)
	for i := p; i >= 1; i-- {
		out = append(out, x[i])
	}

	out = append(out, x...)
	for i := n - 2; i >= n-1-p; i-- {
		out = append(out, x[i])
	}

	return out
}

// SlopeCorrection subtracts from every channel the line through its
// first and last sample, removing linear trend across the record.
func (a *Array) SlopeCorrection() *Array {
	n := a.Length()
	data := make([][]float64, len(a.data))
	for i, row := range a.data {
		slope := (row[n-1] - row[0]) / float64(n)
		intercept := row[0]
		out := make([]float64, n)
		for k, x := range row {
			out[k] = x - (slope*float64(k) + intercept)
		}

		data[i] = out
	}

	return a.derive(data)
}

// PeakOption configures FindPeaks.
type PeakOption func(*peakConfig)

type peakConfig struct {
	heightRatio  float64
	minHeight    float64
	hasMinHeight bool
	minDistance  float64
	minProm      float64
	hasMinProm   bool
	minWidth     float64
	hasMinWidth  bool
}

// WithHeightRatio sets the height threshold as a fraction of the global
// maximum. The default is 0.85.
func WithHeightRatio(ratio float64) PeakOption {
	return func(c *peakConfig) {
		c.heightRatio = ratio
	}
}

// WithMinHeight sets an absolute height threshold, replacing the
// ratio-of-maximum default.
func WithMinHeight(height float64) PeakOption {
	return func(c *peakConfig) {
		c.minHeight = height
		c.hasMinHeight = true
	}
}

// WithMinDistance enforces a minimal spacing between peaks in seconds;
// smaller peaks are removed first.
func WithMinDistance(seconds float64) PeakOption {
	return func(c *peakConfig) {
		c.minDistance = seconds
	}
}

// WithMinProminence keeps only peaks that rise at least this far above
// their surrounding bases.
func WithMinProminence(prominence float64) PeakOption {
	return func(c *peakConfig) {
		c.minProm = prominence
		c.hasMinProm = true
	}
}

// WithMinWidth keeps only peaks at least this wide, in samples,
// measured at half prominence.
func WithMinWidth(samples float64) PeakOption {
	return func(c *peakConfig) {
		c.minWidth = samples
		c.hasMinWidth = true
	}
}

// FindPeaks locates local maxima in a single-channel buffer and returns
// their timestamps. Plateaus report their left edge. Candidates are
// filtered by height, spacing, prominence and width in that order.
func (a *Array) FindPeaks(opts ...PeakOption) ([]float64, error) {
	if len(a.data) != 1 {
		return nil, fmt.Errorf("timeseries: peak finding needs a single channel, have %d: %w",
			len(a.data), errs.ErrIncompatible)
	}

	cfg := peakConfig{heightRatio: 0.85}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	row := a.data[0]
	peaks := localMaxima(row)

	threshold := cfg.minHeight
	if !cfg.hasMinHeight {
		_, maxVal := stats.MinMax(row)
		threshold = cfg.heightRatio * maxVal
	}

	kept := peaks[:0]
	for _, p := range peaks {
		if row[p] >= threshold {
			kept = append(kept, p)
		}
	}
	peaks = kept

	if cfg.minDistance > 0 {
		peaks = selectByDistance(peaks, row, math.Ceil(cfg.minDistance*a.sampleRate))
	}

	if cfg.hasMinProm || cfg.hasMinWidth {
		kept = peaks[:0]
		for _, p := range peaks {
			prom := peakProminence(row, p)
			if cfg.hasMinProm && prom < cfg.minProm {
				continue
			}
			if cfg.hasMinWidth && peakWidth(row, p, prom) < cfg.minWidth {
				continue
			}

			kept = append(kept, p)
		}
		peaks = kept
	}

	times := make([]float64, len(peaks))
	for i, p := range peaks {
		times[i] = a.t0 + float64(p)/a.sampleRate
	}

	return times, nil
}

// localMaxima returns the indices of strict local maxima; a flat top
// counts once, at its left edge.
func localMaxima(x []float64) []int {
	var peaks []int
	n := len(x)
	i := 1
	for i < n-1 {
		if x[i] > x[i-1] {
			j := i
			for j < n-1 && x[j+1] == x[i] {
				j++
			}

			if j < n-1 && x[j+1] < x[i] {
				peaks = append(peaks, i)
			}

			i = j + 1
			continue
		}

		i++
	}

	return peaks
}

// selectByDistance drops peaks closer than distance samples to a higher
// peak, highest first.
func selectByDistance(peaks []int, x []float64, distance float64) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(u, v int) bool {
		return x[peaks[order[u]]] > x[peaks[order[v]]]
	})

	removed := make([]bool, len(peaks))
	for _, j := range order {
		if removed[j] {
			continue
		}

		for k := j - 1; k >= 0 && float64(peaks[j]-peaks[k]) < distance; k-- {
			removed[k] = true
		}
		for k := j + 1; k < len(peaks) && float64(peaks[k]-peaks[j]) < distance; k++ {
			removed[k] = true
		}
	}

	var out []int
	for i, p := range peaks {
		if !removed[i] {
			out = append(out, p)
		}
	}

	return out
}

// peakProminence measures how far a peak rises above the higher of the
// two valley minima that separate it from taller terrain or the edges.
func peakProminence(x []float64, peak int) float64 {
	leftMin := x[peak]
	for j := peak - 1; j >= 0 && x[j] <= x[peak]; j-- {
		if x[j] < leftMin {
			leftMin = x[j]
		}
	}

	rightMin := x[peak]
	for j := peak + 1; j < len(x) && x[j] <= x[peak]; j++ {
		if x[j] < rightMin {
			rightMin = x[j]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}

	return x[peak] - base
}

// peakWidth measures a peak's width in samples where the signal crosses
// half its prominence, linearly interpolated between samples.
func peakWidth(x []float64, peak int, prominence float64) float64 {
	h := x[peak] - 0.5*prominence
	n := len(x)

	left := 0.0
	for j := peak; j > 0; j-- {
		if x[j-1] < h {
			left = float64(j) - (x[j]-h)/(x[j]-x[j-1])
			break
		}
	}

	right := float64(n - 1)
	for j := peak; j < n-1; j++ {
		if x[j+1] < h {
			right = float64(j) + (x[j]-h)/(x[j]-x[j+1])
			break
		}
	}

	return right - left
}
