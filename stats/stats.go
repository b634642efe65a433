// Package stats provides the amplitude statistics used across the
// module: channel means and RMS levels, extrema with sample positions,
// medians for segment averaging, and the histogram mode that drives
// baseline estimation.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of the signal using Kahan summation.
// Returns 0 for empty input.
func Mean(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	var sum, c float64
	for _, x := range signal {
		y := x - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}

	return sum / float64(len(signal))
}

// RMS returns the root-mean-square of the signal. Returns 0 for empty
// input.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	var sumSq float64
	for _, x := range signal {
		sumSq += x * x
	}

	return math.Sqrt(sumSq / float64(len(signal)))
}

// MinMax returns the smallest and largest sample. Returns (0, 0) for
// empty input.
func MinMax(signal []float64) (minVal, maxVal float64) {
	if len(signal) == 0 {
		return 0, 0
	}

	minVal = signal[0]
	maxVal = signal[0]

	for _, x := range signal[1:] {
		if x < minVal {
			minVal = x
		}

		if x > maxVal {
			maxVal = x
		}
	}

	return minVal, maxVal
}

// ArgMax returns the index of the largest sample, first occurrence on
// ties. Returns -1 for empty input.
func ArgMax(signal []float64) int {
	if len(signal) == 0 {
		return -1
	}

	pos := 0
	for i, x := range signal[1:] {
		if x > signal[pos] {
			pos = i + 1
		}
	}

	return pos
}

// ArgMin returns the index of the smallest sample, first occurrence on
// ties. Returns -1 for empty input.
func ArgMin(signal []float64) int {
	if len(signal) == 0 {
		return -1
	}

	pos := 0
	for i, x := range signal[1:] {
		if x < signal[pos] {
			pos = i + 1
		}
	}

	return pos
}

// Median returns the median of the signal without modifying it. Even
// lengths average the two middle values. Returns 0 for empty input.
func Median(signal []float64) float64 {
	n := len(signal)
	if n == 0 {
		return 0
	}

	sorted := append([]float64(nil), signal...)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}

	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}

// HistogramMode estimates the modal amplitude by binning the signal
// into equal-width bins over its range and returning the midpoint of
// the most populated bin. Ties resolve to the lower bin. A flat signal
// returns its value directly. Returns 0 for empty input.
func HistogramMode(signal []float64, bins int) float64 {
	if len(signal) == 0 {
		return 0
	}

	if bins < 1 {
		bins = 1
	}

	minVal, maxVal := MinMax(signal)
	if minVal == maxVal {
		return minVal
	}

	counts := make([]int, bins)
	width := (maxVal - minVal) / float64(bins)

	for _, x := range signal {
		k := int((x - minVal) / width)
		if k >= bins { // the maximum lands in the last bin
			k = bins - 1
		}

		counts[k]++
	}

	best := 0
	for k, c := range counts {
		if c > counts[best] {
			best = k
		}
	}

	return minVal + (float64(best)+0.5)*width
}
