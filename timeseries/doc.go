// Package timeseries holds the multi-channel sample buffer produced by
// magnetocardiography recordings and the operations the analysis chain
// applies to it: channel selection, time slicing, Butterworth and notch
// filtering, baseline and slope correction, kernel smoothing, peak
// finding, and spectral estimates.
//
// An Array is immutable once constructed: every operation returns a new
// Array with fresh backing storage and carries the channel metadata and
// time axis forward. Single-instant cuts come back as Snapshot values,
// frequency-domain results as series.Series.
package timeseries
