// Package edfio writes field buffers as EDF recordings, the exchange
// format downstream viewers and annotation tools read. Only export is
// provided; acquisition-side raw formats are parsed elsewhere.
package edfio

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/OpenPSG/edf"

	"github.com/cwbudde/algo-mcg/epoch"
	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/stats"
	"github.com/cwbudde/algo-mcg/timeseries"
)

// Digital calibration range of exported signals.
const (
	digitalMin = -32767
	digitalMax = 32767
)

type config struct {
	patientID   string
	recordingID string
}

// Option adjusts the exported header.
type Option func(*config)

// WithPatientID sets the patient identification header field.
func WithPatientID(id string) Option {
	return func(c *config) { c.patientID = id }
}

// WithRecordingID sets the recording identification header field. It
// defaults to the buffer's device ID.
func WithRecordingID(id string) Option {
	return func(c *config) { c.recordingID = id }
}

// Export writes the buffer as an EDF recording with one data record
// per second. Signal labels and the physical dimension come from the
// buffer's channel labels and unit, per-signal calibration spans the
// observed data, and the start time is the buffer's t0. The sample
// rate must be a whole number of samples per second; a trailing
// partial second is zero padded.
func Export(w io.WriteSeeker, arr *timeseries.Array, opts ...Option) error {
	if arr == nil {
		return fmt.Errorf("edfio: nil buffer: %w", errs.ErrDomain)
	}
	rate := arr.SampleRate()
	if rate < 1 || rate != math.Trunc(rate) {
		return fmt.Errorf("edfio: sample rate %g is not a whole number per second: %w",
			rate, errs.ErrDomain)
	}
	perRecord := int(rate)

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.recordingID == "" {
		cfg.recordingID = arr.DeviceID()
	}

	data := arr.Samples()
	labels := arr.Labels()
	length := arr.Length()
	padded := length%perRecord != 0

	signals := make([]edf.Signal, len(data))
	for i, row := range data {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("edfio: channel %s carries non-finite samples: %w",
					labels[i], errs.ErrDomain)
			}
		}
		lo, hi := stats.MinMax(row)
		if lo == hi {
			lo, hi = lo-1, hi+1
		}
		if padded {
			// Padding samples are zero; zero must sit inside the
			// calibration range.
			lo = math.Min(lo, 0)
			hi = math.Max(hi, 0)
		}
		signals[i] = edf.Signal{
			Label:             clip(labels[i], 16),
			PhysicalDimension: clip(arr.Unit().String(), 8),
			PhysicalMin:       lo,
			PhysicalMax:       hi,
			DigitalMin:        digitalMin,
			DigitalMax:        digitalMax,
			SamplesPerRecord:  perRecord,
		}
	}

	ew, err := edf.Create(w, edf.Header{
		Version:            edf.Version0,
		PatientID:          cfg.patientID,
		RecordingID:        cfg.recordingID,
		StartTime:          epoch.Time(arr.T0()),
		DataRecordDuration: time.Second,
		SignalCount:        len(signals),
		Signals:            signals,
	})
	if err != nil {
		return fmt.Errorf("edfio: writing header: %w", err)
	}

	records := (length + perRecord - 1) / perRecord
	record := make([][]float64, len(data))
	for i := range record {
		record[i] = make([]float64, perRecord)
	}
	for r := 0; r < records; r++ {
		for i, row := range data {
			for k := 0; k < perRecord; k++ {
				idx := r*perRecord + k
				if idx < length {
					record[i][k] = row[idx]
				} else {
					record[i][k] = 0
				}
			}
		}
		if err := ew.WriteRecord(record); err != nil {
			return fmt.Errorf("edfio: writing record %d: %w", r, err)
		}
	}

	if err := ew.Close(); err != nil {
		return fmt.Errorf("edfio: finalizing header: %w", err)
	}
	return nil
}

// clip keeps a header field within its fixed EDF width.
func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
