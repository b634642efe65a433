package timeseries

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mcg/channel"
	"github.com/cwbudde/algo-mcg/epoch"
	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/unit"
)

// Snapshot is one instant cut across all channels: the per-channel
// values at a single sample together with the channel identity and
// geometry columns. It is the input shape the field-map reconstruction
// consumes.
type Snapshot struct {
	Values     []float64
	Unit       unit.Unit
	Epoch      float64
	Datetime   string
	Numbers    []int
	Labels     []string
	Positions  [][3]float64
	Directions [][3]float64
}

// channelIndex resolves a channel selector against the buffer's own
// numbers and labels, mirroring channel.Table.Lookup.
func (a *Array) channelIndex(ref channel.Ref) (int, error) {
	if ref.IsZero() {
		return 0, fmt.Errorf("timeseries: %s: %w", ref, errs.ErrDomain)
	}

	if n, ok := ref.Number(); ok {
		for i, num := range a.numbers {
			if num != n {
				continue
			}

			if label, okLabel := ref.Label(); okLabel && a.labels[i] != label {
				return 0, fmt.Errorf("timeseries: %s resolves to label %q: %w",
					ref, a.labels[i], errs.ErrAmbiguous)
			}

			return i, nil
		}

		return 0, fmt.Errorf("timeseries: %s: %w", ref, errs.ErrNotFound)
	}

	label, _ := ref.Label()
	for i, l := range a.labels {
		if l == label {
			return i, nil
		}
	}

	return 0, fmt.Errorf("timeseries: %s: %w", ref, errs.ErrNotFound)
}

// Read returns the selected channel as a single-channel buffer carrying
// that channel's identity and geometry.
func (a *Array) Read(ref channel.Ref) (*Array, error) {
	i, err := a.channelIndex(ref)
	if err != nil {
		return nil, err
	}

	data := [][]float64{append([]float64(nil), a.data[i]...)}

	return a.deriveSubset([]int{i}, data), nil
}

// Exclude returns the buffer without the named channels. Every selector
// must resolve, and at least one channel must remain.
func (a *Array) Exclude(refs ...channel.Ref) (*Array, error) {
	drop := make(map[int]struct{}, len(refs))
	for _, ref := range refs {
		i, err := a.channelIndex(ref)
		if err != nil {
			return nil, err
		}

		drop[i] = struct{}{}
	}

	keep := make([]int, 0, len(a.data)-len(drop))
	for i := range a.data {
		if _, gone := drop[i]; !gone {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		return nil, fmt.Errorf("timeseries: excluding every channel: %w", errs.ErrDomain)
	}

	data := make([][]float64, len(keep))
	for j, i := range keep {
		data[j] = append([]float64(nil), a.data[i]...)
	}

	return a.deriveSubset(keep, data), nil
}

// Crop returns the half-open time slice [start, end). Bounds outside
// the recorded span clamp to it; a slice that would be empty after
// clamping is rejected.
func (a *Array) Crop(start, end float64) (*Array, error) {
	if !(end > start) {
		return nil, fmt.Errorf("timeseries: crop span [%g, %g) is empty: %w", start, end, errs.ErrDomain)
	}

	// The epsilon keeps boundaries that land exactly on a sample from
	// drifting one bin under floating-point rounding.
	const eps = 1e-9

	n := a.Length()
	k0 := int(math.Ceil((start-a.t0)*a.sampleRate - eps))
	k1 := int(math.Ceil((end-a.t0)*a.sampleRate - eps))

	if k0 < 0 {
		k0 = 0
	}
	if k1 > n {
		k1 = n
	}

	if k1 <= k0 {
		return nil, fmt.Errorf("timeseries: crop span [%g, %g) misses the record: %w", start, end, errs.ErrDomain)
	}

	data := make([][]float64, len(a.data))
	for i, row := range a.data {
		data[i] = append([]float64(nil), row[k0:k1]...)
	}

	out := a.derive(data)
	out.t0 = a.t0 + float64(k0)/a.sampleRate
	out.datetime = epoch.Format(out.t0)

	return out, nil
}

// nearestIndex snaps a timestamp to the closest sample, preferring the
// earlier one on exact ties and clamping to the recorded span.
func (a *Array) nearestIndex(t float64) int {
	pos := (t - a.t0) * a.sampleRate
	k := math.Floor(pos)
	if pos-k > 0.5 {
		k++
	}

	if k < 0 {
		k = 0
	}

	if last := float64(a.Length() - 1); k > last {
		k = last
	}

	return int(k)
}

// At returns the snapshot at the sample nearest to t.
func (a *Array) At(t float64) (*Snapshot, error) {
	if math.IsNaN(t) {
		return nil, fmt.Errorf("timeseries: timestamp is NaN: %w", errs.ErrDomain)
	}

	k := a.nearestIndex(t)
	values := make([]float64, len(a.data))
	for i, row := range a.data {
		values[i] = row[k]
	}

	at := a.t0 + float64(k)/a.sampleRate

	return &Snapshot{
		Values:     values,
		Unit:       a.unit,
		Epoch:      at,
		Datetime:   epoch.Format(at),
		Numbers:    a.Numbers(),
		Labels:     a.Labels(),
		Positions:  a.Positions(),
		Directions: a.Directions(),
	}, nil
}

// Value returns the selected channel's sample nearest to t.
func (a *Array) Value(ref channel.Ref, t float64) (unit.Quantity, error) {
	i, err := a.channelIndex(ref)
	if err != nil {
		return unit.Quantity{}, err
	}

	if math.IsNaN(t) {
		return unit.Quantity{}, fmt.Errorf("timeseries: timestamp is NaN: %w", errs.ErrDomain)
	}

	return unit.Q(a.data[i][a.nearestIndex(t)], a.unit), nil
}

// ArgMax returns the timestamp of the largest sample across all
// channels, first occurrence in channel order on ties.
func (a *Array) ArgMax() float64 {
	bestRow, bestCol := 0, 0
	for i, row := range a.data {
		for k, x := range row {
			if x > a.data[bestRow][bestCol] {
				bestRow, bestCol = i, k
			}
		}
	}

	return a.t0 + float64(bestCol)/a.sampleRate
}

// ArgMin returns the timestamp of the smallest sample across all
// channels, first occurrence in channel order on ties.
func (a *Array) ArgMin() float64 {
	bestRow, bestCol := 0, 0
	for i, row := range a.data {
		for k, x := range row {
			if x < a.data[bestRow][bestCol] {
				bestRow, bestCol = i, k
			}
		}
	}

	return a.t0 + float64(bestCol)/a.sampleRate
}
