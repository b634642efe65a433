package timeseries

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mcg/channel"
	"github.com/cwbudde/algo-mcg/epoch"
	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/unit"
)

// Array is a multi-channel recording buffer: one sample row per channel
// over a shared uniform time axis, tagged with a physical unit and the
// per-channel identity and geometry read from the sensor configuration.
//
// Construct with New or NewFromRecord; the zero Array is not usable.
// All fields are fixed after construction except the free-text note.
type Array struct {
	data       [][]float64
	numbers    []int
	labels     []string
	positions  [][3]float64
	directions [][3]float64
	unit       unit.Unit
	t0         float64
	sampleRate float64
	datetime   string
	deviceID   string
	note       string
}

// Record carries everything a file reader hands over to build an Array.
// Zero fields fall back to the construction defaults, so a reader only
// fills what its format provides. A zero Unit falls back to femtotesla.
type Record struct {
	Samples    [][]float64
	Numbers    []int
	Labels     []string
	Positions  [][3]float64
	Directions [][3]float64
	Unit       unit.Unit
	T0         float64
	SampleRate float64
	Datetime   string
	DeviceID   string
	Note       string
}

// Option configures construction.
type Option func(*config)

type config struct {
	numbers    []int
	labels     []string
	positions  [][3]float64
	directions [][3]float64
	unit       unit.Unit
	unitSet    bool
	t0         float64
	sampleRate float64
	srSet      bool
	times      []float64
	datetime   string
	deviceID   string
	note       string
}

// WithNumbers sets the per-channel hardware numbers. Defaults to 1..n.
func WithNumbers(numbers []int) Option {
	return func(c *config) {
		c.numbers = numbers
	}
}

// WithLabels sets the per-channel labels. Defaults to "ch<number>".
func WithLabels(labels []string) Option {
	return func(c *config) {
		c.labels = labels
	}
}

// WithChannels fills numbers, labels, positions and directions from a
// sensor table. Later options override individual columns.
func WithChannels(table channel.Table) Option {
	return func(c *config) {
		c.numbers = table.Numbers()
		c.labels = table.Labels()
		c.positions = table.Positions()
		c.directions = table.Directions()
	}
}

// WithPositions sets the sensor positions, one (x, y, z) mm row per
// channel.
func WithPositions(positions [][3]float64) Option {
	return func(c *config) {
		c.positions = positions
	}
}

// WithDirections sets the sensor pickup directions, one vector per
// channel.
func WithDirections(directions [][3]float64) Option {
	return func(c *config) {
		c.directions = directions
	}
}

// WithUnit sets the sample unit. Defaults to femtotesla.
func WithUnit(u unit.Unit) Option {
	return func(c *config) {
		c.unit = u
		c.unitSet = true
	}
}

// WithT0 sets the timestamp of the first sample. Defaults to 0.
func WithT0(t0 float64) Option {
	return func(c *config) {
		c.t0 = t0
	}
}

// WithSampleRate sets the sample rate in Hz. Defaults to 1.
func WithSampleRate(rate float64) Option {
	return func(c *config) {
		c.sampleRate = rate
		c.srSet = true
	}
}

// WithTimes derives t0 and the sample rate from an explicit time axis,
// overriding WithT0 and WithSampleRate. The axis must have one entry
// per sample and advance in uniform steps (relative tolerance 1e-9).
func WithTimes(times []float64) Option {
	return func(c *config) {
		c.times = times
	}
}

// WithDatetime sets the human-readable start time. When left empty it
// is derived from t0; when set while t0 is zero, t0 is parsed from it.
func WithDatetime(datetime string) Option {
	return func(c *config) {
		c.datetime = datetime
	}
}

// WithDeviceID records the acquisition device identifier.
func WithDeviceID(id string) Option {
	return func(c *config) {
		c.deviceID = id
	}
}

// WithNote attaches a free-text note.
func WithNote(note string) Option {
	return func(c *config) {
		c.note = note
	}
}

// New builds an Array from a channels-by-samples matrix. The matrix
// must be rectangular with at least one channel and one sample, and
// every provided metadata slice must have one entry per channel.
func New(samples [][]float64, opts ...Option) (*Array, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("timeseries: empty sample matrix: %w", errs.ErrShape)
	}

	n := len(samples[0])
	if n == 0 {
		return nil, fmt.Errorf("timeseries: channel 0 has no samples: %w", errs.ErrShape)
	}

	for i, row := range samples {
		if len(row) != n {
			return nil, fmt.Errorf("timeseries: channel %d has %d samples, channel 0 has %d: %w",
				i, len(row), n, errs.ErrShape)
		}
	}

	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	a := &Array{
		data:       copyMatrix(samples),
		unit:       unit.Femtotesla,
		t0:         cfg.t0,
		sampleRate: 1,
		datetime:   cfg.datetime,
		deviceID:   cfg.deviceID,
		note:       cfg.note,
	}
	if cfg.unitSet {
		a.unit = cfg.unit
	}

	rows := len(samples)
	if cfg.numbers != nil {
		if len(cfg.numbers) != rows {
			return nil, fmt.Errorf("timeseries: %d numbers for %d channels: %w",
				len(cfg.numbers), rows, errs.ErrShape)
		}

		a.numbers = append([]int(nil), cfg.numbers...)
	} else {
		a.numbers = make([]int, rows)
		for i := range a.numbers {
			a.numbers[i] = i + 1
		}
	}

	seen := make(map[int]struct{}, rows)
	for _, num := range a.numbers {
		if _, dup := seen[num]; dup {
			return nil, fmt.Errorf("timeseries: duplicate channel number %d: %w", num, errs.ErrDomain)
		}

		seen[num] = struct{}{}
	}

	if cfg.labels != nil {
		if len(cfg.labels) != rows {
			return nil, fmt.Errorf("timeseries: %d labels for %d channels: %w",
				len(cfg.labels), rows, errs.ErrShape)
		}

		a.labels = append([]string(nil), cfg.labels...)
	} else {
		a.labels = make([]string, rows)
		for i, num := range a.numbers {
			a.labels[i] = fmt.Sprintf("ch%d", num)
		}
	}

	if cfg.positions != nil {
		if len(cfg.positions) != rows {
			return nil, fmt.Errorf("timeseries: %d positions for %d channels: %w",
				len(cfg.positions), rows, errs.ErrShape)
		}

		a.positions = append([][3]float64(nil), cfg.positions...)
	}

	if cfg.directions != nil {
		if len(cfg.directions) != rows {
			return nil, fmt.Errorf("timeseries: %d directions for %d channels: %w",
				len(cfg.directions), rows, errs.ErrShape)
		}

		a.directions = append([][3]float64(nil), cfg.directions...)
	}

	if cfg.srSet {
		if math.IsNaN(cfg.sampleRate) || math.IsInf(cfg.sampleRate, 0) || cfg.sampleRate <= 0 {
			return nil, fmt.Errorf("timeseries: sample rate %g must be > 0: %w",
				cfg.sampleRate, errs.ErrDomain)
		}

		a.sampleRate = cfg.sampleRate
	}

	if cfg.times != nil {
		if err := a.applyTimes(cfg.times); err != nil {
			return nil, err
		}
	}

	if a.datetime == "" {
		a.datetime = epoch.Format(a.t0)
	} else if a.t0 == 0 && cfg.times == nil {
		ts, err := epoch.Parse(a.datetime)
		if err != nil {
			return nil, fmt.Errorf("timeseries: datetime: %w", err)
		}

		a.t0 = ts
	}

	return a, nil
}

// NewFromRecord builds an Array from a reader record, mapping its
// non-zero fields onto the corresponding options.
func NewFromRecord(rec Record) (*Array, error) {
	opts := make([]Option, 0, 10)
	if rec.Numbers != nil {
		opts = append(opts, WithNumbers(rec.Numbers))
	}
	if rec.Labels != nil {
		opts = append(opts, WithLabels(rec.Labels))
	}
	if rec.Positions != nil {
		opts = append(opts, WithPositions(rec.Positions))
	}
	if rec.Directions != nil {
		opts = append(opts, WithDirections(rec.Directions))
	}
	if rec.Unit != (unit.Unit{}) {
		opts = append(opts, WithUnit(rec.Unit))
	}
	if rec.T0 != 0 {
		opts = append(opts, WithT0(rec.T0))
	}
	if rec.SampleRate != 0 {
		opts = append(opts, WithSampleRate(rec.SampleRate))
	}
	if rec.Datetime != "" {
		opts = append(opts, WithDatetime(rec.Datetime))
	}
	if rec.DeviceID != "" {
		opts = append(opts, WithDeviceID(rec.DeviceID))
	}
	if rec.Note != "" {
		opts = append(opts, WithNote(rec.Note))
	}

	return New(rec.Samples, opts...)
}

// applyTimes re-expresses an explicit time axis as t0 and sample rate.
func (a *Array) applyTimes(times []float64) error {
	n := a.Length()
	if len(times) != n {
		return fmt.Errorf("timeseries: %d times for %d samples: %w", len(times), n, errs.ErrDomain)
	}

	a.t0 = times[0]
	if n == 1 {
		return nil
	}

	dt := (times[n-1] - times[0]) / float64(n-1)
	if !(dt > 0) {
		return fmt.Errorf("timeseries: times must be strictly increasing: %w", errs.ErrDomain)
	}

	tol := 1e-9 * dt
	for k := 0; k < n-1; k++ {
		step := times[k+1] - times[k]
		if !(math.Abs(step-dt) <= tol) {
			return fmt.Errorf("timeseries: non-uniform time step at index %d: %g vs %g: %w",
				k, step, dt, errs.ErrDomain)
		}
	}

	a.sampleRate = 1 / dt

	return nil
}

// Samples returns a deep copy of the channels-by-samples matrix.
func (a *Array) Samples() [][]float64 {
	return copyMatrix(a.data)
}

// Channel returns a copy of the i-th channel's samples, or nil when i
// is out of range.
func (a *Array) Channel(i int) []float64 {
	if i < 0 || i >= len(a.data) {
		return nil
	}

	return append([]float64(nil), a.data[i]...)
}

// Rows returns the channel count.
func (a *Array) Rows() int {
	return len(a.data)
}

// Length returns the sample count per channel.
func (a *Array) Length() int {
	return len(a.data[0])
}

// Numbers returns the per-channel hardware numbers.
func (a *Array) Numbers() []int {
	return append([]int(nil), a.numbers...)
}

// Labels returns the per-channel labels.
func (a *Array) Labels() []string {
	return append([]string(nil), a.labels...)
}

// Positions returns the sensor positions, or nil when the buffer
// carries no geometry.
func (a *Array) Positions() [][3]float64 {
	if a.positions == nil {
		return nil
	}

	return append([][3]float64(nil), a.positions...)
}

// Directions returns the sensor pickup directions, or nil when the
// buffer carries no geometry.
func (a *Array) Directions() [][3]float64 {
	if a.directions == nil {
		return nil
	}

	return append([][3]float64(nil), a.directions...)
}

// HasGeometry reports whether every channel carries a position and a
// direction.
func (a *Array) HasGeometry() bool {
	return a.positions != nil && a.directions != nil
}

// Channels assembles the per-channel identity and geometry into a
// sensor table, e.g. for rendering via its Tabular method.
func (a *Array) Channels() channel.Table {
	t := make(channel.Table, len(a.numbers))
	for i := range t {
		e := channel.Entry{Number: a.numbers[i], Label: a.labels[i]}
		if a.positions != nil {
			e.Position = a.positions[i]
		}
		if a.directions != nil {
			e.Direction = a.directions[i]
		}

		t[i] = e
	}

	return t
}

// Unit returns the sample unit.
func (a *Array) Unit() unit.Unit {
	return a.unit
}

// T0 returns the timestamp of the first sample.
func (a *Array) T0() float64 {
	return a.t0
}

// SampleRate returns the sample rate in Hz.
func (a *Array) SampleRate() float64 {
	return a.sampleRate
}

// Dt returns the sample spacing in seconds.
func (a *Array) Dt() float64 {
	return 1 / a.sampleRate
}

// Duration returns the covered span in seconds, sample count times Dt.
func (a *Array) Duration() float64 {
	return float64(a.Length()) / a.sampleRate
}

// Times returns the time axis t0 + k*Dt.
func (a *Array) Times() []float64 {
	out := make([]float64, a.Length())
	dt := 1 / a.sampleRate
	for k := range out {
		out[k] = a.t0 + float64(k)*dt
	}

	return out
}

// Datetime returns the human-readable start time.
func (a *Array) Datetime() string {
	return a.datetime
}

// DeviceID returns the acquisition device identifier.
func (a *Array) DeviceID() string {
	return a.deviceID
}

// Note returns the free-text note.
func (a *Array) Note() string {
	return a.note
}

// SetNote replaces the free-text note. This is the single in-place
// mutation an Array supports; it is not synchronized.
func (a *Array) SetNote(note string) {
	a.note = note
}

// derive returns a new Array with the given backing data and the
// receiver's metadata. Metadata slices are shared since nothing mutates
// them after construction.
func (a *Array) derive(data [][]float64) *Array {
	out := *a
	out.data = data

	return &out
}

// deriveSubset returns a new Array keeping only the channels named by
// idx, in idx order, with the given backing data.
func (a *Array) deriveSubset(idx []int, data [][]float64) *Array {
	out := *a
	out.data = data
	out.numbers = make([]int, len(idx))
	out.labels = make([]string, len(idx))
	for j, i := range idx {
		out.numbers[j] = a.numbers[i]
		out.labels[j] = a.labels[i]
	}

	if a.positions != nil {
		out.positions = make([][3]float64, len(idx))
		for j, i := range idx {
			out.positions[j] = a.positions[i]
		}
	}

	if a.directions != nil {
		out.directions = make([][3]float64, len(idx))
		for j, i := range idx {
			out.directions[j] = a.directions[i]
		}
	}

	return &out
}

func copyMatrix(src [][]float64) [][]float64 {
	out := make([][]float64, len(src))
	for i, row := range src {
		out[i] = append([]float64(nil), row...)
	}

	return out
}
