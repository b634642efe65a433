// Package fieldmap reconstructs current source maps from measured
// field buffers. Construction runs the full inverse pipeline once:
// source and sensor planes are meshed, the forward lead field is
// assembled, its truncated-SVD pseudo-inverse recovers dipole
// amplitudes, and a virtual magnetometer plane turns those amplitudes
// into a field frame per instant. Arrow tables, tangential current
// maps and pole geometry are derived from the cached frames on
// request.
package fieldmap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/inverse/grid"
	"github.com/cwbudde/algo-mcg/inverse/leadfield"
	"github.com/cwbudde/algo-mcg/tabular"
	"github.com/cwbudde/algo-mcg/timeseries"
	"github.com/cwbudde/algo-mcg/unit"
)

// DefaultEigenvalues is the number of singular values kept by the
// pseudo-inverse when no option overrides it.
const DefaultEigenvalues = 10

// Kind tells an instant map from an interval map.
type Kind int

const (
	KindInstant Kind = iota
	KindInterval
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindInstant:
		return "instant"
	case KindInterval:
		return "interval"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Map is the surface shared by instant and interval reconstructions.
// Frames returns one n x n field frame per instant; Instant and
// Interval add their own time metadata and arrow tables on top.
type Map interface {
	Kind() Kind
	Unit() unit.Unit
	N() int
	X() [][]float64
	Y() [][]float64
	Frames() [][][]float64
	Currents() *CurrentMap
	Pole() *tabular.Table
}

type config struct {
	sourceWidth    float64
	sourceHeight   float64
	sourceInterval float64
	sensorWidth    float64
	sensorHeight   float64
	sensorInterval float64
	baseline       float64
	axis           leadfield.Axis
	model          leadfield.Model
	eigenvalues    int
}

func defaultConfig() config {
	return config{
		sourceWidth:    grid.DefaultSourceWidth,
		sourceHeight:   grid.DefaultSourceHeight,
		sourceInterval: grid.DefaultSourceInterval,
		sensorWidth:    grid.DefaultSensorWidth,
		sensorHeight:   grid.DefaultSensorHeight,
		sensorInterval: grid.DefaultSensorInterval,
		baseline:       grid.DefaultBaseline,
		axis:           leadfield.AxisZ,
		model:          leadfield.ModelHorizontal,
		eigenvalues:    DefaultEigenvalues,
	}
}

// Option adjusts the reconstruction geometry and solver.
type Option func(*config)

// WithSourceGrid places the dipole plane, in millimetres.
func WithSourceGrid(width, height, interval float64) Option {
	return func(c *config) {
		c.sourceWidth = width
		c.sourceHeight = height
		c.sourceInterval = interval
	}
}

// WithSensorGrid places the virtual readout plane, in millimetres.
func WithSensorGrid(width, height, interval float64) Option {
	return func(c *config) {
		c.sensorWidth = width
		c.sensorHeight = height
		c.sensorInterval = interval
	}
}

// WithBaseline sets the gradiometer baseline in millimetres. Zero
// treats the sensors as magnetometers.
func WithBaseline(mm float64) Option {
	return func(c *config) { c.baseline = mm }
}

// WithAxis selects the dipole component axis of the source plane.
func WithAxis(axis leadfield.Axis) Option {
	return func(c *config) { c.axis = axis }
}

// WithModel selects the forward kernel.
func WithModel(model leadfield.Model) Option {
	return func(c *config) { c.model = model }
}

// WithEigenvalues sets how many singular values the pseudo-inverse
// keeps.
func WithEigenvalues(n int) Option {
	return func(c *config) { c.eigenvalues = n }
}

// solver carries the construction-time pipeline products. Derived
// artifacts never touch it again; only the frames survive.
type solver struct {
	sen *grid.Grid
	inv *mat.Dense
	vir *mat.Dense
}

func newSolver(positions, directions [][3]float64, cfg config) (*solver, error) {
	if cfg.eigenvalues < 1 {
		return nil, fmt.Errorf("fieldmap: %d eigenvalues: %w", cfg.eigenvalues, errs.ErrDomain)
	}

	src, err := grid.New(cfg.sourceWidth, cfg.sourceHeight, cfg.sourceInterval)
	if err != nil {
		return nil, err
	}
	sen, err := grid.New(cfg.sensorWidth, cfg.sensorHeight, cfg.sensorInterval)
	if err != nil {
		return nil, err
	}

	fwd, err := leadfield.Build(positions, directions, src, cfg.model, cfg.axis, cfg.baseline)
	if err != nil {
		return nil, err
	}
	inv, err := fwd.PseudoInverse(cfg.eigenvalues)
	if err != nil {
		return nil, err
	}
	// The readout plane always picks up the z component, whatever the
	// dipole axis is.
	vir, err := fwd.Virtual(sen, leadfield.AxisZ)
	if err != nil {
		return nil, err
	}

	return &solver{sen: sen, inv: inv, vir: vir}, nil
}

// frame maps one vector of sensor readings onto the readout plane.
func (s *solver) frame(values []float64) [][]float64 {
	b := mat.NewVecDense(len(values), append([]float64(nil), values...))

	var amp mat.VecDense
	amp.MulVec(s.inv, b)
	var field mat.VecDense
	field.MulVec(s.vir, &amp)

	n := s.sen.N()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = field.AtVec(i*n + j)
		}
	}
	return out
}

// Instant is the reconstruction of a single snapshot.
type Instant struct {
	frame    [][]float64
	x, y     [][]float64
	n        int
	interval float64
	u        unit.Unit
	epoch    float64
	datetime string
}

var _ Map = (*Instant)(nil)

// NewInstant reconstructs the source map of one snapshot. The snapshot
// must carry sensor positions and directions.
func NewInstant(snap *timeseries.Snapshot, opts ...Option) (*Instant, error) {
	if snap == nil {
		return nil, fmt.Errorf("fieldmap: nil snapshot: %w", errs.ErrDomain)
	}
	if len(snap.Values) == 0 {
		return nil, fmt.Errorf("fieldmap: empty snapshot: %w", errs.ErrDomain)
	}
	if len(snap.Positions) == 0 || len(snap.Directions) == 0 {
		return nil, fmt.Errorf("fieldmap: snapshot carries no sensor geometry: %w", errs.ErrIncompatible)
	}
	if len(snap.Positions) != len(snap.Values) || len(snap.Directions) != len(snap.Values) {
		return nil, fmt.Errorf("fieldmap: %d values for %d sensor positions: %w",
			len(snap.Values), len(snap.Positions), errs.ErrShape)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := newSolver(snap.Positions, snap.Directions, cfg)
	if err != nil {
		return nil, err
	}

	return &Instant{
		frame:    s.frame(snap.Values),
		x:        s.sen.X(),
		y:        s.sen.Y(),
		n:        s.sen.N(),
		interval: s.sen.Interval(),
		u:        snap.Unit,
		epoch:    snap.Epoch,
		datetime: snap.Datetime,
	}, nil
}

// Kind returns KindInstant.
func (p *Instant) Kind() Kind { return KindInstant }

// Unit returns the field unit of the reconstruction.
func (p *Instant) Unit() unit.Unit { return p.u }

// N returns the readout mesh size per axis.
func (p *Instant) N() int { return p.n }

// X returns the readout mesh x coordinates in millimetres.
func (p *Instant) X() [][]float64 { return copyFrame(p.x) }

// Y returns the readout mesh y coordinates in millimetres.
func (p *Instant) Y() [][]float64 { return copyFrame(p.y) }

// Epoch returns the snapshot time in seconds.
func (p *Instant) Epoch() float64 { return p.epoch }

// Datetime returns the snapshot time as a formatted timestamp.
func (p *Instant) Datetime() string { return p.datetime }

// Amplitude returns the reconstructed field frame.
func (p *Instant) Amplitude() [][]float64 { return copyFrame(p.frame) }

// Frames returns the frame as a one-element stack.
func (p *Instant) Frames() [][][]float64 {
	return [][][]float64{copyFrame(p.frame)}
}

// Currents returns the tangential current magnitude on the readout
// plane.
func (p *Instant) Currents() *CurrentMap {
	return &CurrentMap{
		frames: [][][]float64{currentFrame(p.frame)},
		u:      unit.AmpereMetre,
	}
}

// Arrows returns the current arrow table of the frame.
func (p *Instant) Arrows() *tabular.Table {
	return arrowsTable(p.frame, p.x, p.y)
}

// Pole returns the pole geometry of the frame as a one-row table.
func (p *Instant) Pole() *tabular.Table {
	out := tabular.New(poleColumns...)
	appendPoleRow(out, p.epoch, p.frame, p.x, p.y, poleNorm(p.n, p.interval))
	return out
}

// Interval is the reconstruction of a short stretch of samples, one
// frame per sample. Meant for windows around a single heartbeat
// feature; every sample becomes a full frame.
type Interval struct {
	frames     [][][]float64
	x, y       [][]float64
	n          int
	interval   float64
	u          unit.Unit
	t0         float64
	sampleRate float64
}

var _ Map = (*Interval)(nil)

// NewInterval reconstructs one source map per sample of the buffer.
// The buffer must carry sensor positions and directions.
func NewInterval(arr *timeseries.Array, opts ...Option) (*Interval, error) {
	if arr == nil {
		return nil, fmt.Errorf("fieldmap: nil buffer: %w", errs.ErrDomain)
	}
	if !arr.HasGeometry() {
		return nil, fmt.Errorf("fieldmap: buffer carries no sensor geometry: %w", errs.ErrIncompatible)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := newSolver(arr.Positions(), arr.Directions(), cfg)
	if err != nil {
		return nil, err
	}

	samples := arr.Samples()
	length := arr.Length()
	values := make([]float64, arr.Rows())
	frames := make([][][]float64, length)
	for k := 0; k < length; k++ {
		for i := range samples {
			values[i] = samples[i][k]
		}
		frames[k] = s.frame(values)
	}

	return &Interval{
		frames:     frames,
		x:          s.sen.X(),
		y:          s.sen.Y(),
		n:          s.sen.N(),
		interval:   s.sen.Interval(),
		u:          arr.Unit(),
		t0:         arr.T0(),
		sampleRate: arr.SampleRate(),
	}, nil
}

// Kind returns KindInterval.
func (v *Interval) Kind() Kind { return KindInterval }

// Unit returns the field unit of the reconstruction.
func (v *Interval) Unit() unit.Unit { return v.u }

// N returns the readout mesh size per axis.
func (v *Interval) N() int { return v.n }

// X returns the readout mesh x coordinates in millimetres.
func (v *Interval) X() [][]float64 { return copyFrame(v.x) }

// Y returns the readout mesh y coordinates in millimetres.
func (v *Interval) Y() [][]float64 { return copyFrame(v.y) }

// T0 returns the time of the first frame in seconds.
func (v *Interval) T0() float64 { return v.t0 }

// SampleRate returns the frame rate in hertz.
func (v *Interval) SampleRate() float64 { return v.sampleRate }

// Dt returns the spacing between frames in seconds.
func (v *Interval) Dt() float64 { return 1 / v.sampleRate }

// Duration returns the covered stretch in seconds.
func (v *Interval) Duration() float64 {
	return float64(len(v.frames)) / v.sampleRate
}

// Times returns the time of every frame.
func (v *Interval) Times() []float64 {
	out := make([]float64, len(v.frames))
	for k := range out {
		out[k] = v.t0 + float64(k)/v.sampleRate
	}
	return out
}

// Amplitudes returns the reconstructed frame stack.
func (v *Interval) Amplitudes() [][][]float64 { return copyFrames(v.frames) }

// Frames returns the reconstructed frame stack.
func (v *Interval) Frames() [][][]float64 { return copyFrames(v.frames) }

// Currents returns the tangential current magnitude per frame.
func (v *Interval) Currents() *CurrentMap {
	frames := make([][][]float64, len(v.frames))
	for k, f := range v.frames {
		frames[k] = currentFrame(f)
	}
	return &CurrentMap{frames: frames, u: unit.AmpereMetre}
}

// Arrows returns one arrow table per frame, keyed by frame time.
func (v *Interval) Arrows() map[float64]*tabular.Table {
	out := make(map[float64]*tabular.Table, len(v.frames))
	for k, f := range v.frames {
		out[v.t0+float64(k)/v.sampleRate] = arrowsTable(f, v.x, v.y)
	}
	return out
}

// Pole returns the pole geometry with one row per frame.
func (v *Interval) Pole() *tabular.Table {
	out := tabular.New(poleColumns...)
	norm := poleNorm(v.n, v.interval)
	for k, f := range v.frames {
		appendPoleRow(out, v.t0+float64(k)/v.sampleRate, f, v.x, v.y, norm)
	}
	return out
}

// CurrentMap is a stack of tangential current magnitude frames in
// ampere metres.
type CurrentMap struct {
	frames [][][]float64
	u      unit.Unit
}

// Len returns the number of frames.
func (c *CurrentMap) Len() int { return len(c.frames) }

// Unit returns the current unit.
func (c *CurrentMap) Unit() unit.Unit { return c.u }

// Grids returns all frames.
func (c *CurrentMap) Grids() [][][]float64 { return copyFrames(c.frames) }

// Grid returns the first frame.
func (c *CurrentMap) Grid() [][]float64 { return copyFrame(c.frames[0]) }

func copyFrame(f [][]float64) [][]float64 {
	out := make([][]float64, len(f))
	for i, row := range f {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}

func copyFrames(fs [][][]float64) [][][]float64 {
	out := make([][][]float64, len(fs))
	for k, f := range fs {
		out[k] = copyFrame(f)
	}
	return out
}

// poleNorm is the readout mesh diagonal, the normalization of the
// pole distance ratio.
func poleNorm(n int, interval float64) float64 {
	return float64(n-1) * interval * math.Sqrt2
}
