package fieldmap

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/inverse/grid"
	"github.com/cwbudde/algo-mcg/inverse/leadfield"
	"github.com/cwbudde/algo-mcg/timeseries"
	"github.com/cwbudde/algo-mcg/unit"
)

// testRig is an eight sensor magnetometer layout without any symmetry,
// all picking up the z component.
func testRig() (positions, directions [][3]float64) {
	positions = [][3]float64{
		{55, 10, 30}, {-40, 35, 28}, {15, -50, 32}, {-25, -30, 26},
		{60, -45, 31}, {-55, -60, 29}, {5, 60, 27}, {35, 40, 33},
	}
	directions = make([][3]float64, len(positions))
	for i := range directions {
		directions[i] = [3]float64{0, 0, 1}
	}
	return positions, directions
}

// smallOptions shrinks the planes so the eight sensor rig fully
// determines the source amplitudes: four cells with two tangential
// components each.
func smallOptions() []Option {
	return []Option{
		WithSourceGrid(20, -40, 20),
		WithSensorGrid(100, 30, 50),
		WithBaseline(0),
		WithModel(leadfield.ModelFree),
		WithEigenvalues(8),
	}
}

// dipoleValues synthesizes the rig's readings for a unit x dipole on
// the source node (10, 10, -40) by reading the matching forward
// column.
func dipoleValues(t *testing.T) []float64 {
	return modelValues(t, leadfield.ModelFree)
}

func modelValues(t *testing.T, model leadfield.Model) []float64 {
	t.Helper()
	positions, directions := testRig()
	src, err := grid.New(20, -40, 20)
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	fwd, err := leadfield.Build(positions, directions, src, model, leadfield.AxisZ, 0)
	if err != nil {
		t.Fatalf("leadfield.Build: %v", err)
	}
	values := make([]float64, len(positions))
	for i := range values {
		values[i] = fwd.At(i, 3*2) // cell (10, 10, -40), x component
	}
	return values
}

func TestRecoverDipolePole(t *testing.T) {
	positions, directions := testRig()
	snap := &timeseries.Snapshot{
		Values:     dipoleValues(t),
		Unit:       unit.Femtotesla,
		Epoch:      42,
		Datetime:   "1970-01-01 00:00:42.000000",
		Positions:  positions,
		Directions: directions,
	}

	fm, err := NewInstant(snap, smallOptions()...)
	if err != nil {
		t.Fatalf("NewInstant: %v", err)
	}
	if fm.Kind() != KindInstant || fm.Kind().String() != "instant" {
		t.Fatalf("Kind = %v", fm.Kind())
	}
	if fm.N() != 3 {
		t.Fatalf("N = %d, want 3", fm.N())
	}
	if fm.Unit() != unit.Femtotesla {
		t.Fatalf("Unit = %s", fm.Unit())
	}
	if fm.Epoch() != 42 || fm.Datetime() != snap.Datetime {
		t.Fatalf("time metadata = %g %q", fm.Epoch(), fm.Datetime())
	}

	// With as many sensors as source components the inversion is
	// exact, so the frame is the dipole's own field on the readout
	// plane. At mesh point (0, 50): dy = 40, |d|^2 = 100+1600+4900.
	frame := fm.Amplitude()
	want := 100000.0 * 40 / math.Pow(6600, 1.5)
	if got := frame[2][1]; math.Abs(got-want) > 1e-6*math.Abs(want) {
		t.Fatalf("frame[2][1] = %g, want %g", got, want)
	}

	pole := fm.Pole()
	if pole.Len() != 1 {
		t.Fatalf("pole rows = %d, want 1", pole.Len())
	}
	row := pole.Rows()[0]
	if got := row[0].(float64); got != 42 {
		t.Fatalf("time = %g, want 42", got)
	}
	if got := row[1].([2]float64); got != [2]float64{0, -50} {
		t.Fatalf("min coordinate = %v, want (0, -50)", got)
	}
	if got := row[2].([2]float64); got != [2]float64{0, 50} {
		t.Fatalf("max coordinate = %v, want (0, 50)", got)
	}
	v := row[3].(complex128)
	if real(v) != 0 || imag(v) != 100 {
		t.Fatalf("vector = %v, want 0+100i", v)
	}
	if got := row[4].(float64); got != 100 {
		t.Fatalf("distance = %g, want 100", got)
	}
	if got := row[5].(float64); math.Abs(got+90) > 1e-12 {
		t.Fatalf("angle = %g, want -90", got)
	}
	wantRatio := 100 / (2 * 50 * math.Sqrt2)
	if got := row[6].(float64); math.Abs(got-wantRatio) > 1e-12 {
		t.Fatalf("ratio = %g, want %g", got, wantRatio)
	}
}

// TestPolePerConductorModel drives the same unit x dipole through every
// conductor model. The free and horizontal kernels put the field
// extremes on either side of the dipole along y; the spherical kernel's
// volume-current terms flip the pattern.
func TestPolePerConductorModel(t *testing.T) {
	tests := []struct {
		name  string
		model leadfield.Model
		min   [2]float64
		max   [2]float64
		angle float64
	}{
		{"free", leadfield.ModelFree, [2]float64{0, -50}, [2]float64{0, 50}, -90},
		{"horizontal", leadfield.ModelHorizontal, [2]float64{0, -50}, [2]float64{0, 50}, -90},
		{"spherical", leadfield.ModelSpherical, [2]float64{0, 50}, [2]float64{0, -50}, 90},
	}

	positions, directions := testRig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &timeseries.Snapshot{
				Values:     modelValues(t, tt.model),
				Unit:       unit.Femtotesla,
				Positions:  positions,
				Directions: directions,
			}

			fm, err := NewInstant(snap, append(smallOptions(), WithModel(tt.model))...)
			if err != nil {
				t.Fatalf("NewInstant: %v", err)
			}

			pole := fm.Pole()
			if pole.Len() != 1 {
				t.Fatalf("pole rows = %d, want 1", pole.Len())
			}
			row := pole.Rows()[0]
			if got := row[1].([2]float64); got != tt.min {
				t.Fatalf("min coordinate = %v, want %v", got, tt.min)
			}
			if got := row[2].([2]float64); got != tt.max {
				t.Fatalf("max coordinate = %v, want %v", got, tt.max)
			}
			if got := row[4].(float64); got != 100 {
				t.Fatalf("distance = %g, want 100", got)
			}
			if got := row[5].(float64); math.Abs(got-tt.angle) > 1e-12 {
				t.Fatalf("angle = %g, want %g", got, tt.angle)
			}
		})
	}
}

func TestInstantDerivedArtifacts(t *testing.T) {
	positions, directions := testRig()
	snap := &timeseries.Snapshot{
		Values:     dipoleValues(t),
		Unit:       unit.Femtotesla,
		Positions:  positions,
		Directions: directions,
	}
	fm, err := NewInstant(snap, smallOptions()...)
	if err != nil {
		t.Fatalf("NewInstant: %v", err)
	}

	cur := fm.Currents()
	if cur.Len() != 1 {
		t.Fatalf("current frames = %d, want 1", cur.Len())
	}
	if cur.Unit() != unit.AmpereMetre {
		t.Fatalf("current unit = %s", cur.Unit())
	}
	g := cur.Grid()
	if len(g) != 3 || len(g[0]) != 3 {
		t.Fatalf("current grid is %dx%d, want 3x3", len(g), len(g[0]))
	}
	for i := range g {
		for j := range g[i] {
			if g[i][j] < 0 || math.IsNaN(g[i][j]) {
				t.Fatalf("current at (%d,%d) = %g", i, j, g[i][j])
			}
		}
	}

	arrows := fm.Arrows()
	if arrows.Len() != 9 {
		t.Fatalf("arrow rows = %d, want 9", arrows.Len())
	}
	wantCols := []string{"tail [mm]", "head [mm]", "vector", "distance [A m]", "angle [deg]"}
	cols := arrows.Columns()
	for i, c := range wantCols {
		if cols[i] != c {
			t.Fatalf("arrow column %d = %q, want %q", i, cols[i], c)
		}
	}

	frames := fm.Frames()
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}
	frames[0][0][0] = 999
	if fm.Frames()[0][0][0] == 999 {
		t.Fatal("Frames shares backing storage")
	}
}

func TestNewInstantValidation(t *testing.T) {
	positions, directions := testRig()
	good := &timeseries.Snapshot{
		Values:     dipoleValues(t),
		Unit:       unit.Femtotesla,
		Positions:  positions,
		Directions: directions,
	}

	tests := []struct {
		name string
		err  error
		call func() error
	}{
		{"nil snapshot", errs.ErrDomain, func() error {
			_, err := NewInstant(nil)
			return err
		}},
		{"empty values", errs.ErrDomain, func() error {
			_, err := NewInstant(&timeseries.Snapshot{}, smallOptions()...)
			return err
		}},
		{"no geometry", errs.ErrIncompatible, func() error {
			_, err := NewInstant(&timeseries.Snapshot{Values: make([]float64, 8)}, smallOptions()...)
			return err
		}},
		{"geometry mismatch", errs.ErrShape, func() error {
			_, err := NewInstant(&timeseries.Snapshot{
				Values:     make([]float64, 5),
				Positions:  positions,
				Directions: directions,
			}, smallOptions()...)
			return err
		}},
		{"zero eigenvalues", errs.ErrDomain, func() error {
			_, err := NewInstant(good, append(smallOptions(), WithEigenvalues(0))...)
			return err
		}},
		{"too many eigenvalues", errs.ErrDomain, func() error {
			_, err := NewInstant(good, append(smallOptions(), WithEigenvalues(99))...)
			return err
		}},
		{"bad model", errs.ErrDomain, func() error {
			_, err := NewInstant(good, append(smallOptions(), WithModel(leadfield.Model(9)))...)
			return err
		}},
		{"bad source grid", errs.ErrDomain, func() error {
			_, err := NewInstant(good, append(smallOptions(), WithSourceGrid(0, 0, 5))...)
			return err
		}},
		{"bad sensor grid", errs.ErrDomain, func() error {
			_, err := NewInstant(good, append(smallOptions(), WithSensorGrid(100, 30, -2))...)
			return err
		}},
		{"negative baseline", errs.ErrDomain, func() error {
			_, err := NewInstant(good, append(smallOptions(), WithBaseline(-50))...)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestIntervalReconstruction(t *testing.T) {
	positions, directions := testRig()
	base := dipoleValues(t)

	// Three instants: the dipole pattern, twice the pattern, and the
	// negated pattern.
	samples := make([][]float64, len(base))
	for i, v := range base {
		samples[i] = []float64{v, 2 * v, -v}
	}
	arr, err := timeseries.New(samples,
		timeseries.WithPositions(positions),
		timeseries.WithDirections(directions),
		timeseries.WithT0(10),
		timeseries.WithSampleRate(2),
	)
	if err != nil {
		t.Fatalf("timeseries.New: %v", err)
	}

	fm, err := NewInterval(arr, smallOptions()...)
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	if fm.Kind() != KindInterval || fm.Kind().String() != "interval" {
		t.Fatalf("Kind = %v", fm.Kind())
	}
	if fm.T0() != 10 || fm.SampleRate() != 2 || fm.Dt() != 0.5 {
		t.Fatalf("axis = %g/%g/%g", fm.T0(), fm.SampleRate(), fm.Dt())
	}
	if fm.Duration() != 1.5 {
		t.Fatalf("Duration = %g, want 1.5", fm.Duration())
	}
	wantTimes := []float64{10, 10.5, 11}
	for k, ts := range fm.Times() {
		if ts != wantTimes[k] {
			t.Fatalf("Times[%d] = %g, want %g", k, ts, wantTimes[k])
		}
	}

	frames := fm.Frames()
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}
	// Doubling and negating the readings scales the reconstruction
	// exactly.
	for i := range frames[0] {
		for j := range frames[0][i] {
			if frames[1][i][j] != 2*frames[0][i][j] {
				t.Fatalf("frame 1 at (%d,%d) is not twice frame 0", i, j)
			}
			if frames[2][i][j] != -frames[0][i][j] {
				t.Fatalf("frame 2 at (%d,%d) is not the negation of frame 0", i, j)
			}
		}
	}

	// Each interval frame matches the instant reconstruction of the
	// same sample.
	snap, err := arr.At(10.5)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	inst, err := NewInstant(snap, smallOptions()...)
	if err != nil {
		t.Fatalf("NewInstant: %v", err)
	}
	instFrame := inst.Amplitude()
	for i := range instFrame {
		for j := range instFrame[i] {
			if instFrame[i][j] != frames[1][i][j] {
				t.Fatalf("instant and interval disagree at (%d,%d)", i, j)
			}
		}
	}

	arrows := fm.Arrows()
	if len(arrows) != 3 {
		t.Fatalf("arrow tables = %d, want 3", len(arrows))
	}
	mid, ok := arrows[10.5]
	if !ok {
		t.Fatal("no arrow table at t = 10.5")
	}
	if mid.Len() != 9 {
		t.Fatalf("arrow rows = %d, want 9", mid.Len())
	}

	pole := fm.Pole()
	if pole.Len() != 3 {
		t.Fatalf("pole rows = %d, want 3", pole.Len())
	}
	times, err := pole.Column("time [s]")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	for k, ts := range times {
		if ts.(float64) != wantTimes[k] {
			t.Fatalf("pole time %d = %v, want %g", k, ts, wantTimes[k])
		}
	}
	rows := pole.Rows()
	if ang := rows[0][5].(float64); math.Abs(ang+90) > 1e-12 {
		t.Fatalf("frame 0 angle = %g, want -90", ang)
	}
	// The negated field swaps the poles and flips the angle.
	if ang := rows[2][5].(float64); math.Abs(ang-90) > 1e-12 {
		t.Fatalf("frame 2 angle = %g, want 90", ang)
	}
}

func TestNewIntervalValidation(t *testing.T) {
	if _, err := NewInterval(nil); !errors.Is(err, errs.ErrDomain) {
		t.Fatalf("NewInterval(nil) err = %v, want ErrDomain", err)
	}

	arr, err := timeseries.New([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("timeseries.New: %v", err)
	}
	if _, err := NewInterval(arr, smallOptions()...); !errors.Is(err, errs.ErrIncompatible) {
		t.Fatalf("NewInterval without geometry err = %v, want ErrIncompatible", err)
	}
}

func TestMapInterface(t *testing.T) {
	positions, directions := testRig()
	snap := &timeseries.Snapshot{
		Values:     dipoleValues(t),
		Unit:       unit.Femtotesla,
		Positions:  positions,
		Directions: directions,
	}
	inst, err := NewInstant(snap, smallOptions()...)
	if err != nil {
		t.Fatalf("NewInstant: %v", err)
	}

	var m Map = inst
	if m.Kind() != KindInstant || m.N() != 3 || len(m.Frames()) != 1 {
		t.Fatalf("Map view of instant = %v/%d/%d", m.Kind(), m.N(), len(m.Frames()))
	}
	x, y := m.X(), m.Y()
	if x[0][0] != -50 || x[0][2] != 50 || y[0][0] != -50 || y[2][0] != 50 {
		t.Fatalf("mesh corners = %g/%g/%g/%g", x[0][0], x[0][2], y[0][0], y[2][0])
	}
	if m.Pole().Len() != 1 || m.Currents().Len() != 1 {
		t.Fatal("derived artifacts through the interface are off")
	}
}
