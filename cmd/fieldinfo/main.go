// Command fieldinfo reconstructs a magnetocardiographic field map and
// prints its channel, pole and arrow tables.
//
// Usage:
//
//	fieldinfo [flags]
//
// Without -edf it synthesizes the field of a unit dipole on the source
// plane and reconstructs that; with -edf it loads the recording,
// mounts the channels on a square sensor mesh and reconstructs the
// snapshot at -time.
//
// Examples:
//
//	fieldinfo
//	fieldinfo -model spherical -eigenvalues 12 -arrows
//	fieldinfo -edf run12.edf -time 0.5 -sensor 175,40,25
//	fieldinfo -list-models
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/OpenPSG/edf"

	"github.com/cwbudde/algo-mcg/channel"
	"github.com/cwbudde/algo-mcg/epoch"
	"github.com/cwbudde/algo-mcg/inverse/fieldmap"
	"github.com/cwbudde/algo-mcg/inverse/grid"
	"github.com/cwbudde/algo-mcg/inverse/leadfield"
	"github.com/cwbudde/algo-mcg/tabular"
	"github.com/cwbudde/algo-mcg/timeseries"
	"github.com/cwbudde/algo-mcg/unit"
)

type analysis struct {
	edfPath     string
	at          float64
	arrows      bool
	model       leadfield.Model
	axis        leadfield.Axis
	eigenvalues int
	source      [3]float64
	sensor      [3]float64
	sensorSet   bool
	baseline    float64
}

func main() {
	edfPath := flag.String("edf", "", "EDF recording to analyze (synthesizes a dipole snapshot when empty)")
	at := flag.Float64("time", math.NaN(), "snapshot time in seconds from the recording start (default: strongest instant)")
	arrows := flag.Bool("arrows", false, "print the arrow table as well")
	model := flag.String("model", leadfield.ModelHorizontal.String(), "conductor model (see -list-models)")
	axis := flag.String("axis", leadfield.AxisZ.String(), "dipole axis: x, y or z")
	eigen := flag.Int("eigenvalues", fieldmap.DefaultEigenvalues, "singular values kept by the pseudo-inverse")
	srcSpec := flag.String("grid", "", "source plane as width,height,interval in mm (default 240,-40,16)")
	senSpec := flag.String("sensor", "", "sensor plane as width,height,interval in mm (default 400,40,25; with -edf inferred from the channel count)")
	baseline := flag.Float64("baseline", grid.DefaultBaseline, "gradiometer baseline in mm (0 for magnetometers)")
	list := flag.Bool("list-models", false, "list conductor models and dipole axes")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fieldinfo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Reconstructs a magnetocardiographic field map and prints its tables.\n")
		fmt.Fprintf(os.Stderr, "Without -edf a unit-dipole snapshot is synthesized on the sensor plane.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fieldinfo\n")
		fmt.Fprintf(os.Stderr, "  fieldinfo -model spherical -eigenvalues 12 -arrows\n")
		fmt.Fprintf(os.Stderr, "  fieldinfo -edf run12.edf -time 0.5\n")
		fmt.Fprintf(os.Stderr, "  fieldinfo -list-models\n")
	}
	flag.Parse()

	if *list {
		printModels()
		return
	}
	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "error: unexpected argument %q\n\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	mdl, err := leadfield.ParseModel(*model)
	if err != nil {
		misuse(err)
	}
	ax, err := leadfield.ParseAxis(*axis)
	if err != nil {
		misuse(err)
	}
	src, err := parsePlane(*srcSpec, [3]float64{grid.DefaultSourceWidth, grid.DefaultSourceHeight, grid.DefaultSourceInterval})
	if err != nil {
		misuse(err)
	}
	sen, err := parsePlane(*senSpec, [3]float64{grid.DefaultSensorWidth, grid.DefaultSensorHeight, grid.DefaultSensorInterval})
	if err != nil {
		misuse(err)
	}

	cfg := analysis{
		edfPath:     *edfPath,
		at:          *at,
		arrows:      *arrows,
		model:       mdl,
		axis:        ax,
		eigenvalues: *eigen,
		source:      src,
		sensor:      sen,
		sensorSet:   *senSpec != "",
		baseline:    *baseline,
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func misuse(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
	flag.Usage()
	os.Exit(2)
}

func printModels() {
	fmt.Println("Conductor models:")
	for _, m := range []leadfield.Model{leadfield.ModelHorizontal, leadfield.ModelSpherical, leadfield.ModelFree} {
		fmt.Printf("  %s\n", m)
	}
	fmt.Println("Dipole axes:")
	for _, a := range []leadfield.Axis{leadfield.AxisX, leadfield.AxisY, leadfield.AxisZ} {
		fmt.Printf("  %s\n", a)
	}
}

// parsePlane reads a width,height,interval triple, falling back to the
// given defaults when the flag was left empty.
func parsePlane(spec string, def [3]float64) ([3]float64, error) {
	if spec == "" {
		return def, nil
	}
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return [3]float64{}, fmt.Errorf("plane %q: want width,height,interval", spec)
	}
	var out [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [3]float64{}, fmt.Errorf("plane %q: %v", spec, err)
		}
		out[i] = v
	}
	return out, nil
}

func run(cfg analysis) error {
	snap, sensor, err := buildSnapshot(cfg)
	if err != nil {
		return err
	}

	m, err := fieldmap.NewInstant(snap,
		fieldmap.WithModel(cfg.model),
		fieldmap.WithAxis(cfg.axis),
		fieldmap.WithEigenvalues(cfg.eigenvalues),
		fieldmap.WithBaseline(cfg.baseline),
		fieldmap.WithSourceGrid(cfg.source[0], cfg.source[1], cfg.source[2]),
		fieldmap.WithSensorGrid(sensor[0], sensor[1], sensor[2]),
	)
	if err != nil {
		return err
	}

	if err := printSummary(cfg, m, sensor, len(snap.Values)); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Channels:")
	fmt.Println(channelTable(snap))
	fmt.Println("Pole:")
	fmt.Println(m.Pole())
	if cfg.arrows {
		fmt.Println("Arrows:")
		fmt.Println(m.Arrows())
	}
	return nil
}

// buildSnapshot returns the sensor-array snapshot to reconstruct and
// the readout plane it lives on.
func buildSnapshot(cfg analysis) (*timeseries.Snapshot, [3]float64, error) {
	if cfg.edfPath == "" {
		snap, err := synthesize(cfg)
		return snap, cfg.sensor, err
	}

	arr, sensor, err := loadEDF(cfg)
	if err != nil {
		return nil, [3]float64{}, err
	}

	t := arr.ArgMax()
	if !math.IsNaN(cfg.at) {
		t = arr.T0() + cfg.at
	}
	snap, err := arr.At(t)
	if err != nil {
		return nil, [3]float64{}, err
	}
	return snap, sensor, nil
}

// synthesize computes the forward field of a unit dipole placed on a
// source node just off the plane centre, observed by z magnetometers
// on the sensor plane.
func synthesize(cfg analysis) (*timeseries.Snapshot, error) {
	sen, err := grid.New(cfg.sensor[0], cfg.sensor[1], cfg.sensor[2])
	if err != nil {
		return nil, err
	}
	src, err := grid.New(cfg.source[0], cfg.source[1], cfg.source[2])
	if err != nil {
		return nil, err
	}

	positions := sen.Cells()
	directions := make([][3]float64, len(positions))
	for i := range directions {
		directions[i] = [3]float64{0, 0, 1}
	}

	fwd, err := leadfield.Build(positions, directions, src, cfg.model, cfg.axis, cfg.baseline)
	if err != nil {
		return nil, err
	}

	rows, cols := fwd.Dims()
	comps := cols / len(src.Cells())
	col := (len(src.Cells())/2 + src.N()/4) * comps

	values := make([]float64, rows)
	numbers := make([]int, rows)
	labels := make([]string, rows)
	for i := range values {
		values[i] = fwd.At(i, col)
		numbers[i] = i + 1
		labels[i] = fmt.Sprintf("ch%03d", i+1)
	}

	return &timeseries.Snapshot{
		Values:     values,
		Unit:       unit.Femtotesla,
		Datetime:   epoch.Format(0),
		Numbers:    numbers,
		Labels:     labels,
		Positions:  positions,
		Directions: directions,
	}, nil
}

// loadEDF reads the recording into a buffer with its channels mounted
// on a square sensor mesh, and returns the plane the mesh lives on.
func loadEDF(cfg analysis) (*timeseries.Array, [3]float64, error) {
	f, err := os.Open(cfg.edfPath)
	if err != nil {
		return nil, [3]float64{}, err
	}
	defer f.Close()

	hdr, err := readHeader(f)
	if err != nil {
		return nil, [3]float64{}, fmt.Errorf("%s: %v", cfg.edfPath, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, [3]float64{}, err
	}
	er, err := edf.Open(f)
	if err != nil {
		return nil, [3]float64{}, fmt.Errorf("%s: %v", cfg.edfPath, err)
	}

	samples := make([][]float64, len(hdr.labels))
	for i := range samples {
		sr, err := er.Signal(i)
		if err != nil {
			return nil, [3]float64{}, err
		}
		row, err := readSignal(sr)
		if err != nil {
			return nil, [3]float64{}, fmt.Errorf("%s: signal %d: %v", cfg.edfPath, i, err)
		}
		samples[i] = row
	}

	positions, directions, sensor, err := mountGeometry(cfg, len(samples))
	if err != nil {
		return nil, [3]float64{}, err
	}

	labels := make([]string, len(hdr.labels))
	for i, l := range hdr.labels {
		if l == "" {
			l = fmt.Sprintf("ch%d", i+1)
		}
		labels[i] = l
	}

	arr, err := timeseries.NewFromRecord(timeseries.Record{
		Samples:    samples,
		Labels:     labels,
		Positions:  positions,
		Directions: directions,
		Unit:       dimensionUnit(hdr.dims[0]),
		T0:         float64(hdr.start.Unix()),
		SampleRate: hdr.rate,
		DeviceID:   hdr.recording,
	})
	if err != nil {
		return nil, [3]float64{}, err
	}
	return arr, sensor, nil
}

// mountGeometry lays the channels out on a square mesh: the -sensor
// plane when given, otherwise a default-spacing mesh inferred from the
// channel count.
func mountGeometry(cfg analysis, channels int) ([][3]float64, [][3]float64, [3]float64, error) {
	plane := cfg.sensor
	if !cfg.sensorSet {
		n := int(math.Round(math.Sqrt(float64(channels))))
		if n < 2 || n*n != channels {
			return nil, nil, [3]float64{}, fmt.Errorf("%d channels do not form a square mesh; pass -sensor", channels)
		}
		plane = [3]float64{
			float64(n-1) * grid.DefaultSensorInterval,
			grid.DefaultSensorHeight,
			grid.DefaultSensorInterval,
		}
	}

	mesh, err := grid.New(plane[0], plane[1], plane[2])
	if err != nil {
		return nil, nil, [3]float64{}, err
	}
	cells := mesh.Cells()
	if len(cells) != channels {
		return nil, nil, [3]float64{}, fmt.Errorf("sensor mesh has %d cells for %d channels; pass a matching -sensor", len(cells), channels)
	}

	directions := make([][3]float64, channels)
	for i := range directions {
		directions[i] = [3]float64{0, 0, 1}
	}
	return cells, directions, plane, nil
}

func readSignal(sr *edf.SignalReader) ([]float64, error) {
	var out []float64
	buf := make([]float64, 4096)
	for {
		n, err := sr.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

type edfHeader struct {
	patient   string
	recording string
	start     time.Time
	records   int
	duration  float64
	labels    []string
	dims      []string
	rate      float64
}

// readHeader parses the fixed-layout EDF header fields the analysis
// needs; sample decoding is left to the edf reader.
func readHeader(r io.Reader) (*edfHeader, error) {
	b := make([]byte, 256)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("reading header: %v", err)
	}

	h := &edfHeader{
		patient:   trimField(b[8:88]),
		recording: trimField(b[88:168]),
	}

	date, err := time.Parse("02.01.06", trimField(b[168:176]))
	if err != nil {
		return nil, fmt.Errorf("start date: %v", err)
	}
	clock, err := time.Parse("15.04.05", trimField(b[176:184]))
	if err != nil {
		return nil, fmt.Errorf("start time: %v", err)
	}
	h.start = time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)

	h.records, err = strconv.Atoi(trimField(b[236:244]))
	if err != nil {
		return nil, fmt.Errorf("record count: %v", err)
	}
	h.duration, err = strconv.ParseFloat(trimField(b[244:252]), 64)
	if err != nil {
		return nil, fmt.Errorf("record duration: %v", err)
	}
	if h.duration <= 0 {
		return nil, fmt.Errorf("record duration %g", h.duration)
	}
	ns, err := strconv.Atoi(trimField(b[252:256]))
	if err != nil {
		return nil, fmt.Errorf("signal count: %v", err)
	}
	if ns < 1 {
		return nil, fmt.Errorf("header lists no signals")
	}

	sig := make([]byte, ns*256)
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, fmt.Errorf("reading signal headers: %v", err)
	}

	// Signal headers are field major: all labels, then all transducer
	// types, and so on.
	h.labels = make([]string, ns)
	h.dims = make([]string, ns)
	sprOff := ns * 216
	var spr0 int
	for i := 0; i < ns; i++ {
		h.labels[i] = trimField(sig[i*16 : (i+1)*16])
		h.dims[i] = trimField(sig[ns*96+i*8 : ns*96+(i+1)*8])
		spr, err := strconv.Atoi(trimField(sig[sprOff+i*8 : sprOff+(i+1)*8]))
		if err != nil {
			return nil, fmt.Errorf("samples per record of signal %d: %v", i, err)
		}
		if i == 0 {
			spr0 = spr
		} else if spr != spr0 {
			return nil, fmt.Errorf("signal %d runs at %d samples per record, signal 0 at %d", i, spr, spr0)
		}
	}
	h.rate = float64(spr0) / h.duration
	return h, nil
}

func trimField(b []byte) string { return strings.TrimSpace(string(b)) }

func dimensionUnit(sym string) unit.Unit {
	switch sym {
	case "fT":
		return unit.Femtotesla
	case "T":
		return unit.Tesla
	default:
		return unit.Unit{}
	}
}

func channelTable(snap *timeseries.Snapshot) *tabular.Table {
	entries := make(channel.Table, len(snap.Values))
	for i := range entries {
		entries[i] = channel.Entry{
			Number:    snap.Numbers[i],
			Label:     snap.Labels[i],
			Position:  snap.Positions[i],
			Direction: snap.Directions[i],
		}
	}
	return entries.Tabular()
}

func printSummary(cfg analysis, m *fieldmap.Instant, sensor [3]float64, channels int) error {
	frame := m.Amplitude()
	lo, hi := frame[0][0], frame[0][0]
	for _, row := range frame {
		for _, v := range row {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Snapshot\t%s\n", m.Datetime())
	_, _ = fmt.Fprintf(tw, "Channels\t%d\n", channels)
	_, _ = fmt.Fprintf(tw, "Model\t%s\n", cfg.model)
	_, _ = fmt.Fprintf(tw, "Axis\t%s\n", cfg.axis)
	_, _ = fmt.Fprintf(tw, "Eigenvalues\t%d\n", cfg.eigenvalues)
	_, _ = fmt.Fprintf(tw, "Baseline\t%g mm\n", cfg.baseline)
	_, _ = fmt.Fprintf(tw, "Source plane\t%g mm wide at z=%g mm, step %g mm\n",
		cfg.source[0], cfg.source[1], cfg.source[2])
	_, _ = fmt.Fprintf(tw, "Readout plane\t%g mm wide at z=%g mm, step %g mm (%d x %d)\n",
		sensor[0], sensor[1], sensor[2], m.N(), m.N())
	_, _ = fmt.Fprintf(tw, "Field range\t%.3f to %.3f %s\n", lo, hi, m.Unit())
	return tw.Flush()
}
