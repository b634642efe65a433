package edfio_test

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/OpenPSG/edf"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-mcg/edfio"
	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/timeseries"
)

func tempEDF(t *testing.T) *os.File {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "out.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func buffer(t *testing.T, samples [][]float64, rate float64, opts ...timeseries.Option) *timeseries.Array {
	t.Helper()
	all := append([]timeseries.Option{timeseries.WithSampleRate(rate)}, opts...)
	arr, err := timeseries.New(samples, all...)
	require.NoError(t, err)
	return arr
}

func signalReader(t *testing.T, r *edf.Reader, i int) *edf.SignalReader {
	t.Helper()
	sr, err := r.Signal(i)
	require.NoError(t, err)
	return sr
}

func readAll(t *testing.T, r *edf.SignalReader) []float64 {
	t.Helper()
	var out []float64
	buf := make([]float64, 32)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
	}
}

func TestExportRoundTrip(t *testing.T) {
	f := tempEDF(t)

	alpha := make([]float64, 40)
	beta := make([]float64, 40)
	for k := range alpha {
		alpha[k] = float64(2*k) - 39
		beta[k] = 7
	}
	arr := buffer(t, [][]float64{alpha, beta}, 16,
		timeseries.WithLabels([]string{"alpha", "beta"}),
		timeseries.WithT0(1646370367))

	require.NoError(t, edfio.Export(f, arr,
		edfio.WithPatientID("MCG-007"),
		edfio.WithRecordingID("run 12")))

	hdr := make([]byte, 768)
	_, err := f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = io.ReadFull(f, hdr)
	require.NoError(t, err)

	field := func(lo, hi int) string { return strings.TrimRight(string(hdr[lo:hi]), " ") }
	require.Equal(t, "0", field(0, 8))
	require.Equal(t, "MCG-007", field(8, 88))
	require.Equal(t, "run 12", field(88, 168))
	require.Equal(t, "04.03.22", field(168, 176))
	require.Equal(t, "05.06.07", field(176, 184))
	require.Equal(t, "768", field(184, 192))
	require.Equal(t, "3", field(236, 244))
	require.Equal(t, "2", field(252, 256))
	require.Equal(t, "alpha", field(256, 272))
	require.Equal(t, "beta", field(272, 288))
	require.Equal(t, "fT", field(448, 456))
	require.Equal(t, "fT", field(456, 464))

	duration, err := strconv.ParseFloat(field(244, 252), 64)
	require.NoError(t, err)
	require.Equal(t, 1.0, duration)

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	er, err := edf.Open(f)
	require.NoError(t, err)

	got := readAll(t, signalReader(t, er, 0))
	require.Len(t, got, 48)
	for k, want := range alpha {
		require.InDelta(t, want, got[k], 0.01, "sample %d", k)
	}
	for k := 40; k < 48; k++ {
		require.InDelta(t, 0, got[k], 0.01, "pad sample %d", k)
	}

	got = readAll(t, signalReader(t, er, 1))
	require.Len(t, got, 48)
	for k := 0; k < 40; k++ {
		require.InDelta(t, 7, got[k], 0.01, "sample %d", k)
	}
	for k := 40; k < 48; k++ {
		require.InDelta(t, 0, got[k], 0.01, "pad sample %d", k)
	}
}

func TestExportWholeSecondsNoPadding(t *testing.T) {
	f := tempEDF(t)

	flat := make([]float64, 32)
	for k := range flat {
		flat[k] = -5
	}
	arr := buffer(t, [][]float64{flat}, 16)

	require.NoError(t, edfio.Export(f, arr))

	_, err := f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	er, err := edf.Open(f)
	require.NoError(t, err)

	got := readAll(t, signalReader(t, er, 0))
	require.Len(t, got, 32)
	for k, v := range got {
		require.InDelta(t, -5, v, 0.01, "sample %d", k)
	}
}

func TestExportRecordingIDDefaultsToDevice(t *testing.T) {
	f := tempEDF(t)

	arr := buffer(t, [][]float64{{1, 2, 3, 4}}, 4,
		timeseries.WithDeviceID("mcg e-field"))
	require.NoError(t, edfio.Export(f, arr))

	hdr := make([]byte, 256)
	_, err := f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = io.ReadFull(f, hdr)
	require.NoError(t, err)
	require.Equal(t, "mcg e-field", strings.TrimRight(string(hdr[88:168]), " "))
}

func TestExportValidation(t *testing.T) {
	cases := []struct {
		name string
		arr  func(t *testing.T) *timeseries.Array
	}{
		{
			name: "nil buffer",
			arr:  func(t *testing.T) *timeseries.Array { return nil },
		},
		{
			name: "fractional rate",
			arr: func(t *testing.T) *timeseries.Array {
				return buffer(t, [][]float64{{1, 2, 3, 4}}, 250.5)
			},
		},
		{
			name: "sub-hertz rate",
			arr: func(t *testing.T) *timeseries.Array {
				return buffer(t, [][]float64{{1, 2, 3, 4}}, 0.5)
			},
		},
		{
			name: "non-finite samples",
			arr: func(t *testing.T) *timeseries.Array {
				return buffer(t, [][]float64{{1, math.NaN(), 3, 4}}, 2)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := tempEDF(t)
			require.ErrorIs(t, edfio.Export(f, tc.arr(t)), errs.ErrDomain)
		})
	}
}
