package series

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cwbudde/algo-mcg/errs"
	"github.com/cwbudde/algo-mcg/unit"
)

func newTestSeries(t *testing.T) *Series {
	t.Helper()
	s, err := New([]float64{1, 4, 2, 8, 3}, unit.Femtotesla, 0, 0.5, "fft")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return s
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, unit.Femtotesla, 0, 1, "fft"); !errors.Is(err, errs.ErrDomain) {
		t.Fatalf("empty values error=%v, want ErrDomain", err)
	}
	if _, err := New([]float64{1}, unit.Femtotesla, 0, 0, "fft"); !errors.Is(err, errs.ErrDomain) {
		t.Fatalf("zero df error=%v, want ErrDomain", err)
	}
	if _, err := New([]float64{1}, unit.Femtotesla, 0, -1, "fft"); !errors.Is(err, errs.ErrDomain) {
		t.Fatalf("negative df error=%v, want ErrDomain", err)
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := []float64{1, 2, 3}
	s, err := New(in, unit.Femtotesla, 0, 1, "fft")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	in[0] = 99
	if s.Values()[0] != 1 {
		t.Fatalf("series aliases caller slice")
	}
}

func TestFrequencies(t *testing.T) {
	s := newTestSeries(t)
	freqs := s.Frequencies()
	want := []float64{0, 0.5, 1, 1.5, 2}
	for k := range want {
		if math.Abs(freqs[k]-want[k]) > 1e-12 {
			t.Fatalf("freqs[%d]=%g, want %g", k, freqs[k], want[k])
		}
	}
}

func TestAtNearestBin(t *testing.T) {
	s := newTestSeries(t)

	if got := s.At(1.0).Value; got != 2 {
		t.Fatalf("At(1.0)=%g, want 2", got)
	}
	// 0.6 is nearest to bin 0.5.
	if got := s.At(0.6).Value; got != 4 {
		t.Fatalf("At(0.6)=%g, want 4", got)
	}
	// Exactly halfway snaps to the earlier bin.
	if got := s.At(0.75).Value; got != 4 {
		t.Fatalf("At(0.75)=%g, want 4 (earlier bin)", got)
	}
	// Out-of-range frequencies clamp to the ends.
	if got := s.At(-3).Value; got != 1 {
		t.Fatalf("At(-3)=%g, want 1", got)
	}
	if got := s.At(100).Value; got != 3 {
		t.Fatalf("At(100)=%g, want 3", got)
	}
	if u := s.At(1.0).Unit; !u.Equal(unit.Femtotesla) {
		t.Fatalf("At unit=%v, want fT", u)
	}
}

func TestCropHalfOpen(t *testing.T) {
	s := newTestSeries(t)

	c, err := s.Crop(0.5, 1.5)
	if err != nil {
		t.Fatalf("Crop error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Crop len=%d, want 2", c.Len())
	}
	if c.F0() != 0.5 || c.Df() != 0.5 {
		t.Fatalf("Crop axis f0=%g df=%g", c.F0(), c.Df())
	}
	vals := c.Values()
	if vals[0] != 4 || vals[1] != 2 {
		t.Fatalf("Crop values=%v, want [4 2]", vals)
	}
}

func TestCropClampsAndRejects(t *testing.T) {
	s := newTestSeries(t)

	c, err := s.Crop(-10, 10)
	if err != nil {
		t.Fatalf("Crop error: %v", err)
	}
	if c.Len() != s.Len() {
		t.Fatalf("clamped crop len=%d, want %d", c.Len(), s.Len())
	}

	if _, err := s.Crop(1, 1); !errors.Is(err, errs.ErrDomain) {
		t.Fatalf("empty span error=%v, want ErrDomain", err)
	}
	if _, err := s.Crop(2, 1); !errors.Is(err, errs.ErrDomain) {
		t.Fatalf("reversed span error=%v, want ErrDomain", err)
	}
	if _, err := s.Crop(50, 60); !errors.Is(err, errs.ErrDomain) {
		t.Fatalf("out-of-range span error=%v, want ErrDomain", err)
	}
}

func TestCropComposition(t *testing.T) {
	s := newTestSeries(t)

	once, err := s.Crop(0, 1.5)
	if err != nil {
		t.Fatalf("Crop error: %v", err)
	}
	twice, err := once.Crop(0, 1.0)
	if err != nil {
		t.Fatalf("Crop error: %v", err)
	}
	direct, err := s.Crop(0, 1.0)
	if err != nil {
		t.Fatalf("Crop error: %v", err)
	}
	if twice.Len() != direct.Len() || twice.F0() != direct.F0() {
		t.Fatalf("crop composition mismatch: twice=%d@%g direct=%d@%g",
			twice.Len(), twice.F0(), direct.Len(), direct.F0())
	}
	a, b := twice.Values(), direct.Values()
	for k := range a {
		if a[k] != b[k] {
			t.Fatalf("crop composition values differ at %d", k)
		}
	}
}

func TestArgMaxAndMax(t *testing.T) {
	s := newTestSeries(t)

	if got := s.ArgMax(); got != 1.5 {
		t.Fatalf("ArgMax=%g, want 1.5", got)
	}
	if got := s.Max().Value; got != 8 {
		t.Fatalf("Max=%g, want 8", got)
	}
}

func TestArgMaxFirstOnTies(t *testing.T) {
	s, err := New([]float64{1, 7, 7}, unit.Femtotesla, 0, 1, "fft")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if got := s.ArgMax(); got != 1 {
		t.Fatalf("ArgMax=%g, want 1 (first tie)", got)
	}
}

func TestTabular(t *testing.T) {
	s := newTestSeries(t)
	tb := s.Tabular()

	cols := tb.Columns()
	if cols[0] != "frequency [Hz]" {
		t.Fatalf("Columns[0]=%q", cols[0])
	}
	if !strings.HasPrefix(cols[1], "fft [") {
		t.Fatalf("Columns[1]=%q, want fft [...]", cols[1])
	}
	if tb.Len() != s.Len() {
		t.Fatalf("Tabular rows=%d, want %d", tb.Len(), s.Len())
	}
}
