package biquad

import (
	"math"
	"math/cmplx"
	"testing"
)

const responseRate = 48000.0

func TestResponseUnityAtDC(t *testing.T) {
	c := twoTapAverage()
	if h := c.Response(0, responseRate); cmplx.Abs(h-1) > 1e-15 {
		t.Fatalf("H(0) = %v, want 1", h)
	}
}

func TestResponseNyquistNull(t *testing.T) {
	c := twoTapAverage()
	if db := c.MagnitudeDB(responseRate/2, responseRate); db > -200 {
		t.Fatalf("gain at Nyquist = %g dB, want a null", db)
	}
}

func TestOnePoleGainAtDC(t *testing.T) {
	// H(z) = 1/(1 - 0.5*z^-1) has DC gain 2.
	c := Coefficients{B0: 1, A1: -0.5}
	if got := c.MagnitudeSquared(0, responseRate); math.Abs(got-4) > 1e-12 {
		t.Fatalf("|H(0)|^2 = %g, want 4", got)
	}
	want := 20 * math.Log10(2)
	if got := c.MagnitudeDB(0, responseRate); math.Abs(got-want) > 1e-9 {
		t.Fatalf("gain at DC = %g dB, want %g", got, want)
	}
}

func TestChainResponseIsSectionProduct(t *testing.T) {
	a := Coefficients{B0: 0.5, B1: 0.5}
	b := Coefficients{B0: 1, B1: -0.2, A1: -0.3, A2: 0.05}
	chain := NewChain([]Coefficients{a, b})

	for _, freq := range []float64{10, 440, 5000, 20000} {
		want := a.Response(freq, responseRate) * b.Response(freq, responseRate)
		got := chain.Response(freq, responseRate)
		if cmplx.Abs(got-want) > 1e-12*cmplx.Abs(want)+1e-15 {
			t.Fatalf("%g Hz: chain response %v, product %v", freq, got, want)
		}

		wantDB := a.MagnitudeDB(freq, responseRate) + b.MagnitudeDB(freq, responseRate)
		if gotDB := chain.MagnitudeDB(freq, responseRate); math.Abs(gotDB-wantDB) > 1e-9 {
			t.Fatalf("%g Hz: chain gain %g dB, section sum %g dB", freq, gotDB, wantDB)
		}
	}
}

func TestPoleZeroPairsQuadratic(t *testing.T) {
	// Denominator (1 - 0.5*z^-1)(1 - 0.25*z^-1), numerator 1 - z^-1.
	// Every intermediate is dyadic, so the roots come out exact.
	c := Coefficients{B0: 1, B1: -1, A1: -0.75, A2: 0.125}
	pz := PoleZeroPairs([]Coefficients{c})[0]

	if pz.Poles != [2]complex128{0.5, 0.25} {
		t.Fatalf("poles = %v, want [0.5 0.25]", pz.Poles)
	}
	if pz.Zeros != [2]complex128{1, 0} {
		t.Fatalf("zeros = %v, want [1 0]", pz.Zeros)
	}
}

func TestPoleZeroPairsDegenerate(t *testing.T) {
	// B0 = 0 leaves a linear numerator with a single root at -0.5.
	c := Coefficients{B1: 1, B2: 0.5}
	pz := PoleZeroPairs([]Coefficients{c})[0]

	if pz.Zeros != [2]complex128{-0.5, 0} {
		t.Fatalf("zeros = %v, want [-0.5 0]", pz.Zeros)
	}
	if pz.Poles != [2]complex128{0, 0} {
		t.Fatalf("poles = %v, want [0 0]", pz.Poles)
	}
}

func TestComplexPolesOnCircle(t *testing.T) {
	// 1 + z^-2 has poles at +-i, radius exactly 1.
	c := Coefficients{B0: 1, A2: 1}
	pz := PoleZeroPairs([]Coefficients{c})[0]

	for i, p := range pz.Poles {
		if math.Abs(cmplx.Abs(p)-1) > 1e-15 {
			t.Fatalf("pole %d: |%v| = %g, want 1", i, p, cmplx.Abs(p))
		}
		if math.Abs(real(p)) > 1e-15 {
			t.Fatalf("pole %d: %v, want purely imaginary", i, p)
		}
	}
}

func TestImpulseResponseFeedbackSection(t *testing.T) {
	c := Coefficients{B0: 1, A1: -0.5}
	got := c.ImpulseResponse(6)

	want := 1.0
	for i, y := range got {
		if y != want {
			t.Fatalf("sample %d: got %g, want %g", i, y, want)
		}
		want /= 2
	}
}

func TestImpulseResponseTwoTap(t *testing.T) {
	got := twoTapAverage().ImpulseResponse(4)
	want := []float64{0.5, 0.5, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestChainImpulseResponseMatchesFreshRun(t *testing.T) {
	coeffs := []Coefficients{
		{B0: 0.5, B1: 0.5},
		{B0: 1, A1: -0.25},
	}

	want := make([]float64, 8)
	want[0] = 1
	NewChain(coeffs).ProcessBlock(want)

	got := NewChain(coeffs).ImpulseResponse(8)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestChainImpulseResponseLeavesStateAlone(t *testing.T) {
	coeffs := []Coefficients{{B0: 1, B1: 0.5, A1: -0.3, A2: 0.1}}
	in := []float64{1, -2, 3, -4, 5, -6, 7, -8}

	straight := NewChain(coeffs)
	whole := append([]float64(nil), in...)
	straight.ProcessBlock(whole)

	probed := NewChain(coeffs)
	head := append([]float64(nil), in[:4]...)
	probed.ProcessBlock(head)
	probed.ImpulseResponse(16)
	tail := append([]float64(nil), in[4:]...)
	probed.ProcessBlock(tail)

	for i := range tail {
		if tail[i] != whole[4+i] {
			t.Fatalf("sample %d after probe: got %g, want %g", i, tail[i], whole[4+i])
		}
	}
}

func TestEmptyChainImpulseResponse(t *testing.T) {
	got := NewChain(nil).ImpulseResponse(4)
	want := []float64{1, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: got %g, want %g", i, got[i], want[i])
		}
	}
}
