package biquad

import (
	"math"
	"math/cmplx"
)

// Response evaluates the section transfer function at freq, given the
// sample rate, both in hertz.
func (c *Coefficients) Response(freq, sampleRate float64) complex128 {
	z1 := cmplx.Exp(complex(0, -2*math.Pi*freq/sampleRate))
	z2 := z1 * z1
	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := 1 + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	return num / den
}

// MagnitudeSquared returns |H(f)|^2.
func (c *Coefficients) MagnitudeSquared(freq, sampleRate float64) float64 {
	h := c.Response(freq, sampleRate)
	return real(h)*real(h) + imag(h)*imag(h)
}

// MagnitudeDB returns the section gain at freq in decibels.
func (c *Coefficients) MagnitudeDB(freq, sampleRate float64) float64 {
	return 10 * math.Log10(c.MagnitudeSquared(freq, sampleRate))
}

// ImpulseResponse returns the section's first n output samples for a
// unit impulse.
func (c *Coefficients) ImpulseResponse(n int) []float64 {
	out := impulse(n)
	NewSection(*c).ProcessBlock(out)
	return out
}

// Response evaluates the cascade transfer function, the product of the
// section responses.
func (c *Chain) Response(freq, sampleRate float64) complex128 {
	h := complex(1, 0)
	for i := range c.sections {
		h *= c.sections[i].Response(freq, sampleRate)
	}
	return h
}

// MagnitudeDB returns the cascade gain at freq in decibels.
func (c *Chain) MagnitudeDB(freq, sampleRate float64) float64 {
	return 20 * math.Log10(cmplx.Abs(c.Response(freq, sampleRate)))
}

// ImpulseResponse returns the cascade's first n output samples for a
// unit impulse, run on fresh sections so live filter state is
// untouched.
func (c *Chain) ImpulseResponse(n int) []float64 {
	out := impulse(n)
	for i := range c.sections {
		section := NewSection(c.sections[i].Coefficients)
		section.ProcessBlock(out)
	}
	return out
}

func impulse(n int) []float64 {
	out := make([]float64, n)
	if n > 0 {
		out[0] = 1
	}
	return out
}

// PoleZeroPair holds the z-plane roots of one section; first-order
// sections carry a zero value in the second slot.
type PoleZeroPair struct {
	Poles [2]complex128
	Zeros [2]complex128
}

// PoleZeroPairs returns the roots of every section: poles from
// 1 + A1 z^-1 + A2 z^-2, zeros from B0 + B1 z^-1 + B2 z^-2.
func PoleZeroPairs(coeffs []Coefficients) []PoleZeroPair {
	out := make([]PoleZeroPair, len(coeffs))
	for i, c := range coeffs {
		out[i] = PoleZeroPair{
			Poles: roots(1, c.A1, c.A2),
			Zeros: roots(c.B0, c.B1, c.B2),
		}
	}
	return out
}

// roots solves a*z^2 + b*z + c = 0, degenerating to the linear and
// empty cases when leading terms vanish.
func roots(a, b, c float64) [2]complex128 {
	if a == 0 {
		if b == 0 {
			return [2]complex128{}
		}
		return [2]complex128{complex(-c/b, 0), 0}
	}
	d := cmplx.Sqrt(complex(b*b-4*a*c, 0))
	return [2]complex128{
		(complex(-b, 0) + d) / complex(2*a, 0),
		(complex(-b, 0) - d) / complex(2*a, 0),
	}
}
