// Package unit provides compact physical units for magnetometry data.
//
// A [Unit] is a decimal scale plus one exponent per base dimension
// (tesla, second, metre, ampere). Exponents are stored in half steps so
// spectral-density units like fT s^(1/2) stay representable, and scales
// are stored as powers of ten so conversions stay exact.
package unit

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-mcg/errs"
)

// Unit is a physical unit: a power-of-ten scale relative to the SI base
// units and a rational exponent per base dimension. The zero value is
// the dimensionless unit with scale 1.
type Unit struct {
	sym     string // display symbol, dropped by arithmetic
	scale10 int8   // decimal exponent of the scale
	tesla   int8   // dimension exponents, in half steps (2 == ^1)
	second  int8
	metre   int8
	ampere  int8
}

// Predefined units.
var (
	Dimensionless = Unit{}
	Tesla         = Unit{sym: "T", tesla: 2}
	Femtotesla    = Unit{sym: "fT", scale10: -15, tesla: 2}
	Second        = Unit{sym: "s", second: 2}
	Hertz         = Unit{sym: "Hz", second: -2}
	Metre         = Unit{sym: "m", metre: 2}
	Millimetre    = Unit{sym: "mm", scale10: -3, metre: 2}
	AmpereMetre   = Unit{sym: "A m", ampere: 2, metre: 2}
)

// Mul returns the product unit.
func (u Unit) Mul(o Unit) Unit {
	return Unit{
		scale10: u.scale10 + o.scale10,
		tesla:   u.tesla + o.tesla,
		second:  u.second + o.second,
		metre:   u.metre + o.metre,
		ampere:  u.ampere + o.ampere,
	}
}

// Div returns the quotient unit.
func (u Unit) Div(o Unit) Unit {
	return Unit{
		scale10: u.scale10 - o.scale10,
		tesla:   u.tesla - o.tesla,
		second:  u.second - o.second,
		metre:   u.metre - o.metre,
		ampere:  u.ampere - o.ampere,
	}
}

// Squared returns the unit raised to the second power.
func (u Unit) Squared() Unit {
	return u.Mul(u)
}

// Sqrt returns the square root of the unit. It fails when an exponent or
// the scale would leave the representable half-step raster, e.g. the
// square root of a plain second is fine but the fourth root is not.
func (u Unit) Sqrt() (Unit, error) {
	if u.scale10%2 != 0 || u.tesla%2 != 0 || u.second%2 != 0 || u.metre%2 != 0 || u.ampere%2 != 0 {
		return Unit{}, fmt.Errorf("unit: square root of %s leaves the half-step raster: %w", u, errs.ErrDomain)
	}

	return Unit{
		scale10: u.scale10 / 2,
		tesla:   u.tesla / 2,
		second:  u.second / 2,
		metre:   u.metre / 2,
		ampere:  u.ampere / 2,
	}, nil
}

// Equal reports whether two units have the same scale and dimensions.
// Display symbols are ignored.
func (u Unit) Equal(o Unit) bool {
	return u.scale10 == o.scale10 &&
		u.tesla == o.tesla &&
		u.second == o.second &&
		u.metre == o.metre &&
		u.ampere == o.ampere
}

// SameDimension reports whether two units differ at most in scale.
func (u Unit) SameDimension(o Unit) bool {
	return u.tesla == o.tesla &&
		u.second == o.second &&
		u.metre == o.metre &&
		u.ampere == o.ampere
}

// String renders the unit. Predefined units keep their symbol; derived
// units are composed from scale and dimensions, e.g. "1e-30 T^2 s".
func (u Unit) String() string {
	if u.sym != "" {
		return u.sym
	}

	var parts []string
	if u.scale10 != 0 {
		parts = append(parts, fmt.Sprintf("1e%d", u.scale10))
	}

	for _, d := range []struct {
		sym string
		h   int8
	}{
		{"T", u.tesla},
		{"A", u.ampere},
		{"m", u.metre},
		{"s", u.second},
	} {
		if d.h == 0 {
			continue
		}

		parts = append(parts, d.sym+expSuffix(d.h))
	}

	if len(parts) == 0 {
		return "1"
	}

	return strings.Join(parts, " ")
}

// expSuffix renders a half-step exponent, omitting "^1".
func expSuffix(h int8) string {
	switch {
	case h == 2:
		return ""
	case h%2 == 0:
		return fmt.Sprintf("^%d", h/2)
	default:
		return fmt.Sprintf("^(%d/2)", h)
	}
}
