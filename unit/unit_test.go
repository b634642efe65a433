package unit

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-mcg/errs"
)

func TestSpectralUnitAlgebra(t *testing.T) {
	psd := Femtotesla.Squared().Mul(Second)
	if got := psd.String(); got != "1e-30 T^2 s" {
		t.Fatalf("psd unit = %q, want %q", got, "1e-30 T^2 s")
	}

	asd, err := psd.Sqrt()
	if err != nil {
		t.Fatalf("sqrt: %v", err)
	}

	if got := asd.String(); got != "1e-15 T s^(1/2)" {
		t.Fatalf("asd unit = %q, want %q", got, "1e-15 T s^(1/2)")
	}

	if !Femtotesla.Mul(Second).Div(Second).Equal(Femtotesla) {
		t.Fatal("Div is not the inverse of Mul")
	}
}

func TestSqrtLeavesRaster(t *testing.T) {
	root, err := Second.Sqrt()
	if err != nil {
		t.Fatalf("sqrt(s): %v", err)
	}

	if _, err := root.Sqrt(); !errors.Is(err, errs.ErrDomain) {
		t.Fatalf("fourth root should fail with ErrDomain, got %v", err)
	}
}

func TestUnitString(t *testing.T) {
	cases := []struct {
		name string
		u    Unit
		want string
	}{
		{"femtotesla symbol", Femtotesla, "fT"},
		{"derived femtotesla", Femtotesla.Mul(Dimensionless), "1e-15 T"},
		{"ampere metre", AmpereMetre, "A m"},
		{"area", Femtotesla.Mul(Second), "1e-15 T s"},
		{"dimensionless", Dimensionless, "1"},
		{"inverse second", Dimensionless.Div(Second), "s^-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.u.String(); got != tc.want {
				t.Fatalf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestQuantityConvert(t *testing.T) {
	q := Q(2.5, Tesla)

	ft, err := q.Convert(Femtotesla)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if math.Abs(ft.Value-2.5e15) > 1 {
		t.Fatalf("2.5 T = %v fT, want 2.5e15", ft.Value)
	}

	if _, err := q.Convert(Second); !errors.Is(err, errs.ErrIncompatible) {
		t.Fatalf("T -> s should fail with ErrIncompatible, got %v", err)
	}
}

func TestQuantityAdd(t *testing.T) {
	sum, err := Q(1, Tesla).Add(Q(5, Femtotesla))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if !sum.Unit.Equal(Tesla) {
		t.Fatalf("sum unit = %s, want T", sum.Unit)
	}

	if math.Abs(sum.Value-(1+5e-15)) > 1e-18 {
		t.Fatalf("sum = %v, want 1+5e-15", sum.Value)
	}

	if _, err := Q(1, Tesla).Add(Q(1, AmpereMetre)); !errors.Is(err, errs.ErrIncompatible) {
		t.Fatalf("T + A m should fail with ErrIncompatible, got %v", err)
	}
}

func TestQuantityString(t *testing.T) {
	if got := Q(12.5, Femtotesla).String(); got != "12.5 fT" {
		t.Fatalf("String() = %q, want %q", got, "12.5 fT")
	}

	if got := Q(0.5, Dimensionless).String(); got != "0.5" {
		t.Fatalf("String() = %q, want %q", got, "0.5")
	}
}
