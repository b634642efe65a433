package unit

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mcg/errs"
)

// Quantity couples a value with its unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

// Q is shorthand for constructing a Quantity.
func Q(value float64, u Unit) Quantity {
	return Quantity{Value: value, Unit: u}
}

// Scale returns the quantity multiplied by a bare factor.
func (q Quantity) Scale(k float64) Quantity {
	return Quantity{Value: q.Value * k, Unit: q.Unit}
}

// Mul returns the product of two quantities with the product unit.
func (q Quantity) Mul(o Quantity) Quantity {
	return Quantity{Value: q.Value * o.Value, Unit: q.Unit.Mul(o.Unit)}
}

// Add returns the sum. The other quantity is converted into the
// receiver's unit first, so "1 T + 5 fT" works and keeps unit T.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	conv, err := o.Convert(q.Unit)
	if err != nil {
		return Quantity{}, err
	}

	return Quantity{Value: q.Value + conv.Value, Unit: q.Unit}, nil
}

// Convert re-expresses the quantity in another unit of the same
// dimension.
func (q Quantity) Convert(to Unit) (Quantity, error) {
	if !q.Unit.SameDimension(to) {
		return Quantity{}, fmt.Errorf("unit: cannot convert %s to %s: %w", q.Unit, to, errs.ErrIncompatible)
	}

	factor := math.Pow(10, float64(q.Unit.scale10-to.scale10))

	return Quantity{Value: q.Value * factor, Unit: to}, nil
}

func (q Quantity) String() string {
	u := q.Unit.String()
	if u == "1" {
		return fmt.Sprintf("%g", q.Value)
	}

	return fmt.Sprintf("%g %s", q.Value, u)
}
