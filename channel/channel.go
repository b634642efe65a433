// Package channel identifies sensors by number and label and carries the
// parsed sensor-configuration table the analysis core consumes.
package channel

import (
	"fmt"

	"github.com/cwbudde/algo-mcg/errs"
)

// Ref selects a channel by number, by label, or by both. The zero Ref
// selects nothing and is rejected wherever a selection is required.
type Ref struct {
	number    int
	label     string
	hasNumber bool
	hasLabel  bool
}

// ByNumber selects the channel with the given hardware number.
func ByNumber(n int) Ref {
	return Ref{number: n, hasNumber: true}
}

// ByLabel selects the channel with the given label.
func ByLabel(label string) Ref {
	return Ref{label: label, hasLabel: true}
}

// ByBoth selects by number and additionally pins the expected label.
// Lookups fail with errs.ErrAmbiguous when the pair disagrees with the
// table.
func ByBoth(n int, label string) Ref {
	return Ref{number: n, label: label, hasNumber: true, hasLabel: true}
}

// Number returns the selected number, if one was given.
func (r Ref) Number() (int, bool) {
	return r.number, r.hasNumber
}

// Label returns the selected label, if one was given.
func (r Ref) Label() (string, bool) {
	return r.label, r.hasLabel
}

// IsZero reports whether the Ref selects nothing.
func (r Ref) IsZero() bool {
	return !r.hasNumber && !r.hasLabel
}

// String describes the selection for error messages.
func (r Ref) String() string {
	switch {
	case r.hasNumber && r.hasLabel:
		return fmt.Sprintf("number %d / label %q", r.number, r.label)
	case r.hasNumber:
		return fmt.Sprintf("number %d", r.number)
	case r.hasLabel:
		return fmt.Sprintf("label %q", r.label)
	default:
		return "empty selector"
	}
}

// Entry describes one sensor: its hardware number, label and, when the
// configuration provides geometry, position (mm) and pickup direction.
type Entry struct {
	Number    int
	Label     string
	Position  [3]float64
	Direction [3]float64
}

// Table is an ordered sensor list, typically parsed from a sensor
// configuration file by an external reader.
type Table []Entry

// Lookup resolves a Ref against the table.
func (t Table) Lookup(ref Ref) (Entry, error) {
	if ref.IsZero() {
		return Entry{}, fmt.Errorf("channel: %s: %w", ref, errs.ErrDomain)
	}
	if ref.hasNumber {
		for _, e := range t {
			if e.Number != ref.number {
				continue
			}
			if ref.hasLabel && e.Label != ref.label {
				return Entry{}, fmt.Errorf("channel: %s resolves to label %q: %w",
					ref, e.Label, errs.ErrAmbiguous)
			}
			return e, nil
		}
		return Entry{}, fmt.Errorf("channel: %s: %w", ref, errs.ErrNotFound)
	}
	for _, e := range t {
		if e.Label == ref.label {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("channel: %s: %w", ref, errs.ErrNotFound)
}

// Numbers returns the channel numbers in table order.
func (t Table) Numbers() []int {
	out := make([]int, len(t))
	for i, e := range t {
		out[i] = e.Number
	}
	return out
}

// Labels returns the channel labels in table order.
func (t Table) Labels() []string {
	out := make([]string, len(t))
	for i, e := range t {
		out[i] = e.Label
	}
	return out
}

// Positions returns the sensor positions in table order.
func (t Table) Positions() [][3]float64 {
	out := make([][3]float64, len(t))
	for i, e := range t {
		out[i] = e.Position
	}
	return out
}

// Directions returns the pickup directions in table order.
func (t Table) Directions() [][3]float64 {
	out := make([][3]float64, len(t))
	for i, e := range t {
		out[i] = e.Direction
	}
	return out
}

// Validate checks that numbers and labels each identify exactly one
// entry, so number- and label-based selection agree.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("channel: empty table: %w", errs.ErrDomain)
	}
	numbers := make(map[int]struct{}, len(t))
	labels := make(map[string]struct{}, len(t))
	for _, e := range t {
		if _, dup := numbers[e.Number]; dup {
			return fmt.Errorf("channel: duplicate number %d: %w", e.Number, errs.ErrDomain)
		}
		numbers[e.Number] = struct{}{}
		if _, dup := labels[e.Label]; dup {
			return fmt.Errorf("channel: duplicate label %q: %w", e.Label, errs.ErrDomain)
		}
		labels[e.Label] = struct{}{}
	}
	return nil
}
