package channel

import (
	"fmt"

	"github.com/cwbudde/algo-mcg/tabular"
)

// Tabular renders the table with one row per sensor.
func (t Table) Tabular() *tabular.Table {
	out := tabular.New("number", "label", "position [mm]", "direction")
	for _, e := range t {
		_ = out.Append(e.Number, e.Label, formatVec(e.Position), formatVec(e.Direction))
	}
	return out
}

func formatVec(v [3]float64) string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}
