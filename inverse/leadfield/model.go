package leadfield

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-mcg/errs"
)

// Model selects the analytic forward kernel relating a unit dipole on
// the source plane to the field at a sensor.
type Model int

const (
	// ModelHorizontal restricts currents to horizontal flow in a
	// conducting half space. This is the default.
	ModelHorizontal Model = iota
	// ModelSpherical uses the spherical volume conductor solution.
	ModelSpherical
	// ModelFree is the free-space dipole field without a conductor.
	ModelFree
)

// String returns the lower-case model name.
func (m Model) String() string {
	switch m {
	case ModelHorizontal:
		return "horizontal"
	case ModelSpherical:
		return "spherical"
	case ModelFree:
		return "free"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

func (m Model) valid() bool {
	return m >= ModelHorizontal && m <= ModelFree
}

// ParseModel resolves a model name, ignoring case.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal":
		return ModelHorizontal, nil
	case "spherical":
		return ModelSpherical, nil
	case "free":
		return ModelFree, nil
	default:
		return 0, fmt.Errorf("leadfield: unknown model %q: %w", s, errs.ErrDomain)
	}
}

// Axis selects the dipole components placed on each source cell. AxisZ
// keeps the two tangential components, AxisX and AxisY use all three.
type Axis int

const (
	// AxisZ is the default for a horizontal source plane.
	AxisZ Axis = iota
	AxisX
	AxisY
)

// String returns the lower-case axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

func (a Axis) valid() bool {
	return a >= AxisZ && a <= AxisY
}

// ParseAxis resolves an axis name, ignoring case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return 0, fmt.Errorf("leadfield: unknown axis %q: %w", s, errs.ErrDomain)
	}
}

// components returns the unit dipole moments per source cell. A plane
// normal to z carries only the two tangential moments; tilted planes
// carry all three.
func (a Axis) components() [][3]float64 {
	if a == AxisZ {
		return [][3]float64{{1, 0, 0}, {0, 1, 0}}
	}
	return [][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// unitVector returns the pickup direction of a virtual magnetometer
// oriented along the axis.
func (a Axis) unitVector() [3]float64 {
	switch a {
	case AxisX:
		return [3]float64{1, 0, 0}
	case AxisY:
		return [3]float64{0, 1, 0}
	default:
		return [3]float64{0, 0, 1}
	}
}
