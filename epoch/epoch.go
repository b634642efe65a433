// Package epoch converts between float64 Unix timestamps and the
// datetime strings carried in recording metadata. Acquisition hardware
// in this domain stamps records against the LabVIEW epoch (1904-01-01),
// so shifts between the two epochs are provided as well.
package epoch

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-mcg/errs"
)

// Layout is the canonical datetime form, microsecond precision, UTC.
const Layout = "2006-01-02 15:04:05.000000"

// Seconds between 1904-01-01 and 1970-01-01, both UTC.
const labviewOffset = 2082844800

// Format renders a Unix timestamp in the canonical layout.
func Format(ts float64) string {
	return asTime(ts).Format(Layout)
}

// Parse reads a datetime string back into a Unix timestamp. Besides the
// canonical layout it accepts whole-second and date-only forms.
func Parse(s string) (float64, error) {
	for _, layout := range []string{Layout, "2006-01-02 15:04:05", "2006-01-02"} {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return float64(t.UnixNano()) / 1e9, nil
		}
	}

	return 0, fmt.Errorf("epoch: cannot parse datetime %q: %w", s, errs.ErrDomain)
}

// FromLabVIEW shifts a LabVIEW-epoch timestamp onto the Unix epoch.
func FromLabVIEW(ts float64) float64 {
	return ts - labviewOffset
}

// ToLabVIEW shifts a Unix timestamp onto the LabVIEW epoch.
func ToLabVIEW(ts float64) float64 {
	return ts + labviewOffset
}

// Time converts a Unix timestamp into a time.Time in UTC.
func Time(ts float64) time.Time {
	return asTime(ts)
}

func asTime(ts float64) time.Time {
	sec := math.Floor(ts)
	nsec := math.Round((ts - sec) * 1e9)

	return time.Unix(int64(sec), int64(nsec)).UTC()
}
