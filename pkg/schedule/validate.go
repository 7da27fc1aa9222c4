package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNothingEnabled is returned when neither entry is enabled.
	ErrNothingEnabled = errors.New("no schedule is enabled")

	// ErrNoDays is returned when an enabled entry has no day selected.
	ErrNoDays = errors.New("no day selected")
)

// DefaultMinCycleGap is how close power-on and shutdown may be before
// Validate warns about it.
const DefaultMinCycleGap = 5 * time.Minute

// Warning is a non-fatal validation finding. The caller decides whether
// to go ahead.
type Warning struct {
	Code    string
	Message string
}

const WarnCloseTimes = "close-times"

// Validate checks the set before it is applied.
//
// It fails when nothing is enabled or when an enabled entry has no days.
// If both entries are enabled and their times are within minGap of each
// other (around midnight too), a WarnCloseTimes warning is returned.
// A non-positive minGap disables the check.
func Validate(s Set, minGap time.Duration) ([]Warning, error) {
	if !s.PowerOn.Enabled && !s.Shutdown.Enabled {
		return nil, ErrNothingEnabled
	}
	for _, e := range s.Entries() {
		if e.Enabled && e.Days.Empty() {
			return nil, fmt.Errorf("%s: %w", e.Kind, ErrNoDays)
		}
	}

	var warnings []Warning
	if minGap > 0 && s.PowerOn.Enabled && s.Shutdown.Enabled {
		if d := s.PowerOn.Time.Distance(s.Shutdown.Time); d <= minGap {
			warnings = append(warnings, Warning{
				Code: WarnCloseTimes,
				Message: fmt.Sprintf("power-on (%s) and shutdown (%s) are only %s apart",
					s.PowerOn.Time.Short(), s.Shutdown.Time.Short(), d),
			})
		}
	}
	return warnings, nil
}
