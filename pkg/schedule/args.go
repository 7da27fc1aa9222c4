package schedule

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord is returned when a record lacks one of its fields.
var ErrInvalidRecord = errors.New("invalid schedule format")

// RepeatArgs builds the pmset arguments for a "repeat" invocation.
//
// Records with empty days or time are skipped. If nothing is left, the
// invocation cancels all repeating events instead.
func RepeatArgs(records []Record) ([]string, error) {
	args := []string{"repeat"}
	for _, r := range records {
		if r.Type == "" {
			return nil, ErrInvalidRecord
		}
		if r.Days == "" || r.Time == "" {
			continue
		}
		kind, err := ParseKind(r.Type)
		if err != nil {
			return nil, err
		}
		days, ok := ParseDayCode(r.Days)
		if !ok {
			return nil, fmt.Errorf("invalid day code %q for %s", r.Days, kind)
		}
		t, err := ParseClock(r.Time)
		if err != nil {
			return nil, err
		}
		args = append(args, kind.Keyword(), days.Code(), t.String())
	}
	if len(args) == 1 {
		args = append(args, "cancel")
	}
	return args, nil
}

// CancelArgs returns the arguments that cancel every repeating event.
func CancelArgs() []string {
	return []string{"repeat", "cancel"}
}

// IsCancel reports whether args is a cancel invocation.
func IsCancel(args []string) bool {
	return len(args) == 2 && args[0] == "repeat" && args[1] == "cancel"
}
