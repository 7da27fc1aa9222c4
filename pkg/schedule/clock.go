package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day with minute precision. Seconds are always zero.
type Clock struct {
	Hour   int
	Minute int
}

// NewClock builds a Clock, normalizing out-of-range values into a day.
func NewClock(hour, minute int) Clock {
	m := ((hour*60+minute)%(24*60) + 24*60) % (24 * 60)
	return Clock{Hour: m / 60, Minute: m % 60}
}

// String formats the clock the way pmset expects it, HH:MM:SS.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:00", c.Hour, c.Minute)
}

// Short formats the clock as HH:MM.
func (c Clock) Short() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Distance returns the shortest distance between two times of day, going
// either way around midnight.
func (c Clock) Distance(other Clock) time.Duration {
	diff := c.Minutes() - other.Minutes()
	if diff < 0 {
		diff = -diff
	}
	if wrap := 24*60 - diff; wrap < diff {
		diff = wrap
	}
	return time.Duration(diff) * time.Minute
}

// ParseClock parses a strict HH:MM:SS string as printed by pmset.
// Seconds must be present and are discarded.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Clock{}, fmt.Errorf("invalid time %q: want HH:MM:SS", s)
	}
	return parseClockParts(s, parts)
}

// ParseUserClock is more lenient than ParseClock: it accepts HH:MM as well
// as HH:MM:SS. It is meant for command-line input.
func ParseUserClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Clock{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return parseClockParts(s, parts)
}

func parseClockParts(s string, parts []string) (Clock, error) {
	limits := []int{23, 59, 59}
	values := make([]int, len(parts))
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return Clock{}, fmt.Errorf("invalid time %q", s)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return Clock{}, fmt.Errorf("invalid time %q", s)
		}
		values[i] = v
	}
	return Clock{Hour: values[0], Minute: values[1]}, nil
}
