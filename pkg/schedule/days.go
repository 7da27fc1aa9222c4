package schedule

import (
	"strings"
	"time"
)

// Days is a set of weekdays. Bit 0 is Monday, bit 6 is Sunday.
type Days uint8

const (
	Monday Days = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday

	Weekdays = Monday | Tuesday | Wednesday | Thursday | Friday
	Weekend  = Saturday | Sunday
	EveryDay = Weekdays | Weekend
)

// dayCodes is the single-letter weekday encoding understood by pmset, in the
// order days are written out (Monday first).
var dayCodes = [7]struct {
	day  Days
	code byte
	wd   time.Weekday
	name string
}{
	{Monday, 'M', time.Monday, "Monday"},
	{Tuesday, 'T', time.Tuesday, "Tuesday"},
	{Wednesday, 'W', time.Wednesday, "Wednesday"},
	{Thursday, 'R', time.Thursday, "Thursday"},
	{Friday, 'F', time.Friday, "Friday"},
	{Saturday, 'S', time.Saturday, "Saturday"},
	{Sunday, 'U', time.Sunday, "Sunday"},
}

// ParseDayCode decodes a pmset day-code string such as "MTWRF".
// Letters are case-insensitive. ok is false if the string contains anything
// that is not a day code or decodes to no day at all.
func ParseDayCode(s string) (d Days, ok bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		found := false
		for _, dc := range dayCodes {
			if dc.code == c {
				d |= dc.day
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return d, true
}

// Code encodes the set as a pmset day-code string, Monday first.
func (d Days) Code() string {
	var b strings.Builder
	for _, dc := range dayCodes {
		if d&dc.day != 0 {
			b.WriteByte(dc.code)
		}
	}
	return b.String()
}

func (d Days) Empty() bool {
	return d&EveryDay == 0
}

func (d Days) Has(day Days) bool {
	return day != 0 && d&day == day
}

// HasWeekday reports whether the set contains the given time.Weekday.
func (d Days) HasWeekday(wd time.Weekday) bool {
	for _, dc := range dayCodes {
		if dc.wd == wd {
			return d&dc.day != 0
		}
	}
	return false
}

func (d Days) Add(day Days) Days {
	return (d | day) & EveryDay
}

func (d Days) Remove(day Days) Days {
	return d &^ day
}

// Weekdays returns the days in the set as time.Weekday values, Monday first.
func (d Days) Weekdays() []time.Weekday {
	var out []time.Weekday
	for _, dc := range dayCodes {
		if d&dc.day != 0 {
			out = append(out, dc.wd)
		}
	}
	return out
}

// Names returns English day names, Monday first.
func (d Days) Names() []string {
	var out []string
	for _, dc := range dayCodes {
		if d&dc.day != 0 {
			out = append(out, dc.name)
		}
	}
	return out
}

func (d Days) String() string {
	return d.Code()
}

// ParseDays accepts either a day-code string ("MTWRF"), a comma separated
// list of day names or 3-letter abbreviations ("mon,tue,sat"), or one of the
// shortcuts "weekdays", "weekend", "everyday" and "none".
func ParseDays(s string) (Days, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "weekdays":
		return Weekdays, true
	case "weekend", "weekends":
		return Weekend, true
	case "everyday", "daily", "all":
		return EveryDay, true
	case "none", "":
		return 0, true
	}

	if !strings.Contains(s, ",") {
		if d, ok := ParseDayCode(s); ok {
			return d, true
		}
	}

	var d Days
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		found := false
		for _, dc := range dayCodes {
			name := strings.ToLower(dc.name)
			if part == name || (len(part) >= 3 && strings.HasPrefix(name, part)) {
				d |= dc.day
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return d, true
}
