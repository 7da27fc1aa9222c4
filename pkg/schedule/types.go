package schedule

import (
	"fmt"
	"strings"
)

// Kind is the type of a recurring power event.
type Kind int

const (
	PowerOn Kind = iota
	Shutdown
)

// Kinds lists every kind in the order entries are written to pmset.
var Kinds = []Kind{PowerOn, Shutdown}

// Keyword returns the pmset sub-command for the kind.
func (k Kind) Keyword() string {
	switch k {
	case PowerOn:
		return "wakeorpoweron"
	case Shutdown:
		return "shutdown"
	default:
		return ""
	}
}

// statusKeywords are the words that identify a kind in `pmset -g sched`
// output. Older pmset versions print "wakepoweron".
func (k Kind) statusKeywords() []string {
	switch k {
	case PowerOn:
		return []string{"wakeorpoweron", "wakepoweron"}
	case Shutdown:
		return []string{"shutdown"}
	default:
		return nil
	}
}

func (k Kind) String() string {
	switch k {
	case PowerOn:
		return "power-on"
	case Shutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts the pmset keyword or a friendly name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wakeorpoweron", "wakepoweron", "poweron", "power-on", "on", "wake":
		return PowerOn, nil
	case "shutdown", "off", "power-off", "poweroff":
		return Shutdown, nil
	default:
		return 0, fmt.Errorf("unknown schedule type %q", s)
	}
}

// Entry is one recurring power event.
type Entry struct {
	Kind    Kind
	Enabled bool
	Days    Days
	Time    Clock
}

// Record returns the wire form of the entry.
func (e Entry) Record() Record {
	return Record{
		Type: e.Kind.Keyword(),
		Days: e.Days.Code(),
		Time: e.Time.String(),
	}
}

// Set holds the power-on and shutdown entries.
type Set struct {
	PowerOn  Entry
	Shutdown Entry
}

// Default times of the two entries when nothing is configured.
var (
	DefaultPowerOnTime  = Clock{Hour: 6}
	DefaultShutdownTime = Clock{Hour: 23}
)

// DefaultSet returns both entries disabled with no days selected and the
// built-in default times.
func DefaultSet() Set {
	return NewSet(DefaultPowerOnTime, DefaultShutdownTime)
}

// NewSet returns both entries disabled with the given default times.
func NewSet(powerOn, shutdown Clock) Set {
	return Set{
		PowerOn:  Entry{Kind: PowerOn, Time: powerOn},
		Shutdown: Entry{Kind: Shutdown, Time: shutdown},
	}
}

// Entry returns the entry of the given kind.
func (s Set) Entry(k Kind) Entry {
	if k == Shutdown {
		return s.Shutdown
	}
	return s.PowerOn
}

// WithEntry returns a copy of s with the entry of e.Kind replaced.
func (s Set) WithEntry(e Entry) Set {
	if e.Kind == Shutdown {
		s.Shutdown = e
	} else {
		s.PowerOn = e
	}
	return s
}

// Entries returns both entries in apply order.
func (s Set) Entries() []Entry {
	return []Entry{s.PowerOn, s.Shutdown}
}

// Records returns the wire records of all enabled entries that have at
// least one day selected, in apply order.
func (s Set) Records() []Record {
	var out []Record
	for _, e := range s.Entries() {
		if !e.Enabled || e.Days.Empty() {
			continue
		}
		out = append(out, e.Record())
	}
	return out
}

// Record is the form in which an entry travels to the privileged helper.
type Record struct {
	Type string `json:"type"`
	Days string `json:"days"`
	Time string `json:"time"`
}
