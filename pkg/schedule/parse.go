package schedule

import (
	"bufio"
	"strings"
)

// ParseStatus reads the output of `pmset -g sched` into a Set.
//
// The format belongs to pmset and changes between macOS releases, so the
// parse is opportunistic: for each kind, the first line containing its
// keyword is scanned for the first token with a colon, decoded as HH:MM:SS,
// and the token right before it is taken as the day-code string. An entry
// only becomes enabled when both decode. Anything else leaves the entry as
// it is in defaults, disabled.
func ParseStatus(text string, defaults Set) Set {
	out := defaults
	out.PowerOn.Enabled, out.PowerOn.Days = false, 0
	out.Shutdown.Enabled, out.Shutdown.Days = false, 0

	done := map[Kind]bool{}
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		for _, k := range Kinds {
			if done[k] || !lineHasKind(line, k) {
				continue
			}
			e, ok := parseStatusLine(line, k, out.Entry(k))
			if !ok {
				continue
			}
			out = out.WithEntry(e)
			done[k] = true
		}
	}
	return out
}

func lineHasKind(line string, k Kind) bool {
	lower := strings.ToLower(line)
	for _, kw := range k.statusKeywords() {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func parseStatusLine(line string, k Kind, e Entry) (Entry, bool) {
	fields := strings.Fields(line)

	// When both kinds share a line, start scanning at this kind's keyword.
	start := 0
	for i, f := range fields {
		if lineHasKind(f, k) {
			start = i
			break
		}
	}

	for i := start; i < len(fields); i++ {
		f := fields[i]
		if !strings.Contains(f, ":") {
			continue
		}
		// Only the first token with a colon is considered.
		if i == 0 {
			return e, false
		}
		t, err := ParseClock(f)
		if err != nil {
			return e, false
		}
		days, ok := ParseDayCode(fields[i-1])
		if !ok {
			return e, false
		}
		e.Enabled = true
		e.Days = days
		e.Time = t
		return e, true
	}
	return e, false
}
