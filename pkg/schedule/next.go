package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CronSpec returns the entry as a standard 5-field cron expression.
// It returns an empty string for entries with no days.
func (e Entry) CronSpec() string {
	wds := e.Days.Weekdays()
	if len(wds) == 0 {
		return ""
	}
	dow := make([]string, 0, len(wds))
	for _, wd := range wds {
		dow = append(dow, strconv.Itoa(int(wd)))
	}
	return fmt.Sprintf("%d %d * * %s", e.Time.Minute, e.Time.Hour, strings.Join(dow, ","))
}

// Next returns the first time after from at which the entry fires, in
// from's location. ok is false if the entry is disabled or has no days.
func (e Entry) Next(from time.Time) (next time.Time, ok bool) {
	if !e.Enabled {
		return time.Time{}, false
	}
	spec := e.CronSpec()
	if spec == "" {
		return time.Time{}, false
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, false
	}
	return sched.Next(from), true
}
