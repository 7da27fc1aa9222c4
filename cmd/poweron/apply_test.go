package main

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/poweron/poweron/pkg/schedule"
)

func TestEntryFlagsUpdate(t *testing.T) {
	base := schedule.Entry{Kind: schedule.PowerOn, Enabled: true, Days: schedule.Weekdays, Time: schedule.NewClock(6, 0)}
	off := schedule.Entry{Kind: schedule.PowerOn, Time: schedule.NewClock(6, 0)}

	tests := []struct {
		name    string
		from    schedule.Entry
		args    []string
		want    schedule.Entry
		wantErr bool
	}{
		{
			name: "nothing set keeps the entry",
			from: base,
			want: base,
		},
		{
			name: "disable",
			from: base,
			args: []string{"--power-on=false"},
			want: schedule.Entry{Kind: schedule.PowerOn, Days: schedule.Weekdays, Time: schedule.NewClock(6, 0)},
		},
		{
			name: "days and time enable",
			from: off,
			args: []string{"--power-on-days", "weekend", "--power-on-time", "9:15"},
			want: schedule.Entry{Kind: schedule.PowerOn, Enabled: true, Days: schedule.Weekend, Time: schedule.NewClock(9, 15)},
		},
		{
			name: "explicit disable wins over days",
			from: off,
			args: []string{"--power-on=false", "--power-on-days", "MWF"},
			want: schedule.Entry{Kind: schedule.PowerOn, Days: schedule.Monday | schedule.Wednesday | schedule.Friday, Time: schedule.NewClock(6, 0)},
		},
		{
			name:    "bad days",
			from:    base,
			args:    []string{"--power-on-days", "XYZ"},
			wantErr: true,
		},
		{
			name:    "bad time",
			from:    base,
			args:    []string{"--power-on-time", "7pm"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &entryFlags{prefix: "power-on"}
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			f.register(fs, "power-on")
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}

			got, err := f.update(fs, tt.from)
			if (err != nil) != tt.wantErr {
				t.Fatalf("update() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("update() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
