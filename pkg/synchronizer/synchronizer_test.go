package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/poweron/poweron/pkg/config"
	"github.com/poweron/poweron/pkg/pmset"
	"github.com/poweron/poweron/pkg/schedule"
)

type fakeExecutor struct {
	err     error
	block   chan struct{}
	applied [][]schedule.Record
}

func (f *fakeExecutor) Apply(_ context.Context, records []schedule.Record) error {
	if f.block != nil {
		<-f.block
	}
	f.applied = append(f.applied, records)
	return f.err
}

type fakeStatus struct {
	out string
	err error
}

func (f *fakeStatus) Status(context.Context) (string, error) {
	return f.out, f.err
}

func weekdaysAt(k schedule.Kind, h, m int) schedule.Entry {
	return schedule.Entry{Kind: k, Enabled: true, Days: schedule.Weekdays, Time: schedule.NewClock(h, m)}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		status  *fakeStatus
		want    schedule.Set
		wantErr bool
	}{
		{
			name:   "power-on line",
			status: &fakeStatus{out: "repeat wakeorpoweron MTWRF 06:00:00"},
			want: schedule.Set{
				PowerOn:  weekdaysAt(schedule.PowerOn, 6, 0),
				Shutdown: schedule.Entry{Kind: schedule.Shutdown, Time: schedule.DefaultShutdownTime},
			},
		},
		{
			name:   "empty output",
			status: &fakeStatus{out: ""},
			want:   schedule.DefaultSet(),
		},
		{
			name:   "garbage output",
			status: &fakeStatus{out: "wakeorpoweron ??? nonsense\nshutdown at"},
			want:   schedule.DefaultSet(),
		},
		{
			name:    "tool failure falls back to defaults",
			status:  &fakeStatus{err: newError(ExternalToolLaunchFailure, pmset.ErrNotFound, "pmset not found")},
			want:    schedule.DefaultSet(),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{Status: tt.status, Executor: &fakeExecutor{}})
			got, err := s.Load(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Load() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadUsesConfiguredDefaults(t *testing.T) {
	defaults := schedule.NewSet(schedule.NewClock(7, 15), schedule.NewClock(22, 0))
	s := New(Options{Status: &fakeStatus{err: errors.New("boom")}, Defaults: defaults})
	got, _ := s.Load(context.Background())
	if got != defaults {
		t.Errorf("Load() = %+v, want %+v", got, defaults)
	}
}

func TestValidate(t *testing.T) {
	s := New(Options{MinCycleGap: 5 * time.Minute})

	_, err := s.Validate(schedule.DefaultSet())
	if !IsKind(err, InvalidConfiguration) || !errors.Is(err, schedule.ErrNothingEnabled) {
		t.Errorf("Validate(nothing enabled) = %v", err)
	}

	noDays := schedule.DefaultSet()
	noDays.Shutdown.Enabled = true
	_, err = s.Validate(noDays)
	if !errors.Is(err, InvalidConfiguration) || !errors.Is(err, schedule.ErrNoDays) {
		t.Errorf("Validate(no days) = %v", err)
	}

	near := schedule.Set{PowerOn: weekdaysAt(schedule.PowerOn, 6, 0), Shutdown: weekdaysAt(schedule.Shutdown, 6, 4)}
	warnings, err := s.Validate(near)
	if err != nil {
		t.Fatalf("Validate(near) error: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Code != schedule.WarnCloseTimes {
		t.Errorf("Validate(near) warnings = %+v", warnings)
	}

	off := New(Options{MinCycleGap: 0})
	warnings, err = off.Validate(near)
	if err != nil || len(warnings) != 0 {
		t.Errorf("Validate with gap disabled = %+v, %v", warnings, err)
	}
}

func TestApply(t *testing.T) {
	exec := &fakeExecutor{}
	s := New(Options{Executor: exec})

	set := schedule.Set{
		PowerOn:  weekdaysAt(schedule.PowerOn, 6, 0),
		Shutdown: schedule.Entry{Kind: schedule.Shutdown, Days: schedule.Weekend, Time: schedule.NewClock(23, 0)},
	}
	if err := s.Apply(context.Background(), set); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	want := [][]schedule.Record{{{Type: "wakeorpoweron", Days: "MTWRF", Time: "06:00:00"}}}
	if !reflect.DeepEqual(exec.applied, want) {
		t.Errorf("applied = %+v, want %+v", exec.applied, want)
	}
}

func TestApplyRejectsBeforeExecuting(t *testing.T) {
	exec := &fakeExecutor{}
	s := New(Options{Executor: exec})

	err := s.Apply(context.Background(), schedule.DefaultSet())
	if !IsKind(err, InvalidConfiguration) {
		t.Fatalf("Apply() error = %v, want InvalidConfiguration", err)
	}
	if len(exec.applied) != 0 {
		t.Errorf("executor ran: %+v", exec.applied)
	}
}

func TestCancel(t *testing.T) {
	exec := &fakeExecutor{}
	s := New(Options{Executor: exec})
	if err := s.Cancel(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(exec.applied) != 1 || len(exec.applied[0]) != 0 {
		t.Errorf("applied = %+v, want one empty apply", exec.applied)
	}
}

func TestApplyAsyncSingleInFlight(t *testing.T) {
	exec := &fakeExecutor{block: make(chan struct{})}
	s := New(Options{Executor: exec})
	set := schedule.Set{PowerOn: weekdaysAt(schedule.PowerOn, 6, 0), Shutdown: schedule.DefaultSet().Shutdown}

	first := s.ApplyAsync(context.Background(), set)

	if err := <-s.ApplyAsync(context.Background(), set); !errors.Is(err, ErrBusy) {
		t.Errorf("second ApplyAsync() = %v, want ErrBusy", err)
	}
	if err := s.Apply(context.Background(), set); !errors.Is(err, ErrBusy) {
		t.Errorf("Apply() while busy = %v, want ErrBusy", err)
	}

	close(exec.block)
	if err := <-first; err != nil {
		t.Fatalf("first ApplyAsync() = %v", err)
	}
	if _, ok := <-first; ok {
		t.Error("channel should be closed after the result")
	}

	// Free again once the first apply finished.
	if err := s.Apply(context.Background(), set); err != nil {
		t.Errorf("Apply() after completion = %v", err)
	}
}

func TestCommand(t *testing.T) {
	s := New(Options{Runner: &pmset.Runner{Path: "/usr/bin/pmset"}})
	set := schedule.Set{
		PowerOn:  weekdaysAt(schedule.PowerOn, 6, 0),
		Shutdown: schedule.Entry{Kind: schedule.Shutdown, Enabled: true, Days: schedule.EveryDay, Time: schedule.NewClock(23, 0)},
	}
	got, err := s.Command(set)
	if err != nil {
		t.Fatal(err)
	}
	want := "/usr/bin/pmset repeat wakeorpoweron MTWRF 06:00:00 shutdown MTWRFSU 23:00:00"
	if got != want {
		t.Errorf("Command() = %q, want %q", got, want)
	}

	got, _ = s.Command(schedule.DefaultSet())
	if got != "/usr/bin/pmset repeat cancel" {
		t.Errorf("Command(empty) = %q", got)
	}
}

// fakePmset writes a shell script standing in for pmset.
func fakePmset(t *testing.T, exitCode int, stderr string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "pmset")
	script := "#!/bin/sh\nprintf '%s' '" + stderr + "' >&2\nexit " + string(rune('0'+exitCode)) + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDirectExecutorErrors(t *testing.T) {
	records := []schedule.Record{{Type: "shutdown", Days: "U", Time: "23:00:00"}}

	d := &DirectExecutor{Runner: pmset.New(fakePmset(t, 1, "Error: must be root"))}
	err := d.Apply(context.Background(), records)
	if !IsKind(err, ExternalToolLaunchFailure) {
		t.Fatalf("Apply() error = %v, want ExternalToolLaunchFailure", err)
	}
	var e *Error
	if errors.As(err, &e) && e.Detail != "Error: must be root" {
		t.Errorf("detail = %q", e.Detail)
	}

	missing := &DirectExecutor{Runner: pmset.New(filepath.Join(t.TempDir(), "nope"))}
	err = missing.Apply(context.Background(), records)
	if !IsKind(err, ExternalToolLaunchFailure) || !errors.Is(err, pmset.ErrNotFound) {
		t.Errorf("Apply() with missing pmset = %v", err)
	}

	ok := &DirectExecutor{Runner: pmset.New(fakePmset(t, 0, ""))}
	if err := ok.Apply(context.Background(), records); err != nil {
		t.Errorf("Apply() = %v", err)
	}

	err = ok.Apply(context.Background(), []schedule.Record{{Days: "U", Time: "23:00:00"}})
	if !IsKind(err, InvalidConfiguration) {
		t.Errorf("Apply(missing type) = %v, want InvalidConfiguration", err)
	}
}

func TestNewExecutor(t *testing.T) {
	defer func() { geteuid = os.Geteuid }()
	runner := pmset.New("/usr/bin/pmset")
	bridge := NewBridge("/tmp/none.sock", nil)

	tests := []struct {
		mode     config.PrivilegeMode
		euid     int
		wantSudo *bool
	}{
		{mode: config.PrivilegeAuto, euid: 0, wantSudo: ptrBool(false)},
		{mode: config.PrivilegeAuto, euid: 501},
		{mode: config.PrivilegeDirect, euid: 501, wantSudo: ptrBool(false)},
		{mode: config.PrivilegeSudo, euid: 501, wantSudo: ptrBool(true)},
		{mode: config.PrivilegeHelper, euid: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/euid=%d", tt.mode, tt.euid), func(t *testing.T) {
			geteuid = func() int { return tt.euid }
			ex := NewExecutor(tt.mode, runner, bridge)
			if tt.wantSudo == nil {
				if _, ok := ex.(*HelperExecutor); !ok {
					t.Fatalf("NewExecutor() = %T, want *HelperExecutor", ex)
				}
				return
			}
			d, ok := ex.(*DirectExecutor)
			if !ok {
				t.Fatalf("NewExecutor() = %T, want *DirectExecutor", ex)
			}
			if d.Runner.Sudo != *tt.wantSudo {
				t.Errorf("Sudo = %v, want %v", d.Runner.Sudo, *tt.wantSudo)
			}
		})
	}
}

func ptrBool(b bool) *bool { return &b }
