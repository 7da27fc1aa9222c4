package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poweron/poweron/pkg/client"
	"github.com/poweron/poweron/pkg/schedule"
	"github.com/poweron/poweron/pkg/version"
)

// fakeHelper answers like a helper that may or may not be running.
type fakeHelper struct {
	running bool
	pings   int
	setErr  error
	got     []schedule.Record
	cancels int
}

func (f *fakeHelper) GetVersion(context.Context) (string, error) {
	f.pings++
	if !f.running {
		return "", fmt.Errorf("failed to send request: %w", client.ErrHelperNotRunning)
	}
	return version.Version, nil
}

func (f *fakeHelper) GetSchedule(context.Context) (string, error) {
	return "Repeating power events:\n  shutdown at 11:00PM every day\n", nil
}

func (f *fakeHelper) SetSchedules(_ context.Context, records []schedule.Record) error {
	f.got = records
	return f.setErr
}

func (f *fakeHelper) CancelAllSchedules(context.Context) error {
	f.cancels++
	return nil
}

type fakeInstaller struct {
	helper *fakeHelper
	err    error
	calls  int
}

func (f *fakeInstaller) Install(context.Context) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.helper.running = true
	return nil
}

func newTestBridge(h *fakeHelper, inst Installer) (*Bridge, *int) {
	dials := 0
	b := NewBridge("/tmp/test.sock", inst)
	b.dial = func(string) HelperClient {
		dials++
		return h
	}
	return b, &dials
}

var records = []schedule.Record{{Type: "shutdown", Days: "MTWRFSU", Time: "23:00:00"}}

func TestBridgeRunningHelper(t *testing.T) {
	h := &fakeHelper{running: true}
	inst := &fakeInstaller{helper: h}
	b, dials := newTestBridge(h, inst)

	for i := 0; i < 3; i++ {
		if err := b.SetSchedules(context.Background(), records); err != nil {
			t.Fatalf("SetSchedules() error: %v", err)
		}
	}
	if *dials != 1 || h.pings != 1 {
		t.Errorf("connection not cached: dials=%d pings=%d", *dials, h.pings)
	}
	if inst.calls != 0 {
		t.Errorf("installer called %d times", inst.calls)
	}
	if len(h.got) != 1 || h.got[0] != records[0] {
		t.Errorf("helper got %+v", h.got)
	}
}

func TestBridgeInstallsOnceThenRetries(t *testing.T) {
	h := &fakeHelper{}
	inst := &fakeInstaller{helper: h}
	b, _ := newTestBridge(h, inst)

	if err := b.SetSchedules(context.Background(), records); err != nil {
		t.Fatalf("SetSchedules() error: %v", err)
	}
	if inst.calls != 1 {
		t.Errorf("installer called %d times, want 1", inst.calls)
	}
	if h.pings != 2 {
		t.Errorf("pings = %d, want 2 (before and after install)", h.pings)
	}
}

func TestBridgeInstallErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		stillOff bool
		want     Kind
	}{
		{
			name: "user cancelled",
			err:  newError(AuthorizationFailed, nil, "user cancelled"),
			want: AuthorizationFailed,
		},
		{
			name: "launchctl failed",
			err:  errors.New("launchctl load failed"),
			want: HelperInstallationFailed,
		},
		{
			name:     "installed but still not reachable",
			stillOff: true,
			want:     HelperConnectionFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHelper{}
			var inst Installer = &fakeInstaller{helper: h, err: tt.err}
			if tt.stillOff {
				inst = installerFunc(func(context.Context) error { return nil })
			}
			b, _ := newTestBridge(h, inst)

			err := b.SetSchedules(context.Background(), records)
			if !IsKind(err, tt.want) {
				t.Fatalf("SetSchedules() error = %v, want %s", err, tt.want)
			}

			// No second install attempt.
			err = b.SetSchedules(context.Background(), records)
			if !IsKind(err, HelperConnectionFailed) {
				t.Errorf("second SetSchedules() error = %v, want HelperConnectionFailed", err)
			}
			if fi, ok := inst.(*fakeInstaller); ok && fi.calls != 1 {
				t.Errorf("installer called %d times, want 1", fi.calls)
			}
		})
	}
}

type installerFunc func(context.Context) error

func (f installerFunc) Install(ctx context.Context) error { return f(ctx) }

func TestBridgeNoInstaller(t *testing.T) {
	b, _ := newTestBridge(&fakeHelper{}, nil)
	_, err := b.GetSchedule(context.Background())
	if !errors.Is(err, HelperConnectionFailed) {
		t.Fatalf("GetSchedule() error = %v, want HelperConnectionFailed", err)
	}
}

func TestBridgeReplyErrorKeepsConnection(t *testing.T) {
	h := &fakeHelper{running: true, setErr: &client.ReplyError{Code: 500, Message: "Error: bad args"}}
	b, dials := newTestBridge(h, nil)

	err := b.SetSchedules(context.Background(), records)
	if !IsKind(err, HelperCommunicationError) {
		t.Fatalf("SetSchedules() error = %v, want HelperCommunicationError", err)
	}
	var e *Error
	if errors.As(err, &e) && e.Detail != "Error: bad args" {
		t.Errorf("detail = %q", e.Detail)
	}

	h.setErr = nil
	if err := b.SetSchedules(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	if *dials != 1 {
		t.Errorf("dials = %d, want 1", *dials)
	}
}

func TestBridgeTransportErrorInvalidates(t *testing.T) {
	h := &fakeHelper{running: true, setErr: errors.New("failed to send request: EOF")}
	b, dials := newTestBridge(h, nil)

	err := b.SetSchedules(context.Background(), records)
	if !IsKind(err, HelperCommunicationError) {
		t.Fatalf("SetSchedules() error = %v, want HelperCommunicationError", err)
	}

	h.setErr = nil
	if err := b.SetSchedules(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	if *dials != 2 {
		t.Errorf("dials = %d, want 2 after invalidation", *dials)
	}
}

func TestHelperExecutor(t *testing.T) {
	h := &fakeHelper{running: true}
	b, _ := newTestBridge(h, nil)
	ex := &HelperExecutor{Bridge: b}

	if err := ex.Apply(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if h.cancels != 1 {
		t.Errorf("cancels = %d, want 1", h.cancels)
	}

	if err := ex.Apply(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	if len(h.got) != 1 {
		t.Errorf("helper got %+v", h.got)
	}

	s := New(Options{Executor: ex, Status: ex})
	set, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// The helper returns pmset's prose form, which has no day code.
	if set.Shutdown.Enabled {
		t.Errorf("Load() = %+v", set)
	}
}
