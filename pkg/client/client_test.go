package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/poweron/poweron/pkg/schedule"
	"github.com/poweron/poweron/pkg/types"
)

// serveUnix starts h on a unix socket in a short temp dir. Socket paths
// are limited to about 100 bytes, which t.TempDir can exceed.
func serveUnix(t *testing.T, h http.Handler) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pw")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	sock := filepath.Join(dir, "s")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewUnstartedServer(h)
	srv.Listener = l
	srv.Start()
	t.Cleanup(srv.Close)
	return sock
}

func TestHelperNotRunning(t *testing.T) {
	dir, err := os.MkdirTemp("", "pw")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	c := NewClient(filepath.Join(dir, "missing.sock"))
	_, err = c.GetVersion(context.Background())
	if !errors.Is(err, ErrHelperNotRunning) {
		t.Fatalf("GetVersion() error = %v, want ErrHelperNotRunning", err)
	}
}

func TestStaleSocketIsNotRunning(t *testing.T) {
	dir, err := os.MkdirTemp("", "pw")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	sock := filepath.Join(dir, "s")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatal(err)
	}
	// Keep the file but stop accepting.
	if ul, ok := l.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(false)
	}
	_ = l.Close()

	_, err = NewClient(sock).GetVersion(context.Background())
	if !errors.Is(err, ErrHelperNotRunning) {
		t.Fatalf("GetVersion() error = %v, want ErrHelperNotRunning", err)
	}
}

func TestGetVersionAndSchedule(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(types.RequestIDHeader) == "" {
			t.Error("request id header missing")
		}
		_ = json.NewEncoder(w).Encode("v1.2.3")
	})
	mux.HandleFunc("/schedule", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode("Repeating power events:\n")
	})
	c := NewClient(serveUnix(t, mux))

	v, err := c.GetVersion(context.Background())
	if err != nil {
		t.Fatalf("GetVersion() error: %v", err)
	}
	if v != "v1.2.3" {
		t.Errorf("GetVersion() = %q", v)
	}

	s, err := c.GetSchedule(context.Background())
	if err != nil {
		t.Fatalf("GetSchedule() error: %v", err)
	}
	if s != "Repeating power events:\n" {
		t.Errorf("GetSchedule() = %q", s)
	}
}

func TestSetSchedules(t *testing.T) {
	var got []schedule.Record
	mux := http.NewServeMux()
	mux.HandleFunc("/schedules", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &got); err != nil {
			t.Errorf("bad body %q: %v", b, err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.Reply{Success: true})
	})
	c := NewClient(serveUnix(t, mux))

	records := []schedule.Record{{Type: "shutdown", Days: "MTWRF", Time: "23:00:00"}}
	if err := c.SetSchedules(context.Background(), records); err != nil {
		t.Fatalf("SetSchedules() error: %v", err)
	}
	if len(got) != 1 || got[0] != records[0] {
		t.Errorf("helper received %+v", got)
	}

	// nil goes over the wire as an empty list, not null.
	if err := c.SetSchedules(context.Background(), nil); err != nil {
		t.Fatalf("SetSchedules(nil) error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("helper received %+v, want empty list", got)
	}
}

func TestReplyErrors(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		body     string
		wantMsg  string
		wantCode int
		wantNF   bool
	}{
		{
			name:     "failure reply",
			code:     http.StatusInternalServerError,
			body:     `{"success":false,"error":"Error: bad args"}`,
			wantMsg:  "Error: bad args",
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "bad request",
			code:     http.StatusBadRequest,
			body:     `{"success":false,"error":"invalid schedule format"}`,
			wantMsg:  "invalid schedule format",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "success false with 2xx",
			code:     http.StatusOK,
			body:     `{"success":false,"error":"odd"}`,
			wantMsg:  "odd",
			wantCode: 0,
		},
		{
			name:   "unknown route",
			code:   http.StatusNotFound,
			body:   `404 page not found`,
			wantNF: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = io.WriteString(w, tt.body)
			})
			err := NewClient(serveUnix(t, h)).CancelAllSchedules(context.Background())
			if tt.wantNF {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("error = %v, want ErrNotFound", err)
				}
				return
			}
			var re *ReplyError
			if !errors.As(err, &re) {
				t.Fatalf("error = %v (%T), want *ReplyError", err, err)
			}
			if re.Message != tt.wantMsg || re.Code != tt.wantCode {
				t.Errorf("ReplyError = %+v, want message %q code %d", re, tt.wantMsg, tt.wantCode)
			}
		})
	}
}

func TestStatusErrorWithoutReply(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream")
	})
	_, err := NewClient(serveUnix(t, h)).GetSchedule(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v (%T), want *StatusError", err, err)
	}
	if se.Code != http.StatusBadGateway || se.Body != "upstream" {
		t.Errorf("StatusError = %+v", se)
	}
}
