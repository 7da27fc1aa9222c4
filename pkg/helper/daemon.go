package helper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/poweron/poweron/pkg/config"
	"github.com/poweron/poweron/pkg/pmset"
)

// Pmset is the part of pmset the helper drives.
type Pmset interface {
	Status(ctx context.Context) (string, error)
	Repeat(ctx context.Context, args []string) error
}

// Server answers schedule requests from unprivileged clients and runs
// pmset on their behalf.
type Server struct {
	mu    sync.RWMutex
	pmset Pmset

	router *gin.Engine
}

func NewServer(p Pmset) *Server {
	s := &Server{pmset: p}
	s.router = s.setupRoutes()
	return s
}

// Handler returns the http handler serving the helper API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetPmset swaps the pmset runner, e.g. after the config was reloaded.
func (s *Server) SetPmset(p Pmset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pmset = p
}

func (s *Server) runner() Pmset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pmset
}

func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.PUT("/schedules", s.setSchedules)
	router.DELETE("/schedules", s.cancelSchedules)
	router.GET("/schedule", s.getSchedule)
	router.GET("/version", getVersion)

	return router
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	s := NewServer(pmset.New(conf.PmsetPath()))

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			s.SetPmset(pmset.New(conf.PmsetPath()))
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// A socket left behind by a crashed helper would make Listen fail.
	if err := removeStaleSocket(unixSocketPath); err != nil {
		logrus.Fatal(err)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	// Serve removes the socket file on close already; this only catches
	// the case where it did not.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to remove socket %s: %v", unixSocketPath, err)
	}

	logrus.Info("exiting")
	return nil
}

func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return &os.PathError{Op: "listen", Path: path, Err: errors.New("exists and is not a socket")}
	}
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err == nil {
		_ = conn.Close()
		return &os.PathError{Op: "listen", Path: path, Err: errors.New("another helper is already listening")}
	}
	logrus.Infof("removing stale socket %s", path)
	return os.Remove(path)
}
