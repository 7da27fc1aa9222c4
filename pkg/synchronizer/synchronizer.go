// Package synchronizer reconciles a schedule.Set with pmset: it reads the
// repeating events pmset knows about and applies a set back to it, either
// directly or through the privileged helper.
package synchronizer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/poweron/poweron/pkg/pmset"
	"github.com/poweron/poweron/pkg/schedule"
)

// ErrBusy is returned when an apply is started while another one is
// still running.
var ErrBusy = errors.New("another apply is in progress")

type Options struct {
	// Runner is used to display the command an apply will run. Required.
	Runner *pmset.Runner
	// Executor runs the apply. Defaults to running Runner directly.
	Executor Executor
	// Status reads the current schedule. Defaults to running pmset at
	// Runner.Path directly.
	Status StatusReader
	// Defaults is the set returned when nothing can be read.
	// schedule.DefaultSet() if zero.
	Defaults schedule.Set
	// MinCycleGap is how close enabled power-on and shutdown times may be
	// before Validate warns. Zero disables the warning.
	MinCycleGap time.Duration
}

type Synchronizer struct {
	runner   *pmset.Runner
	exec     Executor
	status   StatusReader
	defaults schedule.Set
	minGap   time.Duration

	busy atomic.Bool
}

func New(opts Options) *Synchronizer {
	runner := opts.Runner
	if runner == nil {
		runner = pmset.New(pmset.DefaultPath)
	}
	s := &Synchronizer{
		runner:   runner,
		exec:     opts.Executor,
		status:   opts.Status,
		defaults: opts.Defaults,
		minGap:   opts.MinCycleGap,
	}
	if s.exec == nil {
		s.exec = &DirectExecutor{Runner: runner}
	}
	if s.status == nil {
		// Reading the schedule needs no privileges, so never through sudo.
		s.status = &DirectExecutor{Runner: &pmset.Runner{Path: runner.Path}}
	}
	if s.defaults == (schedule.Set{}) {
		s.defaults = schedule.DefaultSet()
	}
	return s
}

// Load reads the current repeating events. It always returns a usable set:
// when pmset cannot be queried it returns the defaults together with the
// error, which callers should show as a notice only.
func (s *Synchronizer) Load(ctx context.Context) (schedule.Set, error) {
	out, err := s.status.Status(ctx)
	if err != nil {
		logrus.WithError(err).Warn("failed to read current schedule, using defaults")
		return s.defaults, err
	}
	set := schedule.ParseStatus(out, s.defaults)
	logrus.WithFields(logrus.Fields{
		"powerOn":  set.PowerOn.Enabled,
		"shutdown": set.Shutdown.Enabled,
	}).Debug("schedule loaded")
	return set, nil
}

// Validate checks set before it is applied. Warnings do not block an
// apply but should be confirmed by the user.
func (s *Synchronizer) Validate(set schedule.Set) ([]schedule.Warning, error) {
	warnings, err := schedule.Validate(set, s.minGap)
	if err != nil {
		return nil, newError(InvalidConfiguration, err, err.Error())
	}
	return warnings, nil
}

// Command returns the pmset command line an apply of set would run.
func (s *Synchronizer) Command(set schedule.Set) (string, error) {
	args, err := schedule.RepeatArgs(set.Records())
	if err != nil {
		return "", newError(InvalidConfiguration, err, err.Error())
	}
	return s.runner.Command(args...), nil
}

// Apply validates set and hands its enabled entries to the executor.
func (s *Synchronizer) Apply(ctx context.Context, set schedule.Set) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	return s.apply(ctx, set)
}

// ApplyAsync runs Apply in the background. The returned channel receives
// exactly one value and is then closed. A call made while another apply is
// running receives ErrBusy.
func (s *Synchronizer) ApplyAsync(ctx context.Context, set schedule.Set) <-chan error {
	ch := make(chan error, 1)
	if !s.busy.CompareAndSwap(false, true) {
		ch <- ErrBusy
		close(ch)
		return ch
	}

	go func() {
		err := s.apply(ctx, set)
		s.busy.Store(false)
		ch <- err
		close(ch)
	}()
	return ch
}

// Cancel removes every repeating event.
func (s *Synchronizer) Cancel(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	logrus.Info("cancelling all repeating events")
	return s.exec.Apply(ctx, nil)
}

func (s *Synchronizer) apply(ctx context.Context, set schedule.Set) error {
	if _, err := s.Validate(set); err != nil {
		return err
	}

	records := set.Records()
	logrus.WithField("records", records).Info("applying schedule")
	return s.exec.Apply(ctx, records)
}
