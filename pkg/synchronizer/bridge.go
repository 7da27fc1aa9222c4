package synchronizer

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/poweron/poweron/pkg/client"
	"github.com/poweron/poweron/pkg/schedule"
	"github.com/poweron/poweron/pkg/version"
)

// HelperClient is what the bridge needs from a helper connection.
type HelperClient interface {
	GetVersion(ctx context.Context) (string, error)
	GetSchedule(ctx context.Context) (string, error)
	SetSchedules(ctx context.Context, records []schedule.Record) error
	CancelAllSchedules(ctx context.Context) error
}

// Installer registers the helper with launchd, asking the user for
// administrator rights. It returns an error of kind AuthorizationFailed
// when the user refuses.
type Installer interface {
	Install(ctx context.Context) error
}

// Bridge is the lazily established connection to the privileged helper.
//
// The first call pings the helper. If nothing is listening, the bridge asks
// its Installer once and pings one more time. A working connection is
// cached until a call fails at the transport level.
type Bridge struct {
	socketPath string
	installer  Installer
	dial       func(socketPath string) HelperClient

	mu               sync.Mutex
	conn             HelperClient
	installAttempted bool
}

// NewBridge returns a bridge to the helper listening on socketPath. A nil
// installer disables installing on demand.
func NewBridge(socketPath string, installer Installer) *Bridge {
	return &Bridge{
		socketPath: socketPath,
		installer:  installer,
		dial: func(socketPath string) HelperClient {
			return client.NewClient(socketPath)
		},
	}
}

func (b *Bridge) SetSchedules(ctx context.Context, records []schedule.Record) error {
	return b.call(ctx, func(c HelperClient) error {
		return c.SetSchedules(ctx, records)
	})
}

func (b *Bridge) CancelAllSchedules(ctx context.Context) error {
	return b.call(ctx, func(c HelperClient) error {
		return c.CancelAllSchedules(ctx)
	})
}

func (b *Bridge) GetSchedule(ctx context.Context) (string, error) {
	var out string
	err := b.call(ctx, func(c HelperClient) error {
		var err error
		out, err = c.GetSchedule(ctx)
		return err
	})
	return out, err
}

// Version returns the version of the connected helper.
func (b *Bridge) Version(ctx context.Context) (string, error) {
	var v string
	err := b.call(ctx, func(c HelperClient) error {
		var err error
		v, err = c.GetVersion(ctx)
		return err
	})
	return v, err
}

// Invalidate drops the cached connection. The next call reconnects.
func (b *Bridge) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = nil
}

func (b *Bridge) call(ctx context.Context, fn func(HelperClient) error) error {
	c, err := b.connect(ctx)
	if err != nil {
		return err
	}

	err = fn(c)
	if err == nil {
		return nil
	}

	// The helper answered, so the connection is fine.
	var replyErr *client.ReplyError
	if errors.As(err, &replyErr) {
		return newError(HelperCommunicationError, err, replyErr.Message)
	}

	logrus.WithError(err).Debug("helper call failed, dropping connection")
	b.Invalidate()
	if errors.Is(err, client.ErrHelperNotRunning) {
		return newError(HelperConnectionFailed, err, err.Error())
	}
	return newError(HelperCommunicationError, err, err.Error())
}

func (b *Bridge) connect(ctx context.Context) (HelperClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return b.conn, nil
	}

	c := b.dial(b.socketPath)
	err := b.ping(ctx, c)
	if err == nil {
		b.conn = c
		return c, nil
	}
	if !errors.Is(err, client.ErrHelperNotRunning) {
		return nil, connectError(err)
	}

	if b.installer == nil || b.installAttempted {
		return nil, newError(HelperConnectionFailed, err, "helper is not running at "+b.socketPath)
	}
	b.installAttempted = true

	logrus.Infof("helper is not running, installing it")
	if err := b.installer.Install(ctx); err != nil {
		if IsKind(err, AuthorizationFailed) {
			return nil, err
		}
		return nil, newError(HelperInstallationFailed, err, err.Error())
	}

	if err := b.ping(ctx, c); err != nil {
		return nil, connectError(err)
	}
	b.conn = c
	return c, nil
}

func (b *Bridge) ping(ctx context.Context, c HelperClient) error {
	v, err := c.GetVersion(ctx)
	if err != nil {
		return err
	}
	if !version.Compatible(v, version.Version) {
		logrus.Warnf("helper version %s may not be compatible with client version %s, consider reinstalling the helper", v, version.Version)
	}
	return nil
}

func connectError(err error) error {
	if errors.Is(err, client.ErrPermissionDenied) {
		return newError(HelperConnectionFailed, err, "permission denied, the helper socket is root-only")
	}
	return newError(HelperConnectionFailed, err, err.Error())
}
