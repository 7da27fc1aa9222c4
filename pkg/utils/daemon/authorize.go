package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrAuthorizationCanceled is returned when the user dismisses the
// administrator prompt.
var ErrAuthorizationCanceled = errors.New("authorization canceled by user")

var osascript = func(ctx context.Context, script string) (string, error) {
	out, err := exec.CommandContext(ctx, "/usr/bin/osascript", "-e", script).CombinedOutput()
	return string(out), err
}

// AuthorizedInstaller installs the helper from an unprivileged process by
// running `<exe> install` through the macOS administrator prompt.
type AuthorizedInstaller struct {
	// SocketPath is waited for after the install so the helper can be
	// reached right away.
	SocketPath string
	// Args are appended to the install command.
	Args []string
	// Wait bounds how long to wait for the socket. 10s if zero.
	Wait time.Duration
}

func (a *AuthorizedInstaller) Install(ctx context.Context) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}

	script := InstallScript(exePath, a.Args...)
	logrus.WithField("script", script).Debug("requesting administrator privileges")

	out, err := osascript(ctx, script)
	if err != nil {
		// -128 is errAEUserCanceled.
		if strings.Contains(out, "(-128)") || strings.Contains(out, "User canceled") {
			return ErrAuthorizationCanceled
		}
		return fmt.Errorf("failed to install helper: %w: %s", err, strings.TrimSpace(out))
	}

	return a.waitForSocket(ctx)
}

func (a *AuthorizedInstaller) waitForSocket(ctx context.Context) error {
	if a.SocketPath == "" {
		return nil
	}
	wait := a.Wait
	if wait == 0 {
		wait = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(a.SocketPath); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("helper was installed but %s did not appear within %s", a.SocketPath, wait)
		case <-ticker.C:
		}
	}
}

// InstallScript returns the AppleScript that runs `<exePath> install args...`
// as root after asking for an administrator password.
func InstallScript(exePath string, args ...string) string {
	words := []string{shellQuote(exePath), "install"}
	for _, a := range args {
		words = append(words, shellQuote(a))
	}
	return fmt.Sprintf("do shell script %s with administrator privileges", appleScriptString(strings.Join(words, " ")))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
