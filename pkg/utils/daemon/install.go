package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"howett.net/plist"

	"github.com/poweron/poweron/pkg/types"
	"github.com/poweron/poweron/pkg/utils/osver"
)

var (
	launchDaemonsDir = "/Library/LaunchDaemons"
	plistPath        = filepath.Join(launchDaemonsDir, types.HelperLabel+".plist")
	logPath          = "/tmp/poweron-helper.log"

	launchctl = func(args ...string) error {
		out, err := exec.Command("/bin/launchctl", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("launchctl %v: %w: %s", args, err, out)
		}
		return nil
	}
)

// launchdJob is the subset of launchd.plist(5) the helper needs.
type launchdJob struct {
	Label             string   `plist:"Label"`
	ProgramArguments  []string `plist:"ProgramArguments"`
	RunAtLoad         bool     `plist:"RunAtLoad"`
	KeepAlive         bool     `plist:"KeepAlive"`
	StandardOutPath   string   `plist:"StandardOutPath,omitempty"`
	StandardErrorPath string   `plist:"StandardErrorPath,omitempty"`
}

// Plist renders the launch daemon definition that runs `exePath helper`
// with the given extra arguments.
func Plist(exePath string, args ...string) ([]byte, error) {
	job := launchdJob{
		Label:             types.HelperLabel,
		ProgramArguments:  append([]string{exePath, "helper"}, args...),
		RunAtLoad:         true,
		KeepAlive:         true,
		StandardOutPath:   logPath,
		StandardErrorPath: logPath,
	}
	b, err := plist.MarshalIndent(job, plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal launch daemon plist: %w", err)
	}
	return b, nil
}

// Install registers the running executable as the privileged helper and
// starts it. It must run as root.
func Install(args ...string) error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("installing the helper requires root, run it with sudo")
	}

	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	err = os.Chmod(exePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	b, err := Plist(exePath, args...)
	if err != nil {
		return err
	}

	logrus.Infof("writing launch daemon to %s", launchDaemonsDir)

	// mkdir -p
	err = os.MkdirAll(launchDaemonsDir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", launchDaemonsDir, err)
	}

	// A leftover job from an earlier install is replaced.
	if _, err := os.Stat(plistPath); err == nil {
		logrus.Warnf("%s already exists, replacing it", plistPath)
		if err := unload(); err != nil {
			logrus.Warnf("failed to stop the existing helper: %v", err)
		}
	}

	err = os.WriteFile(plistPath, b, 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", plistPath, err)
	}

	// chown root:wheel
	err = os.Chown(plistPath, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to chown %s: %w", plistPath, err)
	}

	logrus.Infof("starting helper")

	if err := load(); err != nil {
		return fmt.Errorf("failed to load %s: %w", plistPath, err)
	}

	return nil
}

// launchctl load/unload are legacy since macOS 11 but still work on
// systems where bootstrap does not exist.
func load() error {
	if osver.IsAtLeast(11, 0, 0) {
		return launchctl("bootstrap", "system", plistPath)
	}
	return launchctl("load", plistPath)
}

func unload() error {
	if osver.IsAtLeast(11, 0, 0) {
		return launchctl("bootout", "system/"+types.HelperLabel)
	}
	return launchctl("unload", plistPath)
}
