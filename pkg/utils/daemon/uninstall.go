package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/poweron/poweron/pkg/types"
)

// Uninstall stops the helper and deletes its launch daemon definition.
// Nothing happens when the helper was never installed.
func Uninstall() error {
	if _, err := os.Stat(plistPath); errors.Is(err, fs.ErrNotExist) {
		logrus.Infof("%s not found, helper is not installed", plistPath)
		return nil
	}

	logrus.Infof("stopping %s", types.HelperLabel)
	if err := unload(); err != nil {
		return fmt.Errorf("failed to stop %s: %w", types.HelperLabel, err)
	}

	if err := os.Remove(plistPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", plistPath, err)
	}
	logrus.Infof("removed %s", plistPath)

	return nil
}
