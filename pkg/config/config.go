package config

import (
	"time"

	"github.com/poweron/poweron/pkg/schedule"
)

// PrivilegeMode selects how pmset is run with elevated privileges.
type PrivilegeMode string

const (
	// PrivilegeAuto runs pmset directly when the process is root and goes
	// through the helper otherwise.
	PrivilegeAuto PrivilegeMode = "auto"
	// PrivilegeDirect always runs pmset as the current user.
	PrivilegeDirect PrivilegeMode = "direct"
	// PrivilegeSudo runs pmset through `sudo -n`.
	PrivilegeSudo PrivilegeMode = "sudo"
	// PrivilegeHelper always forwards to the privileged helper.
	PrivilegeHelper PrivilegeMode = "helper"
)

func (m PrivilegeMode) Valid() bool {
	switch m {
	case PrivilegeAuto, PrivilegeDirect, PrivilegeSudo, PrivilegeHelper:
		return true
	}
	return false
}

type Config interface {
	PmsetPath() string
	Privilege() PrivilegeMode
	AllowNonRootAccess() bool
	MinCycleGap() time.Duration
	Language() string
	DefaultPowerOnTime() schedule.Clock
	DefaultShutdownTime() schedule.Clock

	SetPmsetPath(string)
	SetPrivilege(PrivilegeMode)
	SetAllowNonRootAccess(bool)
	SetMinCycleGap(time.Duration)
	SetLanguage(string)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
