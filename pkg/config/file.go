package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/poweron/poweron/pkg/pmset"
	"github.com/poweron/poweron/pkg/schedule"
	"github.com/poweron/poweron/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		PmsetPath:          ptr.To(pmset.DefaultPath),
		Privilege:          ptr.To(string(PrivilegeAuto)),
		AllowNonRootAccess: ptr.To(false),
		MinCycleGapMinutes: ptr.To(int(schedule.DefaultMinCycleGap / time.Minute)),
		Language:           ptr.To(""),
		// Same as the built-in defaults of the schedule package.
		DefaultPowerOnTime:  ptr.To(schedule.DefaultPowerOnTime.Short()),
		DefaultShutdownTime: ptr.To(schedule.DefaultShutdownTime.Short()),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	return &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}
}

type RawFileConfig struct {
	PmsetPath           *string `json:"pmsetPath,omitempty"`
	Privilege           *string `json:"privilege,omitempty"`
	AllowNonRootAccess  *bool   `json:"allowNonRootAccess,omitempty"`
	MinCycleGapMinutes  *int    `json:"minCycleGapMinutes,omitempty"`
	Language            *string `json:"language,omitempty"`
	DefaultPowerOnTime  *string `json:"defaultPowerOnTime,omitempty"`
	DefaultShutdownTime *string `json:"defaultShutdownTime,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	return &RawFileConfig{
		PmsetPath:           ptr.To(c.PmsetPath()),
		Privilege:           ptr.To(string(c.Privilege())),
		AllowNonRootAccess:  ptr.To(c.AllowNonRootAccess()),
		MinCycleGapMinutes:  ptr.To(int(c.MinCycleGap() / time.Minute)),
		Language:            ptr.To(c.Language()),
		DefaultPowerOnTime:  ptr.To(c.DefaultPowerOnTime().Short()),
		DefaultShutdownTime: ptr.To(c.DefaultShutdownTime().Short()),
	}, nil
}

func (f *File) PmsetPath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p := ptr.Deref(f.raw().PmsetPath, *defaultFileConfig.PmsetPath)
	if p == "" {
		p = *defaultFileConfig.PmsetPath
	}
	return p
}

func (f *File) Privilege() PrivilegeMode {
	f.mu.RLock()
	defer f.mu.RUnlock()

	m := PrivilegeMode(ptr.Deref(f.raw().Privilege, *defaultFileConfig.Privilege))
	if !m.Valid() {
		logrus.Warnf("unknown privilege mode %q in config, using %q", m, *defaultFileConfig.Privilege)
		return PrivilegeMode(*defaultFileConfig.Privilege)
	}
	return m
}

func (f *File) AllowNonRootAccess() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

// MinCycleGap is how close power-on and shutdown times may be before the
// user is warned. Zero disables the warning.
func (f *File) MinCycleGap() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()

	m := ptr.Deref(f.raw().MinCycleGapMinutes, *defaultFileConfig.MinCycleGapMinutes)
	if m < 0 {
		m = 0
	}
	return time.Duration(m) * time.Minute
}

func (f *File) Language() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().Language, *defaultFileConfig.Language)
}

func (f *File) DefaultPowerOnTime() schedule.Clock {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return parseClockOr(f.raw().DefaultPowerOnTime, schedule.DefaultPowerOnTime)
}

func (f *File) DefaultShutdownTime() schedule.Clock {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return parseClockOr(f.raw().DefaultShutdownTime, schedule.DefaultShutdownTime)
}

// DefaultSet returns the schedule set used before anything is read from
// pmset.
func (f *File) DefaultSet() schedule.Set {
	return schedule.NewSet(f.DefaultPowerOnTime(), f.DefaultShutdownTime())
}

func parseClockOr(s *string, def schedule.Clock) schedule.Clock {
	if s == nil {
		return def
	}
	c, err := schedule.ParseUserClock(*s)
	if err != nil {
		logrus.Warnf("invalid default time %q in config, using %s: %v", *s, def.Short(), err)
		return def
	}
	return c
}

func (f *File) SetPmsetPath(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().PmsetPath = &p
}

func (f *File) SetPrivilege(m PrivilegeMode) {
	if !m.Valid() {
		panic("invalid privilege mode " + string(m))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s := string(m)
	f.raw().Privilege = &s
}

func (f *File) SetAllowNonRootAccess(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().AllowNonRootAccess = &b
}

func (f *File) SetMinCycleGap(d time.Duration) {
	if d < 0 {
		panic("min cycle gap must not be negative")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	m := int(d / time.Minute)
	f.raw().MinCycleGapMinutes = &m
}

func (f *File) SetLanguage(lang string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().Language = &lang
}

// raw must be called with f.mu held.
func (f *File) raw() *RawFileConfig {
	if f.c == nil {
		panic("config is nil")
	}
	return f.c
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"pmsetPath":           f.PmsetPath(),
		"privilege":           f.Privilege(),
		"allowNonRootAccess":  f.AllowNonRootAccess(),
		"minCycleGap":         f.MinCycleGap().String(),
		"language":            f.Language(),
		"defaultPowerOnTime":  f.DefaultPowerOnTime().Short(),
		"defaultShutdownTime": f.DefaultShutdownTime().Short(),
	}
}
