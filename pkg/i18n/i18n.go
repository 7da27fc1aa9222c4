// Package i18n holds the translated user-facing messages.
package i18n

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales.yml
var localesYML []byte

// catalog maps a base language to its messages.
type catalog map[string]map[string]string

var (
	supported = []language.Tag{
		language.English, // first is the fallback
		language.French,
		language.German,
		language.Japanese,
	}
	matcher = language.NewMatcher(supported)

	loadOnce sync.Once
	messages catalog
	loadErr  error
)

func load() (catalog, error) {
	loadOnce.Do(func() {
		loadErr = yaml.Unmarshal(localesYML, &messages)
		if loadErr != nil {
			loadErr = fmt.Errorf("failed to unmarshal locales.yml: %w", loadErr)
		}
	})
	return messages, loadErr
}

// Localizer translates message keys into one language, falling back to
// English for missing keys.
type Localizer struct {
	lang     string
	msgs     map[string]string
	fallback map[string]string
}

// New returns a Localizer for the first usable preference. Preferences may
// be BCP 47 tags or POSIX locale names such as "fr_FR.UTF-8". Empty ones
// are skipped.
func New(prefs ...string) *Localizer {
	var tags []language.Tag
	for _, p := range prefs {
		if t, ok := parseLocale(p); ok {
			tags = append(tags, t)
		}
	}

	lang := "en"
	if len(tags) > 0 {
		tag, _, conf := matcher.Match(tags...)
		if conf != language.No {
			base, _ := tag.Base()
			lang = base.String()
		}
	}

	c, err := load()
	if err != nil {
		logrus.Errorf("failed to load translations: %v", err)
	}
	return &Localizer{
		lang:     lang,
		msgs:     c[lang],
		fallback: c["en"],
	}
}

func parseLocale(s string) (language.Tag, bool) {
	s = strings.TrimSpace(s)
	// Strip ".UTF-8" and "@euro" style suffixes.
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return language.Und, false
	}
	t, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		logrus.Debugf("ignoring unknown locale %q: %v", s, err)
		return language.Und, false
	}
	return t, true
}

// Lang returns the base language in use, e.g. "fr".
func (l *Localizer) Lang() string {
	return l.lang
}

// T returns the message for key, formatted with args. Unknown keys are
// returned as they are.
func (l *Localizer) T(key string, args ...any) string {
	msg, ok := l.msgs[key]
	if !ok {
		msg, ok = l.fallback[key]
	}
	if !ok {
		msg = key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

var (
	mu  sync.RWMutex
	std = New(os.Getenv("LC_ALL"), os.Getenv("LANG"))
)

// SetLanguage replaces the process-wide Localizer.
func SetLanguage(prefs ...string) {
	l := New(prefs...)
	mu.Lock()
	defer mu.Unlock()
	std = l
}

// Lang returns the language of the process-wide Localizer.
func Lang() string {
	mu.RLock()
	defer mu.RUnlock()
	return std.Lang()
}

// T translates key with the process-wide Localizer.
func T(key string, args ...any) string {
	mu.RLock()
	defer mu.RUnlock()
	return std.T(key, args...)
}
