package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/foxseedlab/tunesmith/internal/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

type catalog map[string]string

type Translator struct {
	defaultLang string
	catalogs    map[string]catalog
	matcher     language.Matcher
	codes       []string
}

// NewTranslator loads every embedded catalog. defaultLang must be one of them.
func NewTranslator(defaultLang string) (*Translator, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales: %w", err)
	}

	t := &Translator{defaultLang: defaultLang, catalogs: make(map[string]catalog)}
	var tags []language.Tag
	for _, e := range entries {
		code := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		data, err := localeFS.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", code, err)
		}
		var c catalog
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", code, err)
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("invalid locale code %q: %w", code, err)
		}
		t.catalogs[code] = c
		t.codes = append(t.codes, code)
		tags = append(tags, tag)
	}
	if _, ok := t.catalogs[defaultLang]; !ok {
		return nil, fmt.Errorf("default language %q has no catalog", defaultLang)
	}
	t.matcher = language.NewMatcher(tags)
	return t, nil
}

func (t *Translator) Translate(key i18n.Key, lang string) string {
	if c, ok := t.catalogs[lang]; ok {
		if s, ok := c[string(key)]; ok {
			return s
		}
	}
	if s, ok := t.catalogs[t.defaultLang][string(key)]; ok {
		return s
	}
	return string(key)
}

func (t *Translator) Match(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	_, index, confidence := t.matcher.Match(tag)
	if confidence == language.No {
		return ""
	}
	return t.codes[index]
}

// Languages lists the loaded catalog codes.
func (t *Translator) Languages() []string {
	return append([]string(nil), t.codes...)
}
