// Package i18n localizes the user-facing copy of the processing phases.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

// Catalog resolves phase copy for a requested language.
type Catalog struct {
	bundle      *i18n.Bundle
	defaultLang string
}

// PhaseCopy is the title and description shown for a phase.
type PhaseCopy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func NewCatalog(defaultLang string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localesFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, e := range entries {
		data, err := localesFS.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", e.Name(), err)
		}
	}

	if defaultLang == "" {
		defaultLang = language.English.String()
	}
	return &Catalog{bundle: bundle, defaultLang: defaultLang}, nil
}

// Languages lists the loaded language tags.
func (c *Catalog) Languages() []string {
	tags := c.bundle.LanguageTags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// Phase returns the copy for phase in the best match of acceptLanguage
// (an Accept-Language header value), falling back to the default language
// and then English.
func (c *Catalog) Phase(phase, acceptLanguage string) PhaseCopy {
	localizer := i18n.NewLocalizer(c.bundle, acceptLanguage, c.defaultLang)
	return PhaseCopy{
		Title:       c.localize(localizer, "phase."+phase+".title"),
		Description: c.localize(localizer, "phase."+phase+".description"),
	}
}

func (c *Catalog) localize(localizer *i18n.Localizer, id string) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return ""
	}
	return msg
}
