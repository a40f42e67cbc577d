// Package locale translates user-facing notices and calendar strings.
package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-huddle/internal/config"
	"github.com/tartampluch/go-huddle/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	localeDir    = "locales"
	localePrefix = "active."
	localeSuffix = ".json"
)

// Translator resolves message ids against the embedded bundle.
// It is safe for concurrent use once built.
type Translator struct {
	bundle   *i18n.Bundle
	fallback string
}

// New loads every embedded "active.<lang>.json" file. fallback is used when
// a caller passes no language or an unsupported one, and must have a file.
func New(fallback string) (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalesAccess, err)
	}

	var detected []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, localePrefix) || !strings.HasSuffix(name, localeSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, localePrefix), localeSuffix)
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, localeDir+"/"+name); err != nil {
			return nil, fmt.Errorf("%s %s: %w", config.ErrLocaleLoad, name, err)
		}
		detected = append(detected, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}

	if fallback == "" {
		fallback = config.DefaultLanguage
	}
	if !slices.Contains(detected, fallback) {
		return nil, fmt.Errorf("%s: %q", config.ErrLocaleFallback, fallback)
	}
	return &Translator{bundle: bundle, fallback: fallback}, nil
}

// Msg translates key for lang, which may be a tag ("fr") or an
// Accept-Language header value. The key itself is returned when missing.
func (t *Translator) Msg(lang, key string, data map[string]any) string {
	if t == nil || t.bundle == nil {
		return key
	}
	loc := i18n.NewLocalizer(t.bundle, lang, t.fallback)
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// Notice explains the outcome of a selection toggle on day k.
func (t *Translator) Notice(lang string, res engine.ToggleResult, k engine.DateKey, maxDays int) string {
	data := map[string]any{"Date": k.String(), "Max": maxDays}
	switch res {
	case engine.ToggleAdded:
		return t.Msg(lang, config.TKeyNoticeAdded, data)
	case engine.ToggleRemoved:
		return t.Msg(lang, config.TKeyNoticeRemoved, data)
	case engine.ToggleOutOfWindow:
		return t.Msg(lang, config.TKeyNoticeOutOfWindow, data)
	case engine.ToggleCapReached:
		return t.Msg(lang, config.TKeyNoticeMaxDays, data)
	default:
		return t.Msg(lang, config.TKeyNoticeInactive, data)
	}
}

// Complete is the notice shown once the selection reaches maxDays.
func (t *Translator) Complete(lang string, maxDays int) string {
	return t.Msg(lang, config.TKeyNoticeComplete, map[string]any{"Max": maxDays})
}

// Confirmed is the notice shown after a successful confirmation.
func (t *Translator) Confirmed(lang string) string {
	return t.Msg(lang, config.TKeyNoticeConfirmed, nil)
}

// StatusLabel names s for detail views. Unknown statuses keep their wire value.
func (t *Translator) StatusLabel(lang string, s engine.Status) string {
	switch s {
	case engine.Available:
		return t.Msg(lang, config.TKeyStatusAvailable, nil)
	case engine.NotAvailable:
		return t.Msg(lang, config.TKeyStatusNotAvail, nil)
	case engine.Tentative:
		return t.Msg(lang, config.TKeyStatusTentative, nil)
	default:
		return s.String()
	}
}

// SummaryFormatter returns an engine.Exporter.FormatSummary for lang.
func (t *Translator) SummaryFormatter(lang string) func(title string, part, parts int) string {
	return func(title string, part, parts int) string {
		if parts > 1 {
			return t.Msg(lang, config.TKeyEvtSummaryPart, map[string]any{"Title": title, "Part": part, "Parts": parts})
		}
		return t.Msg(lang, config.TKeyEvtSummary, map[string]any{"Title": title})
	}
}

// AlarmFormatter returns an engine.Exporter.FormatAlarm for lang.
func (t *Translator) AlarmFormatter(lang string) func(title string) string {
	return func(title string) string {
		return t.Msg(lang, config.TKeyAlarmDescription, map[string]any{"Title": title})
	}
}
