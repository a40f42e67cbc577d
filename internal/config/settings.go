package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APISettings locates the remote REST API and the event being planned.
type APISettings struct {
	// URL is the REST API base URL (e.g. "https://api.example.com").
	URL string `yaml:"url"`
	// User is the account name used as the keyring entry for the API token.
	User string `yaml:"user"`
	// EventID is the event whose availability is aggregated.
	EventID string `yaml:"event_id"`
	// Token is never written to disk; it comes from the keyring or the environment.
	Token string `yaml:"-"`
}

// PaletteSettings overrides the tally colors. Values are "#rrggbb"; empty keeps the default.
type PaletteSettings struct {
	Available    string `yaml:"available,omitempty"`
	NotAvailable string `yaml:"not_available,omitempty"`
	Tentative    string `yaml:"tentative,omitempty"`
}

// Settings is the persisted application configuration.
type Settings struct {
	BindAddr string `yaml:"bind_addr"`
	Port     string `yaml:"port"`
	Language string `yaml:"language"`

	// WeekStart is "monday" or "sunday" and controls month grid layout.
	WeekStart string `yaml:"week_start"`

	// RefreshCron is a cron schedule for re-fetching availability.
	RefreshCron string `yaml:"refresh"`

	// ProfilesPath optionally points to a vCard file used as the profile lookup table.
	ProfilesPath string `yaml:"profiles_path,omitempty"`

	// AllowedOrigins lists browser origins allowed by CORS.
	AllowedOrigins []string `yaml:"allowed_origins"`

	API     APISettings     `yaml:"api"`
	Palette PaletteSettings `yaml:"palette,omitempty"`
}

// DefaultSettings returns an in-memory default configuration.
func DefaultSettings() *Settings {
	return &Settings{
		BindAddr:       DefaultBindAddr,
		Port:           DefaultPort,
		Language:       DefaultLanguage,
		WeekStart:      DefaultWeekStart,
		RefreshCron:    DefaultRefreshCron,
		AllowedOrigins: []string{DefaultAllowOrigin},
	}
}

// Normalize fills in missing values so that partially-filled files still behave.
func (s *Settings) Normalize() {
	if s.BindAddr == "" {
		s.BindAddr = DefaultBindAddr
	}
	if s.Port == "" {
		s.Port = DefaultPort
	}
	if !isSupportedLanguage(s.Language) {
		s.Language = DefaultLanguage
	}
	switch s.WeekStart {
	case WeekStartMonday, WeekStartSunday:
	default:
		s.WeekStart = DefaultWeekStart
	}
	if s.RefreshCron == "" {
		s.RefreshCron = DefaultRefreshCron
	}
	if s.AllowedOrigins == nil {
		s.AllowedOrigins = []string{DefaultAllowOrigin}
	}
	s.API.URL = strings.TrimRight(s.API.URL, "/")
}

// Validate reports settings that make syncing impossible.
func (s *Settings) Validate() error {
	if s.API.URL == "" {
		return errors.New(ErrAPIURLEmpty)
	}
	if s.API.EventID == "" {
		return errors.New(ErrEventIDEmpty)
	}
	if s.Port == "" {
		return errors.New(ErrPortRequired)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (s *Settings) Addr() string {
	return s.BindAddr + AddrSeparator + s.Port
}

// DefaultSettingsPath returns the settings file inside the user config directory.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrConfigDir, err)
	}
	return filepath.Join(dir, AppID, SettingsFile), nil
}

// Load reads settings from a YAML file.
//
// On first run (file missing) a default file is written with 0600 permissions
// and the defaults are returned. Environment overrides are not applied here;
// see ApplyEnv.
func Load(path string) (*Settings, error) {
	if path == "" {
		return nil, errors.New(ErrConfigPathEmpty)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s := DefaultSettings()
			if err := Save(path, s); err != nil {
				return s, err
			}
			slog.Info(MsgSettingsCreate,
				LogKeyComponent, CompConfig,
				LogKeyFile, path)
			return s, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrConfigRead, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrConfigParse, err)
	}
	s.Normalize()
	return &s, nil
}

// Save writes settings atomically (temp file + rename) with 0600 permissions.
func Save(path string, s *Settings) error {
	if path == "" {
		return errors.New(ErrConfigPathEmpty)
	}
	if s == nil {
		return errors.New(ErrConfigNil)
	}
	s.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}

	tmp, err := os.CreateTemp(dir, TempSettingsPat)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := os.Chmod(tmpName, FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	return nil
}

// ApplyEnv loads the given .env files (missing ones are ignored) and then
// overrides settings from HUDDLE_* environment variables.
func (s *Settings) ApplyEnv(envFiles ...string) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		// godotenv never overrides variables already set in the process environment.
		if err := godotenv.Load(f); err == nil {
			slog.Debug(MsgEnvLoaded, LogKeyComponent, CompConfig, LogKeyFile, f)
		}
	}

	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&s.API.URL, EnvAPIURL)
	override(&s.API.User, EnvAPIUser)
	override(&s.API.Token, EnvAPIToken)
	override(&s.API.EventID, EnvEventID)
	override(&s.Port, EnvPort)
	override(&s.Language, EnvLanguage)

	s.Normalize()
}

func isSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
