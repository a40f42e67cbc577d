package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-huddle/internal/config"
)

func TestLoad_FirstRunCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", config.SettingsFile)

	s, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, s.Port)
	assert.Equal(t, config.DefaultRefreshCron, s.RefreshCron)

	info, err := os.Stat(path)
	require.NoError(t, err, "default settings must be written on first run")
	if runtime.GOOS != "windows" {
		assert.Equal(t, config.FilePermUserRW, info.Mode().Perm())
	}
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.SettingsFile)
	content := "port: \"9000\"\nweek_start: friday\nlanguage: de\napi:\n  url: https://api.example.com/\n  event_id: ev-1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), config.FilePermUserRW))

	s, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", s.Port)
	assert.Equal(t, config.WeekStartMonday, s.WeekStart, "unknown week start falls back to monday")
	assert.Equal(t, config.DefaultLanguage, s.Language, "unsupported language falls back to default")
	assert.Equal(t, "https://api.example.com", s.API.URL, "trailing slash is trimmed")
	assert.Equal(t, "ev-1", s.API.EventID)
	assert.NoError(t, s.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.SettingsFile)
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), config.FilePermUserRW))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrConfigParse)
}

func TestSave_RoundTripKeepsTokenOffDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.SettingsFile)
	s := config.DefaultSettings()
	s.API.URL = "https://api.example.com"
	s.API.EventID = "ev-42"
	s.API.Token = "secret-token"
	s.Palette.Available = "#00ff00"

	require.NoError(t, config.Save(path, s))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ev-42", loaded.API.EventID)
	assert.Equal(t, "#00ff00", loaded.Palette.Available)
	assert.Empty(t, loaded.API.Token)
}

func TestSave_Errors(t *testing.T) {
	assert.EqualError(t, config.Save("", config.DefaultSettings()), config.ErrConfigPathEmpty)
	assert.EqualError(t, config.Save(filepath.Join(t.TempDir(), "x.yaml"), nil), config.ErrConfigNil)
	_, err := config.Load("")
	assert.EqualError(t, err, config.ErrConfigPathEmpty)
}

func TestApplyEnv_Overrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, config.EnvFileName)
	require.NoError(t, os.WriteFile(envFile, []byte("HUDDLE_EVENT_ID=from-dotenv\nHUDDLE_API_USER=alice\n"), config.FilePermUserRW))

	// Process environment wins over the .env file.
	t.Setenv(config.EnvAPIURL, "https://env.example.com/")
	t.Setenv(config.EnvAPIUser, "bob")
	t.Setenv(config.EnvEventID, "")
	t.Setenv(config.EnvLanguage, "fr")

	s := config.DefaultSettings()
	s.ApplyEnv(envFile, filepath.Join(dir, "missing.env"))

	assert.Equal(t, "https://env.example.com", s.API.URL)
	assert.Equal(t, "bob", s.API.User)
	assert.Equal(t, "fr", s.Language)
}

func TestValidate(t *testing.T) {
	s := config.DefaultSettings()
	assert.EqualError(t, s.Validate(), config.ErrAPIURLEmpty)

	s.API.URL = "https://api.example.com"
	assert.EqualError(t, s.Validate(), config.ErrEventIDEmpty)

	s.API.EventID = "ev"
	assert.NoError(t, s.Validate())
	assert.Equal(t, config.DefaultBindAddr+":"+config.DefaultPort, s.Addr())
}
