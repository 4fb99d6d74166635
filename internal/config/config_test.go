package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"), testLogger())
	require.NoError(t, err)

	limit, ok := cfg.ProfileLimit()
	require.True(t, ok)
	require.Equal(t, 50000, limit)
	require.Equal(t, 10, cfg.SaveInterval)
	require.Equal(t, time.Second, cfg.RateLimit())
	require.Equal(t, "localhost", cfg.DB.Host)
}

func TestLoadOverlaysKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scraper_settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// unlimited scrape
		"MAX_PROFILES_TO_SCRAPE": null,
		"RATE_LIMIT_SECONDS": 0.5,
		"DEBUG_MODE": false,
		"DB_CONFIG": {"host": "db.internal", "password": "secret"}
	}`), 0o644))

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)

	_, ok := cfg.ProfileLimit()
	require.False(t, ok, "null means unlimited")
	require.Equal(t, 500*time.Millisecond, cfg.RateLimit())
	require.False(t, cfg.Debug(), "explicit false overrides the default")
	require.Equal(t, "db.internal", cfg.DB.Host)
	require.Equal(t, "secret", cfg.DB.Password)
	// Keys absent from the file keep their defaults.
	require.Equal(t, 10, cfg.SaveInterval)
	require.Equal(t, 50, cfg.MaxServicesPerProfile)
}

func TestLoadLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scraper_settings.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"DB_CONFIG": {"host": "shared-host"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scraper_settings.local.json"),
		[]byte(`{"DB_CONFIG": {"host": "my-laptop", "password": "local-secret"}}`), 0o644))

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)
	require.Equal(t, "my-laptop", cfg.DB.Host)
	require.Equal(t, "local-secret", cfg.DB.Password)
}

func TestLoadLocalOverrideDisablesDebug(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scraper_settings.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"DEBUG_MODE": true}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scraper_settings.local.json"),
		[]byte(`{"DEBUG_MODE": false}`), 0o644))

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)
	require.False(t, cfg.Debug(), "a false local override must take effect")
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper_settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := Load(path, testLogger())
	require.Error(t, err)
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper_settings.json")

	cfg := Defaults()
	limit := 123
	cfg.MaxProfilesToScrape = &limit
	cfg.DB.Password = "pw"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path, testLogger())
	require.NoError(t, err)
	got, ok := loaded.ProfileLimit()
	require.True(t, ok)
	require.Equal(t, 123, got)
	require.Equal(t, "pw", loaded.DB.Password)
}

func TestDBConfigURL(t *testing.T) {
	d := DBConfig{Host: "h", Port: "5433", Database: "therapists", User: "u", Password: "p"}
	require.Equal(t, "postgres://u:p@h:5433/therapists", d.URL())
}

func TestTruncateError(t *testing.T) {
	s := Settings{MaxErrorMessageLength: 5}
	require.Equal(t, "abcde", s.TruncateError("abcdefgh"))
	require.Equal(t, "abc", s.TruncateError("abc"))

	unlimited := Settings{MaxErrorMessageLength: 0}
	require.Equal(t, "abcdefgh", unlimited.TruncateError("abcdefgh"))
}
