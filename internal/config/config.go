// Package config loads and persists the scraper settings file. A Settings
// value is constructed once at startup and handed to every component that
// needs it; nothing reads configuration ambiently.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/titanous/json5"
)

const (
	DataDir       = "data"
	SettingsPath  = "data/scraper_settings.json"
	ExportPath    = "data/psychologie.ch.json"
	BackupPath    = "data/psychologie.ch.json.backup"
	FailedURLPath = "data/failed_url_constructions.json"
)

// DBConfig is the nested connection-credentials block of the settings file.
type DBConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// URL renders a pgx connection string.
func (d DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", d.User, d.Password, d.Host, d.Port, d.Database)
}

// Settings carries every tunable of the scraper. JSON keys match the
// settings file verbatim.
type Settings struct {
	// nil or <= 0 means scrape everything.
	MaxProfilesToScrape *int `json:"MAX_PROFILES_TO_SCRAPE"`

	MaxServicesPerProfile  int     `json:"MAX_SERVICES_PER_PROFILE"`
	MaxLanguagesPerProfile int     `json:"MAX_LANGUAGES_PER_PROFILE"`
	SaveInterval           int     `json:"SAVE_INTERVAL"`
	RateLimitSeconds       float64 `json:"RATE_LIMIT_SECONDS"`

	// Pointer-typed so an explicit false or null stays distinguishable
	// from an absent key across both overlay passes.
	DebugMode *bool `json:"DEBUG_MODE"`

	DebugRecordID         int64 `json:"DEBUG_RECORD_ID"`
	MaxErrorMessageLength int   `json:"MAX_ERROR_MESSAGE_LENGTH"`

	DB DBConfig `json:"DB_CONFIG"`
}

// Defaults returns the built-in configuration.
func Defaults() Settings {
	limit := 50000
	debug := true
	return Settings{
		MaxProfilesToScrape:    &limit,
		MaxServicesPerProfile:  50,
		MaxLanguagesPerProfile: 10,
		SaveInterval:           10,
		RateLimitSeconds:       1,
		DebugMode:              &debug,
		DebugRecordID:          570737,
		MaxErrorMessageLength:  50,
		DB: DBConfig{
			Host:     "localhost",
			Port:     "5432",
			Database: "therapists",
			User:     "postgres",
			Password: "",
		},
	}
}

// Debug reports whether debug logging and record tracing are enabled.
func (s Settings) Debug() bool {
	return s.DebugMode != nil && *s.DebugMode
}

// ProfileLimit reports the configured scrape cap; ok is false for unlimited.
func (s Settings) ProfileLimit() (int, bool) {
	if s.MaxProfilesToScrape == nil || *s.MaxProfilesToScrape <= 0 {
		return 0, false
	}
	return *s.MaxProfilesToScrape, true
}

// RateLimit is the mandatory pause after each fetch.
func (s Settings) RateLimit() time.Duration {
	return time.Duration(s.RateLimitSeconds * float64(time.Second))
}

// TruncateError trims an error message for the failure journal.
func (s Settings) TruncateError(msg string) string {
	if s.MaxErrorMessageLength > 0 && len(msg) > s.MaxErrorMessageLength {
		return msg[:s.MaxErrorMessageLength]
	}
	return msg
}

// Load reads the settings file over the defaults. A missing file yields the
// defaults; keys present in the file overlay them and unknown keys are
// ignored. An optional scraper_settings.local.json is merged on top, higher
// priority, in the usual local-override fashion.
func Load(path string, logger *slog.Logger) (Settings, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no settings file found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read settings: %w", err)
	}
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("parse settings %s: %w", path, err)
	}

	// The local override decodes straight over the loaded settings so that
	// every key present in it wins, including explicit false and null.
	localPath := localOverridePath(path)
	localData, err := os.ReadFile(localPath)
	if err == nil && len(localData) > 0 {
		if err := json5.Unmarshal(localData, &cfg); err != nil {
			return cfg, fmt.Errorf("parse settings override %s: %w", localPath, err)
		}
		logger.Info("merged local settings override", "path", localPath)
	}

	logger.Info("settings loaded", "path", path)
	return cfg, nil
}

func localOverridePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Save writes the settings file pretty-printed.
func Save(path string, cfg Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return nil
}
