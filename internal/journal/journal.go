// Package journal keeps the durable log of seeds whose profile URL could
// not be scraped or persisted, for later offline analysis.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FailedURL is one append-only journal entry, keyed by the seed id.
type FailedURL struct {
	ID                    int64   `json:"id"`
	UserID                int64   `json:"user_id"`
	Firstname             string  `json:"firstname"`
	Lastname              string  `json:"lastname"`
	GeneratedSlug         string  `json:"generated_slug"`
	ConstructedURL        string  `json:"constructed_url"`
	ErrorReason           string  `json:"error_reason"`
	FailedAt              float64 `json:"failed_at"`
	ErrorMessageTruncated string  `json:"error_message_truncated"`
}

// Journal appends failure records to a JSON file, deduplicated by seed id
// across runs.
type Journal struct {
	path      string
	maxErrLen int
	logger    *slog.Logger
}

func New(path string, maxErrLen int, logger *slog.Logger) *Journal {
	return &Journal{path: path, maxErrLen: maxErrLen, logger: logger}
}

// Load returns all journaled records; a missing or unreadable file is an
// empty journal, not an error.
func (j *Journal) Load() []FailedURL {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return nil
	}
	var records []FailedURL
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

// Record appends one failure unless the seed id is already journaled. The
// truncated message defaults to the reason when the caller did not provide
// one, and it is always capped.
func (j *Journal) Record(entry FailedURL) error {
	if entry.FailedAt == 0 {
		entry.FailedAt = float64(time.Now().Unix())
	}
	if entry.ErrorMessageTruncated == "" {
		entry.ErrorMessageTruncated = entry.ErrorReason
	}
	entry.ErrorMessageTruncated = truncate(entry.ErrorMessageTruncated, j.maxErrLen)

	existing := j.Load()
	for _, r := range existing {
		if r.ID == entry.ID {
			return nil
		}
	}
	existing = append(existing, entry)

	if err := j.save(existing); err != nil {
		return err
	}
	j.logger.Info("journaled failed url construction",
		"id", entry.ID, "firstname", entry.Firstname, "lastname", entry.Lastname)
	return nil
}

func (j *Journal) save(records []FailedURL) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.Create(j.path)
	if err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
