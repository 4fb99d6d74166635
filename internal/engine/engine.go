// Package engine drives the scrape passes: merging scraped fields into the
// vendor export, replacing database rows from fresh scrapes, refreshing
// availability badges and syncing scraped records into storage.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"psychscraper/internal/config"
	"psychscraper/internal/journal"
	"psychscraper/internal/model"
	"psychscraper/internal/scrape"
	"psychscraper/internal/slug"
	"psychscraper/internal/source"
	"psychscraper/internal/storage"
)

// Store is the persistence surface the engine writes to.
type Store interface {
	SaveTherapist(ctx context.Context, row storage.Row) (string, error)
	ReplaceByURL(ctx context.Context, row storage.Row) (int64, error)
	ManualRecords(ctx context.Context) ([]storage.ManualRecord, error)
	UpdateAvailability(ctx context.Context, id, text string) error
}

// ProfileFetcher retrieves one profile page by slug.
type ProfileFetcher interface {
	ProfilePage(slug string) (*goquery.Document, error)
}

// AvailabilityScraper reads the availability badge from a profile URL.
type AvailabilityScraper interface {
	AvailabilityText(ctx context.Context, url string) (string, error)
}

type Engine struct {
	cfg       config.Settings
	store     Store
	fetcher   ProfileFetcher
	avail     AvailabilityScraper
	extractor *scrape.Extractor
	journal   *journal.Journal
	logger    *slog.Logger
}

// New wires an engine. store and avail may be nil for passes that do not
// touch the database.
func New(cfg config.Settings, store Store, fetcher ProfileFetcher, avail AvailabilityScraper, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		store:     store,
		fetcher:   fetcher,
		avail:     avail,
		extractor: scrape.NewExtractor(cfg.MaxServicesPerProfile, cfg.MaxLanguagesPerProfile, logger),
		journal:   journal.New(config.FailedURLPath, cfg.MaxErrorMessageLength, logger),
		logger:    logger,
	}
}

// identityOf builds the scrape identity for a profile. Records without an id
// or without both name parts cannot form a slug and are skipped.
func identityOf(p model.Profile) (scrape.Identity, bool) {
	id, ok := p.ID()
	if !ok {
		return scrape.Identity{}, false
	}
	first := strings.TrimSpace(p.FirstName())
	last := strings.TrimSpace(p.LastName())
	if first == "" || last == "" {
		return scrape.Identity{}, false
	}
	s := slug.ForName(first, last)
	return scrape.Identity{
		ID:        id,
		UserID:    p.UserID(),
		FirstName: first,
		LastName:  last,
		URL:       scrape.ProfileURL(s),
	}, true
}

// scrapeOne fetches and extracts a profile, journaling on failure.
func (e *Engine) scrapeOne(id scrape.Identity, reason string) (model.Profile, error) {
	doc, err := e.fetcher.ProfilePage(slug.ForName(id.FirstName, id.LastName))
	if err != nil {
		e.recordFailure(id, reason, err)
		return nil, err
	}
	return e.extractor.Extract(id, doc), nil
}

func (e *Engine) recordFailure(id scrape.Identity, reason string, err error) {
	s := slug.ForName(id.FirstName, id.LastName)
	if jerr := e.journal.Record(journal.FailedURL{
		ID:                    id.ID,
		UserID:                id.UserID,
		Firstname:             id.FirstName,
		Lastname:              id.LastName,
		GeneratedSlug:         s,
		ConstructedURL:        scrape.ProfileURL(s),
		ErrorReason:           reason,
		ErrorMessageTruncated: e.cfg.TruncateError(err.Error()),
	}); jerr != nil {
		e.logger.Error("recording failed url", "error", jerr)
	}
}

// pause enforces the per-record rate limit, returning early on cancellation.
func (e *Engine) pause(ctx context.Context) error {
	d := e.cfg.RateLimit()
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (e *Engine) traceRecord(p model.Profile) {
	if !e.cfg.Debug() {
		return
	}
	if id, ok := p.ID(); !ok || id != e.cfg.DebugRecordID {
		return
	}
	fields := make([]string, 0, len(p))
	for k := range p {
		fields = append(fields, k)
	}
	e.logger.Debug("traced record state",
		"id", e.cfg.DebugRecordID,
		"scraped", p.Scraped(),
		"fields", fields)
}

// MergeRun scrapes every unscraped profile in the export and merges the
// extracted fields back into it, saving incrementally. Records that already
// carry the scraped_at sentinel are skipped, which makes interrupted runs
// resumable.
func (e *Engine) MergeRun(ctx context.Context, export *source.Export, exportPath string) error {
	if err := export.Backup(config.BackupPath); err != nil {
		return fmt.Errorf("backing up export: %w", err)
	}

	pending := 0
	for _, p := range export.Profiles {
		if _, ok := identityOf(p); ok && !p.Scraped() {
			pending++
		}
	}
	limit, limited := e.cfg.ProfileLimit()
	if limited && limit < pending {
		pending = limit
	}
	e.logger.Info("starting merge run",
		"profiles", len(export.Profiles), "pending", pending, "limited", limited)

	tracker := newProgressTracker(pending, e.logger)
	sinceSave := 0

	for _, p := range export.Profiles {
		if err := ctx.Err(); err != nil {
			break
		}
		if limited && tracker.processed >= limit {
			e.logger.Info("profile limit reached", "limit", limit)
			break
		}

		id, ok := identityOf(p)
		if !ok {
			tracker.skip()
			continue
		}
		if p.Scraped() {
			tracker.skip()
			continue
		}
		e.traceRecord(p)

		incoming, err := e.scrapeOne(id, "Profile scrape failed")
		if err != nil {
			e.logger.Warn("profile scrape failed",
				"id", id.ID, "url", id.URL, "error", err)
			tracker.failure()
			if err := e.pause(ctx); err != nil {
				break
			}
			continue
		}

		model.Merge(p, incoming)
		p["scraped_at"] = time.Now().Unix()
		e.traceRecord(p)
		tracker.success()

		sinceSave++
		if e.cfg.SaveInterval > 0 && sinceSave >= e.cfg.SaveInterval {
			if err := export.Save(exportPath); err != nil {
				return fmt.Errorf("saving export: %w", err)
			}
			sinceSave = 0
		}

		if err := e.pause(ctx); err != nil {
			break
		}
	}

	if err := export.Save(exportPath); err != nil {
		return fmt.Errorf("saving export: %w", err)
	}
	tracker.finish()
	return ctx.Err()
}

// ReplaceStats summarizes a replace run.
type ReplaceStats struct {
	Inserted int
	Deleted  int64
	Failed   int
	Skipped  int
}

// ReplaceRun re-scrapes every profile and replaces its database rows inside
// a per-record transaction keyed on the profile URL. The loaded export is
// never written back; each seed is cloned before merging.
func (e *Engine) ReplaceRun(ctx context.Context, export *source.Export) (ReplaceStats, error) {
	var stats ReplaceStats

	total := 0
	for _, p := range export.Profiles {
		if _, ok := identityOf(p); ok {
			total++
		}
	}
	limit, limited := e.cfg.ProfileLimit()
	if limited && limit < total {
		total = limit
	}
	e.logger.Info("starting replace run", "profiles", total)

	tracker := newProgressTracker(total, e.logger)

	for _, p := range export.Profiles {
		if err := ctx.Err(); err != nil {
			break
		}
		if limited && tracker.processed >= limit {
			break
		}

		id, ok := identityOf(p)
		if !ok {
			tracker.skip()
			stats.Skipped++
			continue
		}

		seed := p.Clone()
		incoming, err := e.scrapeOne(id, "Profile scrape failed")
		if err != nil {
			e.logger.Warn("profile scrape failed",
				"id", id.ID, "url", id.URL, "error", err)
			tracker.failure()
			stats.Failed++
			if err := e.pause(ctx); err != nil {
				break
			}
			continue
		}

		model.Merge(seed, incoming)
		seed["scraped_at"] = time.Now().Unix()

		row := storage.MapProfile(seed, time.Now())
		deleted, err := e.store.ReplaceByURL(ctx, row)
		if err != nil {
			e.recordFailure(id, "Database insertion failed", err)
			e.logger.Error("replacing record",
				"id", id.ID, "url", row.Value("url"), "error", err)
			tracker.failure()
			stats.Failed++
			if err := e.pause(ctx); err != nil {
				break
			}
			continue
		}

		stats.Inserted++
		stats.Deleted += deleted
		tracker.success()

		if err := e.pause(ctx); err != nil {
			break
		}
	}

	tracker.finish()
	e.logger.Info("replace run composition",
		"inserted", stats.Inserted,
		"deleted", stats.Deleted,
		"failed", stats.Failed,
		"skipped", stats.Skipped)
	return stats, ctx.Err()
}

// AvailabilityRun refreshes the availability badge text for every manually
// sourced database record. Rows whose badge did not change are left alone.
func (e *Engine) AvailabilityRun(ctx context.Context) error {
	records, err := e.store.ManualRecords(ctx)
	if err != nil {
		return err
	}
	e.logger.Info("starting availability run", "records", len(records))

	tracker := newProgressTracker(len(records), e.logger)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			break
		}

		pageURL := rec.URL
		if pageURL == "" {
			pageURL = slug.ForName(rec.FirstName, rec.LastName)
		}
		if !strings.HasPrefix(pageURL, "http") {
			pageURL = scrape.ProfileURL(pageURL)
		}

		text, err := e.avail.AvailabilityText(ctx, pageURL)
		if err != nil {
			e.logger.Warn("availability scrape failed",
				"id", rec.ID, "url", pageURL, "error", err)
			tracker.failure()
			if err := e.pause(ctx); err != nil {
				break
			}
			continue
		}
		if text == "" || text == rec.AvailabilityText {
			tracker.skip()
			if err := e.pause(ctx); err != nil {
				break
			}
			continue
		}

		if err := e.store.UpdateAvailability(ctx, rec.ID, text); err != nil {
			e.logger.Error("updating availability", "id", rec.ID, "error", err)
			tracker.failure()
		} else {
			e.logger.Debug("availability updated", "id", rec.ID, "text", text)
			tracker.success()
		}

		if err := e.pause(ctx); err != nil {
			break
		}
	}

	tracker.finish()
	return ctx.Err()
}

// SyncStats summarizes a sync run.
type SyncStats struct {
	Inserted int
	Updated  int
	Failed   int
	Skipped  int
}

// SyncRun upserts every already-scraped profile from the export into the
// database, keyed on the vendor id. It performs no scraping.
func (e *Engine) SyncRun(ctx context.Context, export *source.Export) (SyncStats, error) {
	var stats SyncStats
	e.logger.Info("starting sync run", "profiles", len(export.Profiles))

	for _, p := range export.Profiles {
		if err := ctx.Err(); err != nil {
			break
		}
		if !p.Scraped() {
			stats.Skipped++
			continue
		}
		if _, ok := p.ID(); !ok {
			stats.Skipped++
			continue
		}

		row := storage.MapProfile(p, time.Now())
		action, err := e.store.SaveTherapist(ctx, row)
		if err != nil {
			id, _ := p.ID()
			e.logger.Error("syncing record", "id", id, "error", err)
			stats.Failed++
			continue
		}
		switch action {
		case "inserted":
			stats.Inserted++
		case "updated":
			stats.Updated++
		}
	}

	e.logger.Info("sync run complete",
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"failed", stats.Failed,
		"skipped", stats.Skipped)
	return stats, ctx.Err()
}
