package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"psychscraper/internal/config"
)

// Repo persists therapist rows in the "Therapist" table.
type Repo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewRepo(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Repo, error) {
	pool, err := pgxpool.New(ctx, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Repo{pool: pool, logger: logger}, nil
}

func (r *Repo) Close() {
	r.pool.Close()
}

// Init creates the Therapist table when it does not exist yet.
func (r *Repo) Init(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS "Therapist" (
			"id" TEXT PRIMARY KEY,
			"firstName" TEXT,
			"lastName" TEXT,
			"email" TEXT,
			"phone" TEXT,
			"mobile" TEXT,
			"fax" TEXT,
			"website" TEXT,
			"street" TEXT,
			"zipCode" TEXT,
			"city" TEXT,
			"citySearchValue" TEXT,
			"canton" TEXT,
			"latitude" DOUBLE PRECISION,
			"longitude" DOUBLE PRECISION,
			"practiceName" TEXT,
			"specialization" TEXT,
			"specializations" JSONB,
			"services" JSONB,
			"targetGroups" JSONB,
			"languages" JSONB,
			"billingOptions" JSONB,
			"fspTitles" JSONB,
			"professionalTitle1" TEXT,
			"professionalTitle2" TEXT,
			"aboutMe" TEXT,
			"profileImageUrl" TEXT,
			"hasPicture" BOOLEAN,
			"gender" TEXT,
			"role" TEXT,
			"showPhone" BOOLEAN,
			"showMobile" BOOLEAN,
			"showFax" BOOLEAN,
			"offersPhoneCall" BOOLEAN,
			"offersVideoCall" BOOLEAN,
			"offersOnlineTherapy" BOOLEAN,
			"onlineAvailability" TEXT,
			"availabilityText" TEXT,
			"onlineBookingConsultation" BOOLEAN,
			"contactVerified" BOOLEAN,
			"contactDataQuality" TEXT,
			"insuranceBasic" BOOLEAN,
			"insuranceSupplementary" BOOLEAN,
			"insuranceSelf" BOOLEAN,
			"dataQualityScore" INTEGER,
			"profileCompleteness" INTEGER,
			"dataCompleteness" INTEGER,
			"trafficLight" INTEGER,
			"url" TEXT,
			"dataSource" TEXT,
			"externalId" TEXT,
			"psychologie_ch_id" TEXT,
			"psychologie_ch_user_id" TEXT,
			"scrapedAt" TIMESTAMPTZ,
			"rawData" JSONB,
			"createdAt" TIMESTAMPTZ,
			"updatedAt" TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("creating Therapist table: %w", err)
	}
	return nil
}

func quoteColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = `"` + c + `"`
	}
	return out
}

func placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("$%d", i+1)
	}
	return out
}

func insertSQL(row Row) string {
	cols := row.Columns()
	return fmt.Sprintf(`INSERT INTO "Therapist" (%s) VALUES (%s)`,
		strings.Join(quoteColumns(cols), ", "),
		strings.Join(placeholders(len(cols)), ", "))
}

// SaveTherapist upserts a row by its psychologie_ch_id natural key and
// reports whether the record was inserted or updated.
func (r *Repo) SaveTherapist(ctx context.Context, row Row) (string, error) {
	natural, _ := row.Value("psychologie_ch_id").(string)

	var existingID string
	err := r.pool.QueryRow(ctx,
		`SELECT "id" FROM "Therapist" WHERE "psychologie_ch_id" = $1`,
		natural).Scan(&existingID)
	if err == nil {
		cols := row.Columns()
		sets := make([]string, 0, len(cols))
		vals := make([]any, 0, len(cols)+1)
		n := 1
		for i, col := range cols {
			if col == "id" || col == "createdAt" {
				continue
			}
			sets = append(sets, fmt.Sprintf(`"%s" = $%d`, col, n))
			vals = append(vals, row.Values()[i])
			n++
		}
		vals = append(vals, existingID)
		_, err = r.pool.Exec(ctx, fmt.Sprintf(
			`UPDATE "Therapist" SET %s WHERE "id" = $%d`,
			strings.Join(sets, ", "), n), vals...)
		if err != nil {
			return "", fmt.Errorf("updating therapist %s: %w", natural, err)
		}
		return "updated", nil
	}

	_, err = r.pool.Exec(ctx, insertSQL(row), row.Values()...)
	if err != nil {
		return "", fmt.Errorf("inserting therapist %s: %w", natural, err)
	}
	return "inserted", nil
}

// ReplaceByURL deletes every record sharing the row's profile URL and
// inserts the row in the same transaction, returning the delete count.
func (r *Repo) ReplaceByURL(ctx context.Context, row Row) (int64, error) {
	url, _ := row.Value("url").(string)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM "Therapist" WHERE "url" = $1`, url)
	if err != nil {
		return 0, fmt.Errorf("deleting by url %s: %w", url, err)
	}

	if _, err := tx.Exec(ctx, insertSQL(row), row.Values()...); err != nil {
		return 0, fmt.Errorf("inserting replacement for %s: %w", url, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing replacement for %s: %w", url, err)
	}
	return tag.RowsAffected(), nil
}

// ManualRecord is the slice of a therapist row the availability pass needs.
type ManualRecord struct {
	ID               string
	FirstName        string
	LastName         string
	URL              string
	AvailabilityText string
}

// ManualRecords lists the manually-sourced therapists in id order.
func (r *Repo) ManualRecords(ctx context.Context) ([]ManualRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT "id", "firstName", "lastName", "url", COALESCE("availabilityText", '')
		FROM "Therapist"
		WHERE "dataSource" = 'manual'
		ORDER BY "id"
	`)
	if err != nil {
		return nil, fmt.Errorf("listing manual records: %w", err)
	}
	defer rows.Close()

	var out []ManualRecord
	for rows.Next() {
		var rec ManualRecord
		if err := rows.Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.URL, &rec.AvailabilityText); err != nil {
			return nil, fmt.Errorf("scanning manual record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateAvailability writes one availability scrape result back to its row.
func (r *Repo) UpdateAvailability(ctx context.Context, id, text string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE "Therapist" SET "availabilityText" = $1, "updatedAt" = NOW() WHERE "id" = $2`,
		text, id)
	if err != nil {
		return fmt.Errorf("updating availability for %s: %w", id, err)
	}
	return nil
}

// DBStats summarizes the Therapist table for the database-info view.
type DBStats struct {
	Total        int64
	BySource     map[string]int64
	WithVendorID int64
	UpdatedToday int64
	TableSize    string
}

func (r *Repo) Stats(ctx context.Context) (DBStats, error) {
	stats := DBStats{BySource: map[string]int64{}}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM "Therapist"`).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("counting therapists: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE("dataSource", ''), COUNT(*)
		FROM "Therapist" GROUP BY "dataSource"
	`)
	if err != nil {
		return stats, fmt.Errorf("counting by source: %w", err)
	}
	for rows.Next() {
		var src string
		var n int64
		if err := rows.Scan(&src, &n); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scanning source count: %w", err)
		}
		stats.BySource[src] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM "Therapist" WHERE "psychologie_ch_id" IS NOT NULL AND "psychologie_ch_id" <> ''`,
	).Scan(&stats.WithVendorID); err != nil {
		return stats, fmt.Errorf("counting vendor ids: %w", err)
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM "Therapist" WHERE "updatedAt" > NOW() - INTERVAL '24 hours'`,
	).Scan(&stats.UpdatedToday); err != nil {
		return stats, fmt.Errorf("counting recent updates: %w", err)
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT pg_size_pretty(pg_total_relation_size('"Therapist"'))`,
	).Scan(&stats.TableSize); err != nil {
		return stats, fmt.Errorf("reading table size: %w", err)
	}

	return stats, nil
}
