package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"psychscraper/internal/config"
	"psychscraper/internal/journal"
	"psychscraper/internal/scrape"
	"psychscraper/internal/slug"
)

const probeSampleSize = 5

// slugSelfTest pins the hardest known transliteration case.
var slugSelfTest = struct {
	first, last, want string
}{"Jean-François", "Briefer", "jean-francois-briefer"}

func runAnalyze(ctx context.Context) error {
	j := journal.New(config.FailedURLPath, settings.MaxErrorMessageLength, logger)
	records := j.Load()
	if len(records) == 0 {
		fmt.Println("No failed URL records found.")
		return nil
	}

	analysis := journal.Analyze(records)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Category", "Count"})
	t.AppendRow(table.Row{"Total failures", analysis.Total})
	t.AppendRow(table.Row{"Empty names", len(analysis.EmptyNames)})
	t.AppendRow(table.Row{"Special characters", len(analysis.SpecialChars)})
	t.AppendRow(table.Row{"Hyphenated names", len(analysis.Hyphenated)})
	t.AppendRow(table.Row{"Long names (>20 chars)", len(analysis.LongNames)})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if got := slug.ForName(slugSelfTest.first, slugSelfTest.last); got != slugSelfTest.want {
		fmt.Printf("Slug self-test FAILED: %q -> %q (want %q)\n",
			slugSelfTest.first+" "+slugSelfTest.last, got, slugSelfTest.want)
	} else {
		fmt.Println("Slug self-test passed.")
	}

	probeSample(ctx, records)
	return nil
}

// probeSample issues HEAD requests against a handful of the journaled URLs
// to tell transient fetch failures apart from genuinely wrong slugs.
func probeSample(ctx context.Context, records []journal.FailedURL) {
	client := scrape.NewAvailabilityClient()

	sample := records
	if len(sample) > probeSampleSize {
		sample = sample[:probeSampleSize]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "URL", "Status"})
	for _, rec := range sample {
		if rec.ConstructedURL == "" {
			continue
		}
		status, err := client.Probe(ctx, rec.ConstructedURL)
		result := fmt.Sprintf("%d", status)
		if err != nil {
			result = "error: " + err.Error()
		}
		t.AppendRow(table.Row{rec.ID, rec.ConstructedURL, result})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
