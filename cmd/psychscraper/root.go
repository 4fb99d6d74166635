package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"psychscraper/internal/config"
	"psychscraper/internal/engine"
	"psychscraper/internal/scrape"
	"psychscraper/internal/source"
	"psychscraper/internal/storage"
)

var (
	settings config.Settings
	logger   *slog.Logger
	stdin    = bufio.NewScanner(os.Stdin)
)

var rootCmd = &cobra.Command{
	Use:   "psychscraper",
	Short: "psychscraper maintains the psychologie.ch therapist export and database.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			fmt.Printf("Unknown argument: %s\n\n", args[0])
			return cmd.Usage()
		}
		return runMenu(cmd.Context())
	},
}

func execute(ctx context.Context, cfg config.Settings, log *slog.Logger) error {
	settings = cfg
	logger = log

	rootCmd.AddCommand(scrapeCmd, replaceCmd, availabilityCmd, syncCmd, analyzeCmd, dbinfoCmd)
	rootCmd.SilenceUsage = true
	return rootCmd.ExecuteContext(ctx)
}

func loadExport() (*source.Export, error) {
	return source.Load(config.ExportPath, logger)
}

func openStore(ctx context.Context) (*storage.Repo, error) {
	repo, err := storage.NewRepo(ctx, settings.DB, logger)
	if err != nil {
		return nil, err
	}
	if err := repo.Init(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

// confirm reads one line and reports whether it matches the expected token.
// An empty expected token accepts y or yes.
func confirm(prompt, expected string) bool {
	fmt.Print(prompt)
	if !stdin.Scan() {
		return false
	}
	answer := strings.TrimSpace(stdin.Text())
	if expected != "" {
		return answer == expected
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrapes unscraped profiles and merges the results into the export file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrapeMerge(cmd.Context())
	},
}

var replaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Re-scrapes every profile and replaces its database rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplace(cmd.Context())
	},
}

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Refreshes availability texts for manually sourced database records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAvailability(cmd.Context())
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upserts already-scraped profiles from the export into the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyzes the failed URL journal and probes a sample of constructed URLs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context())
	},
}

var dbinfoCmd = &cobra.Command{
	Use:   "database-info",
	Short: "Prints a summary of the Therapist table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDatabaseInfo(cmd.Context())
	},
}

func runScrapeMerge(ctx context.Context) error {
	export, err := loadExport()
	if err != nil {
		return err
	}
	eng := engine.New(settings, nil, scrape.NewFetcher(logger), nil, logger)
	return eng.MergeRun(ctx, export, config.ExportPath)
}

func runReplace(ctx context.Context) error {
	fmt.Println("WARNING: this deletes and re-inserts every matching database record.")
	if !confirm("Type YES to continue: ", "YES") {
		fmt.Println("Aborted.")
		return nil
	}

	export, err := loadExport()
	if err != nil {
		return err
	}
	repo, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	eng := engine.New(settings, repo, scrape.NewFetcher(logger), nil, logger)
	stats, err := eng.ReplaceRun(ctx, export)
	if err != nil {
		return err
	}
	fmt.Printf("Replaced: %d inserted, %d deleted, %d failed, %d skipped\n",
		stats.Inserted, stats.Deleted, stats.Failed, stats.Skipped)

	dbStats, err := repo.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Database composition by source:")
	for src, n := range dbStats.BySource {
		if src == "" {
			src = "(none)"
		}
		fmt.Printf("  %s: %d\n", src, n)
	}
	return nil
}

func runAvailability(ctx context.Context) error {
	fmt.Println("This rewrites availability texts for all manually sourced records.")
	if !confirm("Type YES to continue: ", "YES") {
		fmt.Println("Aborted.")
		return nil
	}

	repo, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	eng := engine.New(settings, repo, nil, scrape.NewAvailabilityClient(), logger)
	return eng.AvailabilityRun(ctx)
}

func runSync(ctx context.Context) error {
	export, err := loadExport()
	if err != nil {
		return err
	}
	repo, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	eng := engine.New(settings, repo, nil, nil, logger)
	stats, err := eng.SyncRun(ctx, export)
	if err != nil {
		return err
	}
	fmt.Printf("Synced: %d inserted, %d updated, %d failed, %d skipped\n",
		stats.Inserted, stats.Updated, stats.Failed, stats.Skipped)
	return nil
}
