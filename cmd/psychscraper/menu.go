package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"psychscraper/internal/config"
)

func runMenu(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Println()
		fmt.Println("=== psychologie.ch scraper ===")
		fmt.Println("1) Scrape and merge into export file")
		fmt.Println("2) Replace database records")
		fmt.Println("3) Refresh availability texts")
		fmt.Println("4) Analyze failed URLs")
		fmt.Println("5) Settings")
		fmt.Println("6) Database info")
		fmt.Println("0) Exit")
		fmt.Print("> ")

		if !stdin.Scan() {
			return nil
		}

		var err error
		switch strings.TrimSpace(stdin.Text()) {
		case "1":
			if confirm("Scrape unscraped profiles and merge? [y/N] ", "") {
				err = runScrapeMerge(ctx)
			}
		case "2":
			err = runReplace(ctx)
		case "3":
			err = runAvailability(ctx)
		case "4":
			err = runAnalyze(ctx)
		case "5":
			err = settingsMenu()
		case "6":
			err = runDatabaseInfo(ctx)
		case "0", "q", "exit":
			return nil
		default:
			fmt.Println("Unknown option.")
		}

		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
}

func settingsMenu() error {
	for {
		fmt.Println()
		fmt.Println("--- Settings ---")
		fmt.Println("1) View current settings")
		fmt.Println("2) Edit a setting")
		fmt.Println("3) Save settings to file")
		fmt.Println("4) Reset to defaults")
		fmt.Println("0) Back")
		fmt.Print("> ")

		if !stdin.Scan() {
			return nil
		}

		switch strings.TrimSpace(stdin.Text()) {
		case "1":
			printSettings()
		case "2":
			editSetting()
		case "3":
			if err := config.Save(config.SettingsPath, settings); err != nil {
				return err
			}
			fmt.Println("Settings saved to", config.SettingsPath)
		case "4":
			settings = config.Defaults()
			fmt.Println("Settings reset to defaults (not yet saved).")
		case "0":
			return nil
		default:
			fmt.Println("Unknown option.")
		}
	}
}

func printSettings() {
	limit := "unlimited"
	if n, ok := settings.ProfileLimit(); ok {
		limit = strconv.Itoa(n)
	}
	password := "(not set)"
	if settings.DB.Password != "" {
		password = strings.Repeat("*", 8)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRow(table.Row{"MAX_PROFILES_TO_SCRAPE", limit})
	t.AppendRow(table.Row{"MAX_SERVICES_PER_PROFILE", settings.MaxServicesPerProfile})
	t.AppendRow(table.Row{"MAX_LANGUAGES_PER_PROFILE", settings.MaxLanguagesPerProfile})
	t.AppendRow(table.Row{"SAVE_INTERVAL", settings.SaveInterval})
	t.AppendRow(table.Row{"RATE_LIMIT_SECONDS", settings.RateLimitSeconds})
	t.AppendRow(table.Row{"DEBUG_MODE", settings.Debug()})
	t.AppendRow(table.Row{"DEBUG_RECORD_ID", settings.DebugRecordID})
	t.AppendRow(table.Row{"MAX_ERROR_MESSAGE_LENGTH", settings.MaxErrorMessageLength})
	t.AppendRow(table.Row{"DB host", settings.DB.Host + ":" + settings.DB.Port})
	t.AppendRow(table.Row{"DB database", settings.DB.Database})
	t.AppendRow(table.Row{"DB user", settings.DB.User})
	t.AppendRow(table.Row{"DB password", password})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func editSetting() {
	fmt.Print("Setting name (e.g. MAX_PROFILES_TO_SCRAPE): ")
	if !stdin.Scan() {
		return
	}
	name := strings.TrimSpace(stdin.Text())

	fmt.Print("New value: ")
	if !stdin.Scan() {
		return
	}
	value := strings.TrimSpace(stdin.Text())

	if err := applySetting(name, value); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Updated (use option 3 to persist).")
}

func applySetting(name, value string) error {
	atoi := func() (int, error) { return strconv.Atoi(value) }

	switch name {
	case "MAX_PROFILES_TO_SCRAPE":
		if strings.EqualFold(value, "null") || strings.EqualFold(value, "unlimited") {
			settings.MaxProfilesToScrape = nil
			return nil
		}
		n, err := atoi()
		if err != nil {
			return err
		}
		settings.MaxProfilesToScrape = &n
	case "MAX_SERVICES_PER_PROFILE":
		n, err := atoi()
		if err != nil {
			return err
		}
		settings.MaxServicesPerProfile = n
	case "MAX_LANGUAGES_PER_PROFILE":
		n, err := atoi()
		if err != nil {
			return err
		}
		settings.MaxLanguagesPerProfile = n
	case "SAVE_INTERVAL":
		n, err := atoi()
		if err != nil {
			return err
		}
		settings.SaveInterval = n
	case "RATE_LIMIT_SECONDS":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		settings.RateLimitSeconds = f
	case "DEBUG_MODE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		settings.DebugMode = &b
	case "DEBUG_RECORD_ID":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		settings.DebugRecordID = n
	case "MAX_ERROR_MESSAGE_LENGTH":
		n, err := atoi()
		if err != nil {
			return err
		}
		settings.MaxErrorMessageLength = n
	case "DB_HOST":
		settings.DB.Host = value
	case "DB_PORT":
		settings.DB.Port = value
	case "DB_DATABASE":
		settings.DB.Database = value
	case "DB_USER":
		settings.DB.User = value
	case "DB_PASSWORD":
		settings.DB.Password = value
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	return nil
}

func runDatabaseInfo(ctx context.Context) error {
	repo, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	stats, err := repo.Stats(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Total therapists", stats.Total})
	for src, n := range stats.BySource {
		if src == "" {
			src = "(none)"
		}
		t.AppendRow(table.Row{"Source: " + src, n})
	}
	t.AppendRow(table.Row{"With psychologie.ch id", stats.WithVendorID})
	t.AppendRow(table.Row{"Updated in last 24h", stats.UpdatedToday})
	t.AppendRow(table.Row{"Table size", stats.TableSize})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
