package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/panoptes/pocs-core/internal/infrastructure/config"
	"github.com/panoptes/pocs-core/internal/infrastructure/database"
	"github.com/panoptes/pocs-core/internal/weather"
)

var weatherSafe bool

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Inspect and record weather readings",
}

var weatherRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a weather reading in the local store",
	Long: `Insert a weather reading into the SQLite weather store.

Useful for units without a weather station feed, and for testing the
safety monitor: a record older than safety.weather_stale counts as
unsafe regardless of its verdict.`,
	Args: cobra.NoArgs,
	RunE: runWeatherRecord,
}

var weatherShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest weather reading",
	Args:  cobra.NoArgs,
	RunE:  runWeatherShow,
}

func init() {
	weatherRecordCmd.Flags().BoolVar(&weatherSafe, "safe", false, "Record the conditions as safe")
	weatherCmd.AddCommand(weatherRecordCmd, weatherShowCmd)
	rootCmd.AddCommand(weatherCmd)
}

func openWeatherDB(cmd *cobra.Command, cfg *config.Config) (*database.DB, error) {
	if cfg.Weather.Store != config.WeatherStoreSQLite {
		return nil, fmt.Errorf("weather.store is %q; weather commands need the sqlite store", cfg.Weather.Store)
	}

	db, err := database.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(cmd.Context()); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func runWeatherRecord(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openWeatherDB(cmd, cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // one-shot

	record := weather.Record{Safe: weatherSafe, Timestamp: time.Now().UTC()}
	payload, err := json.Marshal(map[string]any{"safe": record.Safe, "source": "cli"})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	if err := weather.NewSQLiteStore(db.DB).Insert(cmd.Context(), record, string(payload)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recorded safe=%t at %s\n", record.Safe, record.Timestamp.Format(time.RFC3339))
	return nil
}

func runWeatherShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openWeatherDB(cmd, cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // one-shot

	record, err := weather.NewSQLiteStore(db.DB).Latest(cmd.Context())
	if err != nil {
		return err
	}

	now := time.Now()
	stale := ""
	if record.Stale(now, cfg.GetWeatherStale()) {
		stale = " (stale)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "safe=%t recorded %s ago%s\n", record.Safe, record.Age(now).Round(time.Second), stale)
	return nil
}
