package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tap-timebutler/internal/config"
	"tap-timebutler/internal/repository"
	"tap-timebutler/internal/schema"
	"tap-timebutler/internal/service"
	"tap-timebutler/internal/target"
	"tap-timebutler/pkg/telegram"
	"tap-timebutler/pkg/timebutler"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type rootOptions struct {
	configPath string
	statePath  string
	discover   bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tap-timebutler",
		Short: "Singer tap for the Timebutler absence and HR API",
		Long: `tap-timebutler exports absences, users, holiday entitlements, workdays,
worktime, projects and services from Timebutler as Singer messages on stdout.
Absence spans are expanded into one record per day and merged with the public
holidays of the configured region.

Example Usage:
  tap-timebutler --config config.json --discover
  tap-timebutler --config config.json --state state.json > out.jsonl`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to the tap config (JSON or YAML)")
	cmd.Flags().StringVarP(&opts.statePath, "state", "s", "", "Path to a state file from a previous run")
	cmd.Flags().BoolVarP(&opts.discover, "discover", "d", false, "Print the catalog and exit")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func run(ctx context.Context, opts *rootOptions, stdout io.Writer) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load config")
		return err
	}
	if err := setupLogger(log, cfg.LogLevel, cfg.LogFormat, opts.verbose); err != nil {
		return err
	}

	schemas := schema.NewProvider()
	if opts.discover {
		return writeCatalog(stdout, schemas, service.DefaultStreams())
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("Invalid config")
		return err
	}

	client, err := timebutler.NewClient(timebutler.ClientConfig{
		BaseURL:         cfg.BaseURL,
		AuthToken:       cfg.AuthToken,
		HolidayURL:      cfg.HolidayAPIURL,
		HolidayCountry:  cfg.HolidayCountry,
		Timeout:         cfg.RequestTimeout.Std(),
		RateLimitCalls:  cfg.RateLimitCalls,
		RateLimitPeriod: cfg.RateLimitPeriod.Std(),
		Logger:          log,
	})
	if err != nil {
		log.WithError(err).Error("Failed to create Timebutler client")
		return err
	}
	transport := timebutler.WithRetry(client, timebutler.RetryOptions{
		MaxTries:          cfg.MaxTries,
		BackoffInitial:    cfg.BackoffInitial.Std(),
		BackoffMax:        cfg.BackoffMax.Std(),
		BackoffJitterFrac: 0.1,
	}, log)

	tg, closeTarget, err := openTarget(cfg, opts.statePath, stdout, log)
	if err != nil {
		log.WithError(err).Error("Failed to open target")
		return err
	}
	defer closeTarget()

	var notifier *telegram.Client
	if cfg.NotificationsEnabled() {
		notifier, err = telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.WithError(err).Warn("Telegram notifications disabled")
			notifier = nil
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncService := service.NewSyncService(transport, schemas, tg, service.NewAbsenceTypeClassifier(), service.SyncConfig{
		StartDate:     cfg.StartDate,
		StartYear:     cfg.StartYear,
		HolidayRegion: cfg.HolidayRegion,
	}, log)

	summary, runErr := syncService.Run(ctx)
	if summary != nil {
		if err := notifier.Notify(summary.String()); err != nil {
			log.WithError(err).Warn("Failed to send run summary")
		}
	}
	return runErr
}

// openTarget returns the configured target and a func releasing what it holds.
func openTarget(cfg *config.TapConfig, statePath string, stdout io.Writer, log *logrus.Logger) (service.Target, func(), error) {
	if cfg.Target != config.TargetSQLite {
		return target.NewSingerTarget(stdout, statePath), func() {}, nil
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	closeDB := func() {
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Warn("Error closing database")
		}
	}

	records, err := repository.NewGormRecordRepository(db)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("failed to create record repository: %w", err)
	}
	bookmarks, err := repository.NewGormBookmarkRepository(db)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("failed to create bookmark repository: %w", err)
	}
	log.WithField("database", cfg.DatabaseURL).Info("Writing to sqlite")
	return target.NewStoreTarget(records, bookmarks, log), closeDB, nil
}

func setupLogger(log *logrus.Logger, level, format string, verbose bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	log.SetLevel(lvl)

	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log_format %q", format)
	}
	return nil
}

type catalogEntry struct {
	Stream        string         `json:"stream"`
	TapStreamID   string         `json:"tap_stream_id"`
	Schema        map[string]any `json:"schema"`
	KeyProperties []string       `json:"key_properties"`
}

type catalog struct {
	Streams []catalogEntry `json:"streams"`
}

func writeCatalog(w io.Writer, schemas service.SchemaLoader, streams []service.StreamSpec) error {
	cat := catalog{Streams: make([]catalogEntry, 0, len(streams))}
	for _, s := range streams {
		desc, err := schemas.Load(s.Name)
		if err != nil {
			return err
		}
		cat.Streams = append(cat.Streams, catalogEntry{
			Stream:        s.Name,
			TapStreamID:   s.Name,
			Schema:        desc.Raw,
			KeyProperties: s.KeyProperties,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cat)
}
