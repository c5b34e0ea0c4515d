package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igstories/pkg/auth"
	"igstories/pkg/checkpoint"
	"igstories/pkg/config"
	"igstories/pkg/instagram"
	"igstories/pkg/logger"
	"igstories/pkg/ratelimit"
	"igstories/pkg/retry"
	"igstories/pkg/scraper"
	"igstories/pkg/storage"
	"igstories/pkg/ui"
)

var (
	// Run flags
	rootDir     string
	concurrency int
	rateLimit   int
	maxAttempts int
	timeout     time.Duration
	noArchive   bool
	noProgress  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download everything currently in the story tray",
	Long: `Fetch the story tray, then every listed user's reel, and download each
story image, story video and live replay that is not on disk yet.

A failed user or item is reported and skipped; only a failed tray fetch
fails the run. Ctrl-C stops the run and removes partial files.`,
	Example: `  # One pass with stored credentials
  igstories run

  # Into another directory, eight downloads at a time
  igstories run --root ~/stories --concurrency 8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := setup(cmd)
		if err != nil {
			return err
		}

		_, err = app.runOnce(ctx)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&rootDir, "root", "o", "", "directory receiving downloads/ and snapshots (default: current directory)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel downloads and reel fetches (default 4)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute (default 60)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "attempts per request (default 3)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-attempt timeout (default 60s)")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "keep snapshots loose instead of archiving them")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
}

// app is everything one account needs to run
type app struct {
	cfg     *config.Config
	account *auth.Account
	scraper *scraper.Scraper
	history *checkpoint.Manager
	log     logger.Logger
}

// loadConfig merges flags that were set on the command line
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = value
		}
	}
	set("account", accountName)
	set("root", rootDir)
	set("concurrency", concurrency)
	set("rate-limit", rateLimit)
	set("max-attempts", maxAttempts)
	set("timeout", timeout)
	set("interval", interval)
	if f := cmd.Flags().Lookup("no-archive"); f != nil && f.Changed {
		flags["archive"] = !noArchive
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if v, ok := flags["rate-limit"]; ok {
		flags["requests-per-minute"] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// resolveAccount prefers credentials given in config or environment, then
// the credential store.
func resolveAccount(cfg *config.Config) (*auth.Account, error) {
	if cfg.Instagram.HasCredentials() && cfg.Instagram.Account == "" {
		return &auth.Account{
			Username:  "config",
			UserID:    cfg.Instagram.UserID,
			SessionID: cfg.Instagram.SessionID,
			CSRFToken: cfg.Instagram.CSRFToken,
			DeviceID:  cfg.Instagram.DeviceID,
		}, nil
	}

	manager, err := auth.NewManager("")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	account, err := manager.Resolve(cfg.Instagram.Account)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return nil, fmt.Errorf("%w\n\nStore a session with:\n  igstories auth login\nor import an existing config.json with:\n  igstories auth import config.json", err)
		}
		return nil, err
	}
	return account, nil
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.GetLogger()

	account, err := resolveAccount(cfg)
	if err != nil {
		return nil, err
	}
	if account.DeviceID == "" {
		account.DeviceID = auth.NewDeviceID()
	}

	userAgent := cfg.Instagram.UserAgent
	if account.UserAgent != "" {
		userAgent = account.UserAgent
	}

	client, err := instagram.NewClient(account.Credentials(),
		instagram.WithBaseURL(cfg.Instagram.BaseURL),
		instagram.WithUserAgent(userAgent),
		instagram.WithTimeout(cfg.Download.Timeout),
		instagram.WithLimiter(ratelimit.NewPerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)),
		instagram.WithRetryPolicy(&retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:  cfg.Retry.BaseDelay,
				MaxDelay:   cfg.Retry.MaxDelay,
				Multiplier: cfg.Retry.Multiplier,
			},
			RetryIf: retry.DefaultRetryIf,
		}),
		instagram.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials for account %s: %w", account.Username, err)
	}

	opts := scraper.Options{
		Root:        cfg.Output.RootDirectory,
		Concurrency: cfg.Download.Concurrency,
		Archive:     cfg.Output.ArchiveSnapshots,
		Logger:      log,
	}
	if cfg.Output.SaveSnapshots {
		snapshots, err := storage.NewManager(snapshotDir(cfg), log)
		if err != nil {
			return nil, err
		}
		opts.Snapshots = snapshots
	}

	history, err := checkpoint.NewManager("", account.Username, log)
	if err != nil {
		log.WithError(err).Warn("run history disabled")
		history = nil
	}

	log.InfoWithFields("using account", map[string]interface{}{
		"account": account.Username,
		"root":    cfg.Output.RootDirectory,
	})

	return &app{
		cfg:     cfg,
		account: account,
		scraper: scraper.New(client, opts),
		history: history,
		log:     log,
	}, nil
}

func snapshotDir(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Output.SnapshotDirectory) {
		return cfg.Output.SnapshotDirectory
	}
	return filepath.Join(cfg.Output.RootDirectory, cfg.Output.SnapshotDirectory)
}

// runOnce performs one run with a progress bar and records its outcome
func (a *app) runOnce(ctx context.Context) (scraper.Summary, error) {
	var reporter *ui.ProgressReporter
	if !quiet && !noProgress {
		reporter = ui.NewProgressReporter(os.Stderr)
		a.scraper.SetObserver(reporter)
	} else {
		a.scraper.SetObserver(nil)
	}

	summary, err := a.scraper.Run(ctx)
	if reporter != nil {
		reporter.Wait()
	}

	if a.history != nil {
		if saveErr := a.history.Save(checkpoint.NewRunRecord(a.account.Username, summary, err)); saveErr != nil {
			a.log.WithError(saveErr).Warn("failed to save run record")
		}
	}

	if !quiet {
		ui.PrintSummary(summary)
	}
	switch {
	case errors.Is(err, context.Canceled):
		ui.PrintWarning("Run interrupted")
		return summary, err
	case err != nil:
		return summary, err
	}
	if !quiet {
		ui.PrintSuccess("Run completed")
	}
	return summary, nil
}
