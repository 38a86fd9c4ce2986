package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobimport/internal/ai"
	"github.com/amishk599/jobimport/internal/config"
	"github.com/amishk599/jobimport/internal/fetch"
	"github.com/amishk599/jobimport/internal/filter"
	"github.com/amishk599/jobimport/internal/importer"
	"github.com/amishk599/jobimport/internal/lock"
	"github.com/amishk599/jobimport/internal/model"
	"github.com/amishk599/jobimport/internal/notifier"
	"github.com/amishk599/jobimport/internal/ratelimit"
	"github.com/amishk599/jobimport/internal/retry"
	"github.com/amishk599/jobimport/internal/scheduler"
	"github.com/amishk599/jobimport/internal/store"
)

var (
	cfgPath   string
	debug     bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "jobimport",
	Short: "Queue job posting URLs and import them as draft listings",
	Long:  "jobimport fetches submitted job pages, extracts listing details (heuristically or with an LLM) and stores them as drafts for review.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBIMPORT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text or json")
}

func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) scheduler.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupFetcher builds the page fetcher chain: plain HTTP, paced per host,
// retried with backoff on transient failures.
func setupFetcher(cfg *config.Config, logger *slog.Logger) model.PageFetcher {
	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout + 5*time.Second}
	var f model.PageFetcher = fetch.NewHTTPFetcher(httpClient, cfg.Fetch.UserAgent, cfg.Fetch.Timeout, cfg.Fetch.MaxBodyBytes)
	f = ratelimit.NewRateLimitedFetcher(f, ratelimit.NewHostRateLimiter(cfg.Fetch.MinHostDelay))
	return retry.NewRetryFetcher(f, cfg.Fetch.MaxRetries, cfg.Fetch.RetryDelay, logger).WithMaxWait(cfg.Fetch.Timeout)
}

func setupExtractor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (importer.Extractor, error) {
	if !cfg.AI.Enabled {
		logger.Debug("ai extraction disabled")
		return ai.NewDisabledExtractor(), nil
	}

	httpClient := &http.Client{Timeout: cfg.AI.Timeout + 5*time.Second}
	var provider ai.LLMProvider
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		provider = ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpClient)
	default:
		p, err := ai.NewGeminiProvider(ctx, cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, httpClient)
		if err != nil {
			return nil, err
		}
		provider = p
	}
	logger.Info("ai extraction enabled", "provider", cfg.AI.Provider, "model", cfg.AI.Model)
	return ai.NewLLMExtractor(provider, ai.JobExtractionTemplate, cfg.AI.MaxPromptTokens, cfg.AI.Timeout, logger), nil
}

// setupLocker returns the batch run lock and a cleanup func.
func setupLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.Lock.RedisURL == "" {
		return lock.NewLocalLocker(), func() {}, nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.Lock.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	key := cfg.Lock.Key
	if key == "" {
		key = lock.DefaultRedisKey
	}
	logger.Info("using redis run lock", "key", key, "ttl", cfg.Lock.TTL.String())
	return lock.NewRedisLocker(client, key, cfg.Lock.TTL), func() { client.Close() }, nil
}

// app bundles what most subcommands need.
type app struct {
	cfg       *config.Config
	store     *store.SQLiteStore
	processor *importer.Processor
}

func openApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	extractor, err := setupExtractor(ctx, cfg, logger)
	if err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("setting up ai extractor: %w", err)
	}

	p := importer.NewProcessor(
		sqlStore.Queue(),
		sqlStore.Listings(),
		setupFetcher(cfg, logger),
		extractor,
		filter.NewHostFilter(cfg.Filter.AllowedHosts, cfg.Filter.BlockedHosts),
		importer.Options{BatchSize: cfg.BatchSize, RecentLimit: cfg.RecentLimit},
		logger,
	)
	return &app{cfg: cfg, store: sqlStore, processor: p}, nil
}

func (a *app) Close() {
	a.store.Close()
}

// mustOpenApp opens the app or exits, the way every subcommand handles
// startup failures.
func mustOpenApp(ctx context.Context, logger *slog.Logger) *app {
	a, err := openApp(ctx, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	return a
}
