package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the job importer.
type Config struct {
	Database     DatabaseConfig
	BatchSize    int
	RecentLimit  int
	Fetch        FetchConfig
	Filter       FilterConfig
	AI           AIConfig
	Schedule     ScheduleConfig
	Server       ServerConfig
	Lock         LockConfig
	Notification NotificationConfig
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// FetchConfig controls page retrieval, retries and per-host pacing.
type FetchConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	MaxRetries   int
	RetryDelay   time.Duration // base delay, doubled per attempt
	MinHostDelay time.Duration // minimum gap between requests to the same host
}

// FilterConfig holds host keywords for submitted URLs.
type FilterConfig struct {
	AllowedHosts []string `yaml:"allowed_hosts"`
	BlockedHosts []string `yaml:"blocked_hosts"`
}

// AIConfig controls the optional AI extraction layer.
type AIConfig struct {
	Enabled         bool
	Provider        string // "gemini" or "openai"
	BaseURL         string
	Model           string
	APIKey          string        // expanded from env var by Load
	Timeout         time.Duration // per-request timeout
	MaxPromptTokens int
}

// ScheduleConfig controls periodic batches in serve mode.
type ScheduleConfig struct {
	Enabled bool
	Spec    string // cron spec, e.g. "@every 10m"
}

// ServerConfig controls the admin HTTP API.
type ServerConfig struct {
	Addr           string
	JWTSecret      string
	RequestTimeout time.Duration
}

// LockConfig selects the batch run lock. An empty RedisURL means an
// in-process lock.
type LockConfig struct {
	RedisURL string
	Key      string
	TTL      time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultGeminiModel   = "gemini-2.0-flash"

	defaultBatchSize   = 5
	maxBatchSize       = 50
	defaultRecentLimit = 20
	minJWTSecretLen    = 32
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Database     DatabaseConfig     `yaml:"database"`
	BatchSize    int                `yaml:"batch_size"`
	RecentLimit  int                `yaml:"recent_limit"`
	Fetch        rawFetchConfig     `yaml:"fetch"`
	Filter       FilterConfig       `yaml:"filter"`
	AI           rawAIConfig        `yaml:"ai"`
	Schedule     ScheduleConfig     `yaml:"schedule"`
	Server       rawServerConfig    `yaml:"server"`
	Lock         rawLockConfig      `yaml:"lock"`
	Notification NotificationConfig `yaml:"notification"`
}

type rawFetchConfig struct {
	Timeout      string `yaml:"timeout"`
	UserAgent    string `yaml:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	MaxRetries   *int   `yaml:"max_retries"`
	RetryDelay   string `yaml:"retry_delay"`
	MinHostDelay string `yaml:"min_host_delay"`
}

type rawAIConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Provider        string `yaml:"provider"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	APIKey          string `yaml:"api_key"`
	Timeout         string `yaml:"timeout"`
	MaxPromptTokens int    `yaml:"max_prompt_tokens"`
}

type rawServerConfig struct {
	Addr           string `yaml:"addr"`
	JWTSecret      string `yaml:"jwt_secret"`
	RequestTimeout string `yaml:"request_timeout"`
}

type rawLockConfig struct {
	RedisURL string `yaml:"redis_url"`
	Key      string `yaml:"key"`
	TTL      string `yaml:"ttl"`
}

// ResolvePath applies the config path priority:
// explicit path > JOBIMPORT_CONFIG env var > "./config.yaml".
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("JOBIMPORT_CONFIG"); env != "" {
		return env
	}
	return "config.yaml"
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	var err error
	cfg := &Config{
		Database:     raw.Database,
		BatchSize:    raw.BatchSize,
		RecentLimit:  raw.RecentLimit,
		Filter:       raw.Filter,
		Schedule:     raw.Schedule,
		Notification: raw.Notification,
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "jobimport.db"
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = defaultRecentLimit
	}

	cfg.Fetch = FetchConfig{
		UserAgent:    raw.Fetch.UserAgent,
		MaxBodyBytes: raw.Fetch.MaxBodyBytes,
		MaxRetries:   2,
	}
	if raw.Fetch.MaxRetries != nil {
		cfg.Fetch.MaxRetries = *raw.Fetch.MaxRetries
	}
	if cfg.Fetch.Timeout, err = parseDuration("fetch.timeout", raw.Fetch.Timeout, 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Fetch.RetryDelay, err = parseDuration("fetch.retry_delay", raw.Fetch.RetryDelay, time.Second); err != nil {
		return nil, err
	}
	if cfg.Fetch.MinHostDelay, err = parseDuration("fetch.min_host_delay", raw.Fetch.MinHostDelay, time.Second); err != nil {
		return nil, err
	}

	cfg.AI = AIConfig{
		Enabled:         raw.AI.Enabled,
		Provider:        strings.ToLower(raw.AI.Provider),
		BaseURL:         raw.AI.BaseURL,
		Model:           raw.AI.Model,
		APIKey:          raw.AI.APIKey,
		MaxPromptTokens: raw.AI.MaxPromptTokens,
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = ProviderGemini
	}
	switch cfg.AI.Provider {
	case ProviderOpenAI:
		if cfg.AI.BaseURL == "" {
			cfg.AI.BaseURL = defaultOpenAIBaseURL
		}
		if cfg.AI.Model == "" {
			cfg.AI.Model = defaultOpenAIModel
		}
	case ProviderGemini:
		// An empty base URL selects the SDK's default endpoint.
		if cfg.AI.Model == "" {
			cfg.AI.Model = defaultGeminiModel
		}
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 8000
	}
	if cfg.AI.Timeout, err = parseDuration("ai.timeout", raw.AI.Timeout, 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.Schedule.Spec == "" {
		cfg.Schedule.Spec = "@every 10m"
	}

	cfg.Server = ServerConfig{
		Addr:      raw.Server.Addr,
		JWTSecret: raw.Server.JWTSecret,
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeout, err = parseDuration("server.request_timeout", raw.Server.RequestTimeout, 2*time.Minute); err != nil {
		return nil, err
	}

	cfg.Lock = LockConfig{RedisURL: raw.Lock.RedisURL, Key: raw.Lock.Key}
	if cfg.Lock.TTL, err = parseDuration("lock.ttl", raw.Lock.TTL, 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	return cfg, nil
}

func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if cfg.BatchSize < 1 || cfg.BatchSize > maxBatchSize {
		return fmt.Errorf("batch_size must be between 1 and %d, got %d", maxBatchSize, cfg.BatchSize)
	}
	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %v", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative, got %d", cfg.Fetch.MaxRetries)
	}
	if cfg.Fetch.MaxBodyBytes < 0 {
		return fmt.Errorf("fetch.max_body_bytes must not be negative, got %d", cfg.Fetch.MaxBodyBytes)
	}

	if cfg.AI.Enabled {
		if cfg.AI.Provider != ProviderGemini && cfg.AI.Provider != ProviderOpenAI {
			return fmt.Errorf("ai.provider must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, cfg.AI.Provider)
		}
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Timeout <= 0 {
			return fmt.Errorf("ai.timeout must be positive, got %v", cfg.AI.Timeout)
		}
	}

	if cfg.Schedule.Enabled {
		if _, err := cron.ParseStandard(cfg.Schedule.Spec); err != nil {
			return fmt.Errorf("schedule.spec %q: %w", cfg.Schedule.Spec, err)
		}
	}

	if cfg.Server.JWTSecret != "" && len(cfg.Server.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("server.jwt_secret must be at least %d bytes", minJWTSecretLen)
	}

	if cfg.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive, got %v", cfg.Lock.TTL)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}
