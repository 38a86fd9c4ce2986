package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "secret-key")
	path := writeConfig(t, `
database:
  path: /var/lib/jobimport/jobs.db
batch_size: 10
fetch:
  timeout: 5s
  max_retries: 0
  min_host_delay: 250ms
filter:
  allowed_hosts: [greenhouse.io, lever.co]
  blocked_hosts: [spam]
ai:
  enabled: true
  api_key: ${TEST_GEMINI_KEY}
schedule:
  enabled: true
  spec: "@every 5m"
lock:
  redis_url: redis://localhost:6379/0
  ttl: 2m
notification:
  type: slack
  webhook_url: https://hooks.slack.com/services/T/B/X
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/var/lib/jobimport/jobs.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.BatchSize)
	}
	if cfg.Fetch.Timeout != 5*time.Second || cfg.Fetch.MaxRetries != 0 || cfg.Fetch.MinHostDelay != 250*time.Millisecond {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if len(cfg.Filter.AllowedHosts) != 2 || cfg.Filter.BlockedHosts[0] != "spam" {
		t.Errorf("Filter = %+v", cfg.Filter)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Errorf("AI.APIKey = %q, want env expansion", cfg.AI.APIKey)
	}
	if cfg.AI.Provider != ProviderGemini || cfg.AI.Model != defaultGeminiModel {
		t.Errorf("AI provider/model = %q/%q", cfg.AI.Provider, cfg.AI.Model)
	}
	if cfg.Lock.RedisURL == "" || cfg.Lock.TTL != 2*time.Minute {
		t.Errorf("Lock = %+v", cfg.Lock)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "jobimport.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.BatchSize != 5 || cfg.RecentLimit != 20 {
		t.Errorf("BatchSize/RecentLimit = %d/%d", cfg.BatchSize, cfg.RecentLimit)
	}
	if cfg.Fetch.Timeout != 15*time.Second || cfg.Fetch.MaxRetries != 2 || cfg.Fetch.RetryDelay != time.Second {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.AI.Enabled || cfg.AI.Timeout != 30*time.Second || cfg.AI.MaxPromptTokens != 8000 {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.Schedule.Spec != "@every 10m" {
		t.Errorf("Schedule.Spec = %q", cfg.Schedule.Spec)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.RequestTimeout != 2*time.Minute {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q", cfg.Notification.Type)
	}
}

func TestLoad_OpenAIDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
ai:
  enabled: true
  provider: OpenAI
  api_key: sk-test
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.Provider != ProviderOpenAI || cfg.AI.BaseURL != defaultOpenAIBaseURL || cfg.AI.Model != defaultOpenAIModel {
		t.Errorf("AI = %+v", cfg.AI)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "batch_size: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"batch size too large", "batch_size: 51\n", "batch_size"},
		{"negative batch size", "batch_size: -1\n", "batch_size"},
		{"bad duration", "fetch:\n  timeout: soon\n", "fetch.timeout"},
		{"ai without key", "ai:\n  enabled: true\n", "ai.api_key"},
		{"unknown provider", "ai:\n  enabled: true\n  provider: llama\n  api_key: k\n", "ai.provider"},
		{"bad cron spec", "schedule:\n  enabled: true\n  spec: sometimes\n", "schedule.spec"},
		{"short jwt secret", "server:\n  jwt_secret: short\n", "jwt_secret"},
		{"slack without webhook", "notification:\n  type: slack\n", "webhook_url"},
		{"slack wrong host", "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n", "hooks.slack.com"},
		{"unknown notifier", "notification:\n  type: email\n", "notification.type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load: expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("JOBIMPORT_CONFIG", "")
	if got := ResolvePath(""); got != "config.yaml" {
		t.Errorf("ResolvePath(\"\") = %q", got)
	}
	t.Setenv("JOBIMPORT_CONFIG", "/etc/jobimport.yaml")
	if got := ResolvePath(""); got != "/etc/jobimport.yaml" {
		t.Errorf("env path = %q", got)
	}
	if got := ResolvePath("cli.yaml"); got != "cli.yaml" {
		t.Errorf("explicit path = %q", got)
	}
}
