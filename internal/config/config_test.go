package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"critreport/internal/domain"
)

var configEnvKeys = []string{
	"SOURCE_DRIVER", "SOURCE_DSN", "SOURCE_QUERY_PATH", "SOURCE_QUERY_TIMEOUT_SECONDS",
	"REFERENCE_PATH", "REFERENCE_SHEET", "REFERENCE_CLUSTER_COLUMN",
	"REFERENCE_CRITICALITY_PATTERN", "REFERENCE_CRITICAL_MARKER",
	"DELIVERY_PROVIDER", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_API_URL",
	"SLACK_BOT_TOKEN", "SLACK_CHANNEL_ID", "EXTERNAL_HTTP_TIMEOUT_SECONDS",
	"STATE_PATH", "HISTORY_DB_PATH", "REPORT_OUTPUT_DIR", "LOG_FILE", "LOG_LEVEL",
	"TIMEZONE", "SIMULATE_ON_FAILURE", "NOTIFY_WHEN_EMPTY",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
	t.Setenv("SCHEDULE", "")
	os.Unsetenv("SCHEDULE")
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LoadedFrom != "" {
		t.Fatalf("expected no config file, got %q", cfg.LoadedFrom)
	}
	if cfg.SourceDriver != DriverPostgres {
		t.Fatalf("unexpected source driver default: %q", cfg.SourceDriver)
	}
	if cfg.ReferencePath != "Conj critico.xlsx" {
		t.Fatalf("unexpected reference path default: %q", cfg.ReferencePath)
	}
	if cfg.ReferenceCriticalMarker != "Conj Crítico" {
		t.Fatalf("unexpected critical marker default: %q", cfg.ReferenceCriticalMarker)
	}
	if cfg.DeliveryProvider != ProviderTelegram {
		t.Fatalf("unexpected provider default: %q", cfg.DeliveryProvider)
	}
	if cfg.TelegramAPIURL != "https://api.telegram.org" {
		t.Fatalf("unexpected telegram api url default: %q", cfg.TelegramAPIURL)
	}
	if cfg.ExternalHTTPTimeoutSeconds != int(defaultExternalHTTPTimeout/time.Second) {
		t.Fatalf("unexpected external HTTP timeout default: %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.StatePath != "panorama_conjunto.json" {
		t.Fatalf("unexpected state path default: %q", cfg.StatePath)
	}
	if cfg.HistoryDBPath != "./critreport.db" {
		t.Fatalf("unexpected history db default: %q", cfg.HistoryDBPath)
	}
	if cfg.ReportOutputDir != "./reports" {
		t.Fatalf("unexpected report output dir default: %q", cfg.ReportOutputDir)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level default: %q", cfg.LogLevel)
	}
	if cfg.Schedule != "" {
		t.Fatalf("expected no schedule by default, got %q", cfg.Schedule)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
	if got := cfg.Columns.ComplaintAt; len(got) != 2 || got[0] != "DH_RECLA" {
		t.Fatalf("unexpected complaint_at columns: %v", got)
	}
	if cfg.DeliveryConfigured() {
		t.Fatal("delivery must not be configured without credentials")
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	clearConfigEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
source_driver: "sqlite3"
source_dsn: "file:tickets.db"
source_query_timeout_seconds: 30
reference_path: "/data/conjuntos.xlsx"
delivery_provider: "slack"
slack_bot_token: "yaml-bot"
slack_channel_id: "C-yaml"
timezone: "America/Sao_Paulo"
report_output_dir: "/tmp/yaml-reports"
schedule: "0 7 * * *"
simulate_on_failure: true
columns:
  cluster: ["CONJUNTO_ELETRICO"]
  impact: ["QTD_CLIENTES", "CI"]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SLACK_CHANNEL_ID", "C-env")
	t.Setenv("EXTERNAL_HTTP_TIMEOUT_SECONDS", "120")
	t.Setenv("NOTIFY_WHEN_EMPTY", "1")
	t.Setenv("SCHEDULE", "")

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LoadedFrom != cfgPath {
		t.Fatalf("unexpected LoadedFrom: %q", cfg.LoadedFrom)
	}
	if cfg.SourceDriver != DriverSQLite || cfg.SourceDSN != "file:tickets.db" {
		t.Fatalf("unexpected source from yaml: %q %q", cfg.SourceDriver, cfg.SourceDSN)
	}
	if cfg.SourceQueryTimeout() != 30*time.Second {
		t.Fatalf("unexpected query timeout: %s", cfg.SourceQueryTimeout())
	}
	if cfg.SlackBotToken != "yaml-bot" {
		t.Fatalf("expected slack token from yaml, got %q", cfg.SlackBotToken)
	}
	if cfg.SlackChannelID != "C-env" {
		t.Fatalf("expected slack channel from env override, got %q", cfg.SlackChannelID)
	}
	if !cfg.DeliveryConfigured() {
		t.Fatal("expected slack delivery to be configured")
	}
	if cfg.ExternalHTTPTimeoutSeconds != 120 {
		t.Fatalf("expected external HTTP timeout from env override, got %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.Schedule != "" {
		t.Fatalf("expected empty SCHEDULE to disable the yaml schedule, got %q", cfg.Schedule)
	}
	if !cfg.SimulateOnFailure || !cfg.NotifyWhenEmpty {
		t.Fatalf("unexpected flags: simulate=%v notify=%v", cfg.SimulateOnFailure, cfg.NotifyWhenEmpty)
	}
	if cfg.Location.String() != "America/Sao_Paulo" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}

	byRole := cfg.Columns.ByRole()
	if got := byRole[domain.RoleCluster]; len(got) != 1 || got[0] != "CONJUNTO_ELETRICO" {
		t.Fatalf("unexpected cluster columns: %v", got)
	}
	if got := byRole[domain.RoleImpact]; len(got) != 2 {
		t.Fatalf("unexpected impact columns: %v", got)
	}
	if got := byRole[domain.RoleRegion]; len(got) != 1 || got[0] != "REGIONAL" {
		t.Fatalf("expected default region column, got %v", got)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"driver", "SOURCE_DRIVER", "oracle"},
		{"provider", "DELIVERY_PROVIDER", "email"},
		{"http timeout too small", "EXTERNAL_HTTP_TIMEOUT_SECONDS", "2"},
		{"http timeout not a number", "EXTERNAL_HTTP_TIMEOUT_SECONDS", "soon"},
		{"query timeout negative", "SOURCE_QUERY_TIMEOUT_SECONDS", "-1"},
		{"pattern blank", "REFERENCE_CRITICALITY_PATTERN", "   "},
		{"timezone", "TIMEZONE", "Mars/Olympus"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
			t.Setenv(tc.key, tc.val)
			if _, err := LoadConfig(""); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.val)
			}
		})
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	clearConfigEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("source_driver: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(cfgPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDisabled(t *testing.T) {
	if !Disabled(" None ") {
		t.Fatal("expected 'None' to disable")
	}
	if Disabled("./reports") {
		t.Fatal("a real path must not be disabled")
	}
}

func TestEnvOverrideHelpers(t *testing.T) {
	field := "original"
	t.Setenv("CRIT_TEST_STRING", "")
	envOverride(&field, "CRIT_TEST_STRING")
	if field != "original" {
		t.Fatalf("empty env must not override, got %q", field)
	}
	envOverrideAllowEmpty(&field, "CRIT_TEST_STRING")
	if field != "" {
		t.Fatalf("set-but-empty env must override, got %q", field)
	}

	n := 5
	t.Setenv("CRIT_TEST_INT", "42")
	if err := envOverrideInt(&n, "CRIT_TEST_INT"); err != nil || n != 42 {
		t.Fatalf("envOverrideInt = %d, %v", n, err)
	}

	b := false
	t.Setenv("CRIT_TEST_BOOL", "TRUE")
	envOverrideBool(&b, "CRIT_TEST_BOOL")
	if !b {
		t.Fatal("expected TRUE to parse as true")
	}
	t.Setenv("CRIT_TEST_BOOL", "no")
	envOverrideBool(&b, "CRIT_TEST_BOOL")
	if b {
		t.Fatal("expected 'no' to parse as false")
	}
}
