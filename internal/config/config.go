package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"critreport/internal/domain"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 20 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"

	ProviderTelegram = "telegram"
	ProviderSlack    = "slack"

	// Off disables history_db_path, report_output_dir or log_file.
	Off = "none"
)

// ColumnMapping names the source columns that carry each semantic role.
// Names are compared after upper-casing, trimming and folding diacritics.
type ColumnMapping struct {
	Region      []string `yaml:"region"`
	Occurrence  []string `yaml:"occurrence"`
	Scope       []string `yaml:"scope"`
	Cluster     []string `yaml:"cluster"`
	Status      []string `yaml:"status"`
	ComplaintAt []string `yaml:"complaint_at"`
	LoadedAt    []string `yaml:"loaded_at"`
	Impact      []string `yaml:"impact"`
}

// ByRole returns the mapping keyed by domain role.
func (m ColumnMapping) ByRole() map[domain.Role][]string {
	return map[domain.Role][]string{
		domain.RoleRegion:      m.Region,
		domain.RoleOccurrence:  m.Occurrence,
		domain.RoleScope:       m.Scope,
		domain.RoleCluster:     m.Cluster,
		domain.RoleStatus:      m.Status,
		domain.RoleComplaintAt: m.ComplaintAt,
		domain.RoleLoadedAt:    m.LoadedAt,
		domain.RoleImpact:      m.Impact,
	}
}

func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		Region:      []string{"REGIONAL"},
		Occurrence:  []string{"OCORRENCIA"},
		Scope:       []string{"ABRANGENCIA"},
		Cluster:     []string{"DES_CONJUNTO"},
		Status:      []string{"SITUACAO"},
		ComplaintAt: []string{"DH_RECLA", "DATA_RECLAMACAO"},
		LoadedAt:    []string{"DATA_CARGA"},
		Impact:      []string{"CI"},
	}
}

type Config struct {
	SourceDriver              string `yaml:"source_driver"`
	SourceDSN                 string `yaml:"source_dsn"`
	SourceQueryPath           string `yaml:"source_query_path"`
	SourceQueryTimeoutSeconds int    `yaml:"source_query_timeout_seconds"`

	ReferencePath               string `yaml:"reference_path"`
	ReferenceSheet              string `yaml:"reference_sheet"`
	ReferenceClusterColumn      string `yaml:"reference_cluster_column"`
	ReferenceCriticalityPattern string `yaml:"reference_criticality_pattern"`
	ReferenceCriticalMarker     string `yaml:"reference_critical_marker"`

	Columns ColumnMapping `yaml:"columns"`

	DeliveryProvider           string `yaml:"delivery_provider"`
	TelegramToken              string `yaml:"telegram_token"`
	TelegramChatID             string `yaml:"telegram_chat_id"`
	TelegramAPIURL             string `yaml:"telegram_api_url"`
	SlackBotToken              string `yaml:"slack_bot_token"`
	SlackChannelID             string `yaml:"slack_channel_id"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	StatePath       string `yaml:"state_path"`
	HistoryDBPath   string `yaml:"history_db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`
	LogFile         string `yaml:"log_file"`
	LogLevel        string `yaml:"log_level"`

	Schedule          string `yaml:"schedule"`
	Timezone          string `yaml:"timezone"`
	SimulateOnFailure bool   `yaml:"simulate_on_failure"`
	NotifyWhenEmpty   bool   `yaml:"notify_when_empty"`

	Location   *time.Location `yaml:"-"` // computed from Timezone, not from YAML
	LoadedFrom string         `yaml:"-"` // empty when no config file was read
}

// LoadConfig reads config.yaml (or configPath, or $CONFIG_PATH), applies env
// overrides and defaults, and validates the result. Errors are returned
// rather than fatal: the job never exits non-zero.
func LoadConfig(configPath string) (Config, error) {
	var cfg Config

	if configPath == "" {
		configPath = "config.yaml"
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
		}
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", configPath, err)
		}
		cfg.LoadedFrom = configPath
	}

	envOverride(&cfg.SourceDriver, "SOURCE_DRIVER")
	envOverride(&cfg.SourceDSN, "SOURCE_DSN")
	envOverride(&cfg.SourceQueryPath, "SOURCE_QUERY_PATH")
	if err := envOverrideInt(&cfg.SourceQueryTimeoutSeconds, "SOURCE_QUERY_TIMEOUT_SECONDS"); err != nil {
		return cfg, err
	}
	envOverride(&cfg.ReferencePath, "REFERENCE_PATH")
	envOverride(&cfg.ReferenceSheet, "REFERENCE_SHEET")
	envOverride(&cfg.ReferenceClusterColumn, "REFERENCE_CLUSTER_COLUMN")
	envOverride(&cfg.ReferenceCriticalityPattern, "REFERENCE_CRITICALITY_PATTERN")
	envOverride(&cfg.ReferenceCriticalMarker, "REFERENCE_CRITICAL_MARKER")
	envOverride(&cfg.DeliveryProvider, "DELIVERY_PROVIDER")
	envOverride(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	envOverride(&cfg.TelegramChatID, "TELEGRAM_CHAT_ID")
	envOverride(&cfg.TelegramAPIURL, "TELEGRAM_API_URL")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	if err := envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"); err != nil {
		return cfg, err
	}
	envOverride(&cfg.StatePath, "STATE_PATH")
	envOverride(&cfg.HistoryDBPath, "HISTORY_DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.LogFile, "LOG_FILE")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverrideAllowEmpty(&cfg.Schedule, "SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverrideBool(&cfg.SimulateOnFailure, "SIMULATE_ON_FAILURE")
	envOverrideBool(&cfg.NotifyWhenEmpty, "NOTIFY_WHEN_EMPTY")

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.SourceDriver == "" {
		cfg.SourceDriver = DriverPostgres
	}
	if cfg.ReferencePath == "" {
		cfg.ReferencePath = "Conj critico.xlsx"
	}
	if cfg.ReferenceClusterColumn == "" {
		cfg.ReferenceClusterColumn = "CONJUNTO"
	}
	if cfg.ReferenceCriticalityPattern == "" {
		cfg.ReferenceCriticalityPattern = "CRITICO"
	}
	if cfg.ReferenceCriticalMarker == "" {
		cfg.ReferenceCriticalMarker = "Conj Crítico"
	}

	defaults := DefaultColumns()
	fill := func(field *[]string, def []string) {
		if len(*field) == 0 {
			*field = def
		}
	}
	fill(&cfg.Columns.Region, defaults.Region)
	fill(&cfg.Columns.Occurrence, defaults.Occurrence)
	fill(&cfg.Columns.Scope, defaults.Scope)
	fill(&cfg.Columns.Cluster, defaults.Cluster)
	fill(&cfg.Columns.Status, defaults.Status)
	fill(&cfg.Columns.ComplaintAt, defaults.ComplaintAt)
	fill(&cfg.Columns.LoadedAt, defaults.LoadedAt)
	fill(&cfg.Columns.Impact, defaults.Impact)

	if cfg.DeliveryProvider == "" {
		cfg.DeliveryProvider = ProviderTelegram
	}
	if cfg.TelegramAPIURL == "" {
		cfg.TelegramAPIURL = "https://api.telegram.org"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "panorama_conjunto.json"
	}
	if cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = "./critreport.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "critreport.log"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
}

func validate(cfg *Config) error {
	switch cfg.SourceDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("source_driver must be '%s' or '%s', got '%s'", DriverPostgres, DriverSQLite, cfg.SourceDriver)
	}

	switch cfg.DeliveryProvider {
	case ProviderTelegram, ProviderSlack:
	default:
		return fmt.Errorf("delivery_provider must be '%s' or '%s', got '%s'", ProviderTelegram, ProviderSlack, cfg.DeliveryProvider)
	}

	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.SourceQueryTimeoutSeconds < 0 {
		return fmt.Errorf("invalid source_query_timeout_seconds '%d': must be >= 0", cfg.SourceQueryTimeoutSeconds)
	}
	if strings.TrimSpace(cfg.ReferenceCriticalityPattern) == "" {
		return fmt.Errorf("reference_criticality_pattern must not be blank")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}
	return nil
}

// Disabled reports whether an optional path setting was turned off.
func Disabled(path string) bool {
	return strings.EqualFold(strings.TrimSpace(path), Off)
}

// DeliveryConfigured reports whether the selected provider has credentials.
func (c Config) DeliveryConfigured() bool {
	switch c.DeliveryProvider {
	case ProviderTelegram:
		return c.TelegramToken != "" && c.TelegramChatID != ""
	case ProviderSlack:
		return c.SlackBotToken != "" && c.SlackChannelID != ""
	}
	return false
}

func (c Config) SourceQueryTimeout() time.Duration {
	return time.Duration(c.SourceQueryTimeoutSeconds) * time.Second
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}
