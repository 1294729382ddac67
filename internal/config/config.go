package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vanshika/scansync/internal/domain"
)

// Config aggregates application configuration values.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Instance InstanceConfig `yaml:"instance"`
	Graph    GraphConfig    `yaml:"graph"`
	State    StateConfig    `yaml:"state"`
	Notify   NotifyConfig   `yaml:"notify"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProviderConfig describes where findings are fetched from.
type ProviderConfig struct {
	Kind              string        `yaml:"kind" validate:"oneof=http file"`
	APIKey            string        `yaml:"whitehatApiKey" validate:"required_if=Kind http"`
	BaseURL           string        `yaml:"baseUrl" validate:"omitempty,url"`
	DatasetPath       string        `yaml:"datasetPath" validate:"required_if=Kind file"`
	PageSize          int           `yaml:"pageSize" validate:"gte=1,lte=1000"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond" validate:"gt=0"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	FetchConcurrency  int           `yaml:"fetchConcurrency" validate:"gte=1,lte=16"`
	ApplicationIDs    []string      `yaml:"applicationIds" validate:"dive,required"`
	ScanType          string        `yaml:"scanType" validate:"oneof=STATIC DYNAMIC"`
}

// InstanceConfig identifies the integration instance the graph slice belongs to.
type InstanceConfig struct {
	ID        string `yaml:"integrationInstanceId" validate:"required"`
	AccountID string `yaml:"accountId" validate:"required"`
}

// GraphConfig describes connectivity to the graph database.
type GraphConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	MaxConnections int           `yaml:"maxConnections" validate:"gte=1"`
	TxTimeout      time.Duration `yaml:"txTimeout" validate:"gte=0"`
}

// StateConfig selects the last-sync store.
type StateConfig struct {
	Backend  string `yaml:"backend" validate:"oneof=badger redis memory"`
	Path     string `yaml:"path" validate:"required_if=Backend badger"`
	RedisURL string `yaml:"redisUrl" validate:"required_if=Backend redis"`
}

// NotifyConfig controls run summary notifications. An empty NATSURL disables them.
type NotifyConfig struct {
	NATSURL string `yaml:"natsUrl"`
	Subject string `yaml:"subject" validate:"required"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MetricsEnabled  bool          `yaml:"metricsEnabled"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // text|json
	IncludeCaller bool   `yaml:"includeCaller"`
}

const (
	defaultHost              = "0.0.0.0"
	defaultPort              = 8080
	defaultReadTimeout       = 10 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultLoggingLevel      = "info"
	defaultLoggingFormat     = "text"
	defaultGraphMaxSessions  = 10
	defaultProviderKind      = ProviderKindHTTP
	defaultProviderBaseURL   = "https://sentinel.whitehatsec.com/api"
	defaultPageSize          = 500
	defaultRequestsPerSecond = 5
	defaultProviderTimeout   = 30 * time.Second
	defaultFetchConcurrency  = 3
	defaultStateBackend      = StateBackendBadger
	defaultStatePath         = "./data/state"
	defaultNotifySubject     = "scansync.runs"

	// ConfigFileEnv names the optional YAML configuration file.
	ConfigFileEnv = "SCANSYNC_CONFIG"
)

// Provider kinds.
const (
	ProviderKindHTTP = "http"
	ProviderKindFile = "file"
)

// State backends.
const (
	StateBackendBadger = "badger"
	StateBackendRedis  = "redis"
	StateBackendMemory = "memory"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Defaults returns the configuration used when neither a file nor the
// environment provide a value.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			Kind:              defaultProviderKind,
			BaseURL:           defaultProviderBaseURL,
			PageSize:          defaultPageSize,
			RequestsPerSecond: defaultRequestsPerSecond,
			Timeout:           defaultProviderTimeout,
			FetchConcurrency:  defaultFetchConcurrency,
			ScanType:          domain.ScanTypeStatic,
		},
		Graph: GraphConfig{
			MaxConnections: defaultGraphMaxSessions,
		},
		State: StateConfig{
			Backend: defaultStateBackend,
			Path:    defaultStatePath,
		},
		Notify: NotifyConfig{
			Subject: defaultNotifySubject,
		},
		HTTP: HTTPConfig{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
	}
}

// Load reads configuration from environment variables, applying defaults.
// When path is empty the file named by SCANSYNC_CONFIG is used, if any.
// Environment variables take precedence over the file. The result is not
// validated; call Validate.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	p := &cfg.Provider
	p.Kind = valueOrDefault("PROVIDER_KIND", p.Kind)
	p.APIKey = valueOrDefault("WHITEHAT_API_KEY", p.APIKey)
	p.BaseURL = valueOrDefault("WHITEHAT_BASE_URL", p.BaseURL)
	p.DatasetPath = valueOrDefault("PROVIDER_DATASET_PATH", p.DatasetPath)
	p.PageSize = parseIntWithDefault("PROVIDER_PAGE_SIZE", p.PageSize)
	p.RequestsPerSecond = parseFloatWithDefault("PROVIDER_REQUESTS_PER_SECOND", p.RequestsPerSecond)
	p.FetchConcurrency = parseIntWithDefault("PROVIDER_FETCH_CONCURRENCY", p.FetchConcurrency)
	p.ScanType = strings.ToUpper(valueOrDefault("PROVIDER_SCAN_TYPE", p.ScanType))
	if v := os.Getenv("PROVIDER_APPLICATION_IDS"); v != "" {
		p.ApplicationIDs = splitCSV(v)
	}

	cfg.Instance.ID = valueOrDefault("INTEGRATION_INSTANCE_ID", cfg.Instance.ID)
	cfg.Instance.AccountID = valueOrDefault("INTEGRATION_ACCOUNT_ID", cfg.Instance.AccountID)

	g := &cfg.Graph
	g.URI = valueOrDefault("GRAPH_URI", g.URI)
	g.Database = valueOrDefault("GRAPH_DATABASE", g.Database)
	g.Username = valueOrDefault("GRAPH_USERNAME", g.Username)
	g.Password = valueOrDefault("GRAPH_PASSWORD", g.Password)
	g.MaxConnections = parseIntWithDefault("GRAPH_MAX_CONNECTIONS", g.MaxConnections)

	cfg.State.Backend = valueOrDefault("STATE_BACKEND", cfg.State.Backend)
	cfg.State.Path = valueOrDefault("STATE_PATH", cfg.State.Path)
	cfg.State.RedisURL = valueOrDefault("STATE_REDIS_URL", cfg.State.RedisURL)

	cfg.Notify.NATSURL = valueOrDefault("NOTIFY_NATS_URL", cfg.Notify.NATSURL)
	cfg.Notify.Subject = valueOrDefault("NOTIFY_SUBJECT", cfg.Notify.Subject)

	h := &cfg.HTTP
	h.Host = valueOrDefault("SERVER_HOST", h.Host)
	port, err := parsePort("SERVER_PORT", h.Port)
	if err != nil {
		return err
	}
	h.Port = port
	h.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", h.MetricsEnabled)

	for key, dst := range map[string]*time.Duration{
		"PROVIDER_TIMEOUT":        &p.Timeout,
		"GRAPH_TX_TIMEOUT":        &cfg.Graph.TxTimeout,
		"SERVER_READ_TIMEOUT":     &h.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    &h.WriteTimeout,
		"SERVER_IDLE_TIMEOUT":     &h.IdleTimeout,
		"SERVER_SHUTDOWN_TIMEOUT": &h.ShutdownTimeout,
	} {
		if err := parseDuration(key, dst); err != nil {
			return err
		}
	}

	l := &cfg.Logging
	l.Level = valueOrDefault("LOG_LEVEL", l.Level)
	l.Format = valueOrDefault("LOG_FORMAT", l.Format)
	l.IncludeCaller = parseBoolWithDefault("LOG_INCLUDE_CALLER", l.IncludeCaller)
	return nil
}

// Validate checks the configuration. Failures are returned as a
// *domain.ConfigurationError naming the first offending field.
func (c *Config) Validate() error {
	if c == nil {
		return &domain.ConfigurationError{Reason: "missing configuration", Err: domain.ErrMissingConfiguration}
	}
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ConfigurationError{Reason: "invalid configuration", Err: err}
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required", "required_if":
		return &domain.ConfigurationError{Reason: fe.Field() + " is required", Err: err}
	default:
		return &domain.ConfigurationError{
			Reason: fmt.Sprintf("%s: invalid value %v (%s)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Value(), fe.Tag()),
			Err:    err,
		}
	}
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
