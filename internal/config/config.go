package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" envconfig:"SERVER"`
	Security      SecurityConfig      `yaml:"security" envconfig:"SECURITY"`
	Scan          ScanConfig          `yaml:"scan" envconfig:"SCAN"`
	Payload       PayloadConfig       `yaml:"payload" envconfig:"PAYLOAD"`
	Export        ExportConfig        `yaml:"export" envconfig:"EXPORT"`
	Postgres      PostgresConfig      `yaml:"postgres" envconfig:"POSTGRES"`
	ObjectStorage ObjectStorageConfig `yaml:"object_storage" envconfig:"OBJECT_STORAGE"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Telemetry     TelemetryConfig     `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket     WebSocketConfig     `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains CORS and rate limiting configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// ScanConfig controls mission discovery.
type ScanConfig struct {
	RootDir  string        `yaml:"root_dir" envconfig:"ROOT_DIR"`
	Prefix   string        `yaml:"prefix" envconfig:"PREFIX"`
	Workers  int           `yaml:"workers" envconfig:"WORKERS"`
	OnStart  bool          `yaml:"on_start" envconfig:"ON_START"`
	Watch    bool          `yaml:"watch" envconfig:"WATCH"`
	Debounce time.Duration `yaml:"debounce" envconfig:"DEBOUNCE"`
}

// PayloadConfig controls the interchange payload store.
type PayloadConfig struct {
	Store           string        `yaml:"store" envconfig:"STORE"`
	TTL             time.Duration `yaml:"ttl" envconfig:"TTL"`
	MaxEntries      int           `yaml:"max_entries" envconfig:"MAX_ENTRIES"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" envconfig:"CLEANUP_INTERVAL"`
}

// ExportConfig controls generated artifacts.
type ExportConfig struct {
	OutputDir       string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	BOMPrefix       bool   `yaml:"bom_prefix" envconfig:"BOM_PREFIX"`
	OperatorPrefix  string `yaml:"operator_prefix" envconfig:"OPERATOR_PREFIX"`
	AnnotateSamples bool   `yaml:"annotate_samples" envconfig:"ANNOTATE_SAMPLES"`
	ChromePath      string `yaml:"chrome_path" envconfig:"CHROME_PATH"`
}

// PostgresConfig is used when Payload.Store is "postgres".
type PostgresConfig struct {
	URL      string `yaml:"url" envconfig:"URL"`
	MaxConns int32  `yaml:"max_conns" envconfig:"MAX_CONNS"`
}

// ObjectStorageConfig is used by the object payload store and the artifact publisher.
type ObjectStorageConfig struct {
	Endpoint  string `yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKey string `yaml:"access_key" envconfig:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" envconfig:"SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl" envconfig:"USE_SSL"`
	Region    string `yaml:"region" envconfig:"REGION"`
	Bucket    string `yaml:"bucket" envconfig:"BUCKET"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment. Precedence is env > file > defaults.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv reads .env files without overriding variables already set.
func loadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration and normalizes a few fields.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Scan.RootDir == "" {
		c.Scan.RootDir = "."
	}
	if c.Scan.Workers < 1 {
		c.Scan.Workers = 1
	}
	if c.Scan.Debounce <= 0 {
		c.Scan.Debounce = DefaultWatchDebounce
	}

	if c.Payload.TTL <= 0 {
		return fmt.Errorf("payload ttl must be positive")
	}
	switch c.Payload.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres url is required for the %q payload store", StorePostgres)
		}
	case StoreObject:
		if c.ObjectStorage.Endpoint == "" || c.ObjectStorage.Bucket == "" {
			return fmt.Errorf("object storage endpoint and bucket are required for the %q payload store", StoreObject)
		}
	default:
		return fmt.Errorf("unknown payload store: %q", c.Payload.Store)
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	return nil
}

// Address returns host:port for the HTTP listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		"liciel.yaml",
		"configs/liciel.yaml",
		"../configs/liciel.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  5 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Scan: ScanConfig{
			Workers:  1,
			Debounce: DefaultWatchDebounce,
		},
		Payload: PayloadConfig{
			Store:           StoreMemory,
			TTL:             DefaultPayloadTTL,
			MaxEntries:      DefaultPayloadMaxEntries,
			CleanupInterval: time.Minute,
		},
		Export: ExportConfig{
			OutputDir: DefaultExportDir,
			BOMPrefix: true,
		},
		Postgres: PostgresConfig{
			MaxConns: 10,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}
