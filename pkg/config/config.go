// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Index, ObjectStore, Postgres, Redis, Cache, Kafka, Analytics,
// RPC, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds accepted by IndexConfig.Source.
const (
	SourceFile     = "file"
	SourceObject   = "s3"
	SourcePostgres = "postgres"
)

// Cache backends accepted by CacheConfig.Type.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Index       IndexConfig       `yaml:"index"`
	ObjectStore ObjectStoreConfig `yaml:"objectStore"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	Cache       CacheConfig       `yaml:"cache"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	RPC         RPCConfig         `yaml:"rpc"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// RateLimit is the per-client request budget per minute; 0 disables it.
	RateLimit   int      `yaml:"rateLimit"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// IndexConfig controls where the API index is read from and the limits of
// the lookup operations served from it.
type IndexConfig struct {
	Source         string   `yaml:"source"`
	DocsPath       string   `yaml:"docsPath"`
	BackendModules []string `yaml:"backendModules"`
	DefaultLimit   int      `yaml:"defaultLimit"`
	MaxResults     int      `yaml:"maxResults"`
}

// ObjectStoreConfig points at a JSONL index document kept in S3-compatible
// object storage.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Object    string `yaml:"object"`
	UseSSL    bool   `yaml:"useSSL"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// CacheConfig selects the validation result cache.
type CacheConfig struct {
	Type string        `yaml:"type"`
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ValidationEvents string `yaml:"validationEvents"`
}

// AnalyticsConfig controls event batching and, when Persist is set, the
// periodic snapshots of aggregated statistics to PostgreSQL.
type AnalyticsConfig struct {
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	Persist          bool          `yaml:"persist"`
	SnapshotTable    string        `yaml:"snapshotTable"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// RPCConfig controls the tool server transport. An empty Listen address
// means stdio.
type RPCConfig struct {
	Listen string `yaml:"listen"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// DefaultBackendModules are the rendering and interaction modules that are
// imported for their side effects only.
var DefaultBackendModules = []string{
	"vtkmodules.vtkRenderingOpenGL2",
	"vtkmodules.vtkInteractionStyle",
	"vtkmodules.vtkRenderingFreeType",
	"vtkmodules.vtkRenderingVolumeOpenGL2",
	"vtkmodules.vtkRenderingContextOpenGL2",
	"vtkmodules.vtkRenderingGL2PSOpenGL2",
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

func (c *Config) validate() error {
	switch c.Index.Source {
	case SourceFile, SourceObject, SourcePostgres:
	default:
		return fmt.Errorf("index.source must be one of %q, %q, %q; got %q",
			SourceFile, SourceObject, SourcePostgres, c.Index.Source)
	}
	switch c.Cache.Type {
	case CacheRedis, CacheMemory, CacheNone:
	default:
		return fmt.Errorf("cache.type must be one of %q, %q, %q; got %q",
			CacheRedis, CacheMemory, CacheNone, c.Cache.Type)
	}
	if c.Index.DefaultLimit <= 0 {
		c.Index.DefaultLimit = 10
	}
	if c.Index.MaxResults < c.Index.DefaultLimit {
		c.Index.MaxResults = c.Index.DefaultLimit
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       600,
		},
		Index: IndexConfig{
			Source:         SourceFile,
			DocsPath:       "data/vtk-python-docs.jsonl",
			BackendModules: append([]string(nil), DefaultBackendModules...),
			DefaultLimit:   10,
			MaxResults:     100,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint: "localhost:9000",
			Bucket:   "vtk-api",
			Object:   "vtk-python-docs.jsonl",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "vtkapi",
			User:            "vtkapi",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "vtk_api_docs",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Cache: CacheConfig{
			Type: CacheMemory,
			Size: 1024,
			TTL:  10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "vtkapi-group",
			Topics: KafkaTopics{
				ValidationEvents: "vtkapi-validation-events",
			},
		},
		Analytics: AnalyticsConfig{
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotTable:    "validation_snapshots",
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads VTKAPI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VTKAPI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VTKAPI_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("VTKAPI_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("VTKAPI_INDEX_SOURCE"); v != "" {
		cfg.Index.Source = v
	}
	if v := os.Getenv("VTKAPI_API_DOCS"); v != "" {
		cfg.Index.DocsPath = v
	}
	if v := os.Getenv("VTKAPI_BACKEND_MODULES"); v != "" {
		cfg.Index.BackendModules = splitList(v)
	}
	if v := os.Getenv("VTKAPI_S3_ENDPOINT"); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := os.Getenv("VTKAPI_S3_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("VTKAPI_S3_SECRET_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("VTKAPI_S3_BUCKET"); v != "" {
		cfg.ObjectStore.Bucket = v
	}
	if v := os.Getenv("VTKAPI_S3_OBJECT"); v != "" {
		cfg.ObjectStore.Object = v
	}
	if v := os.Getenv("VTKAPI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("VTKAPI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("VTKAPI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("VTKAPI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("VTKAPI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("VTKAPI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("VTKAPI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("VTKAPI_CACHE_TYPE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := os.Getenv("VTKAPI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("VTKAPI_ANALYTICS_PERSIST"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Persist = b
		}
	}
	if v := os.Getenv("VTKAPI_RPC_LISTEN"); v != "" {
		cfg.RPC.Listen = v
	}
	if v := os.Getenv("VTKAPI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VTKAPI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
