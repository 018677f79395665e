package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Legacy source drivers.
const (
	LegacyDriverFirestore = "firestore"
	LegacyDriverDump      = "dump"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Legacy    LegacySettings    `mapstructure:"legacy"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Report    ReportSettings    `mapstructure:"report"`
	Sentry    SentrySettings    `mapstructure:"sentry"`
	Migration MigrationSettings `mapstructure:"migration"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type PostgresSettings struct {
	// URL takes precedence over the discrete settings when set (DATABASE_URL).
	URL               string        `mapstructure:"url"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// DSN returns the connection string, preferring URL.
func (p PostgresSettings) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// LegacySettings selects and configures the legacy document source.
type LegacySettings struct {
	Driver    string `mapstructure:"driver"`
	ProjectID string `mapstructure:"project_id"`
	// CredentialsJSON holds an inline service account (FIREBASE_SERVICE_ACCOUNT_JSON).
	CredentialsJSON string `mapstructure:"credentials_json"`
	// CredentialsFile points at a service account file (GOOGLE_APPLICATION_CREDENTIALS).
	CredentialsFile string        `mapstructure:"credentials_file"`
	DumpDir         string        `mapstructure:"dump_dir"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// RedisSettings configures the optional run lock.
type RedisSettings struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	LockKey    string `mapstructure:"lock_key"`
}

// KafkaSettings configures the optional event producer.
type KafkaSettings struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

type TelemetrySettings struct {
	PushgatewayURL string  `mapstructure:"pushgateway_url"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// ReportSettings configures where the end-of-run summary goes. Empty values disable a sink.
type ReportSettings struct {
	Path     string `mapstructure:"path"`
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Key    string `mapstructure:"s3_key"`
	S3Region string `mapstructure:"s3_region"`
}

type SentrySettings struct {
	DSN string `mapstructure:"dsn"`
}

type MigrationSettings struct {
	RunID   string        `mapstructure:"run_id"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("TV")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"legacy.driver",
		"legacy.project_id",
		"legacy.dump_dir",
		"legacy.timeout",
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.lock_key",
		"kafka.enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"telemetry.pushgateway_url",
		"telemetry.tracing_enabled",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"report.path",
		"report.s3_bucket",
		"report.s3_key",
		"report.s3_region",
		"sentry.dsn",
		"migration.run_id",
		"migration.lock_ttl",
	}); err != nil {
		return nil, err
	}

	// Names used by the deployment scripts of the legacy platform.
	aliases := map[string][]string{
		"postgres.url":            {"TV_DATABASE_URL", "DATABASE_URL"},
		"legacy.credentials_json": {"TV_FIREBASE_SERVICE_ACCOUNT_JSON", "FIREBASE_SERVICE_ACCOUNT_JSON"},
		"legacy.credentials_file": {"TV_GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the migration cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Legacy.Driver {
	case LegacyDriverFirestore:
	case LegacyDriverDump:
		if c.Legacy.DumpDir == "" {
			return fmt.Errorf("legacy.dump_dir is required for the %s driver", LegacyDriverDump)
		}
	default:
		return fmt.Errorf("unknown legacy driver %q", c.Legacy.Driver)
	}
	if c.Report.S3Bucket != "" && c.Report.S3Key == "" {
		return fmt.Errorf("report.s3_key is required when report.s3_bucket is set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "trustedvalley-migrate")
	v.SetDefault("app.env", "development")

	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "trustedvalley")
	v.SetDefault("postgres.password", "trustedvalley")
	v.SetDefault("postgres.database", "trustedvalley")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("legacy.driver", LegacyDriverFirestore)
	v.SetDefault("legacy.project_id", "")
	v.SetDefault("legacy.credentials_json", "")
	v.SetDefault("legacy.credentials_file", "")
	v.SetDefault("legacy.dump_dir", "")
	v.SetDefault("legacy.timeout", "30s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.lock_key", "trustedvalley:migration:lock")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "trustedvalley")
	v.SetDefault("kafka.async", false)

	v.SetDefault("telemetry.pushgateway_url", "")
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "trustedvalley-migrate")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("report.path", "")
	v.SetDefault("report.s3_bucket", "")
	v.SetDefault("report.s3_key", "")
	v.SetDefault("report.s3_region", "")

	v.SetDefault("sentry.dsn", "")

	v.SetDefault("migration.run_id", "")
	v.SetDefault("migration.lock_ttl", "2h")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "TV_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
