package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete service configuration.
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Debug         bool                `mapstructure:"debug"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Governance    GovernanceConfig    `mapstructure:"governance"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Retention     RetentionConfig     `mapstructure:"retention"`
	Security      SecurityConfig      `mapstructure:"security"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Address returns the host:port the HTTP server binds to.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Brokers []string    `mapstructure:"brokers"`
	GroupID string      `mapstructure:"group_id"`
	Topics  KafkaTopics `mapstructure:"topics"`
}

type KafkaTopics struct {
	ListingIngested     string `mapstructure:"listing_ingested"`
	GovernanceDecisions string `mapstructure:"governance_decisions"`
}

type GovernanceConfig struct {
	// TrustOverrides pins specific source identities (e.g. a named MLS
	// feed) to a trust score, keyed by source ID.
	TrustOverrides map[string]int `mapstructure:"trust_overrides"`
}

type NotificationConfig struct {
	// WebhookURL receives owner notifications; empty disables delivery.
	WebhookURL      string        `mapstructure:"webhook_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

type RetentionConfig struct {
	// AuditRetention is how long audit entries are kept before the
	// scheduled sweep removes them.
	AuditRetention time.Duration `mapstructure:"audit_retention"`
	Schedule       string        `mapstructure:"schedule"`
}

type SecurityConfig struct {
	EnableAuthentication bool   `mapstructure:"enable_authentication"`
	JWTSecret            string `mapstructure:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from config files and the environment.
// Environment variables use the LISTING_GOVERNANCE prefix with
// underscores, e.g. LISTING_GOVERNANCE_DATABASE_HOST.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/listing-governance")

	v.SetEnvPrefix("LISTING_GOVERNANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Security.EnableAuthentication && cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("security.jwt_secret is required when authentication is enabled")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("debug", false)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "listing_governance")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "file://migrations")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", "listing-governance")
	v.SetDefault("kafka.topics.listing_ingested", "listing-ingested")
	v.SetDefault("kafka.topics.governance_decisions", "governance-decisions")

	v.SetDefault("notifications.webhook_url", "")
	v.SetDefault("notifications.timeout", "10s")
	v.SetDefault("notifications.rate_limit_per_min", 60)

	v.SetDefault("retention.audit_retention", "2160h") // 90 days
	v.SetDefault("retention.schedule", "0 3 * * *")

	v.SetDefault("security.enable_authentication", false)
	v.SetDefault("security.jwt_secret", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
