package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	ImportTopic string   `mapstructure:"import_topic"`
	GroupID     string   `mapstructure:"group_id"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AuthConfig holds the login configuration. Email and Password seed the user.
type AuthConfig struct {
	Required bool          `mapstructure:"required"`
	Email    string        `mapstructure:"email"`
	Password string        `mapstructure:"password"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	File  string `mapstructure:"file"`
}

// ReconcileConfig holds the aggregate reconciliation schedule. Empty disables it.
type ReconcileConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// envBindings maps config keys to their environment variables
var envBindings = map[string]string{
	"server.port":        "SERVER_PORT",
	"server.host":        "SERVER_HOST",
	"database.host":      "DB_HOST",
	"database.port":      "DB_PORT",
	"database.user":      "DB_USER",
	"database.password":  "DB_PASSWORD",
	"database.dbname":    "DB_NAME",
	"database.sslmode":   "DB_SSLMODE",
	"kafka.enabled":      "KAFKA_ENABLED",
	"kafka.brokers":      "KAFKA_BROKERS",
	"kafka.topic":        "KAFKA_TOPIC",
	"kafka.import_topic": "KAFKA_IMPORT_TOPIC",
	"kafka.group_id":     "KAFKA_GROUP_ID",
	"redis.enabled":      "REDIS_ENABLED",
	"redis.addr":         "REDIS_ADDR",
	"redis.password":     "REDIS_PASSWORD",
	"redis.db":           "REDIS_DB",
	"cache.ttl":          "CACHE_TTL",
	"auth.required":      "AUTH_REQUIRED",
	"auth.email":         "AUTH_EMAIL",
	"auth.password":      "AUTH_PASSWORD",
	"auth.token_ttl":     "AUTH_TOKEN_TTL",
	"log.level":          "LOG_LEVEL",
	"log.json":           "LOG_JSON",
	"log.file":           "LOG_FILE",
	"reconcile.schedule": "RECONCILE_SCHEDULE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "0.0.0.0")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "tradejournal")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "journal-events")
	v.SetDefault("kafka.import_topic", "trade-imports")
	v.SetDefault("kafka.group_id", "trade-journal")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("auth.required", true)
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("reconcile.schedule", "@every 1h")
}

// Load reads defaults, then the optional config file, then environment
// variables. An empty path looks for journal.{yaml,toml,json} in the working
// directory and ignores its absence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("journal")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}
