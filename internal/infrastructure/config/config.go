// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	AI        AIConfig        `mapstructure:"ai"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableMetrics   bool          `mapstructure:"enable_metrics"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

// ModelConfig holds per-model invocation settings
type ModelConfig struct {
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	CostPerTokenCents float64       `mapstructure:"cost_per_token_cents"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// AIConfig contains language model provider configuration
type AIConfig struct {
	PrimaryProvider string      `mapstructure:"primary_provider"`
	OpenAIKey       string      `mapstructure:"openai_key"`
	OpenAIBaseURL   string      `mapstructure:"openai_base_url"`
	L1              ModelConfig `mapstructure:"l1"`
	L2              ModelConfig `mapstructure:"l2"`
	OutputAllowance int         `mapstructure:"output_allowance"`
}

// QuotaConfig contains usage ledger configuration
type QuotaConfig struct {
	DailyTokenLimit int64 `mapstructure:"daily_token_limit"`
}

// ChatConfig contains session and cache behavior configuration
type ChatConfig struct {
	SessionTTL             time.Duration `mapstructure:"session_ttl"`
	SmartCacheTTL          time.Duration `mapstructure:"smart_cache_ttl"`
	BiomarkerFreshness     time.Duration `mapstructure:"biomarker_freshness"`
	MicronutrientFreshness time.Duration `mapstructure:"micronutrient_freshness"`
	ConditionFreshness     time.Duration `mapstructure:"condition_freshness"`
}

// RetrievalConfig contains context retrieval defaults
type RetrievalConfig struct {
	MaxDocuments       int           `mapstructure:"max_documents"`
	RelevanceThreshold float64       `mapstructure:"relevance_threshold"`
	ExcerptBudget      int           `mapstructure:"excerpt_budget"`
	RecencyWindow      time.Duration `mapstructure:"recency_window"`
	SourceTimeout      time.Duration `mapstructure:"source_timeout"`
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("VITALROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env carry the load.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vitalroute")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.enable_metrics", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "vitalroute.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("ai.primary_provider", "openai")
	v.SetDefault("ai.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.l1.model", "gpt-4o")
	v.SetDefault("ai.l1.max_tokens", 2048)
	v.SetDefault("ai.l1.temperature", 0.2)
	v.SetDefault("ai.l1.cost_per_token_cents", 0.003)
	v.SetDefault("ai.l1.request_timeout", "60s")
	v.SetDefault("ai.l1.requests_per_minute", 30)
	v.SetDefault("ai.l2.model", "gpt-4o-mini")
	v.SetDefault("ai.l2.max_tokens", 1024)
	v.SetDefault("ai.l2.temperature", 0.7)
	v.SetDefault("ai.l2.cost_per_token_cents", 0.0006)
	v.SetDefault("ai.l2.request_timeout", "30s")
	v.SetDefault("ai.l2.requests_per_minute", 60)
	v.SetDefault("ai.output_allowance", 500)

	v.SetDefault("quota.daily_token_limit", 50000)

	v.SetDefault("chat.session_ttl", "24h")
	v.SetDefault("chat.smart_cache_ttl", "12h")
	v.SetDefault("chat.biomarker_freshness", "2160h")     // 90 days
	v.SetDefault("chat.micronutrient_freshness", "4320h") // 180 days
	v.SetDefault("chat.condition_freshness", "8760h")     // 365 days

	v.SetDefault("retrieval.max_documents", 5)
	v.SetDefault("retrieval.relevance_threshold", 0.15)
	v.SetDefault("retrieval.excerpt_budget", 600)
	v.SetDefault("retrieval.recency_window", "720h") // 30 days
	v.SetDefault("retrieval.source_timeout", "2s")
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Quota.DailyTokenLimit < 0 {
		return fmt.Errorf("daily token limit must be non-negative")
	}
	if c.Retrieval.MaxDocuments <= 0 {
		return fmt.Errorf("retrieval max documents must be positive")
	}
	if c.Retrieval.RelevanceThreshold < 0 || c.Retrieval.RelevanceThreshold > 1 {
		return fmt.Errorf("relevance threshold must be in [0,1]")
	}
	return nil
}

// IsProduction returns true in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
