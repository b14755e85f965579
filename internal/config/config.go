// Package config loads application configuration with viper and
// initializes the global zap logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Evidence EvidenceConfig `yaml:"evidence" mapstructure:"evidence"`
	Tagging  TaggingConfig  `yaml:"tagging" mapstructure:"tagging"`
	Alerting AlertingConfig `yaml:"alerting" mapstructure:"alerting"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
}

// StoreConfig selects and sizes the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoringConfig tunes the scoring engine.
type ScoringConfig struct {
	MoversTopN int `yaml:"movers_top_n" mapstructure:"movers_top_n"`
	// FloorNegative clamps achievements below zero to zero.
	FloorNegative bool `yaml:"floor_negative" mapstructure:"floor_negative"`
}

// EvidenceConfig sets the disclosure threshold for evidence statistics.
type EvidenceConfig struct {
	MinN int `yaml:"min_n" mapstructure:"min_n"`
}

// TaggingConfig points at the theme rule file. Empty uses built-in rules.
type TaggingConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// AlertingConfig lists threshold rules.
type AlertingConfig struct {
	Rules []AlertRule `yaml:"rules" mapstructure:"rules"`
}

// AlertRule is a "<field> <op> <value>" condition with a name and severity.
type AlertRule struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Condition string `yaml:"condition" mapstructure:"condition"`
	Severity  string `yaml:"severity" mapstructure:"severity"`
}

// RetryConfig controls retries of transient store reads.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// Validate checks that config values are within acceptable ranges.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for postgres")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url must name the sqlite file")
		}
	default:
		return eris.Errorf("config: store.driver must be postgres or sqlite, got %q", c.Store.Driver)
	}
	if c.Store.MinConns < 0 || c.Store.MaxConns < 0 || (c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns) {
		return eris.Errorf("config: invalid pool size min=%d max=%d", c.Store.MinConns, c.Store.MaxConns)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return eris.New("config: server rate limits must not be negative")
	}
	if c.Scoring.MoversTopN < 1 {
		return eris.Errorf("config: scoring.movers_top_n must be >= 1, got %d", c.Scoring.MoversTopN)
	}
	if c.Evidence.MinN < 1 {
		return eris.Errorf("config: evidence.min_n must be >= 1, got %d", c.Evidence.MinN)
	}
	if c.Retry.MaxAttempts < 1 {
		return eris.Errorf("config: retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	for i, r := range c.Alerting.Rules {
		if strings.TrimSpace(r.Condition) == "" {
			return eris.Errorf("config: alerting.rules[%d] has no condition", i)
		}
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("scoring.movers_top_n", 8)
	v.SetDefault("scoring.floor_negative", false)
	v.SetDefault("evidence.min_n", 5)
	v.SetDefault("tagging.rules_path", "")
	v.SetDefault("alerting.rules", []map[string]any{
		{"name": "low_achievement", "condition": "achievement < 50", "severity": "critical"},
		{"name": "falling_trend", "condition": "trend < -10", "severity": "warning"},
		{"name": "budget_overrun", "condition": "budget_overrun_pct > 20", "severity": "warning"},
	})
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 100)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
