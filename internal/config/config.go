// Package config loads server configuration from .env, config.yaml and the
// process environment.
package config

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"nciso/server/internal/reports"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port           string `mapstructure:"port"`
	AppEnv         string `mapstructure:"app_env"`
	InstanceID     string `mapstructure:"instance_id"`
	InstanceRegion string `mapstructure:"instance_region"`
	LogLevel       string `mapstructure:"log_level"`

	DatabaseURL string `mapstructure:"database_url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`

	SupabaseURL            string `mapstructure:"supabase_url"`
	SupabaseAnonKey        string `mapstructure:"supabase_anon_key"`
	SupabaseServiceRoleKey string `mapstructure:"supabase_service_role_key"`
	SupabaseJWTSecret      string `mapstructure:"supabase_jwt_secret"`
	StorageBucket          string `mapstructure:"supabase_storage_bucket"`

	RedisURL           string `mapstructure:"redis_url"`
	RateLimitPerSecond int    `mapstructure:"rate_limit_per_second"`

	LokiURL    string `mapstructure:"grafana_loki_url"`
	LokiUser   string `mapstructure:"grafana_loki_user"`
	LokiAPIKey string `mapstructure:"grafana_loki_api_key"`

	Thresholds reports.Thresholds `mapstructure:"thresholds"`

	thresholds atomic.Pointer[reports.Thresholds]
}

// SupabaseConfigured reports whether the project URL and both API keys are set.
func (c *Config) SupabaseConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != "" && c.SupabaseServiceRoleKey != ""
}

// DatabaseConfigured reports whether a Postgres connection string is set.
func (c *Config) DatabaseConfigured() bool {
	return c.DatabaseURL != ""
}

// IsDev reports whether the server runs in a development environment.
func (c *Config) IsDev() bool {
	return strings.HasSuffix(c.AppEnv, "-dev") || c.AppEnv == "dev" || c.AppEnv == "development"
}

// CurrentThresholds returns the threshold table in effect. It reflects runtime
// reloads of config.yaml.
func (c *Config) CurrentThresholds() reports.Thresholds {
	if t := c.thresholds.Load(); t != nil {
		return *t
	}
	return c.Thresholds
}

func (c *Config) storeThresholds(t reports.Thresholds) {
	c.thresholds.Store(&t)
}

var envKeys = []string{
	"port", "app_env", "instance_id", "instance_region", "log_level",
	"database_url", "auto_migrate",
	"supabase_url", "supabase_anon_key", "supabase_service_role_key",
	"supabase_jwt_secret", "supabase_storage_bucket",
	"redis_url", "rate_limit_per_second",
	"grafana_loki_url", "grafana_loki_user", "grafana_loki_api_key",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8089")
	v.SetDefault("app_env", "nciso-dev")
	v.SetDefault("instance_id", "local")
	v.SetDefault("instance_region", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("supabase_storage_bucket", "technical-documents")
	v.SetDefault("rate_limit_per_second", 10)
	v.SetDefault("auto_migrate", false)

	d := reports.DefaultThresholds()
	v.SetDefault("thresholds.low_effectiveness", d.LowEffectiveness)
	v.SetDefault("thresholds.gap_excellent", d.GapExcellent)
	v.SetDefault("thresholds.gap_good", d.GapGood)
	v.SetDefault("thresholds.gap_fair", d.GapFair)
	v.SetDefault("thresholds.gap_poor", d.GapPoor)
	v.SetDefault("thresholds.coverage_warning_below", d.CoverageWarningBelow)
	v.SetDefault("thresholds.coverage_success_at", d.CoverageSuccessAt)
	v.SetDefault("thresholds.coverage_top_n", d.CoverageTopN)
}

// Load reads .env (if present), config.yaml (if present) and the environment.
// Environment variables win over the config file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/nciso/")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, errors.Wrapf(err, "bind %s", key)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			reloaded, err := decode(v)
			if err != nil {
				zap.L().Warn("config reload rejected", zap.String("file", e.Name), zap.Error(err))
				return
			}
			cfg.storeThresholds(reloaded.Thresholds)
			zap.L().Info("thresholds reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerSecond <= 0 {
		return nil, errors.Errorf("rate_limit_per_second must be positive, got %d", cfg.RateLimitPerSecond)
	}
	cfg.storeThresholds(cfg.Thresholds)
	return &cfg, nil
}
