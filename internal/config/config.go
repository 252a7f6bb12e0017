package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures the upstream player-metrics API.
type SourceConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Path        string  `yaml:"path" mapstructure:"path"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxPages    int     `yaml:"max_pages" mapstructure:"max_pages"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ScoringConfig holds the churn rule thresholds. Defaults reproduce the
// production rule set; every threshold is independently tunable.
type ScoringConfig struct {
	// Game activity: days since last game.
	ActivityCriticalDays float64 `yaml:"activity_critical_days" mapstructure:"activity_critical_days"`
	ActivityWarningDays  float64 `yaml:"activity_warning_days" mapstructure:"activity_warning_days"`
	ActivitySafeDays     float64 `yaml:"activity_safe_days" mapstructure:"activity_safe_days"`

	// Deposit recency: days since last deposit.
	DepositInactiveDays  float64 `yaml:"deposit_inactive_days" mapstructure:"deposit_inactive_days"`
	DepositDecliningDays float64 `yaml:"deposit_declining_days" mapstructure:"deposit_declining_days"`

	// Engagement.
	LowGames30d int `yaml:"low_games_30d" mapstructure:"low_games_30d"`

	// Bonus behavior.
	HighBonusCancelPct float64 `yaml:"high_bonus_cancel_pct" mapstructure:"high_bonus_cancel_pct"`

	// High-value intervention: deposit amount floor shared by the VIP
	// action trigger (score strictly > VIPScoreFloor) and the aggregation
	// high-value count (score >= HighValueScoreMin). The two score bounds
	// differ on the boundary; keep them independently tunable.
	HighValueDepositMin float64 `yaml:"high_value_deposit_min" mapstructure:"high_value_deposit_min"`
	VIPScoreFloor       int     `yaml:"vip_score_floor" mapstructure:"vip_score_floor"`
	HighValueScoreMin   int     `yaml:"high_value_score_min" mapstructure:"high_value_score_min"`

	// Scoring fan-out width for batch runs.
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHURN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default empty so AutomaticEnv can still bind them.
	v.SetDefault("source.base_url", "")
	v.SetDefault("source.api_key", "")
	v.SetDefault("source.path", "/v2/ml/churns")
	v.SetDefault("source.user_agent", "churn-cli/1.0")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("source.max_pages", 50)
	v.SetDefault("source.rate_per_sec", 5)
	v.SetDefault("source.rate_burst", 5)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "churn.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("scoring.activity_critical_days", 60)
	v.SetDefault("scoring.activity_warning_days", 30)
	v.SetDefault("scoring.activity_safe_days", 7)
	v.SetDefault("scoring.deposit_inactive_days", 90)
	v.SetDefault("scoring.deposit_declining_days", 45)
	v.SetDefault("scoring.low_games_30d", 10)
	v.SetDefault("scoring.high_bonus_cancel_pct", 70)
	v.SetDefault("scoring.high_value_deposit_min", 500)
	v.SetDefault("scoring.vip_score_floor", 40)
	v.SetDefault("scoring.high_value_score_min", 40)
	v.SetDefault("scoring.max_concurrency", 8)

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

// DefaultScoring returns the production rule thresholds without going
// through viper. Tests and library callers use this.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		ActivityCriticalDays: 60,
		ActivityWarningDays:  30,
		ActivitySafeDays:     7,
		DepositInactiveDays:  90,
		DepositDecliningDays: 45,
		LowGames30d:          10,
		HighBonusCancelPct:   70,
		HighValueDepositMin:  500,
		VIPScoreFloor:        40,
		HighValueScoreMin:    40,
		MaxConcurrency:       8,
	}
}

// LoadScoring reads rule thresholds from a standalone YAML file, layered
// over the defaults. Lets a tuning run swap thresholds without touching the
// main config.
func LoadScoring(path string) (ScoringConfig, error) {
	cfg := DefaultScoring()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, eris.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
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
