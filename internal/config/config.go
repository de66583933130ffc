// Package config loads and validates runtime configuration from YAML
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "json" or "text"
	DryRun    bool   `mapstructure:"dry_run"`

	Upbit   VenueConfig `mapstructure:"upbit"`
	Bithumb VenueConfig `mapstructure:"bithumb"`

	Trading TradingConfig `mapstructure:"trading"`
	Risk    RiskConfig    `mapstructure:"risk"`
}

// VenueConfig is one venue's connection settings.
type VenueConfig struct {
	RESTBase       string          `mapstructure:"rest_base"`
	WebsocketURL   string          `mapstructure:"websocket_url"`
	AccessKey      string          `mapstructure:"access_key"`
	SecretKey      string          `mapstructure:"secret_key"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig parameterizes a venue's public/private token buckets.
type RateLimitConfig struct {
	PublicCapacity  float64 `mapstructure:"public_capacity"`
	PublicRate      float64 `mapstructure:"public_rate"`
	PrivateCapacity float64 `mapstructure:"private_capacity"`
	PrivateRate     float64 `mapstructure:"private_rate"`
}

// TradingConfig holds strategy parameters and the pair universe.
type TradingConfig struct {
	Pairs         []string      `mapstructure:"pairs"`      // "BASE/QUOTE" names
	PairsFile     string        `mapstructure:"pairs_file"` // optional YAML with a pairs list
	MinProfitRate float64       `mapstructure:"min_profit_rate"`
	MaxVolume     float64       `mapstructure:"max_volume"`
	UpbitFee      float64       `mapstructure:"upbit_fee"`
	BithumbFee    float64       `mapstructure:"bithumb_fee"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

// RiskConfig holds the risk gate parameters.
type RiskConfig struct {
	ReserveRatio     float64       `mapstructure:"reserve_ratio"`
	MaxVolume        float64       `mapstructure:"max_volume"`
	MaxNotional      float64       `mapstructure:"max_notional"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	CoolDown         time.Duration `mapstructure:"cool_down"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("dry_run", true)

	v.SetDefault("upbit.rest_base", "https://api.upbit.com")
	v.SetDefault("upbit.websocket_url", "wss://api.upbit.com/websocket/v1")
	v.SetDefault("upbit.request_timeout", "10s")
	v.SetDefault("upbit.rate_limit.public_capacity", 10.0)
	v.SetDefault("upbit.rate_limit.public_rate", 10.0)
	v.SetDefault("upbit.rate_limit.private_capacity", 8.0)
	v.SetDefault("upbit.rate_limit.private_rate", 8.0)

	v.SetDefault("bithumb.rest_base", "https://api.bithumb.com")
	v.SetDefault("bithumb.websocket_url", "wss://pubwss.bithumb.com/pub/ws")
	v.SetDefault("bithumb.request_timeout", "10s")
	v.SetDefault("bithumb.rate_limit.public_capacity", 20.0)
	v.SetDefault("bithumb.rate_limit.public_rate", 20.0)
	v.SetDefault("bithumb.rate_limit.private_capacity", 15.0)
	v.SetDefault("bithumb.rate_limit.private_rate", 15.0)

	v.SetDefault("trading.pairs", []string{"BTC/KRW"})
	v.SetDefault("trading.min_profit_rate", 0.005)
	v.SetDefault("trading.max_volume", 0.1)
	v.SetDefault("trading.upbit_fee", 0.001)
	v.SetDefault("trading.bithumb_fee", 0.0025)
	v.SetDefault("trading.poll_interval", "500ms")

	v.SetDefault("risk.reserve_ratio", 0.1)
	v.SetDefault("risk.max_volume", 0.5)
	v.SetDefault("risk.max_notional", 100000000.0)
	v.SetDefault("risk.failure_threshold", 3)
	v.SetDefault("risk.cool_down", "5s")
}

// Load reads configuration from the given YAML file (or the default
// search path when path is empty), applies KARB_* environment
// overrides, and validates the result. Credentials are also read from
// the flat UPBIT_*/BITHUMB_* variables so they can stay out of config
// files.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("KARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// viper's AutomaticEnv does not surface env-only keys through
	// Unmarshal, so credentials are pulled explicitly. Both the KARB_
	// names and the venues' conventional flat names are honored.
	applyEnv(&cfg.Upbit.AccessKey, "KARB_UPBIT_ACCESS_KEY", "UPBIT_ACCESS_KEY")
	applyEnv(&cfg.Upbit.SecretKey, "KARB_UPBIT_SECRET_KEY", "UPBIT_SECRET_KEY")
	applyEnv(&cfg.Bithumb.AccessKey, "KARB_BITHUMB_ACCESS_KEY", "BITHUMB_API_KEY")
	applyEnv(&cfg.Bithumb.SecretKey, "KARB_BITHUMB_SECRET_KEY", "BITHUMB_SECRET_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}
	if c.Upbit.RESTBase == "" || c.Bithumb.RESTBase == "" {
		return fmt.Errorf("venue rest_base must not be empty")
	}
	if err := validateRate("trading.min_profit_rate", c.Trading.MinProfitRate); err != nil {
		return err
	}
	if err := validateRate("trading.upbit_fee", c.Trading.UpbitFee); err != nil {
		return err
	}
	if err := validateRate("trading.bithumb_fee", c.Trading.BithumbFee); err != nil {
		return err
	}
	if err := validateRate("risk.reserve_ratio", c.Risk.ReserveRatio); err != nil {
		return err
	}
	if c.Trading.MaxVolume <= 0 {
		return fmt.Errorf("trading.max_volume must be positive")
	}
	if c.Trading.PollInterval <= 0 {
		return fmt.Errorf("trading.poll_interval must be positive")
	}
	if c.Risk.FailureThreshold < 1 {
		return fmt.Errorf("risk.failure_threshold must be at least 1")
	}
	if c.Risk.CoolDown <= 0 {
		return fmt.Errorf("risk.cool_down must be positive")
	}
	if len(c.Trading.Pairs) == 0 && c.Trading.PairsFile == "" {
		return fmt.Errorf("trading.pairs or trading.pairs_file must be set")
	}
	if !c.DryRun {
		if c.Upbit.AccessKey == "" || c.Upbit.SecretKey == "" {
			return fmt.Errorf("live trading requires upbit credentials")
		}
		if c.Bithumb.AccessKey == "" || c.Bithumb.SecretKey == "" {
			return fmt.Errorf("live trading requires bithumb credentials")
		}
	}
	return nil
}

func applyEnv(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

func validateRate(name string, value float64) error {
	if value < 0 || value >= 1 {
		return fmt.Errorf("%s must be in [0, 1), got %v", name, value)
	}
	return nil
}
