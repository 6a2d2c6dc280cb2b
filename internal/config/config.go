package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Market MarketConfig `yaml:"market" mapstructure:"market"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	APIKey      string   `yaml:"api_key" mapstructure:"api_key"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateRPS     float64  `yaml:"rate_rps" mapstructure:"rate_rps"`
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// EngineConfig configures the valuation engine: similarity weights, their
// normalization spans, the comparable pool window, and adjustment rates.
type EngineConfig struct {
	RecencyWindowDays int `yaml:"recency_window_days" mapstructure:"recency_window_days"`
	MaxComparables    int `yaml:"max_comparables" mapstructure:"max_comparables"`

	// Similarity weights (sum = 100).
	SizeWeight      float64 `yaml:"size_weight" mapstructure:"size_weight"`
	BedroomWeight   float64 `yaml:"bedroom_weight" mapstructure:"bedroom_weight"`
	BathroomWeight  float64 `yaml:"bathroom_weight" mapstructure:"bathroom_weight"`
	AgeWeight       float64 `yaml:"age_weight" mapstructure:"age_weight"`
	ProximityWeight float64 `yaml:"proximity_weight" mapstructure:"proximity_weight"`

	// Spans over which a factor decays from full credit to zero.
	MaxBedroomGap    float64 `yaml:"max_bedroom_gap" mapstructure:"max_bedroom_gap"`
	MaxBathroomGap   float64 `yaml:"max_bathroom_gap" mapstructure:"max_bathroom_gap"`
	MaxAgeGapYears   float64 `yaml:"max_age_gap_years" mapstructure:"max_age_gap_years"`
	MaxDistanceMiles float64 `yaml:"max_distance_miles" mapstructure:"max_distance_miles"`

	Rates    RatesConfig    `yaml:"rates" mapstructure:"rates"`
	Fallback FallbackConfig `yaml:"fallback" mapstructure:"fallback"`
}

// RatesConfig holds the dollar adjustment rates applied to comparables.
type RatesConfig struct {
	PricePerSqft        float64 `yaml:"price_per_sqft" mapstructure:"price_per_sqft"`
	SmallCompSqft       int     `yaml:"small_comp_sqft" mapstructure:"small_comp_sqft"`
	SmallCompMultiplier float64 `yaml:"small_comp_multiplier" mapstructure:"small_comp_multiplier"`
	LargeCompSqft       int     `yaml:"large_comp_sqft" mapstructure:"large_comp_sqft"`
	LargeCompMultiplier float64 `yaml:"large_comp_multiplier" mapstructure:"large_comp_multiplier"`
	BedroomValue        float64 `yaml:"bedroom_value" mapstructure:"bedroom_value"`
	BathroomValue       float64 `yaml:"bathroom_value" mapstructure:"bathroom_value"`
	AgePerYear          float64 `yaml:"age_per_year" mapstructure:"age_per_year"`
	AgeCapYears         float64 `yaml:"age_cap_years" mapstructure:"age_cap_years"`
	LotTierSqft         float64 `yaml:"lot_tier_sqft" mapstructure:"lot_tier_sqft"`
	LotRate             float64 `yaml:"lot_rate" mapstructure:"lot_rate"`
	LotExcessRate       float64 `yaml:"lot_excess_rate" mapstructure:"lot_excess_rate"`
	TimeFreeDays        int     `yaml:"time_free_days" mapstructure:"time_free_days"`
	QuarterlyRate       float64 `yaml:"quarterly_rate" mapstructure:"quarterly_rate"`
	TimeCap             float64 `yaml:"time_cap" mapstructure:"time_cap"`
}

// FallbackConfig holds the estimate returned when no comparables qualify.
type FallbackConfig struct {
	Low        int64   `yaml:"low" mapstructure:"low"`
	High       int64   `yaml:"high" mapstructure:"high"`
	MostLikely int64   `yaml:"most_likely" mapstructure:"most_likely"`
	Confidence float64 `yaml:"confidence" mapstructure:"confidence"`
}

// MarketConfig configures per-market adjustment rate profiles.
type MarketConfig struct {
	ProfilesPath   string `yaml:"profiles_path" mapstructure:"profiles_path"`
	DefaultProfile string `yaml:"default_profile" mapstructure:"default_profile"`
}

// BatchConfig configures batch analysis.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
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
	v.AddConfigPath("$HOME/.cma")

	// Environment
	v.SetEnvPrefix("CMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_rps", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("market.profiles_path", "")
	v.SetDefault("market.default_profile", "")
	v.SetDefault("engine.recency_window_days", 180)
	v.SetDefault("engine.max_comparables", 6)
	v.SetDefault("engine.size_weight", 30.0)
	v.SetDefault("engine.bedroom_weight", 15.0)
	v.SetDefault("engine.bathroom_weight", 15.0)
	v.SetDefault("engine.age_weight", 20.0)
	v.SetDefault("engine.proximity_weight", 20.0)
	v.SetDefault("engine.max_bedroom_gap", 5.0)
	v.SetDefault("engine.max_bathroom_gap", 3.0)
	v.SetDefault("engine.max_age_gap_years", 50.0)
	v.SetDefault("engine.max_distance_miles", 10.0)
	v.SetDefault("engine.rates.price_per_sqft", 150.0)
	v.SetDefault("engine.rates.small_comp_sqft", 1500)
	v.SetDefault("engine.rates.small_comp_multiplier", 1.2)
	v.SetDefault("engine.rates.large_comp_sqft", 3000)
	v.SetDefault("engine.rates.large_comp_multiplier", 0.8)
	v.SetDefault("engine.rates.bedroom_value", 15000.0)
	v.SetDefault("engine.rates.bathroom_value", 8000.0)
	v.SetDefault("engine.rates.age_per_year", 500.0)
	v.SetDefault("engine.rates.age_cap_years", 20.0)
	v.SetDefault("engine.rates.lot_tier_sqft", 5000.0)
	v.SetDefault("engine.rates.lot_rate", 5.0)
	v.SetDefault("engine.rates.lot_excess_rate", 2.0)
	v.SetDefault("engine.rates.time_free_days", 90)
	v.SetDefault("engine.rates.quarterly_rate", 0.01)
	v.SetDefault("engine.rates.time_cap", 0.02)
	v.SetDefault("engine.fallback.low", 350000)
	v.SetDefault("engine.fallback.high", 450000)
	v.SetDefault("engine.fallback.most_likely", 400000)
	v.SetDefault("engine.fallback.confidence", 0.3)

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

// Validate checks the configuration required by the given run mode.
// Modes: "store" (any store-backed command), "serve", "batch".
func (c *Config) Validate(mode string) error {
	var errs []string

	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite":
			// DSN optional; a default file path is used when empty.
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for the postgres driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("unsupported store driver: %s", c.Store.Driver))
		}
	}

	switch mode {
	case "store":
		checkStore()
	case "serve":
		checkStore()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateRPS < 0 {
			errs = append(errs, "server.rate_rps must be >= 0")
		}
	case "batch":
		checkStore()
		if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 64 {
			errs = append(errs, "batch.max_concurrent must be between 1 and 64")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
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
