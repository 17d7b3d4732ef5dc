package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"grid_supervisor/internal/grid"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the supervisor.
type Config struct {
	Port string     `mapstructure:"port"`
	DB   DBConfig   `mapstructure:"db"`
	Log  LogConfig  `mapstructure:"log"`
	Auth AuthConfig `mapstructure:"auth"`
	API  APIConfig  `mapstructure:"api"`
	Grid GridConfig `mapstructure:"grid"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type APIConfig struct {
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	StreamInterval time.Duration   `mapstructure:"stream_interval"`
}

// RateLimitConfig bounds command requests per client. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// GridConfig mirrors grid.Params in config-file units.
type GridConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	StepDelay     time.Duration `mapstructure:"step_delay"`
	SurgeDuration time.Duration `mapstructure:"surge_duration"`
	FeedSize      int           `mapstructure:"feed_size"`

	Substations int `mapstructure:"substations"`
	LogCapacity int `mapstructure:"log_capacity"`

	PlantMinMW      float64 `mapstructure:"plant_min_mw"`
	PlantMaxMW      float64 `mapstructure:"plant_max_mw"`
	RampRateMW      float64 `mapstructure:"ramp_rate_mw"`
	InertiaConstant float64 `mapstructure:"inertia_constant"`
	Damping         float64 `mapstructure:"damping"`

	FrequencyTolerance float64 `mapstructure:"frequency_tolerance"`
	RocofCritical      float64 `mapstructure:"rocof_critical"`
	TemperatureLimit   float64 `mapstructure:"temperature_limit"`

	CityBaseLoadMW float64 `mapstructure:"city_base_load_mw"`
	SurgeFactor    float64 `mapstructure:"surge_factor"`
	NominalKV      float64 `mapstructure:"nominal_kv"`
}

// EnvPrefix is prepended to every environment override, e.g. GRID_PORT or
// GRID_GRID_TICK_INTERVAL.
const EnvPrefix = "GRID"

var ErrInvalidConfig = errors.New("invalid config")

// Load reads config.yml from the given directories (configs/ when none are
// given), then applies GRID_* environment overrides. A missing file is not an
// error; defaults cover every key.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	if len(paths) == 0 {
		paths = []string{"configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := grid.DefaultParams()

	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "grid.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("api.rate_limit.rps", 5.0)
	v.SetDefault("api.rate_limit.burst", 10)
	v.SetDefault("api.stream_interval", time.Second)

	v.SetDefault("grid.tick_interval", d.TickInterval)
	v.SetDefault("grid.step_delay", d.StepDelay)
	v.SetDefault("grid.surge_duration", d.SurgeDuration)
	v.SetDefault("grid.feed_size", 256)
	v.SetDefault("grid.substations", d.SubstationCount)
	v.SetDefault("grid.log_capacity", d.LogCapacity)
	v.SetDefault("grid.plant_min_mw", d.PlantMin)
	v.SetDefault("grid.plant_max_mw", d.PlantMax)
	v.SetDefault("grid.ramp_rate_mw", d.RampRate)
	v.SetDefault("grid.inertia_constant", d.InertiaConstant)
	v.SetDefault("grid.damping", d.Damping)
	v.SetDefault("grid.frequency_tolerance", d.FrequencyTolerance)
	v.SetDefault("grid.rocof_critical", d.RocofCritical)
	v.SetDefault("grid.temperature_limit", d.TemperatureLimit)
	v.SetDefault("grid.city_base_load_mw", d.CityBaseLoad)
	v.SetDefault("grid.surge_factor", d.SurgeFactor)
	v.SetDefault("grid.nominal_kv", d.NominalKV)
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: port is empty", ErrInvalidConfig)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: auth.token_ttl must be positive", ErrInvalidConfig)
	}
	if c.API.RateLimit.RPS > 0 && c.API.RateLimit.Burst <= 0 {
		return fmt.Errorf("%w: api.rate_limit.burst must be positive", ErrInvalidConfig)
	}
	if c.API.StreamInterval <= 0 {
		return fmt.Errorf("%w: api.stream_interval must be positive", ErrInvalidConfig)
	}
	if err := c.Grid.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Params overlays the configured values on the reference grid.
func (g GridConfig) Params() grid.Params {
	p := grid.DefaultParams()
	p.TickInterval = g.TickInterval
	p.StepDelay = g.StepDelay
	p.SurgeDuration = g.SurgeDuration
	p.SubstationCount = g.Substations
	p.LogCapacity = g.LogCapacity
	p.PlantMin = g.PlantMinMW
	p.PlantMax = g.PlantMaxMW
	p.RampRate = g.RampRateMW
	p.InertiaConstant = g.InertiaConstant
	p.Damping = g.Damping
	p.FrequencyTolerance = g.FrequencyTolerance
	p.RocofCritical = g.RocofCritical
	p.TemperatureLimit = g.TemperatureLimit
	p.CityBaseLoad = g.CityBaseLoadMW
	p.SurgeFactor = g.SurgeFactor
	p.NominalKV = g.NominalKV
	return p
}
