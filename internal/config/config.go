// Package config loads server settings with viper.
//
// Sources, lowest priority first: the bundled assets/config.yaml, an optional
// YAML file (CONFIG_PATH), then LOONG_* environment variables
// (LOONG_APP_PORT, LOONG_STORE_DRIVER, ...).
package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loongtiles/go-server/assets"
	"github.com/loongtiles/go-server/internal/game"
)

type Config struct {
	App          AppConfig              `mapstructure:"app"`
	Auth         AuthConfig             `mapstructure:"auth"`
	Database     DatabaseConfig         `mapstructure:"database"`
	Store        StoreConfig            `mapstructure:"store"`
	Redis        RedisConfig            `mapstructure:"redis"`
	Engine       EngineConfig           `mapstructure:"engine"`
	Daily        DailyConfig            `mapstructure:"daily"`
	Difficulties map[string]game.Preset `mapstructure:"difficulties"`
}

type AppConfig struct {
	Port         int    `mapstructure:"port"`
	LogLevel     string `mapstructure:"log_level"`
	PrettyLogs   bool   `mapstructure:"pretty_logs"`
	ClientOrigin string `mapstructure:"client_origin"`
	Production   bool   `mapstructure:"production"`
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTExpiresDays int    `mapstructure:"jwt_expires_days"`
	CookieName     string `mapstructure:"cookie_name"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// StoreConfig picks where live sessions are kept: "memory" or "redis".
type StoreConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EngineConfig holds the draw bias and ornament thresholds shared by all runs.
type EngineConfig struct {
	Bias           float64 `mapstructure:"bias"`
	HatUnlockLevel int     `mapstructure:"hat_unlock_level"`
	DotUnlockLevel int     `mapstructure:"dot_unlock_level"`
	LoongLevel     int     `mapstructure:"loong_level"`
}

type DailyConfig struct {
	Salt       string `mapstructure:"salt"`
	Difficulty string `mapstructure:"difficulty"`
}

// Load reads the bundled defaults, merges path when it is not empty and
// applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(assets.DefaultConfig())); err != nil {
		return nil, fmt.Errorf("read bundled config: %w", err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("LOONG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	if c.App.Port <= 0 {
		return fmt.Errorf("app.port: %d", c.App.Port)
	}
	for _, p := range c.Presets() {
		if _, err := game.New(p, game.WithSeed(1, 1)); err != nil {
			return fmt.Errorf("difficulty %s: %w", p.Name, err)
		}
	}
	if _, err := game.LookupPreset(c.Presets(), c.Daily.Difficulty); err != nil {
		return fmt.Errorf("daily.difficulty: %w", err)
	}
	return nil
}

// Presets returns the configured difficulty ladder keyed by name. Entries
// without a name take their map key.
func (c *Config) Presets() map[game.Difficulty]game.Preset {
	if len(c.Difficulties) == 0 {
		return game.DefaultPresets()
	}
	out := make(map[game.Difficulty]game.Preset, len(c.Difficulties))
	for k, p := range c.Difficulties {
		if p.Name == "" {
			p.Name = game.Difficulty(k)
		}
		out[p.Name] = p
	}
	return out
}

// Levels returns the hat, dot and loong ornament thresholds.
func (e EngineConfig) Levels() (hat, dot, loong int) {
	return e.HatUnlockLevel, e.DotUnlockLevel, e.LoongLevel
}

// Addr is the listen address.
func (a AppConfig) Addr() string { return fmt.Sprintf(":%d", a.Port) }
