// Package config loads mapty settings from an optional file and MAPTY_* env vars.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Map      MapConfig      `mapstructure:"map"`
	Location LocationConfig `mapstructure:"location"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, redis or memory
	Path   string `mapstructure:"path"`
	Key    string `mapstructure:"key"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type MapConfig struct {
	Zoom    int    `mapstructure:"zoom"`
	TileURL string `mapstructure:"tile_url"`
	MaxZoom int    `mapstructure:"max_zoom"`
}

// LocationConfig is the fixed position reported by the location provider.
// Leaving either coordinate unset makes the location unavailable.
type LocationConfig struct {
	Lat *float64 `mapstructure:"lat"`
	Lng *float64 `mapstructure:"lng"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type UIConfig struct {
	Dir string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8222")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "mapty.db")
	v.SetDefault("storage.key", "workouts")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mapty:")
	v.SetDefault("map.zoom", 13)
	v.SetDefault("map.max_zoom", 25)
	v.SetDefault("map.tile_url", "https://{s}.tile.openstreetmap.fr/hot/{z}/{x}/{y}.png")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)
	v.SetDefault("ui.dir", "./ui")
}

// Load reads path (if non-empty) and overlays MAPTY_* environment variables,
// e.g. MAPTY_STORAGE_DRIVER or MAPTY_LOCATION_LAT.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("mapty")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about.
	for _, k := range []string{"location.lat", "location.lng"} {
		if err := v.BindEnv(k); err != nil {
			return Config{}, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Key == "" {
		return errors.New("storage key must not be empty")
	}
	if c.Map.Zoom <= 0 {
		return fmt.Errorf("map zoom must be positive, got %d", c.Map.Zoom)
	}
	return nil
}
