// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Prefetch PrefetchConfig `mapstructure:"prefetch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// UpstreamConfig describes how catalog pages are requested.
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Referer        string        `mapstructure:"referer"`
	AcceptLanguage string        `mapstructure:"accept_language"`
}

// CacheConfig sets freshness windows. Per-class TTLs of zero inherit DefaultTTL.
type CacheConfig struct {
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	ChartTTL   time.Duration `mapstructure:"chart_ttl"`
	SongTTL    time.Duration `mapstructure:"song_ttl"`
	AlbumTTL   time.Duration `mapstructure:"album_ttl"`
}

// PrefetchConfig drives the background chart refresher.
type PrefetchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MELON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Cache.inherit()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("upstream.base_url", "https://www.melon.com")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("upstream.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("upstream.referer", "https://www.melon.com/")
	v.SetDefault("upstream.accept_language", "en-US,en;q=0.9")
	v.SetDefault("cache.default_ttl", time.Minute)
	v.SetDefault("cache.chart_ttl", 0)
	v.SetDefault("cache.song_ttl", 0)
	v.SetDefault("cache.album_ttl", 0)
	v.SetDefault("prefetch.enabled", true)
	v.SetDefault("prefetch.interval", 50*time.Second)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

func (c *CacheConfig) inherit() {
	for _, ttl := range []*time.Duration{&c.ChartTTL, &c.SongTTL, &c.AlbumTTL} {
		if *ttl == 0 {
			*ttl = c.DefaultTTL
		}
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.base_url must be an absolute URL, got %q", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be > 0")
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache.default_ttl must be > 0")
	}
	if c.Cache.ChartTTL <= 0 || c.Cache.SongTTL <= 0 || c.Cache.AlbumTTL <= 0 {
		return fmt.Errorf("cache.chart_ttl, cache.song_ttl and cache.album_ttl must be > 0")
	}
	if c.Prefetch.Interval <= 0 {
		return fmt.Errorf("prefetch.interval must be > 0")
	}
	return nil
}
