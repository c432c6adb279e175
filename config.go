package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "OSUMAP"

type Config struct {
	ConfigFile            string        `mapstructure:"config"`
	DBPath                string        `mapstructure:"db_path"`
	SongsDir              string        `mapstructure:"songs_dir"`
	ListenAddr            string        `mapstructure:"listen_addr"`
	RedisURL              string        `mapstructure:"redis_url"`
	CacheTTL              time.Duration `mapstructure:"cache_ttl"`
	Charset               string        `mapstructure:"charset"`
	Debug                 bool          `mapstructure:"debug"`
	RateLimit             int           `mapstructure:"rate_limit"`
	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests"`
	OsuBaseURL            string        `mapstructure:"osu_base_url"`
	DownloadDir           string        `mapstructure:"download_dir"`
	Output                string        `mapstructure:"output"`
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "config file (yaml, toml, json or .env)")
	fs.String("db_path", "osumap.db", "sqlite index database")
	fs.String("songs_dir", ".", "directory scanned by index")
	fs.String("listen_addr", ":8080", "address of the HTTP service")
	fs.String("redis_url", "", "redis address for the format cache, empty disables it")
	fs.Duration("cache_ttl", 24*time.Hour, "lifetime of cached encodings")
	fs.String("charset", "", "charset of files without a byte-order mark, e.g. shift_jis")
	fs.Bool("debug", false, "development logging")
	fs.Int("rate_limit", 30, "requests per minute for fetch")
	fs.Int("max_concurrent_requests", 2, "parallel downloads for fetch")
	fs.String("osu_base_url", "https://osu.ppy.sh", "where fetch downloads .osu files from")
	fs.String("download_dir", "downloads", "where fetch stores .osu files")
	fs.StringP("output", "o", "", "fmt writes here instead of stdout")
	return fs
}

// Setup resolves the configuration from flags, OSUMAP_* environment
// variables, an optional config file and the flag defaults, in that order.
// It returns the positional arguments left after flag parsing.
func Setup(name string, args []string) (*Config, []string, error) {
	fs := newFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, nil, err
	}
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, fs.Args(), nil
}
