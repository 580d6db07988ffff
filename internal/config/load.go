package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. CERTQUEST_SERVER_PORT.
const EnvPrefix = "CERTQUEST"

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"port":      "server.port",
	"log-level": "server.log_level",
}

// NewFlagSet returns the flags understood by Load. Callers may add their own
// flags before parsing.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML configuration file")
	fs.Int("port", 0, "HTTP port (overrides server.port)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	return fs
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with parsed command-line flags applied on top of the
// environment. Flags that were not set on the command line are ignored.
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"database.url", "auth.jwt_secret", "redis.password"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	if fs != nil {
		for flag, key := range flagKeys {
			f := fs.Lookup(flag)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", flag, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs != nil {
		if path, err := fs.GetString("config"); err == nil && path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			return nil
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "certquest")
	v.SetDefault("redis.session_ttl", 30*time.Minute)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("srs.initial_easiness", 2.5)
	v.SetDefault("srs.min_easiness", 1.3)
	v.SetDefault("srs.pass_threshold", 3)
	v.SetDefault("srs.first_interval", 1)
	v.SetDefault("srs.second_interval", 6)
	v.SetDefault("srs.due_limit", 20)

	v.SetDefault("adaptive.update_rate", 0.1)
	v.SetDefault("adaptive.domain_update_rate", 0.15)
	v.SetDefault("adaptive.momentum_decay", 0.9)
	v.SetDefault("adaptive.momentum_step", 0.3)
	v.SetDefault("adaptive.momentum_threshold", 0.3)
	v.SetDefault("adaptive.window_size", 20)
	v.SetDefault("adaptive.stability_window", 10)
	v.SetDefault("adaptive.stability_min_samples", 5)
	v.SetDefault("adaptive.weak_threshold", 0.5)
	v.SetDefault("adaptive.strong_threshold", 0.8)
	v.SetDefault("adaptive.difficulty_spread", 1)
	v.SetDefault("adaptive.candidate_limit", 50)

	v.SetDefault("pvp.k_factor", 32)
	v.SetDefault("pvp.default_rating", 1200)
	v.SetDefault("pvp.rating_floor", 0)
	v.SetDefault("pvp.bot_id_threshold", 9000)
	v.SetDefault("pvp.initial_radius", 200)
	v.SetDefault("pvp.radius_step", 50)
	v.SetDefault("pvp.step_interval", 10*time.Second)
	v.SetDefault("pvp.max_radius", 500)
	v.SetDefault("pvp.max_wait", 30*time.Second)
	v.SetDefault("pvp.stale_after", 10*time.Minute)
	v.SetDefault("pvp.sweep_interval", 5*time.Second)
	v.SetDefault("pvp.leaderboard_limit", 100)

	v.SetDefault("season.soft_reset_on_start", false)
	v.SetDefault("season.soft_reset_baseline", 1200)
	v.SetDefault("season.soft_reset_pct", 0.5)
}
