package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs" validate:"required"`
	Adaptive AdaptiveConfig `mapstructure:"adaptive" validate:"required"`
	PvP      PvPConfig      `mapstructure:"pvp" validate:"required"`
	Season   SeasonConfig   `mapstructure:"season" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gt=0"`
}

// RedisConfig contains the connection settings of the session store.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr" validate:"required,hostname_port"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db" validate:"gte=0"`
	KeyPrefix  string        `mapstructure:"key_prefix" validate:"required"`
	SessionTTL time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lt=44640"`
}

// SRSConfig holds the spaced-repetition parameters.
type SRSConfig struct {
	InitialEasiness float64 `mapstructure:"initial_easiness" validate:"gtefield=MinEasiness"`
	MinEasiness     float64 `mapstructure:"min_easiness" validate:"gt=0"`
	PassThreshold   int     `mapstructure:"pass_threshold" validate:"gte=0,lte=5"`
	FirstInterval   int     `mapstructure:"first_interval" validate:"gte=1"`
	SecondInterval  int     `mapstructure:"second_interval" validate:"gtefield=FirstInterval"`
	DueLimit        int     `mapstructure:"due_limit" validate:"gt=0,lte=500"`
}

// AdaptiveConfig holds the adaptive selector parameters.
type AdaptiveConfig struct {
	UpdateRate          float64 `mapstructure:"update_rate" validate:"gt=0,lte=1"`
	DomainUpdateRate    float64 `mapstructure:"domain_update_rate" validate:"gt=0,lte=1"`
	MomentumDecay       float64 `mapstructure:"momentum_decay" validate:"gte=0,lte=1"`
	MomentumStep        float64 `mapstructure:"momentum_step" validate:"gt=0,lte=1"`
	MomentumThreshold   float64 `mapstructure:"momentum_threshold" validate:"gte=0,lte=1"`
	WindowSize          int     `mapstructure:"window_size" validate:"gt=0"`
	StabilityWindow     int     `mapstructure:"stability_window" validate:"gt=0"`
	StabilityMinSamples int     `mapstructure:"stability_min_samples" validate:"gt=0"`
	WeakThreshold       float64 `mapstructure:"weak_threshold" validate:"gte=0,lte=1"`
	StrongThreshold     float64 `mapstructure:"strong_threshold" validate:"gtefield=WeakThreshold,lte=1"`
	DifficultySpread    int     `mapstructure:"difficulty_spread" validate:"gte=0,lte=4"`
	CandidateLimit      int     `mapstructure:"candidate_limit" validate:"gt=0"`
}

// PvPConfig holds the rating and matchmaking parameters.
type PvPConfig struct {
	KFactor          int           `mapstructure:"k_factor" validate:"gt=0"`
	DefaultRating    int           `mapstructure:"default_rating" validate:"gte=0"`
	RatingFloor      int           `mapstructure:"rating_floor" validate:"gte=0"`
	BotIDThreshold   int64         `mapstructure:"bot_id_threshold" validate:"gt=0"`
	InitialRadius    int           `mapstructure:"initial_radius" validate:"gt=0"`
	RadiusStep       int           `mapstructure:"radius_step" validate:"gte=0"`
	StepInterval     time.Duration `mapstructure:"step_interval" validate:"gt=0"`
	MaxRadius        int           `mapstructure:"max_radius" validate:"gtefield=InitialRadius"`
	MaxWait          time.Duration `mapstructure:"max_wait" validate:"gt=0"`
	StaleAfter       time.Duration `mapstructure:"stale_after" validate:"gtfield=MaxWait"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval" validate:"gte=0"`
	LeaderboardLimit int           `mapstructure:"leaderboard_limit" validate:"gt=0"`
}

// SeasonConfig holds the season boundary settings.
type SeasonConfig struct {
	SoftResetOnStart  bool    `mapstructure:"soft_reset_on_start"`
	SoftResetBaseline int     `mapstructure:"soft_reset_baseline" validate:"gte=0"`
	SoftResetPct      float64 `mapstructure:"soft_reset_pct" validate:"gte=0,lte=1"`
}
