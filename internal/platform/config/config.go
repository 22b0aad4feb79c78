package config

import (
	"time"
)

// Config is the root configuration. Fields are filled from defaults, then the
// YAML file, then BLOG_* environment variables.
type Config struct {
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Gateway  GatewayConfig  `yaml:"gateway" envPrefix:"GATEWAY_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	Dir   string `yaml:"dir" env:"DIR"`
	File  string `yaml:"file" env:"FILE"`
}

type AuthConfig struct {
	Addr       string          `yaml:"addr" env:"ADDR"`
	BcryptCost int             `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	Token      TokenConfig     `yaml:"token" envPrefix:"TOKEN_"`
	Nickname   NicknameConfig  `yaml:"nickname" envPrefix:"NICKNAME_"`
	Challenge  ChallengeConfig `yaml:"challenge" envPrefix:"CHALLENGE_"`
	Captcha    CaptchaConfig   `yaml:"captcha" envPrefix:"CAPTCHA_"`
}

// CaptchaConfig sizes the rendered captcha image.
type CaptchaConfig struct {
	Width   int `yaml:"width" env:"WIDTH"`
	Height  int `yaml:"height" env:"HEIGHT"`
	Length  int `yaml:"length" env:"LENGTH"`
	Quality int `yaml:"quality" env:"QUALITY"`
}

type TokenConfig struct {
	Secret       string        `yaml:"secret" env:"SECRET"`
	SessionTTL   time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	ChallengeTTL time.Duration `yaml:"challenge_ttl" env:"CHALLENGE_TTL"`
}

type NicknameConfig struct {
	Prefix       string `yaml:"prefix" env:"PREFIX"`
	Ceiling      int64  `yaml:"ceiling" env:"CEILING"`
	SuffixLength int    `yaml:"suffix_length" env:"SUFFIX_LENGTH"`
	Attempts     int    `yaml:"attempts" env:"ATTEMPTS"`
}

type ChallengeConfig struct {
	Driver            string        `yaml:"driver" env:"DRIVER"`
	TTL               time.Duration `yaml:"ttl" env:"TTL"`
	ConsumeOnMismatch bool          `yaml:"consume_on_mismatch" env:"CONSUME_ON_MISMATCH"`
	GCInterval        time.Duration `yaml:"gc_interval" env:"GC_INTERVAL"`
	Redis             RedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Username string `yaml:"username,omitempty" env:"USERNAME"`
	Password string `yaml:"password,omitempty" env:"PASSWORD"`
	DB       int    `yaml:"db,omitempty" env:"DB"`
	Prefix   string `yaml:"prefix,omitempty" env:"PREFIX"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DSN"`
}

type GatewayConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	Whitelist       []string      `yaml:"whitelist" env:"WHITELIST" envSeparator:","`
	Routes          []RouteConfig `yaml:"routes"`
	CORS            CORSConfig    `yaml:"cors" envPrefix:"CORS_"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout" env:"UPSTREAM_TIMEOUT"`
}

// RouteConfig forwards requests whose path matches Path to Target.
type RouteConfig struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Target string `yaml:"target"`
}

type CORSConfig struct {
	Enabled bool          `yaml:"enabled" env:"ENABLED"`
	MaxAge  time.Duration `yaml:"max_age" env:"MAX_AGE"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}
