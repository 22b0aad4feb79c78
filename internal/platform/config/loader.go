package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"blog-server-go/internal/domain/auth/challenge"
)

// EnvPrefix is prepended to every environment override, e.g. BLOG_AUTH_TOKEN_SECRET.
const EnvPrefix = "BLOG_"

// 未显式指定路径时按顺序查找的配置文件
var defaultPaths = []string{".config.yaml", "config.yaml"}

// Loader reads configuration from defaults, an optional YAML file, a .env
// file and the process environment, in that order of precedence (last wins).
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader that looks for .config.yaml or config.yaml in the
// working directory.
func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the YAML file; a missing pinned file is an error.
func (l *Loader) WithPath(path string) *Loader {
	l.path = strings.TrimSpace(path)
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the configuration and validates it.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// .env 缺失时直接使用系统环境变量
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path, err := l.resolvePath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	} else {
		path = "defaults"
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	if err := l.validate(cfg); err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) resolvePath() (string, error) {
	if l.path != "" {
		if _, err := os.Stat(l.path); err != nil {
			return "", fmt.Errorf("配置文件 %s 不可用: %w", l.path, err)
		}
		return l.path, nil
	}
	for _, candidate := range defaultPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// Validate checks a configuration built by hand (tests, embedding).
func Validate(cfg *Config) error {
	return (&Loader{}).validate(cfg)
}

func (l *Loader) validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var problems []string
	if strings.TrimSpace(cfg.Auth.Token.Secret) == "" {
		problems = append(problems, "auth.token.secret is required")
	}
	if cfg.Auth.Token.SessionTTL <= 0 {
		problems = append(problems, "auth.token.session_ttl must be positive")
	}
	if cfg.Auth.Token.ChallengeTTL <= 0 {
		problems = append(problems, "auth.token.challenge_ttl must be positive")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		problems = append(problems, fmt.Sprintf("auth.bcrypt_cost %d out of range [4,31]", cfg.Auth.BcryptCost))
	}
	if cfg.Auth.Nickname.Ceiling <= 0 {
		problems = append(problems, "auth.nickname.ceiling must be positive")
	}
	if cfg.Auth.Nickname.SuffixLength <= 0 {
		problems = append(problems, "auth.nickname.suffix_length must be positive")
	}

	switch driver := cfg.Auth.Challenge.Driver; {
	case !challenge.Supported(driver):
		problems = append(problems, fmt.Sprintf("auth.challenge.driver %q is not one of %s", driver, strings.Join(challenge.Drivers(), ", ")))
	case challenge.ResolveDriver(driver) == challenge.DriverRedis && cfg.Auth.Challenge.Redis.Addr == "":
		problems = append(problems, "auth.challenge.redis.addr is required for the redis driver")
	}
	if cfg.Auth.Challenge.TTL <= 0 {
		problems = append(problems, "auth.challenge.ttl must be positive")
	}
	if c := cfg.Auth.Captcha; c.Width <= 0 || c.Height <= 0 || c.Length <= 0 {
		problems = append(problems, "auth.captcha width, height and length must be positive")
	}
	if q := cfg.Auth.Captcha.Quality; q < 1 || q > 100 {
		problems = append(problems, fmt.Sprintf("auth.captcha.quality %d out of range [1,100]", q))
	}

	if cfg.Database.DSN == "" {
		problems = append(problems, "database.dsn is required")
	}

	for i, route := range cfg.Gateway.Routes {
		if route.Path == "" {
			problems = append(problems, fmt.Sprintf("gateway.routes[%d].path is required", i))
		}
		u, err := url.Parse(route.Target)
		if err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("gateway.routes[%d].target %q is not an absolute url", i, route.Target))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
