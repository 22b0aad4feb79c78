package config

import (
	"time"

	"blog-server-go/internal/domain/auth/challenge"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Auth: AuthConfig{
			Addr:       ":8081",
			BcryptCost: 10,
			Token: TokenConfig{
				SessionTTL:   3 * time.Hour,
				ChallengeTTL: 60 * time.Second,
			},
			Nickname: NicknameConfig{
				Prefix:       "Zw_",
				Ceiling:      9999,
				SuffixLength: 8,
				Attempts:     16,
			},
			Challenge: ChallengeConfig{
				Driver:     challenge.DefaultDriver,
				TTL:        60 * time.Second,
				GCInterval: time.Minute,
				Redis: RedisConfig{
					Addr:   "127.0.0.1:6379",
					Prefix: "captcha:",
				},
			},
			Captcha: CaptchaConfig{
				Width:   120,
				Height:  40,
				Length:  4,
				Quality: 80,
			},
		},
		Database: DatabaseConfig{
			DSN: "data/blog.db",
		},
		Gateway: GatewayConfig{
			Addr:      ":8080",
			Whitelist: []string{"/auth/**"},
			Routes: []RouteConfig{
				{Name: "user-service", Path: "/users/**", Target: "http://127.0.0.1:8082"},
				{Name: "article-service", Path: "/articles/**", Target: "http://127.0.0.1:8083"},
				{Name: "auth-service", Path: "/auth/**", Target: "http://127.0.0.1:8081"},
			},
			CORS: CORSConfig{
				Enabled: true,
				MaxAge:  time.Hour,
			},
			UpstreamTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
