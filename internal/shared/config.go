package shared

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration
	LockTTL     time.Duration

	// gateway side
	CheckoutBase  string
	WebhookSecret string
	ReferralBase  string

	// storefront side
	AncileBase   string
	AncileGroup  string
	AncileRPS    int
	FallbackMode string
	AgentID      string
	OriginCity   string
	LeadTimeDays int
	Workers      int
}

// Load reads the environment. It does not log: callers configure the logger
// from the result first and then report the settings that matter to them.
func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		LogLevel:      env("LOG_LEVEL", "info"),
		HTTPAddr:      env("HTTP_ADDR", ":8000"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/ancile?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		LockTTL:       time.Duration(atoi("LOCK_TTL_SECONDS", 600)) * time.Second,
		CheckoutBase:  env("CHECKOUT_BASE_URL", "https://checkout.ancile.local"),
		WebhookSecret: env("WEBHOOK_SECRET", ""),
		ReferralBase:  env("REFERRAL_BASE_URL", "https://ancile.app"),
		AncileBase:    env("ANCILE_BASE_URL", "http://localhost:8000"),
		AncileGroup:   env("ANCILE_GROUP", "demo"),
		AncileRPS:     atoi("ANCILE_RPS", 5),
		FallbackMode:  env("FALLBACK_MODE", "mock"),
		AgentID:       env("AGENT_ID", "web-direct"),
		OriginCity:    env("ORIGIN_CITY", "New York"),
		LeadTimeDays:  atoi("LEAD_TIME_DAYS", 90),
		Workers:       atoi("STOREFRONT_WORKERS", 4),
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
