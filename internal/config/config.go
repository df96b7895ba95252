package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Fetch       FetchConfig
	Marketplace MarketplaceConfig
	Redis       RedisConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
	RateWindow      time.Duration
}

type FetchConfig struct {
	AttemptTimeout time.Duration
	MinBodyBytes   int
	MaxBodyBytes   int64
	UserAgent      string
	AcceptLanguage string
	// Relays are URL templates with exactly one %s placeholder for the
	// query-escaped target URL. Tried in order after the direct attempt.
	Relays []string
	// RateLimitMin/Max bound the jittered delay between batch extractions.
	RateLimitMin time.Duration
	RateLimitMax time.Duration
	MaxRetries   int
}

type MarketplaceConfig struct {
	// Hosts that count as the supported marketplace. A leading-dot entry
	// matches any subdomain.
	Hosts []string
	// CDNHosts serve product imagery.
	CDNHosts []string
	// BlockMarkers flag anti-bot interstitials in a fetched body.
	BlockMarkers []string
	// ImageDenylist substrings reject non-product imagery.
	ImageDenylist []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimit:       getEnvInt("SERVER_RATE_LIMIT", 30),
			RateWindow:      getEnvDuration("SERVER_RATE_WINDOW", time.Minute),
		},
		Fetch: FetchConfig{
			AttemptTimeout: getEnvDuration("FETCH_ATTEMPT_TIMEOUT", 20*time.Second),
			MinBodyBytes:   getEnvInt("FETCH_MIN_BODY_BYTES", 500),
			MaxBodyBytes:   int64(getEnvInt("FETCH_MAX_BODY_BYTES", 10<<20)),
			UserAgent:      getEnv("FETCH_USER_AGENT", defaultUserAgent),
			AcceptLanguage: getEnv("FETCH_ACCEPT_LANGUAGE", "tr-TR,tr;q=0.9,en;q=0.8"),
			Relays:         getEnvSlice("FETCH_RELAYS", defaultRelays()),
			RateLimitMin:   getEnvDuration("FETCH_RATE_LIMIT_MIN", 3*time.Second),
			RateLimitMax:   getEnvDuration("FETCH_RATE_LIMIT_MAX", 8*time.Second),
			MaxRetries:     getEnvInt("FETCH_MAX_RETRIES", 2),
		},
		Marketplace: MarketplaceConfig{
			Hosts:         getEnvSlice("MARKETPLACE_HOSTS", defaultHosts()),
			CDNHosts:      getEnvSlice("MARKETPLACE_CDN_HOSTS", defaultCDNHosts()),
			BlockMarkers:  getEnvSlice("MARKETPLACE_BLOCK_MARKERS", defaultBlockMarkers()),
			ImageDenylist: getEnvSlice("MARKETPLACE_IMAGE_DENYLIST", defaultImageDenylist()),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if len(c.Marketplace.Hosts) == 0 {
		return fmt.Errorf("at least one marketplace host is required")
	}

	if c.Fetch.MinBodyBytes < 0 {
		return fmt.Errorf("FETCH_MIN_BODY_BYTES cannot be negative")
	}

	if c.Fetch.RateLimitMin > c.Fetch.RateLimitMax {
		return fmt.Errorf("FETCH_RATE_LIMIT_MIN cannot be greater than FETCH_RATE_LIMIT_MAX")
	}

	for _, relay := range c.Fetch.Relays {
		if strings.Count(relay, "%s") != 1 {
			return fmt.Errorf("relay template must contain exactly one %%s placeholder: %s", relay)
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func defaultHosts() []string {
	return []string{"trendyol.com", "www.trendyol.com", "m.trendyol.com", ".trendyol.com"}
}

func defaultCDNHosts() []string {
	return []string{"cdn.dsmcdn.com", "img-trendyol.mncdn.com"}
}

func defaultRelays() []string {
	return []string{
		"https://api.allorigins.win/raw?url=%s",
		"https://api.codetabs.com/v1/proxy?quest=%s",
		"https://corsproxy.io/?url=%s",
	}
}

func defaultBlockMarkers() []string {
	return []string{
		"attention required",
		"cf-browser-verification",
		"access denied",
		"erişim engellendi",
		"captcha-delivery",
		"robot olmadığınızı",
		"just a moment",
	}
}

func defaultImageDenylist() []string {
	return []string{
		"logo", "icon", "sprite", "favicon", "badge", "banner",
		"avatar", "placeholder", "loading", "payment", "mastercard",
		"visa", "troy", "amex", "facebook", "twitter", "instagram",
		"youtube", "whatsapp", "appstore", "googleplay", "kampanya",
		"rozet", "etiket", "flag", "star", "rating",
	}
}
