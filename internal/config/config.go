package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BoiseITGuru/project-toucans-v2/internal/constants"
)

type Config struct {
	// Flow access API settings
	FlowAccessURL string
	FlowRPS       float64

	// Supabase settings
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// External feeds
	PriceFeedURL string
	TokenInfoURL string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Ranking job
	RankingInterval time.Duration

	// API server
	APIAddr string
	APIKey  string
	DevMode bool

	// AI agent
	OpenRouterAPIKey string
}

func Load() *Config {
	return &Config{
		// Flow
		FlowAccessURL: getEnv("FLOW_ACCESS_URL", "https://rest-mainnet.onflow.org"),
		FlowRPS:       getFloatEnv("FLOW_RPS", 5),

		// Supabase
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "toucans"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Feeds
		PriceFeedURL: getEnv("PRICE_FEED_URL", "https://api.coingecko.com/api/v3"),
		TokenInfoURL: getEnv("TOKEN_INFO_URL", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		// Ranking job
		RankingInterval: getDurationEnv("RANKING_INTERVAL", constants.RankingInterval),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
	}
}

// Validate checks settings that have no workable default.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseAnonKey == "" && c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY or SUPABASE_SERVICE_KEY is required")
	}
	if c.RankingInterval <= 0 {
		return fmt.Errorf("RANKING_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
