package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
)

type Config struct {
	Port string

	GeminiAPIKey string
	GeminiModel  string

	// Gemini-based reranking of retrieval candidates; off by default, the
	// retrieval scores already order the lists.
	RerankEnabled bool

	RedisAddr     string
	RedisPassword string

	TelegramBotToken string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8000"),

		GeminiAPIKey: mustEnv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		RerankEnabled: strings.EqualFold(getEnv("RERANK_ENABLED", "false"), "true"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}
}

// ResolveDSN prefers DATABASE_URL, then assembles a DSN from POSTGRES_* parts.
func ResolveDSN() string {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		return dsn
	}
	host := getEnv("POSTGRES_HOST", "")
	if host == "" {
		return ""
	}
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "postgres")
	pass := os.Getenv("POSTGRES_PASSWORD")
	db := getEnv("POSTGRES_DB", "kazanim")
	ssl := getEnv("POSTGRES_SSLMODE", "disable")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(user), url.QueryEscape(pass), host, port, db, ssl)
}
