package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries every tunable the orchestrator needs. Values come from the
// environment once at startup and are passed explicitly into constructors.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	InferenceURL    string
	InferenceModel  string
	EmbeddingURL    string
	EmbeddingModel  string
	InferenceAPIKey string

	ComplianceURL string

	MinSources       int
	RequireCitations bool
	StrictCitations  bool
	RetrievalLimit   int
	AnswerCacheSize  int
	AnswerCacheTTL   int // minutes

	SessionTTL         int // seconds
	SessionMaxMessages int

	AnswerRateLimit float64 // requests per second, 0 disables
	AnswerRateBurst int

	OTelEnabled bool
}

// Load reads configuration from the environment with development defaults.
func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8090"),

		DBHost:     getEnv("DB_HOST", "shorui-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "shorui_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "shorui_password"),
		DBName:     getEnv("DB_NAME", "shorui_db"),

		InferenceURL:    getEnv("INFERENCE_URL", "http://localhost:8000"),
		InferenceModel:  getEnv("INFERENCE_MODEL", "gpt-4o-mini"),
		EmbeddingURL:    getEnv("EMBEDDING_URL", "http://localhost:8000"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		InferenceAPIKey: getSecret("INFERENCE_API_KEY", "INFERENCE_API_KEY_FILE", ""),

		ComplianceURL: getEnv("COMPLIANCE_SERVICE_URL", "http://localhost:8083"),

		MinSources:       getEnvInt("GROUNDING_MIN_SOURCES", 1),
		RequireCitations: getEnvBool("GROUNDING_REQUIRE_CITATIONS", true),
		StrictCitations:  getEnvBool("GROUNDING_STRICT_CITATIONS", false),
		RetrievalLimit:   getEnvInt("RETRIEVAL_LIMIT", 5),
		AnswerCacheSize:  getEnvInt("ANSWER_CACHE_SIZE", 128),
		AnswerCacheTTL:   getEnvInt("ANSWER_CACHE_TTL_MINUTES", 10),

		SessionTTL:         getEnvInt("SESSION_TTL_SECONDS", 3600),
		SessionMaxMessages: getEnvInt("SESSION_MAX_MESSAGES", 50),

		AnswerRateLimit: getEnvFloat("ANSWER_RATE_LIMIT", 5),
		AnswerRateBurst: getEnvInt("ANSWER_RATE_BURST", 10),

		OTelEnabled: getEnvBool("OTEL_ENABLED", false),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret reads envKey directly, then falls back to the file named by
// fileEnvKey (Docker/K8s secret mounts), then to the default.
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
