// config.go - Configuration loaded from environment variables

package configs

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var (
	// Tutor (LLM) Configuration
	TUTOR_PROVIDER          string
	GEMINI_API_KEY          string
	MODEL_NAME              string
	MISTRAL_API_KEY         string
	MISTRAL_MODEL_NAME      string
	TUTOR_MAX_OUTPUT_TOKENS int
	TUTOR_TIMEOUT           int // seconds

	// Gemini Pricing Configuration (per 1M tokens in USD)
	GEMINI_INPUT_PRICE_PER_MILLION  float64
	GEMINI_OUTPUT_PRICE_PER_MILLION float64

	// Tutor rate limiting (token bucket)
	TUTOR_RATE_LIMIT_TOKENS         int
	TUTOR_RATE_LIMIT_REFILL_SECONDS int

	// Server Configuration
	PORT             string
	GIN_MODE         string
	ALLOWED_ORIGINS  string
	MAX_UPLOAD_BYTES int64

	// Storage Configuration
	STORAGE_BACKEND string // "mongo" or "memory"
	MONGO_URI       string
	MONGO_DB_NAME   string

	// Auth Configuration
	JWT_SECRET_KEY         string
	JWT_EXPIRE_MINUTES     int
	USER_CACHE_TTL_SECONDS int

	// OCR Configuration
	OCR_LANGUAGES   string
	OCR_PARALLEL    bool
	OCR_TIMEOUT     int // seconds
	TESSDATA_PREFIX string

	// Images whose width x height exceeds this are rejected before decoding
	MAX_IMAGE_PIXELS int

	// Image sent to the tutor is downscaled to this size on its longest side
	MAX_IMAGE_DIMENSION int

	// Background solving (empty REDIS_URL means doubts are solved inline)
	REDIS_URL          string
	DOUBT_QUEUE_NAME   string
	WORKER_CONCURRENCY int

	// Logging
	LOG_LEVEL  string
	LOG_FORMAT string
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	LoadOCRConfig()

	TUTOR_PROVIDER = getEnv("TUTOR_PROVIDER", "gemini")
	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", "")
	MODEL_NAME = getEnv("MODEL_NAME", "gemini-2.0-flash")
	MISTRAL_API_KEY = getEnv("MISTRAL_API_KEY", "")
	MISTRAL_MODEL_NAME = getEnv("MISTRAL_MODEL_NAME", "pixtral-12b-2409")
	TUTOR_MAX_OUTPUT_TOKENS = getEnvInt("TUTOR_MAX_OUTPUT_TOKENS", 4096)
	TUTOR_TIMEOUT = getEnvInt("TUTOR_TIMEOUT", 90)

	// The configured provider must have a key
	switch TUTOR_PROVIDER {
	case "mistral":
		if MISTRAL_API_KEY == "" {
			log.Fatal().Msg("MISTRAL_API_KEY environment variable is required when TUTOR_PROVIDER=mistral")
		}
	default:
		if GEMINI_API_KEY == "" {
			log.Fatal().Msg("GEMINI_API_KEY environment variable is required")
		}
	}

	// Gemini Pricing (default to Flash pricing)
	GEMINI_INPUT_PRICE_PER_MILLION = getEnvFloat("GEMINI_INPUT_PRICE_PER_MILLION", 0.10)
	GEMINI_OUTPUT_PRICE_PER_MILLION = getEnvFloat("GEMINI_OUTPUT_PRICE_PER_MILLION", 0.40)

	// 12 requests per bucket, one token back every 5 seconds
	TUTOR_RATE_LIMIT_TOKENS = getEnvInt("TUTOR_RATE_LIMIT_TOKENS", 12)
	TUTOR_RATE_LIMIT_REFILL_SECONDS = getEnvInt("TUTOR_RATE_LIMIT_REFILL_SECONDS", 5)

	PORT = getEnv("PORT", "8001")
	GIN_MODE = getEnv("GIN_MODE", "release")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")
	MAX_UPLOAD_BYTES = int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20))

	STORAGE_BACKEND = getEnv("STORAGE_BACKEND", "mongo")
	MONGO_URI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "doubtsolver")

	JWT_SECRET_KEY = getEnv("JWT_SECRET_KEY", "doubsolver_secret_key_2024")
	JWT_EXPIRE_MINUTES = getEnvInt("JWT_EXPIRE_MINUTES", 30*24*60) // 30 days
	USER_CACHE_TTL_SECONDS = getEnvInt("USER_CACHE_TTL_SECONDS", 300)

	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 2000)

	REDIS_URL = getEnv("REDIS_URL", "")
	DOUBT_QUEUE_NAME = getEnv("DOUBT_QUEUE_NAME", "doubts")
	WORKER_CONCURRENCY = getEnvInt("WORKER_CONCURRENCY", 4)

	log.Info().Str("provider", TUTOR_PROVIDER).Str("storage", STORAGE_BACKEND).Msg("✓ Configuration loaded successfully")
}

// LoadOCRConfig loads only what text extraction and logging need. The OCR
// command line tool uses it so it runs without tutor keys.
func LoadOCRConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	OCR_LANGUAGES = getEnv("OCR_LANGUAGES", "eng")
	OCR_PARALLEL = getEnvBool("OCR_PARALLEL", false)
	OCR_TIMEOUT = getEnvInt("OCR_TIMEOUT", 60)
	TESSDATA_PREFIX = getEnv("TESSDATA_PREFIX", "")
	MAX_IMAGE_PIXELS = getEnvInt("MAX_IMAGE_PIXELS", 40_000_000)

	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	LOG_FORMAT = getEnv("LOG_FORMAT", "console")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
