package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Server  ServerConfig
	OpenAI  OpenAIConfig
	Gemini  GeminiConfig
	Scoring ScoringConfig
	Worker  WorkerConfig
	Task    TaskConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type ScoringConfig struct {
	BatchSize        int
	BatchConcurrency int
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	ParseMaxAttempts int
	MaxPromptChars   int
}

type WorkerConfig struct {
	Concurrency int
}

type TaskConfig struct {
	Retention       time.Duration
	CleanupInterval time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		Scoring: ScoringConfig{
			BatchSize:        getEnvAsInt("BATCH_SIZE", 10),
			BatchConcurrency: getEnvAsInt("BATCH_CONCURRENCY", 3),
			RetryMaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryBaseDelay:   getEnvAsDuration("RETRY_BASE_DELAY", "1s"),
			RetryMaxDelay:    getEnvAsDuration("RETRY_MAX_DELAY", "10s"),
			ParseMaxAttempts: getEnvAsInt("PARSE_MAX_ATTEMPTS", 3),
			MaxPromptChars:   getEnvAsInt("MAX_PROMPT_CHARS", 24000),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 3),
		},
		Task: TaskConfig{
			Retention:       getEnvAsDuration("TASK_RETENTION", "1h"),
			CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", "10m"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
