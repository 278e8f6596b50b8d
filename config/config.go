package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	JWTSecret    string
	JWTExpiryMin int

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// RateLimitBackend selects the bucket store: "memory" for a single
	// instance, "redis" when buckets must be shared across instances.
	RateLimitBackend string
	MessageLimit     int
	MessageWindowSec int
	UploadLimit      int
	UploadWindowSec  int

	TypingTimeoutSec int

	// Reconnection policy handed to clients at connect time.
	ReconnectBaseMs      int
	ReconnectCapMs       int
	ReconnectMaxAttempts int

	PushGatewayURL  string
	PushGatewayKey  string
	EmailGatewayURL string
	EmailGatewayKey string
	EmailFromName   string

	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PublicBase    string
	S3PresignTTLMin int
	ImageMaxBytes   int64
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppMode: getEnv("APP_MODE", "debug"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "craftlink_chat"),
		DBPort:     getEnv("DB_PORT", "5432"),

		JWTSecret:    getEnv("JWT_SECRET", "change-me"),
		JWTExpiryMin: getEnvAsInt("JWT_EXPIRY_MIN", 60),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		RateLimitBackend: getEnv("RATELIMIT_BACKEND", "redis"),
		MessageLimit:     getEnvAsInt("RATELIMIT_MESSAGES", 60),
		MessageWindowSec: getEnvAsInt("RATELIMIT_MESSAGES_WINDOW_SEC", 60),
		UploadLimit:      getEnvAsInt("RATELIMIT_UPLOADS", 10),
		UploadWindowSec:  getEnvAsInt("RATELIMIT_UPLOADS_WINDOW_SEC", 60),

		TypingTimeoutSec: getEnvAsInt("TYPING_TIMEOUT_SEC", 6),

		ReconnectBaseMs:      getEnvAsInt("RECONNECT_BASE_MS", 500),
		ReconnectCapMs:       getEnvAsInt("RECONNECT_CAP_MS", 15000),
		ReconnectMaxAttempts: getEnvAsInt("RECONNECT_MAX_ATTEMPTS", 8),

		PushGatewayURL:  getEnv("PUSH_GATEWAY_URL", ""),
		PushGatewayKey:  getEnv("PUSH_GATEWAY_KEY", ""),
		EmailGatewayURL: getEnv("EMAIL_GATEWAY_URL", ""),
		EmailGatewayKey: getEnv("EMAIL_GATEWAY_KEY", ""),
		EmailFromName:   getEnv("EMAIL_FROM_NAME", "CraftLink"),

		S3Region:        getEnv("S3_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3PublicBase:    getEnv("S3_PUBLIC_BASE", ""),
		S3PresignTTLMin: getEnvAsInt("S3_PRESIGN_TTL_MIN", 15),
		ImageMaxBytes:   int64(getEnvAsInt("IMAGE_MAX_BYTES", 10<<20)),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
