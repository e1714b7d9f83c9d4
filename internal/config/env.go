package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Port                 int
	Environment          string
	MongoDBURI           string
	RedisURI             string
	JWTSecret            string
	OTELExporterEndpoint string
	SeedDemoData         bool
	ThrottleEnabled      bool
	ThrottleBucketSize   int
	ThrottleRefillSecs   int
	PixBucketMaxTokens   int
}

var Env *Config

func Load() {
	port, _ := strconv.Atoi(getEnvOrDefault("PORT", "3000"))
	throttleEnabled := getEnvOrDefault("THROTTLE_ENABLED", "true")
	throttleBucketSize, _ := strconv.Atoi(getEnvOrDefault("THROTTLE_BUCKET_SIZE", "600"))
	throttleRefillSecs, _ := strconv.Atoi(getEnvOrDefault("THROTTLE_REFILL_SECONDS", "60"))
	pixBucketMaxTokens, _ := strconv.Atoi(getEnvOrDefault("PIX_BUCKET_MAX_TOKENS", "10"))
	seedDemoData := getEnvOrDefault("SEED_DEMO_DATA", "true")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	Env = &Config{
		Port:                 port,
		Environment:          getEnvOrDefault("GO_ENV", "development"),
		MongoDBURI:           getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017/dict_gateway"),
		RedisURI:             getEnvOrDefault("REDIS_URI", "redis://localhost:6379"),
		JWTSecret:            jwtSecret,
		OTELExporterEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318/v1/traces"),
		SeedDemoData:         seedDemoData != "false" && seedDemoData != "0",
		ThrottleEnabled:      throttleEnabled != "false" && throttleEnabled != "0",
		ThrottleBucketSize:   throttleBucketSize,
		ThrottleRefillSecs:   throttleRefillSecs,
		PixBucketMaxTokens:   pixBucketMaxTokens,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
