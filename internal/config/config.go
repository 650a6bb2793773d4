package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                 string
	RedisURL             string
	AuthIssuerURL        string
	ServiceKey           string
	CORSOrigins          string
	Environment          string
	RateLimitPerMinute   int
	PresenceGraceSeconds int
	FCMProjectID         string
	FCMCredentialsFile   string
}

func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379"),
		AuthIssuerURL:        getEnv("AUTH_ISSUER_URL", ""),
		ServiceKey:           getEnv("SERVICE_KEY", ""),
		CORSOrigins:          getEnv("CORS_ORIGINS", "https://worklink.app"),
		Environment:          getEnv("ENVIRONMENT", "development"),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		PresenceGraceSeconds: getEnvInt("PRESENCE_GRACE_SECONDS", 5),
		FCMProjectID:         getEnv("FCM_PROJECT_ID", ""),
		FCMCredentialsFile:   getEnv("FCM_CREDENTIALS_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
