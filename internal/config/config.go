package config

import (
	"os"
	"strconv"
)

type Config struct {
	ServerPort         string
	DBPath             string
	MasterKey          string
	CORSAllowedOrigins string
	AdminRateLimitRPS  float64
	LogLevel           string
}

var cfg *Config

func Load() *Config {
	cfg = &Config{
		ServerPort:         getEnv("SERVER_PORT", "8000"),
		DBPath:             getEnv("DB_PATH", "./data/proxy.db"),
		MasterKey:          getEnv("MASTER_KEY", ""),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		AdminRateLimitRPS:  getEnvFloat("RATE_LIMIT_ADMIN_RPS", 5),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func Get() *Config {
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
