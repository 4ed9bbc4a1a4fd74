package config

import (
	"os"
	"strconv"
)

// DefaultStream is the Redis stream collected observation batches go to
const DefaultStream = "metobs_observations"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

// GetRedisConfig reads the Redis connection from the environment
func GetRedisConfig() RedisConfig {
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsed, err := strconv.Atoi(dbStr); err == nil {
			db = parsed
		}
	}

	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		Stream:   getEnv("REDIS_STREAM", DefaultStream),
	}
}

// RedisConfig merges the redis section of the file with the environment.
// Environment variables win over file values.
func (c *Config) RedisConfig() RedisConfig {
	rc := RedisConfig{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Stream:   c.Redis.Stream,
	}
	env := GetRedisConfig()

	if os.Getenv("REDIS_ADDR") != "" || rc.Addr == "" {
		rc.Addr = env.Addr
	}
	if os.Getenv("REDIS_PASSWORD") != "" {
		rc.Password = env.Password
	}
	if os.Getenv("REDIS_DB") != "" {
		rc.DB = env.DB
	}
	if os.Getenv("REDIS_STREAM") != "" || rc.Stream == "" {
		rc.Stream = env.Stream
	}
	return rc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
