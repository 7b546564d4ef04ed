package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddress   string
	MongoURI        string
	MongoDB         string
	JWTSecret       string
	JWTExpiration   time.Duration
	DataDir         string
	UploadDir       string
	MaxUploadSizeMB int64
	StorageBucket   string
}

func Load() *Config {
	return &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		MongoURI:        getEnv("MONGODB_URI", ""),
		MongoDB:         getEnv("MONGODB_DB", "shutterverse"),
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:   24 * time.Hour,
		DataDir:         getEnv("DATA_DIR", "./data"),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSizeMB: getEnvInt64("MAX_UPLOAD_SIZE_MB", 10),
		StorageBucket:   getEnv("STORAGE_BUCKET", ""),
	}
}

// UseMongo reports whether persistence should go through MongoDB rather than
// the in-memory stores.
func (c *Config) UseMongo() bool {
	return c.MongoURI != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
