package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Brownie44l1/medscan-api/internal/logger"
)

type Config struct {
	Port string

	MongoURI        string
	MongoDB         string
	MongoCollection string

	ModelDir       string
	ONNXRuntimeLib string

	UploadDir   string
	MaxUploadMB int
	CORSOrigins []string

	Log logger.Config
}

// MaxUploadBytes is the multipart body limit.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// LoadConfig reads a .env file when one exists and then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		Port: getEnv("PORT", "8080"),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGO_DB", "ayu_rakshak"),
		MongoCollection: getEnv("MONGO_COLLECTION", "predictions"),

		ModelDir:       getEnv("MODEL_DIR", "models"),
		ONNXRuntimeLib: getEnv("ONNXRUNTIME_LIB", ""),

		UploadDir:   getEnv("UPLOAD_DIR", os.TempDir()),
		MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", 10),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
		}),

		Log: logger.Config{
			Level:      getEnv("LOG_LEVEL", "INFO"),
			Filename:   getEnv("LOG_FILENAME", filepath.Join("logs", "app.log")),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 28),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
