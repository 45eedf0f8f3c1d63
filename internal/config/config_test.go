package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MONGO_URI", "MONGO_DB", "MONGO_COLLECTION", "MODEL_DIR", "MAX_UPLOAD_MB", "CORS_ORIGINS", "LOG_LEVEL"} {
		// Setenv restores the old value on cleanup.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "ayu_rakshak", cfg.MongoDB)
	assert.Equal(t, "predictions", cfg.MongoCollection)
	assert.Equal(t, "models", cfg.ModelDir)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Len(t, cfg.CORSOrigins, 3)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_COLLECTION", "scans")
	t.Setenv("MAX_UPLOAD_MB", "25")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LOG_COMPRESS", "false")
	t.Setenv("LOG_MAX_AGE", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, "scans", cfg.MongoCollection)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.Log.Compress)
	assert.Equal(t, 28, cfg.Log.MaxAge)
}
