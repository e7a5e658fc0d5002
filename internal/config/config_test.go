package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = base64.URLEncoding.EncodeToString([]byte("test-signing-secret"))

func TestNewAppliesDefaults(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", testSecret)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "storage", cfg.NewsSource)
	assert.Equal(t, "https://newsapi.org/v2/top-headlines", cfg.NewsAPIURL)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
}

func TestNewFailsWithoutSigningSecret(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", "")

	_, err := New(WithDisableFlagsParsing(true))
	require.Error(t, err)
}

func TestNewRejectsUnknownNewsSource(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", testSecret)
	t.Setenv("NEWS_SOURCE", "carrier-pigeon")

	_, err := New(WithDisableFlagsParsing(true))
	require.Error(t, err)
}

func TestNewEnvOverridesDefaults(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", testSecret)
	t.Setenv("SERVER_ADDRESS", ":3000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NEWS_SOURCE", "api")
	t.Setenv("NEWS_API_KEY", "news-key")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "api", cfg.NewsSource)
	assert.Equal(t, "news-key", cfg.NewsAPIKey)
}

const testJSON = `{
	"server_address": ":3000",
	"log_level": "debug",
	"file_storage_path": "json_storage.json",
	"database_dsn": "json-dsn",
	"news_source": "api"
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()

	fileName := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(fileName, []byte(content), 0644))

	return fileName
}

func TestNewReadsConfigFile(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", testSecret)
	t.Setenv("CONFIG", writeTempJSON(t, testJSON))

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json_storage.json", cfg.DBFileName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, "api", cfg.NewsSource)
}

func TestEnvWinsOverConfigFile(t *testing.T) {
	t.Setenv("JWT_SIGNING_SECRET", testSecret)
	t.Setenv("CONFIG", writeTempJSON(t, testJSON))
	t.Setenv("SERVER_ADDRESS", ":4000")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr)
}
