package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("LOCAL_DATA_DIR", t.TempDir())
	c, err := Parse()
	require.NoError(t, err)

	assert.True(t, c.Local())
	assert.Equal(t, ":8080", c.ListenAddress)
	assert.Len(t, c.Session.Key, 32)
	assert.Equal(t, 15*time.Minute, c.ViewIdleTimeout)
	assert.Equal(t, "securityapp", c.Rabbit.Prefix)
	assert.False(t, c.Redis.Enabled())
	assert.Equal(t, "ordenadores", c.Schema.Records)
	assert.Equal(t, "hora de inicio", c.Schema.RecordTimestamp)
	assert.Equal(t, 5*time.Second, c.Timeouts.ReadHeader)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("SESSION_KEY", "k")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_TTL", "1m")
	t.Setenv("SCHEMA_RECORDS", "computers")
	t.Setenv("FIREBASE_PROJECT_ID", "demo")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	c, err := Parse()
	require.NoError(t, err)

	assert.False(t, c.Local())
	assert.True(t, c.Redis.Enabled())
	assert.Equal(t, time.Minute, c.Redis.Options().TTL)
	assert.Equal(t, "computers", c.Schema.Records)
	assert.Equal(t, "users", c.Schema.Users)
	assert.Equal(t, "demo", c.Firebase.Options().ProjectID)
	assert.Equal(t, 3*time.Second, c.Timeouts.Shutdown)
}

func TestSessionKeyRequiredOutsideLocalMode(t *testing.T) {
	t.Setenv("LOCAL_DATA_DIR", "")
	t.Setenv("SESSION_KEY", "")
	_, err := Parse()
	assert.Error(t, err)
}

func TestLoadEnvSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("SECURITYAPP_TEST_VALUE=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SECURITYAPP_TEST_VALUE") })

	n, err := LoadEnv(filepath.Join(dir, "missing.env"), file)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "from-file", os.Getenv("SECURITYAPP_TEST_VALUE"))
}
