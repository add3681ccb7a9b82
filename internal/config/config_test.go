package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "missing.yaml")

	// when
	cfg, err := Load(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, StorageSqlite, cfg.Storage.Backend)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "application.yaml")
	content := `
server:
  port: 9000
storage:
  backend: postgres
db:
  host: db.internal
  name: meals
export:
  sink: drive
  drivefolderid: folder-123
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// when
	cfg, err := Load(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage.Backend)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "meals", cfg.Database.Name)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, SinkDrive, cfg.Export.Sink)
	assert.Equal(t, "folder-123", cfg.Export.DriveFolderId)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600))
	t.Setenv("TIFFIN_SERVER_PORT", "9191")
	t.Setenv("TIFFIN_STORAGE_BACKEND", "memory")
	t.Setenv("TIFFIN_LOCK_BACKEND", "redis")
	t.Setenv("TIFFIN_LOCK_REDISADDR", "redis:6379")
	t.Setenv("TIFFIN_LOCK_TTL", "3s")

	// when
	cfg, err := Load(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, LockRedis, cfg.Lock.Backend)
	assert.Equal(t, "redis:6379", cfg.Lock.RedisAddr)
	assert.Equal(t, 3*time.Second, cfg.Lock.TTL)
}

func TestLoad_InvalidYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [port"), 0o600))

	_, err := Load(path)

	assert.Error(t, err)
}
