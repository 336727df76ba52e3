package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/parcel/pkg/telemetry"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "./data", config.DataDir)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Bind)
	assert.Equal(t, "auto", config.Server.APIKey)
	assert.Equal(t, telemetry.DefaultSdk(), config.Sdk)
	assert.Equal(t, 30, config.Cache.MaxEnvelopes)
	assert.True(t, config.Spool.Sync)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, filepath.Join("data", "cache"), config.CacheDir())
	assert.Equal(t, filepath.Join("data", "spool"), config.SpoolDir())
}

func TestConfig_AbsoluteDirsAreKept(t *testing.T) {
	config := DefaultConfig()
	config.Cache.Dir = "/var/cache/parcel"

	assert.Equal(t, "/var/cache/parcel", config.CacheDir())
}

func TestGenerateSecureKey(t *testing.T) {
	t.Run("generate 32 byte key", func(t *testing.T) {
		key, err := GenerateSecureKey(32)
		require.NoError(t, err)
		assert.Len(t, key, 64) // 32 bytes = 64 hex characters

		_, err = hex.DecodeString(key)
		assert.NoError(t, err)
	})

	t.Run("generate different keys", func(t *testing.T) {
		key1, err := GenerateSecureKey(16)
		require.NoError(t, err)
		key2, err := GenerateSecureKey(16)
		require.NoError(t, err)

		assert.NotEqual(t, key1, key2)
	})

	t.Run("zero length", func(t *testing.T) {
		key, err := GenerateSecureKey(0)
		require.NoError(t, err)
		assert.Empty(t, key)
	})
}

func testConfig() *Config {
	return &Config{
		DataDir: "/custom/data",
		Server: Server{
			Bind:             "0.0.0.0",
			Port:             9000,
			APIKey:           "test-api-key",
			MaxEnvelopeBytes: 1024,
		},
		Sdk:     telemetry.SdkVersion{Name: "parcel.test", Version: "1.2.3"},
		Cache:   Cache{Dir: "c", MaxEnvelopes: 5},
		Spool:   Spool{Dir: "s", Sync: false},
		Logging: Logging{Level: "debug", Format: "json"},
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("load existing yaml config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		expectedConfig := testConfig()

		require.NoError(t, SaveConfig(expectedConfig, configPath))

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, expectedConfig, loadedConfig)
	})

	t.Run("load existing toml config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		expectedConfig := testConfig()

		require.NoError(t, SaveConfig(expectedConfig, configPath))

		data, err := os.ReadFile(configPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[server]")

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, expectedConfig, loadedConfig)
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9300\n"), 0600))

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, 9300, loadedConfig.Server.Port)
		assert.Equal(t, "127.0.0.1", loadedConfig.Server.Bind)
		assert.Equal(t, "./data", loadedConfig.DataDir)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := LoadConfig("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("load invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644))

		_, err := LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("load invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.toml")
		require.NoError(t, os.WriteFile(configPath, []byte("[server\nport = "), 0644))

		_, err := LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	config := DefaultConfig()

	require.NoError(t, SaveConfig(config, configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loadedConfig, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loadedConfig)
}

func TestBootstrapConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	dataDir := "/custom/data/dir"

	config, err := BootstrapConfig(configPath, dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, config.DataDir)
	assert.Equal(t, 8080, config.Server.Port)
	assert.NotEqual(t, "auto", config.Server.APIKey)
	_, err = hex.DecodeString(config.Server.APIKey)
	assert.NoError(t, err)

	assert.True(t, ConfigExists(configPath))

	loadedConfig, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loadedConfig)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "parcel")
	assert.Contains(t, path, ".yaml")
}

func TestConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingPath := filepath.Join(tmpDir, "exists.yaml")
	nonExistentPath := filepath.Join(tmpDir, "does-not-exist.yaml")

	require.NoError(t, os.WriteFile(existingPath, []byte("test"), 0644))

	assert.True(t, ConfigExists(existingPath))
	assert.False(t, ConfigExists(nonExistentPath))
}

func TestConfigYAMLMarshalling(t *testing.T) {
	config := testConfig()

	data, err := yaml.Marshal(config)
	require.NoError(t, err)

	var unmarshalled Config
	require.NoError(t, yaml.Unmarshal(data, &unmarshalled))
	assert.Equal(t, config, &unmarshalled)
}

func TestSaveConfigErrorHandling(t *testing.T) {
	config := DefaultConfig()

	// a regular file cannot hold a directory, even for root
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))
	invalidPath := filepath.Join(blocker, "nested", "config.yaml")

	err := SaveConfig(config, invalidPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
}
