/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/parcel/pkg/telemetry"
)

// Config represents the parcel configuration
type Config struct {
	DataDir string               `yaml:"data_dir" toml:"data_dir"`
	Server  Server               `yaml:"server" toml:"server"`
	Sdk     telemetry.SdkVersion `yaml:"sdk" toml:"sdk"`
	Cache   Cache                `yaml:"cache" toml:"cache"`
	Spool   Spool                `yaml:"spool" toml:"spool"`
	Logging Logging              `yaml:"logging" toml:"logging"`
}

// Server contains the ingest API settings
type Server struct {
	Bind   string `yaml:"bind" toml:"bind"`
	Port   int    `yaml:"port" toml:"port"`
	APIKey string `yaml:"api_key" toml:"api_key"`
	// MaxEnvelopeBytes caps the size of an ingested envelope body
	MaxEnvelopeBytes int64 `yaml:"max_envelope_bytes" toml:"max_envelope_bytes"`
}

// Cache contains the on-disk envelope cache settings
type Cache struct {
	Dir          string `yaml:"dir" toml:"dir"`
	MaxEnvelopes int    `yaml:"max_envelopes" toml:"max_envelopes"`
}

// Spool contains the pebble spool settings
type Spool struct {
	Dir  string `yaml:"dir" toml:"dir"`
	Sync bool   `yaml:"sync" toml:"sync"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Server: Server{
			Bind:             "127.0.0.1",
			Port:             8080,
			APIKey:           "auto",
			MaxEnvelopeBytes: 20 * 1024 * 1024,
		},
		Sdk: telemetry.DefaultSdk(),
		Cache: Cache{
			Dir:          "cache",
			MaxEnvelopes: 30,
		},
		Spool: Spool{
			Dir:  "spool",
			Sync: true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// CacheDir resolves the cache directory against DataDir
func (c *Config) CacheDir() string {
	return resolve(c.DataDir, c.Cache.Dir)
}

// SpoolDir resolves the spool directory against DataDir
func (c *Config) SpoolDir() string {
	return resolve(c.DataDir, c.Spool.Dir)
}

func resolve(base, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from the specified path. Files ending in
// .toml are parsed as TOML, everything else as YAML.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Newf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "invalid config path")
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if isTOML(configPath) {
		err = toml.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return errors.Wrap(err, "failed to marshal config")
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(config)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config")
		}
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Wrap(err, "failed to generate secure key")
	}
	return hex.EncodeToString(key), nil
}

// BootstrapConfig creates a new configuration with a generated API key and saves it
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate API key")
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, errors.Wrap(err, "failed to save bootstrap config")
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./parcel.yaml"
	}

	// For Linux/macOS, use ~/.config/parcel/config.yaml
	configDir := filepath.Join(homeDir, ".config", "parcel")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
