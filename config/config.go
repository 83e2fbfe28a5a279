// Package config handles application configuration.
//
// Precedence is defaults, then the conf file, then command-line flags.
// Everything here is operational; protocol constants (key derivation,
// envelope format, dust limit) are hardcoded where they are used.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Explorer API (read side)
	Explorer ExplorerConfig

	// Broadcast endpoint (write side)
	Broadcast BroadcastConfig

	// Fees
	Fee FeeConfig

	// Local storage backend
	Storage StorageConfig

	// Invoice ledger
	Ledger LedgerConfig

	// Logging
	Log LogConfig
}

// ExplorerConfig holds the chain-data explorer settings.
type ExplorerConfig struct {
	URL            string `conf:"explorer.url"`
	APIKey         string `conf:"explorer.apikey"`
	TimeoutSeconds int    `conf:"explorer.timeout"`
	HistoryLimit   int    `conf:"explorer.historylimit"` // 0 = unbounded
}

// BroadcastConfig holds the transaction submission settings. An empty URL
// falls back to the explorer's broadcast endpoint.
type BroadcastConfig struct {
	URL    string `conf:"broadcast.url"`
	APIKey string `conf:"broadcast.apikey"`
}

// FeeConfig holds fee-rate settings.
type FeeConfig struct {
	SatPerKB uint64 `conf:"fee.satperkb"`
}

// StorageBackend selects the local key-value store implementation.
type StorageBackend string

const (
	StorageBadger StorageBackend = "badger"
	StorageRedis  StorageBackend = "redis"
	StorageMemory StorageBackend = "memory" // no persistence, testing only
)

// StorageConfig holds local store settings.
type StorageConfig struct {
	Backend       StorageBackend `conf:"storage.backend"`
	RedisAddr     string         `conf:"storage.redis.addr"`
	RedisPassword string         `conf:"storage.redis.password"`
	RedisDB       int            `conf:"storage.redis.db"`
}

// LedgerConfig holds invoice-ledger settings.
type LedgerConfig struct {
	RetentionDays int `conf:"ledger.retentiondays"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.hushtx
//	macOS:   ~/Library/Application Support/Hushtx
//	Windows: %APPDATA%\Hushtx
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hushtx"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Hushtx")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Hushtx")
		}
		return filepath.Join(home, "AppData", "Roaming", "Hushtx")
	default:
		return filepath.Join(home, ".hushtx")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// StoreDir returns the key-value store directory (badger backend).
func (c *Config) StoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "store")
}

// KeystoreDir returns the encrypted-keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "hushtx.conf")
}
