package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key. Unknown keys are ignored so a
// newer conf file doesn't break an older binary.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Explorer
	case "explorer.url":
		cfg.Explorer.URL = value
	case "explorer.apikey":
		cfg.Explorer.APIKey = value
	case "explorer.timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Explorer.TimeoutSeconds = n
	case "explorer.historylimit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Explorer.HistoryLimit = n

	// Broadcast
	case "broadcast.url":
		cfg.Broadcast.URL = value
	case "broadcast.apikey":
		cfg.Broadcast.APIKey = value

	// Fees
	case "fee.satperkb":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Fee.SatPerKB = n

	// Storage
	case "storage.backend":
		cfg.Storage.Backend = StorageBackend(strings.ToLower(value))
	case "storage.redis.addr":
		cfg.Storage.RedisAddr = value
	case "storage.redis.password":
		cfg.Storage.RedisPassword = value
	case "storage.redis.db":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Storage.RedisDB = n

	// Ledger
	case "ledger.retentiondays":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Ledger.RetentionDays = n

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# Hushtx Wallet Configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.hushtx)
# datadir = ~/.hushtx

# ============================================================================
# Chain Data Explorer
# ============================================================================

explorer.url = ` + cfg.Explorer.URL + `
# explorer.apikey =
explorer.timeout = 15
# History fetch cap per scan (0 = full history)
explorer.historylimit = 0

# ============================================================================
# Broadcast
# ============================================================================

# Leave empty to use the explorer's broadcast endpoint
# broadcast.url =
# broadcast.apikey =

# ============================================================================
# Fees
# ============================================================================

# Fee rate in satoshis per kilobyte
fee.satperkb = 1

# ============================================================================
# Storage
# ============================================================================

# Backend: badger (default), redis, or memory (testing only)
storage.backend = badger
# storage.redis.addr = 127.0.0.1:6379
# storage.redis.password =
# storage.redis.db = 0

# ============================================================================
# Invoice Ledger
# ============================================================================

# Days of invoice history kept before cleanup
ledger.retentiondays = 30

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
