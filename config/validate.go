package config

import (
	"fmt"
	"net/url"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}

	if cfg.Explorer.URL == "" {
		return fmt.Errorf("explorer.url must not be empty")
	}
	if err := validateURL(cfg.Explorer.URL, "explorer.url"); err != nil {
		return err
	}
	if cfg.Broadcast.URL != "" {
		if err := validateURL(cfg.Broadcast.URL, "broadcast.url"); err != nil {
			return err
		}
	}
	if cfg.Explorer.TimeoutSeconds < 0 {
		return fmt.Errorf("explorer.timeout must not be negative")
	}
	if cfg.Explorer.HistoryLimit < 0 {
		return fmt.Errorf("explorer.historylimit must not be negative")
	}

	if cfg.Fee.SatPerKB < 1 {
		return fmt.Errorf("fee.satperkb must be at least 1")
	}

	switch cfg.Storage.Backend {
	case StorageBadger, StorageMemory:
	case StorageRedis:
		if cfg.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.backend=redis requires storage.redis.addr")
		}
	default:
		return fmt.Errorf("storage.backend must be %q, %q, or %q",
			StorageBadger, StorageRedis, StorageMemory)
	}

	if cfg.Ledger.RetentionDays < 1 {
		return fmt.Errorf("ledger.retentiondays must be at least 1")
	}

	return nil
}

func validateURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", field)
	}
	return nil
}
