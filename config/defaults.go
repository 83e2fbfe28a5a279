package config

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Explorer: ExplorerConfig{
			URL:            "https://api.whatsonchain.com/v1/bsv/main",
			TimeoutSeconds: 15,
			HistoryLimit:   0,
		},
		Broadcast: BroadcastConfig{
			// Empty means the explorer's broadcast endpoint is used.
			URL: "",
		},
		Fee: FeeConfig{
			SatPerKB: 1,
		},
		Storage: StorageConfig{
			Backend:   StorageBadger,
			RedisAddr: "127.0.0.1:6379",
		},
		Ledger: LedgerConfig{
			RetentionDays: 30,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Explorer.URL = "https://api.whatsonchain.com/v1/bsv/test"
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
