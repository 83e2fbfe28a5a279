package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds parsed global command-line flags. Flag parsing stops at the
// first positional argument, which becomes the subcommand.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Explorer
	ExplorerURL    string
	ExplorerAPIKey string
	HistoryLimit   int

	// Broadcast
	BroadcastURL string

	// Fees
	SatPerKB uint64

	// Storage
	StorageBackend string
	RedisAddr      string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Subcommand and its arguments
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetLogJSON bool
}

// ParseFlags parses global command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("hushtx", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	fs.StringVar(&f.Network, "testnet", "", "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Explorer
	fs.StringVar(&f.ExplorerURL, "explorer-url", "", "Chain data explorer base URL")
	fs.StringVar(&f.ExplorerAPIKey, "explorer-apikey", "", "Explorer API key")
	fs.IntVar(&f.HistoryLimit, "history-limit", 0, "History fetch cap per scan (0 = full history)")

	// Broadcast
	fs.StringVar(&f.BroadcastURL, "broadcast-url", "", "Transaction broadcast endpoint URL")

	// Fees
	fs.Uint64Var(&f.SatPerKB, "fee-rate", 0, "Fee rate in satoshis per kilobyte")

	// Storage
	fs.StringVar(&f.StorageBackend, "storage", "", "Storage backend: badger, redis, or memory")
	fs.StringVar(&f.RedisAddr, "redis-addr", "", "Redis address (storage=redis)")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		printUsage()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Handle --testnet shorthand
	if isFlagSet(fs, "testnet") {
		f.Network = "testnet"
	}
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()
	return f
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.ExplorerURL != "" {
		cfg.Explorer.URL = f.ExplorerURL
	}
	if f.ExplorerAPIKey != "" {
		cfg.Explorer.APIKey = f.ExplorerAPIKey
	}
	if f.HistoryLimit != 0 {
		cfg.Explorer.HistoryLimit = f.HistoryLimit
	}
	if f.BroadcastURL != "" {
		cfg.Broadcast.URL = f.BroadcastURL
	}
	if f.SatPerKB != 0 {
		cfg.Fee.SatPerKB = f.SatPerKB
	}
	if f.StorageBackend != "" {
		cfg.Storage.Backend = StorageBackend(strings.ToLower(f.StorageBackend))
	}
	if f.RedisAddr != "" {
		cfg.Storage.RedisAddr = f.RedisAddr
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `Hushtx - encrypted messaging wallet

Usage:
  hushtx [options] <command> [args]
  hushtx --help

Commands:
  wallet create              Create a new wallet (mnemonic + keystore)
  wallet import              Import a wallet from mnemonic or private key
  wallet address             Show the wallet address
  wallet balance             Show confirmed/unconfirmed balance
  contact add <id> <pubkey>  Add a messaging contact
  contact list               List contacts
  contact rename <id> <name> Rename a contact
  contact remove <id>        Remove a contact
  msg send <id> <text>       Encrypt and send a message
  msg scan                   Scan chain history for messages
  msg threads                Show messages grouped by conversation
  msg redecrypt              Retry undecryptable messages against metadata
  inscribe text <text>       Inscribe a text payload
  inscribe file <path>       Inscribe a file (content type from extension)
  inscribe profile <json>    Inscribe a profile document
  inscriptions               List discovered inscriptions
  utxo list                  List spendable outputs
  ledger export <file>       Export the invoice ledger backup
  ledger import <file>       Import an invoice ledger backup
  ledger cleanup             Remove expired invoice records

Core Options:
  --network       Network type: mainnet (default) or testnet
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.hushtx)
  --config, -c    Config file path (default: <datadir>/hushtx.conf)

Explorer Options:
  --explorer-url     Chain data explorer base URL
  --explorer-apikey  Explorer API key
  --history-limit    History fetch cap per scan (0 = full history)

Broadcast Options:
  --broadcast-url    Transaction broadcast endpoint URL

Fee Options:
  --fee-rate      Fee rate in satoshis per kilobyte (default: 1)

Storage Options:
  --storage       Backend: badger (default), redis, or memory
  --redis-addr    Redis address (with --storage=redis)

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Examples:
  # Create a wallet
  hushtx wallet create

  # Send an encrypted message
  hushtx msg send alice "meet at noon"

  # Scan testnet history with a bounded fetch
  hushtx --testnet --history-limit=200 msg scan
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	// Handle help/version
	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("hushtx version 0.1.0")
		os.Exit(0)
	}

	// Determine network first (needed for defaults)
	network := Mainnet
	if strings.ToLower(flags.Network) == "testnet" {
		network = Testnet
	}

	cfg := Default(network)

	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	// Auto-create data directories and default config on first start.
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Apply flags (highest precedence)
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Idempotent.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.StoreDir(),
		cfg.KeystoreDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
