// Package config loads ledgerd's configuration the way the teacher loads
// xrpld's: defaults, then a config file, then environment variables, all
// merged by viper and unmarshaled into a typed struct, scoped down to
// this domain's needs (no peer protocol, no validators file, no ledger
// history knobs).
package config

import (
	"encoding/hex"
	"fmt"

	"github.com/usageledger/ledgerd/internal/domain"
)

// Config is the complete ledgerd configuration.
type Config struct {
	// Server is the API surface (HTTP + gRPC + websocket event feed).
	Server ServerConfig `mapstructure:"server"`

	// Storage selects and configures the transaction log/snapshot backend.
	Storage StorageConfig `mapstructure:"storage"`

	// Mirror holds settings for a relational mirror. They are checked by
	// validate; no other package reads them, and no mirror is built.
	Mirror MirrorConfig `mapstructure:"mirror"`

	// GenesisFile points at a JSON genesis config (internal/genesis); if
	// empty, the node starts with no minters and no opening balances and
	// must be given authorized minters some other way before any Mint
	// transaction can be accepted.
	GenesisFile string `mapstructure:"genesis_file"`

	// Minters lists addresses authorized to submit Mint transactions,
	// used only when GenesisFile is empty.
	Minters []domain.Address `mapstructure:"minters"`

	// ReplayOnly makes `ledgerd serve` replay the log to tip and then idle
	// without accepting new transactions. In this mode no HTTP, gRPC or
	// websocket listener is started, so no read endpoints are served.
	// `ledgerd replay` does not read this field.
	ReplayOnly bool `mapstructure:"replay_only"`

	// Log configures structured logging.
	Log LogConfig `mapstructure:"log"`

	// OperatorKeys registers the public keys live signature verification
	// checks incoming transactions against, keyed by the address each key
	// signs for. Without an entry here for a given address, any
	// transaction signed by it is rejected once the node leaves replay
	// mode.
	OperatorKeys []OperatorKey `mapstructure:"operator_keys"`

	configPath string
}

// OperatorKey binds an address to the compressed secp256k1 public key that
// must have produced any signature attributed to it.
type OperatorKey struct {
	Address      domain.Address `mapstructure:"address"`
	PublicKeyHex string         `mapstructure:"public_key_hex"`
}

// ServerConfig configures the HTTP/gRPC/websocket listeners.
type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	GRPCAddr string `mapstructure:"grpc_addr"`
	WSAddr   string `mapstructure:"ws_addr"`
}

// StorageConfig selects the KV backend and where its data lives.
type StorageConfig struct {
	// Backend is one of storage.BackendPebble/LevelDB/SQLite/Postgres/Memory.
	Backend string `mapstructure:"backend"`

	// Addr is backend-specific: a directory for pebble/leveldb, a file
	// path for sqlite, a DSN for postgres, ignored for memory.
	Addr string `mapstructure:"addr"`

	// SnapshotPath is always a plain local file, regardless of Backend.
	SnapshotPath string `mapstructure:"snapshot_path"`

	// CompressionThresholdBytes enables lz4 framing on log records at or
	// above this size; zero disables compression.
	CompressionThresholdBytes int `mapstructure:"compression_threshold_bytes"`
}

// MirrorConfig holds the relational mirror settings (see Config.Mirror).
type MirrorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"` // "postgres" or "sqlite"
	DSN     string `mapstructure:"dsn"`
}

// LogConfig configures structured logging verbosity and format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// GetConfigPath returns the file a Config was loaded from, or "" if it was
// built in-process (tests, programmatic callers).
func (c *Config) GetConfigPath() string { return c.configPath }

func (c *Config) validate() error {
	if c.Storage.Backend == "" {
		return fmt.Errorf("config: storage.backend is required")
	}
	switch c.Storage.Backend {
	case "pebble", "leveldb", "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Addr == "" {
		return fmt.Errorf("config: storage.addr is required for backend %q", c.Storage.Backend)
	}
	if c.Storage.SnapshotPath == "" {
		return fmt.Errorf("config: storage.snapshot_path is required")
	}
	if c.Mirror.Enabled {
		switch c.Mirror.Backend {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("config: unknown mirror.backend %q", c.Mirror.Backend)
		}
		if c.Mirror.DSN == "" {
			return fmt.Errorf("config: mirror.dsn is required when mirror.enabled is true")
		}
	}
	if !c.ReplayOnly {
		if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
			return fmt.Errorf("config: server.http_addr or server.grpc_addr is required unless replay_only")
		}
	}
	for _, ok := range c.OperatorKeys {
		if ok.Address == "" || ok.PublicKeyHex == "" {
			return fmt.Errorf("config: operator_keys entries require address and public_key_hex")
		}
		if _, err := hex.DecodeString(ok.PublicKeyHex); err != nil {
			return fmt.Errorf("config: operator_keys[%s].public_key_hex: %w", ok.Address, err)
		}
	}
	return nil
}
