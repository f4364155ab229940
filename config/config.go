// Package config holds the backend configuration, read from a TOML file and
// optionally overridden by command line flags.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/vocdoni/rui-backend/board"
	"github.com/vocdoni/rui-backend/circuits"
	"github.com/vocdoni/rui-backend/log"
	"github.com/vocdoni/rui-backend/sui"
)

const (
	DefaultAddress        = "127.0.0.1:9944"
	DefaultKeystorePath   = ".sui/sui_config/sui.keystore"
	DefaultLedgerEndpoint = "https://fullnode.testnet.sui.io:443"
)

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(data []byte) error {
	v, err := time.ParseDuration(string(data))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the backend configuration.
type Config struct {
	// Address the JSON-RPC server listens on.
	Address   string `toml:"address"`
	PackageID string `toml:"package_id"`
	GroupID   string `toml:"group_id"`
	// KeystorePathRelative is the keystore file relative to the user home
	// directory. Absolute paths are used as they are.
	KeystorePathRelative string `toml:"keystore_path_relative"`
	// AnswerMode is gated (answers carry a membership proof) or ungated.
	AnswerMode string `toml:"answer_mode"`
	// CommitmentEncoding is decimal or bytes.
	CommitmentEncoding string `toml:"commitment_encoding"`

	Ledger  LedgerConfig  `toml:"ledger"`
	Prover  ProverConfig  `toml:"prover"`
	Journal JournalConfig `toml:"journal"`
	Log     LogConfig     `toml:"log"`
}

// LedgerConfig configures the access to the Sui nodes.
type LedgerConfig struct {
	Endpoints []string `toml:"endpoints"`
	GasBudget uint64   `toml:"gas_budget"`
	// GasPrice zero means the reference gas price.
	GasPrice     uint64   `toml:"gas_price"`
	QueryTimeout Duration `toml:"query_timeout"`
}

// ProverConfig configures proof generation. When the three hashes are set
// the keys are loaded from the artifact cache, downloading them from the
// URLs if missing, instead of being generated locally.
type ProverConfig struct {
	Workers          int    `toml:"workers"`
	PerRequestSetup  bool   `toml:"per_request_setup"`
	ArtifactsDir     string `toml:"artifacts_dir"`
	CircuitHash      string `toml:"circuit_hash"`
	ProvingKeyHash   string `toml:"proving_key_hash"`
	VerifyingKeyHash string `toml:"verifying_key_hash"`
	CircuitURL       string `toml:"circuit_url"`
	ProvingKeyURL    string `toml:"proving_key_url"`
	VerifyingKeyURL  string `toml:"verifying_key_url"`
}

// JournalConfig configures the receipt journal. An empty directory keeps
// the journal in memory.
type JournalConfig struct {
	Dir string `toml:"dir"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

// Default returns the configuration used for the values missing in the
// file.
func Default() *Config {
	return &Config{
		Address:              DefaultAddress,
		KeystorePathRelative: DefaultKeystorePath,
		AnswerMode:           string(board.AnswerGated),
		CommitmentEncoding:   string(sui.CommitmentDecimal),
		Ledger: LedgerConfig{
			Endpoints:    []string{DefaultLedgerEndpoint},
			GasBudget:    sui.DefaultGasBudget,
			QueryTimeout: Duration(sui.DefaultQueryTimeout),
		},
		Log: LogConfig{
			Level:  log.LogLevelInfo,
			Output: "stdout",
		},
	}
}

// Load reads the TOML file on top of the default configuration. Unknown keys
// are an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open config: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnw("cannot close config file", "path", path, "error", err)
		}
	}()
	cfg := Default()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("invalid config %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Encode returns the TOML form of the configuration.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks the values that are parsed later on.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if _, err := sui.ParseAddress(c.PackageID); err != nil {
		return fmt.Errorf("package_id: %w", err)
	}
	if _, err := sui.ParseAddress(c.GroupID); err != nil {
		return fmt.Errorf("group_id: %w", err)
	}
	if c.KeystorePathRelative == "" {
		return fmt.Errorf("keystore_path_relative is required")
	}
	if _, err := board.ParseAnswerMode(c.AnswerMode); err != nil {
		return err
	}
	if _, err := sui.ParseCommitmentEncoding(c.CommitmentEncoding); err != nil {
		return err
	}
	if len(c.Ledger.Endpoints) == 0 {
		return fmt.Errorf("at least one ledger endpoint is required")
	}
	if c.Ledger.QueryTimeout < 0 {
		return fmt.Errorf("query_timeout cannot be negative")
	}
	if c.Prover.Workers < 0 {
		return fmt.Errorf("prover workers cannot be negative")
	}
	if _, err := c.Artifacts(); err != nil {
		return err
	}
	return nil
}

// Package returns the parsed package id.
func (c *Config) Package() sui.ObjectID {
	id, _ := sui.ParseAddress(c.PackageID)
	return id
}

// Group returns the parsed group object id.
func (c *Config) Group() sui.ObjectID {
	id, _ := sui.ParseAddress(c.GroupID)
	return id
}

// KeystorePath resolves the keystore path against the user home directory.
func (c *Config) KeystorePath() (string, error) {
	if filepath.IsAbs(c.KeystorePathRelative) {
		return c.KeystorePathRelative, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve keystore path: %w", err)
	}
	return filepath.Join(home, c.KeystorePathRelative), nil
}

// SuiConfig returns the ledger client settings.
func (c *Config) SuiConfig() sui.Config {
	enc, _ := sui.ParseCommitmentEncoding(c.CommitmentEncoding)
	return sui.Config{
		GasBudget:          c.Ledger.GasBudget,
		GasPrice:           c.Ledger.GasPrice,
		CommitmentEncoding: enc,
		QueryTimeout:       time.Duration(c.Ledger.QueryTimeout),
	}
}

// Artifacts returns the configured circuit artifacts, or nil if the keys
// are generated locally.
func (c *Config) Artifacts() (*circuits.CircuitArtifacts, error) {
	p := c.Prover
	if p.CircuitHash == "" && p.ProvingKeyHash == "" && p.VerifyingKeyHash == "" {
		return nil, nil
	}
	artifact := func(name, hexHash, url string) (*circuits.Artifact, error) {
		hash, err := hex.DecodeString(hexHash)
		if err != nil || len(hash) != 32 {
			return nil, fmt.Errorf("prover %s hash must be 32 hex encoded bytes", name)
		}
		return &circuits.Artifact{RemoteURL: url, Hash: hash}, nil
	}
	ccs, err := artifact("circuit", p.CircuitHash, p.CircuitURL)
	if err != nil {
		return nil, err
	}
	pk, err := artifact("proving key", p.ProvingKeyHash, p.ProvingKeyURL)
	if err != nil {
		return nil, err
	}
	vk, err := artifact("verifying key", p.VerifyingKeyHash, p.VerifyingKeyURL)
	if err != nil {
		return nil, err
	}
	return circuits.NewCircuitArtifacts(ccs, pk, vk), nil
}
