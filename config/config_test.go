package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	flag "github.com/spf13/pflag"
	"github.com/vocdoni/rui-backend/sui"
)

const testConfig = `
address = "0.0.0.0:9000"
package_id = "0xabc"
group_id = "0x0000000000000000000000000000000000000000000000000000000000000def"
answer_mode = "ungated"

[ledger]
endpoints = ["http://127.0.0.1:9000", "http://127.0.0.1:9001"]
gas_price = 750
query_timeout = "5s"

[prover]
workers = 2
`

func writeConfig(c *qt.C, content string) string {
	path := filepath.Join(c.TempDir(), "config.toml")
	c.Assert(os.WriteFile(path, []byte(content), 0o600), qt.IsNil)
	return path
}

func TestLoad(t *testing.T) {
	c := qt.New(t)
	cfg, err := Load(writeConfig(c, testConfig))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Validate(), qt.IsNil)

	c.Assert(cfg.Address, qt.Equals, "0.0.0.0:9000")
	c.Assert(cfg.Package(), qt.Equals, sui.MustParseAddress("0xabc"))
	c.Assert(cfg.Group(), qt.Equals, sui.MustParseAddress("0xdef"))
	c.Assert(cfg.AnswerMode, qt.Equals, "ungated")
	c.Assert(cfg.Ledger.Endpoints, qt.HasLen, 2)
	c.Assert(cfg.Prover.Workers, qt.Equals, 2)

	// values missing in the file keep their defaults
	c.Assert(cfg.CommitmentEncoding, qt.Equals, "decimal")
	c.Assert(cfg.KeystorePathRelative, qt.Equals, DefaultKeystorePath)
	c.Assert(cfg.Ledger.GasBudget, qt.Equals, uint64(sui.DefaultGasBudget))

	c.Assert(cfg.SuiConfig(), qt.DeepEquals, sui.Config{
		GasBudget:          sui.DefaultGasBudget,
		GasPrice:           750,
		CommitmentEncoding: sui.CommitmentDecimal,
		QueryTimeout:       5 * time.Second,
	})

	artifacts, err := cfg.Artifacts()
	c.Assert(err, qt.IsNil)
	c.Assert(artifacts, qt.IsNil)

	// the encoded config loads back to the same values
	encoded, err := cfg.Encode()
	c.Assert(err, qt.IsNil)
	again, err := Load(writeConfig(c, string(encoded)))
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.DeepEquals, cfg)
}

func TestLoadInvalid(t *testing.T) {
	c := qt.New(t)
	_, err := Load(filepath.Join(c.TempDir(), "missing.toml"))
	c.Assert(err, qt.ErrorMatches, "cannot open config: .*")

	_, err = Load(writeConfig(c, "address = \"x\"\nunknown_key = 1\n"))
	c.Assert(err, qt.ErrorMatches, "(?s)invalid config .*unknown_key.*")

	_, err = Load(writeConfig(c, "[ledger]\nquery_timeout = \"soon\"\n"))
	c.Assert(err, qt.ErrorMatches, "(?s)invalid config .*")
}

func TestValidate(t *testing.T) {
	c := qt.New(t)
	valid := func() *Config {
		cfg := Default()
		cfg.PackageID = "0x1"
		cfg.GroupID = "0x2"
		return cfg
	}
	c.Assert(valid().Validate(), qt.IsNil)
	c.Assert(Default().Validate(), qt.ErrorMatches, "package_id: .*")

	for name, mutate := range map[string]func(*Config){
		"empty address":     func(cfg *Config) { cfg.Address = "" },
		"bad group":         func(cfg *Config) { cfg.GroupID = "0xnope" },
		"bad answer mode":   func(cfg *Config) { cfg.AnswerMode = "maybe" },
		"bad encoding":      func(cfg *Config) { cfg.CommitmentEncoding = "hex" },
		"no endpoints":      func(cfg *Config) { cfg.Ledger.Endpoints = nil },
		"negative workers":  func(cfg *Config) { cfg.Prover.Workers = -1 },
		"partial artifacts": func(cfg *Config) { cfg.Prover.CircuitHash = "00" },
		"no keystore":       func(cfg *Config) { cfg.KeystorePathRelative = "" },
		"negative timeout":  func(cfg *Config) { cfg.Ledger.QueryTimeout = -1 },
	} {
		cfg := valid()
		mutate(cfg)
		c.Assert(cfg.Validate(), qt.Not(qt.IsNil), qt.Commentf("%s", name))
	}
}

func TestArtifacts(t *testing.T) {
	c := qt.New(t)
	cfg := Default()
	hash := "c9aa004cff03cce4a9b347b8d09f8f771ad608180dc0249354c0079243abcb50"
	cfg.Prover.CircuitHash = hash
	cfg.Prover.ProvingKeyHash = hash
	cfg.Prover.VerifyingKeyHash = hash
	cfg.Prover.ProvingKeyURL = "https://example.com/membership.pk"
	artifacts, err := cfg.Artifacts()
	c.Assert(err, qt.IsNil)
	c.Assert(artifacts, qt.Not(qt.IsNil))
}

func TestKeystorePath(t *testing.T) {
	c := qt.New(t)
	cfg := Default()
	home, err := os.UserHomeDir()
	c.Assert(err, qt.IsNil)
	path, err := cfg.KeystorePath()
	c.Assert(err, qt.IsNil)
	c.Assert(path, qt.Equals, filepath.Join(home, DefaultKeystorePath))

	cfg.KeystorePathRelative = "/etc/rui/sui.keystore"
	path, err = cfg.KeystorePath()
	c.Assert(err, qt.IsNil)
	c.Assert(path, qt.Equals, "/etc/rui/sui.keystore")
}

func TestFlagsOverride(t *testing.T) {
	c := qt.New(t)
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := NewFlags(fs)
	c.Assert(fs.Parse([]string{"--gasPrice=1000", "--rpc=http://a,http://b", "--queryTimeout=1m", "--logLevel=debug"}), qt.IsNil)

	cfg, err := Load(writeConfig(c, testConfig))
	c.Assert(err, qt.IsNil)
	flags.Apply(cfg)
	c.Assert(cfg.Ledger.GasPrice, qt.Equals, uint64(1000))
	c.Assert(cfg.Ledger.Endpoints, qt.DeepEquals, []string{"http://a", "http://b"})
	c.Assert(cfg.Ledger.QueryTimeout, qt.Equals, Duration(time.Minute))
	c.Assert(cfg.Log.Level, qt.Equals, "debug")
	// flags not set keep the file values
	c.Assert(cfg.Address, qt.Equals, "0.0.0.0:9000")
	c.Assert(cfg.Prover.Workers, qt.Equals, 2)
}
