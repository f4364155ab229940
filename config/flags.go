package config

import (
	"time"

	flag "github.com/spf13/pflag"
)

// Flags registers command line flags for the configuration values. Only the
// flags set on the command line override the loaded configuration.
type Flags struct {
	fs     *flag.FlagSet
	values *Config
	apply  map[string]func(dst *Config)
}

// NewFlags registers the configuration flags in fs, with the defaults of
// Default.
func NewFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, values: Default(), apply: make(map[string]func(*Config))}
	v := f.values

	fs.StringVar(&v.Address, "address", v.Address, "JSON-RPC listen address")
	bind(f, "address", func(c *Config) *string { return &c.Address })
	fs.StringVar(&v.PackageID, "package", v.PackageID, "id of the package with the semaphore and board modules")
	bind(f, "package", func(c *Config) *string { return &c.PackageID })
	fs.StringVar(&v.GroupID, "group", v.GroupID, "id of the group object")
	bind(f, "group", func(c *Config) *string { return &c.GroupID })
	fs.StringVar(&v.KeystorePathRelative, "keystore", v.KeystorePathRelative, "keystore file, relative to the home directory")
	bind(f, "keystore", func(c *Config) *string { return &c.KeystorePathRelative })
	fs.StringVar(&v.AnswerMode, "answerMode", v.AnswerMode, "answer submission mode: gated or ungated")
	bind(f, "answerMode", func(c *Config) *string { return &c.AnswerMode })
	fs.StringVar(&v.CommitmentEncoding, "commitmentEncoding", v.CommitmentEncoding, "group member encoding: decimal or bytes")
	bind(f, "commitmentEncoding", func(c *Config) *string { return &c.CommitmentEncoding })

	fs.StringSliceVar(&v.Ledger.Endpoints, "rpc", v.Ledger.Endpoints, "Sui JSON-RPC endpoints")
	bind(f, "rpc", func(c *Config) *[]string { return &c.Ledger.Endpoints })
	fs.Uint64Var(&v.Ledger.GasBudget, "gasBudget", v.Ledger.GasBudget, "gas budget of the transactions")
	bind(f, "gasBudget", func(c *Config) *uint64 { return &c.Ledger.GasBudget })
	fs.Uint64Var(&v.Ledger.GasPrice, "gasPrice", v.Ledger.GasPrice, "gas price, 0 for the reference gas price")
	bind(f, "gasPrice", func(c *Config) *uint64 { return &c.Ledger.GasPrice })
	fs.DurationVar((*time.Duration)(&v.Ledger.QueryTimeout), "queryTimeout", time.Duration(v.Ledger.QueryTimeout), "timeout of the ledger queries")
	bind(f, "queryTimeout", func(c *Config) *Duration { return &c.Ledger.QueryTimeout })

	fs.IntVar(&v.Prover.Workers, "proverWorkers", v.Prover.Workers, "number of proving workers, 0 for half the CPUs")
	bind(f, "proverWorkers", func(c *Config) *int { return &c.Prover.Workers })
	fs.BoolVar(&v.Prover.PerRequestSetup, "perRequestSetup", v.Prover.PerRequestSetup, "generate fresh keys for every proof")
	bind(f, "perRequestSetup", func(c *Config) *bool { return &c.Prover.PerRequestSetup })
	fs.StringVar(&v.Prover.ArtifactsDir, "artifactsDir", v.Prover.ArtifactsDir, "circuit artifacts cache directory")
	bind(f, "artifactsDir", func(c *Config) *string { return &c.Prover.ArtifactsDir })

	fs.StringVar(&v.Journal.Dir, "journalDir", v.Journal.Dir, "receipt journal directory, empty for memory")
	bind(f, "journalDir", func(c *Config) *string { return &c.Journal.Dir })
	fs.StringVar(&v.Log.Level, "logLevel", v.Log.Level, "log level: debug, info, warn or error")
	bind(f, "logLevel", func(c *Config) *string { return &c.Log.Level })
	fs.StringVar(&v.Log.Output, "logOutput", v.Log.Output, "log output: stdout, stderr or a file path")
	bind(f, "logOutput", func(c *Config) *string { return &c.Log.Output })
	return f
}

func bind[T any](f *Flags, name string, field func(*Config) *T) {
	f.apply[name] = func(dst *Config) { *field(dst) = *field(f.values) }
}

// Apply overrides cfg with the flags set on the command line.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		if apply, ok := f.apply[fl.Name]; ok {
			apply(cfg)
		}
	})
}
