// Command rui-backend serves the anonymous board JSON-RPC API and manages its
// proving keys.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vocdoni/rui-backend/circuits"
	"github.com/vocdoni/rui-backend/config"
	"github.com/vocdoni/rui-backend/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "rui-backend",
	Short:         "Anonymous board backend for the Sui ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.AddCommand(newServeCmd(), newSetupCmd(), newCommitmentCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file, if any, and applies the flags set
// on the command line on top of it. It also initializes the logger and the
// artifacts cache directory.
func loadConfig(flags *config.Flags) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	flags.Apply(cfg)
	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	if cfg.Prover.ArtifactsDir != "" {
		circuits.BaseDir = cfg.Prover.ArtifactsDir
	}
	return cfg, nil
}
