package main

import (
	"crypto/sha256"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vocdoni/rui-backend/circuits"
	"github.com/vocdoni/rui-backend/circuits/membership"
	"github.com/vocdoni/rui-backend/config"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Generate and cache a membership key pair, printing the artifact hashes",
		Long: `Compiles the membership circuit, runs a local Groth16 setup and stores the
circuit and keys in the artifacts cache. The printed hashes go to the [prover]
section of the configuration. The setup randomness is local, the keys are
not fit for production.`,
		Args: cobra.NoArgs,
	}
	flags := config.NewFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if _, err := loadConfig(flags); err != nil {
			return err
		}
		keys, err := membership.LocalKeys()
		if err != nil {
			return err
		}
		artifacts, err := keys.Artifacts()
		if err != nil {
			return err
		}
		if err := artifacts.StoreAll(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# stored in %s\n[prover]\n", circuits.BaseDir)
		fmt.Fprintf(out, "circuit_hash = %q\n", hexHash(artifacts.CircuitDefinition()))
		fmt.Fprintf(out, "proving_key_hash = %q\n", hexHash(artifacts.ProvingKey()))
		fmt.Fprintf(out, "verifying_key_hash = %q\n", hexHash(artifacts.VerifyingKey()))
		vk, err := membership.NewEngine(membership.WithKeys(keys)).VerifyingKey(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# ark encoded verifying key\n# %s\n", vk.String())
		return nil
	}
	return cmd
}

func hexHash(content []byte) string {
	hash := sha256.Sum256(content)
	return fmt.Sprintf("%x", hash)
}

func newCommitmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commitment <secret>",
		Short: "Print the identity commitment of a decimal secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := membership.ParseScalar(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), membership.IdentityCommitment(secret).String())
			return nil
		},
	}
}
