package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vocdoni/rui-backend/api"
	"github.com/vocdoni/rui-backend/board"
	"github.com/vocdoni/rui-backend/circuits/membership"
	"github.com/vocdoni/rui-backend/config"
	"github.com/vocdoni/rui-backend/log"
	"github.com/vocdoni/rui-backend/service"
	"github.com/vocdoni/rui-backend/storage"
	"github.com/vocdoni/rui-backend/sui"
	"github.com/vocdoni/rui-backend/sui/keystore"
	"github.com/vocdoni/rui-backend/sui/rpc"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rui JSON-RPC API",
		Args:  cobra.NoArgs,
	}
	flags := config.NewFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	}
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	// the credential is loaded once and only handed to the ledger client
	path, err := cfg.KeystorePath()
	if err != nil {
		return err
	}
	ks, err := keystore.Load(path)
	if err != nil {
		return err
	}
	signer, err := ks.First()
	if err != nil {
		return fmt.Errorf("keystore %s: %w", path, err)
	}
	log.Infow("signer loaded", "address", signer.Address().String(), "scheme", signer.Scheme().String())

	pool := rpc.NewPool()
	defer pool.Close()
	var chainID string
	for _, endpoint := range cfg.Ledger.Endpoints {
		id, err := pool.AddEndpoint(endpoint)
		if err != nil {
			log.Warnw("cannot add ledger endpoint", "uri", endpoint, "error", err.Error())
			continue
		}
		if chainID == "" {
			chainID = id
		} else if id != chainID {
			return fmt.Errorf("endpoint %s serves chain %s, expected %s", endpoint, id, chainID)
		}
	}
	if chainID == "" {
		return fmt.Errorf("no ledger endpoint available")
	}
	rpcClient, err := pool.Client(chainID)
	if err != nil {
		return err
	}
	ledger := sui.NewClient(rpcClient, signer, cfg.SuiConfig())

	journal, err := storage.Open(cfg.Journal.Dir)
	if err != nil {
		return fmt.Errorf("cannot open journal: %w", err)
	}
	defer func() {
		if err := journal.Close(); err != nil {
			log.Warnw("cannot close journal", "error", err.Error())
		}
	}()

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	mode, _ := board.ParseAnswerMode(cfg.AnswerMode)
	var prover membership.Prover
	if mode == board.AnswerGated {
		ps := service.NewProver(engine, cfg.Prover.Workers)
		if err := ps.Start(ctx); err != nil {
			return err
		}
		defer ps.Stop()
		prover = ps.Prover()
	}
	pipeline := board.NewPipeline(ledger, prover, journal, board.Config{
		Package:    cfg.Package(),
		Group:      cfg.Group(),
		AnswerMode: mode,
	})

	apiService := service.NewAPI(&api.APIConfig{
		Address: cfg.Address,
		Board:   pipeline,
		Keys:    engine,
	})
	if err := apiService.Start(ctx); err != nil {
		return err
	}
	defer apiService.Stop()
	log.Infow("rui backend ready",
		"address", apiService.Addr(),
		"chainID", chainID,
		"package", cfg.Package().String(),
		"group", cfg.Group().String(),
		"answerMode", string(mode))

	<-ctx.Done()
	log.Infow("shutting down")
	return nil
}

// newEngine returns the proving engine: keys from the artifact cache when
// their hashes are configured, a fresh setup per proof when requested, and a
// shared lazy setup otherwise.
func newEngine(cfg *config.Config) (*membership.Engine, error) {
	var opts []membership.Option
	artifacts, err := cfg.Artifacts()
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.Prover.PerRequestSetup:
		log.Warnw("generating new keys for every proof, proofs only verify against the key they carry")
		opts = append(opts, membership.PerRequestSetup())
	case artifacts != nil:
		opts = append(opts, membership.WithArtifacts(artifacts))
	default:
		log.Infow("no circuit artifacts configured, keys will be generated locally on first use")
	}
	return membership.NewEngine(opts...), nil
}
