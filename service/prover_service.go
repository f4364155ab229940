package service

import (
	"context"

	"github.com/vocdoni/rui-backend/circuits/membership"
)

// ProverService runs the membership proofs in the background on a bounded
// pool of workers.
type ProverService struct {
	pool *membership.ProverPool
}

// NewProver creates a new prover service proving with the engine provided.
// If workers is not positive membership.DefaultWorkers is used.
func NewProver(engine membership.Prover, workers int) *ProverService {
	return &ProverService{pool: membership.NewProverPool(engine, workers)}
}

// Start begins the proving workers. It returns an error if the service is
// already running.
func (ps *ProverService) Start(ctx context.Context) error {
	return ps.pool.Start(ctx)
}

// Stop halts the workers, waiting for the proofs in progress.
func (ps *ProverService) Stop() {
	ps.pool.Stop()
}

// Prover returns the pool, the prover the board pipeline submits to.
func (ps *ProverService) Prover() membership.Prover {
	return ps.pool
}
