package membership

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/vocdoni/rui-backend/log"
)

// Prover is implemented by Engine and ProverPool.
type Prover interface {
	Prove(ctx context.Context, w *Witness) (*Artifacts, error)
}

type proveResult struct {
	artifacts *Artifacts
	err       error
}

type proveJob struct {
	ctx     context.Context
	witness *Witness
	result  chan proveResult
}

// ProverPool runs proofs on a fixed set of worker goroutines, so CPU bound
// proving does not compete with the request handlers for the whole machine.
type ProverPool struct {
	engine  Prover
	workers int
	jobs    chan *proveJob

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DefaultWorkers returns the default number of proving workers, half of the
// available CPUs.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()/2)
}

// NewProverPool creates a pool of workers proving with the engine provided.
// If workers is not positive DefaultWorkers is used.
func NewProverPool(engine Prover, workers int) *ProverPool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &ProverPool{
		engine:  engine,
		workers: workers,
		jobs:    make(chan *proveJob),
	}
}

// Start launches the workers. They run until Stop is called or the context
// is canceled.
func (p *ProverPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return fmt.Errorf("prover pool already started")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(p.ctx)
	}
	log.Infow("prover pool started", "workers", p.workers)
	return nil
}

// Stop cancels the workers and waits for the running proofs to finish. It is
// safe to call Stop multiple times, and a stopped pool can be started again.
func (p *ProverPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
	p.ctx, p.cancel = nil, nil
	log.Infow("prover pool stopped")
}

// Prove queues the witness and waits for its proof, the context or the pool
// to be done.
func (p *ProverPool) Prove(ctx context.Context, w *Witness) (*Artifacts, error) {
	p.mu.Lock()
	poolCtx := p.ctx
	p.mu.Unlock()
	if poolCtx == nil {
		return nil, ErrPoolStopped
	}
	job := &proveJob{ctx: ctx, witness: w, result: make(chan proveResult, 1)}
	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-poolCtx.Done():
		return nil, ErrPoolStopped
	}
	select {
	case res := <-job.result:
		return res.artifacts, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *ProverPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			// the caller may have given up while the job was queued
			if err := job.ctx.Err(); err != nil {
				job.result <- proveResult{err: err}
				continue
			}
			artifacts, err := p.engine.Prove(job.ctx, job.witness)
			job.result <- proveResult{artifacts: artifacts, err: err}
		}
	}
}
