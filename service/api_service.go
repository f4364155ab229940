package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/rui-backend/api"
	"github.com/vocdoni/rui-backend/log"
)

// shutdownTimeout bounds the wait for the requests in flight on Stop.
const shutdownTimeout = 30 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	conf *api.APIConfig
	api  *api.API
	mu   sync.Mutex
}

// NewAPI creates a new APIService instance.
func NewAPI(conf *api.APIConfig) *APIService {
	return &APIService{conf: conf}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api != nil {
		return fmt.Errorf("service already running")
	}
	a, err := api.New(as.conf)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	if err := a.Start(); err != nil {
		a.Close()
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api = a
	go func() {
		<-ctx.Done()
		as.Stop()
	}()
	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := as.api.Stop(ctx); err != nil {
		log.Warnw("API server stopped", "error", err.Error())
	}
	as.api.Close()
	as.api = nil
}

// Addr returns the address the API server listens on, or the configured one
// if it is not running.
func (as *APIService) Addr() string {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api == nil {
		return as.conf.Address
	}
	return as.api.Addr()
}
