package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vocdoni/rui-backend/board"
	"github.com/vocdoni/rui-backend/log"
	"github.com/vocdoni/rui-backend/storage"
	"github.com/vocdoni/rui-backend/types"
)

// Namespace of the JSON-RPC methods: rui_addMember, rui_addAnswer,
// rui_receipt and rui_verifyingKey.
const Namespace = "rui"

// Board runs the requests of the JSON-RPC methods. It is implemented by
// board.Pipeline.
type Board interface {
	AddMember(ctx context.Context, commitment string) (string, error)
	AddAnswer(ctx context.Context, req *board.AnswerRequest) (string, error)
	Receipt(digest string) (*storage.Receipt, error)
}

// VerifyingKeySource returns the encoded verifying key the proofs are
// checked with. It is implemented by membership.Engine.
type VerifyingKeySource interface {
	VerifyingKey(ctx context.Context) (types.HexBytes, error)
}

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	// Address to listen on, host:port. Port 0 picks a free port.
	Address string
	Board   Board
	// Keys is optional, without it rui_verifyingKey is not available.
	Keys VerifyingKeySource
}

// API type represents the JSON-RPC server of the backend.
type API struct {
	router *chi.Mux
	rpc    *gethrpc.Server
	board  Board
	keys   VerifyingKeySource
	addr   string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new API instance with the given configuration. Call Start
// to serve it.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Board == nil {
		return nil, fmt.Errorf("missing board instance")
	}
	a := &API{
		board: conf.Board,
		keys:  conf.Keys,
		addr:  conf.Address,
		rpc:   gethrpc.NewServer(),
	}
	if err := a.rpc.RegisterName(Namespace, &ruiService{api: a}); err != nil {
		return nil, fmt.Errorf("cannot register rpc service: %w", err)
	}
	a.initRouter()
	return a, nil
}

// Start listens on the configured address and serves the API in the
// background.
func (a *API) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return fmt.Errorf("api already started")
	}
	listener, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.addr, err)
	}
	a.listener = listener
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infow("starting API server", "address", listener.Addr().String())
	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "API server stopped")
		}
	}(a.server)
	return nil
}

// Addr returns the address the API listens on, once started.
func (a *API) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return a.addr
	}
	return a.listener.Addr().String()
}

// Stop shuts the HTTP server down, waiting for the requests in flight until
// ctx is done.
func (a *API) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return nil
	}
	err := a.server.Shutdown(ctx)
	a.server, a.listener = nil, nil
	return err
}

// Close stops the JSON-RPC server. The API cannot be started again.
func (a *API) Close() {
	a.rpc.Stop()
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Method(http.MethodGet, MetricsEndpoint, promhttp.Handler())
	log.Infow("register handler", "endpoint", RPCEndpoint, "method", "POST")
	a.router.With(checkJSONBody).Post(RPCEndpoint, a.rpc.ServeHTTP)

	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.Withf("%s %s", r.Method, r.URL.Path).Write(w)
	})
	a.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrMethodNotAllowed.With(r.Method).Write(w)
	})
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	// proving and waiting for local execution can take a while
	a.router.Use(middleware.Timeout(2 * time.Minute))

	// Register the API handlers
	a.registerHandlers()
}
