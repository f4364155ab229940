// Package rpc contains the Pool struct, a pool of Sui JSON-RPC endpoints
// grouped by the chain identifier they report. Calls are balanced between the
// available endpoints of a chain; an endpoint failing at the transport level
// is flagged as unavailable and the call moves to the next one. If every
// endpoint of a chain fails, the pool resets the available flags and starts
// again.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/vocdoni/rui-backend/log"
)

const (
	// DefaultMaxClientRetries is the default number of retries to connect to
	// an endpoint.
	DefaultMaxClientRetries = 5
	// checkEndpointsTimeout is the timeout to check a new endpoint.
	checkEndpointsTimeout = time.Second * 10
	// chainIdentifierMethod returns the identifier of the chain served by a
	// node.
	chainIdentifierMethod = "sui_getChainIdentifier"
)

// Endpoint is a JSON-RPC endpoint of a chain.
type Endpoint struct {
	ChainID string `json:"chainId"`
	URI     string `json:"uri"`
	client  *gethrpc.Client
}

// Pool contains the endpoints of every known chain, keyed by chain
// identifier.
type Pool struct {
	mu        sync.RWMutex
	endpoints map[string]*endpointIterator
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{endpoints: make(map[string]*endpointIterator)}
}

// AddEndpoint dials the URI provided, asks for its chain identifier and adds
// it to the pool. It returns the chain identifier.
func (p *Pool) AddEndpoint(uri string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkEndpointsTimeout)
	defer cancel()
	client, err := connect(ctx, uri)
	if err != nil {
		return "", err
	}
	var chainID string
	if err := client.CallContext(ctx, &chainID, chainIdentifierMethod); err != nil {
		client.Close()
		return "", fmt.Errorf("error getting the chain identifier from '%s': %w", uri, err)
	}
	endpoint := &Endpoint{ChainID: chainID, URI: uri, client: client}
	p.mu.Lock()
	defer p.mu.Unlock()
	if iter, ok := p.endpoints[chainID]; ok {
		iter.Add(endpoint)
	} else {
		p.endpoints[chainID] = newEndpointIterator(endpoint)
	}
	log.Infow("rpc endpoint added", "chainID", chainID, "uri", uri)
	return chainID, nil
}

// DisableEndpoint flags the URI as unavailable for the chain provided.
func (p *Pool) DisableEndpoint(chainID, uri string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if iter, ok := p.endpoints[chainID]; ok {
		iter.Disable(uri)
	}
}

// Endpoint returns the next available endpoint of the chain.
func (p *Pool) Endpoint(chainID string) (*Endpoint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if iter, ok := p.endpoints[chainID]; ok {
		return iter.Next()
	}
	return nil, fmt.Errorf("no endpoint found for chain %s", chainID)
}

// NumberOfEndpoints returns the total number (or just the available ones) of
// endpoints of the chain.
func (p *Pool) NumberOfEndpoints(chainID string, onlyAvailable bool) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if iter, ok := p.endpoints[chainID]; ok {
		n := iter.Available()
		if !onlyAvailable {
			n += iter.Disabled()
		}
		return n
	}
	return 0
}

// Client returns a client bound to the chain provided.
func (p *Pool) Client(chainID string) (*Client, error) {
	if _, err := p.Endpoint(chainID); err != nil {
		return nil, fmt.Errorf("error getting endpoint for chain %s: %w", chainID, err)
	}
	return &Client{pool: p, chainID: chainID}, nil
}

// Close closes every endpoint client.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, iter := range p.endpoints {
		iter.Close()
	}
	p.endpoints = make(map[string]*endpointIterator)
}

// connect returns a new client for the URI provided. It retries to connect up
// to DefaultMaxClientRetries times.
func connect(ctx context.Context, uri string) (client *gethrpc.Client, err error) {
	for i := 0; i < DefaultMaxClientRetries; i++ {
		if client, err = gethrpc.DialContext(ctx, uri); err != nil {
			continue
		}
		return
	}
	return nil, fmt.Errorf("error dialing rpc endpoint '%s': %w", uri, err)
}

// Client performs calls against the endpoints of a chain.
type Client struct {
	pool    *Pool
	chainID string
}

// ChainID returns the chain identifier of the client.
func (c *Client) ChainID() string {
	return c.chainID
}

// Call performs the JSON-RPC call on the next available endpoint. If the
// endpoint fails at the transport level it is disabled and the call is
// retried with the next one, up to the number of endpoints of the chain.
// Errors returned by the node are not retried.
func (c *Client) Call(ctx context.Context, result any, method string, args ...any) error {
	attempts := c.pool.NumberOfEndpoints(c.chainID, false)
	var lastErr error
	for i := 0; i < max(1, attempts); i++ {
		endpoint, err := c.pool.Endpoint(c.chainID)
		if err != nil {
			return err
		}
		err = endpoint.client.CallContext(ctx, result, method, args...)
		if err == nil || IsServerError(err) || ctx.Err() != nil {
			return err
		}
		log.Warnw("rpc endpoint failed, disabling it", "uri", endpoint.URI, "method", method, "error", err)
		c.pool.DisableEndpoint(c.chainID, endpoint.URI)
		lastErr = err
	}
	return lastErr
}

// CallOnce performs the JSON-RPC call on a single endpoint, without failover.
// It is used for calls that must not be repeated, like transaction
// execution.
func (c *Client) CallOnce(ctx context.Context, result any, method string, args ...any) error {
	endpoint, err := c.pool.Endpoint(c.chainID)
	if err != nil {
		return err
	}
	return endpoint.client.CallContext(ctx, result, method, args...)
}

// IsServerError reports whether the error is a JSON-RPC error object returned
// by the node, as opposed to a transport failure.
func IsServerError(err error) bool {
	var rpcErr gethrpc.Error
	return errors.As(err, &rpcErr)
}
