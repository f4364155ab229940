// Package client is a Go client of the rui JSON-RPC API.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/vocdoni/rui-backend/api"
	"github.com/vocdoni/rui-backend/log"
	"github.com/vocdoni/rui-backend/storage"
	"github.com/vocdoni/rui-backend/types"
)

const (
	errCodeNot200 = "API error"

	// DefaultRetries is the number of attempts of the ping performed on
	// connect, so the client can wait for a server that is starting.
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client. Answers
	// wait for a proof, so it is larger than a plain HTTP timeout.
	DefaultTimeout = 2 * time.Minute
)

// Client is the rui API client.
type Client struct {
	c       *http.Client
	host    *url.URL
	retries int
	rpc     *gethrpc.Client
}

// New connects to the API host, checks it is alive and returns the handle.
func New(ctx context.Context, host string) (*Client, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	tr := &http.Transport{
		IdleConnTimeout:    DefaultTimeout,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	c := &Client{
		c:       &http.Client{Transport: tr, Timeout: DefaultTimeout},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	c.rpc, err = gethrpc.DialOptions(ctx, c.endpoint(api.RPCEndpoint), gethrpc.WithHTTPClient(c.c))
	if err != nil {
		return nil, fmt.Errorf("cannot create rpc client: %w", err)
	}
	return c, nil
}

// SetRetries configures the number of ping attempts.
func (c *Client) SetRetries(n int) {
	c.retries = n
}

// Close closes the rpc client.
func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *Client) endpoint(urlPath string) string {
	u := *c.host
	u.Path = path.Join(u.Path, urlPath)
	return u.String()
}

// Ping checks the API is up, retrying while the connection fails.
func (c *Client) Ping(ctx context.Context) error {
	var (
		resp *http.Response
		err  error
	)
	for i := 1; i <= max(c.retries, 1); i++ {
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(api.PingEndpoint), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err = c.c.Do(req)
		if err == nil {
			break
		}
		log.Warnw("http request failed", "error", err.Error(), "attempt", i, "retries", c.retries)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	if err != nil {
		return fmt.Errorf("http request ultimately failed after retries: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, resp.StatusCode, data)
	}
	return nil
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	return c.rpc.CallContext(ctx, result, api.Namespace+"_"+method, args...)
}

// AddMember registers the decimal identity commitment and returns the
// transaction digest.
func (c *Client) AddMember(ctx context.Context, commitment string) (string, error) {
	var digest string
	err := c.call(ctx, &digest, "addMember", api.AddMemberRequest{IdentityCommitment: commitment})
	return digest, err
}

// AddAnswer submits an answer and returns the transaction digest.
func (c *Client) AddAnswer(ctx context.Context, req *api.AddAnswerRequest) (string, error) {
	var digest string
	err := c.call(ctx, &digest, "addAnswer", req)
	return digest, err
}

// Receipt returns the journaled receipt of a digest.
func (c *Client) Receipt(ctx context.Context, digest string) (*storage.Receipt, error) {
	r := &storage.Receipt{}
	if err := c.call(ctx, r, "receipt", digest); err != nil {
		return nil, err
	}
	return r, nil
}

// VerifyingKey returns the ark encoded verifying key of the circuit.
func (c *Client) VerifyingKey(ctx context.Context) (types.HexBytes, error) {
	var vk types.HexBytes
	err := c.call(ctx, &vk, "verifyingKey")
	return vk, err
}

// ErrorCode returns the code of a JSON-RPC error returned by the API, or 0
// if err is not one.
func ErrorCode(err error) int {
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}
