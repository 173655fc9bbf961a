package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/seritalien/vauban-rpc/internal/jsonrpc"
)

// Client talks to the upstream chain RPC node over HTTP.
// Failures are surfaced immediately: there is no retry, no backoff and
// no circuit breaker. Retry policy, if desired, belongs to the caller.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Config for creating a new Client
type Config struct {
	Name           string
	RPCURL         string
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// NewClient creates a new upstream Client
func NewClient(cfg Config) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}

	return &Client{
		rpcURL:     cfg.RPCURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("upstream", cfg.Name).Logger(),
	}
}

// Execute sends a JSON-RPC request and returns the parsed response
func (c *Client) Execute(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	reqBytes, err := req.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.post(ctx, reqBytes)
	if err != nil {
		return nil, err
	}

	rpcResp, err := jsonrpc.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return rpcResp, nil
}

// ExecuteBatch sends a batch of JSON-RPC requests in a single HTTP call
func (c *Client) ExecuteBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
	reqBytes, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	body, err := c.post(ctx, reqBytes)
	if err != nil {
		return nil, err
	}

	responses, _, err := jsonrpc.ParseBatchResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	return responses, nil
}

// post issues the HTTP POST and returns the raw response body.
// Non-2xx statuses are not failures by themselves: nodes report errors
// such as rate limiting with a JSON-RPC error envelope on a non-2xx
// status, and the body decides whether the call completed. Parsing
// failure, not the status code, is what surfaces as an error upstack.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Msg("non-200 upstream status")
	}

	return body, nil
}

// Close releases idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
