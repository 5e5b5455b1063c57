// Package chain is the read-only Solana boundary: a JSON-RPC client, a
// token price feed, the slash commands built on both, and the cron
// monitor that keeps a cached network snapshot warm. Nothing in this
// package constructs or signs transactions.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// LamportsPerSol is the lamport denomination of one SOL.
const LamportsPerSol = 1_000_000_000

// ClientConfig tunes a Client. Only Endpoint is required.
type ClientConfig struct {
	Endpoint   string
	Commitment string        // "processed", "confirmed", "finalized"
	Timeout    time.Duration // per-request; default 15s
	HTTPClient *http.Client  // injected in tests
}

// Client is a minimal Solana JSON-RPC client covering the read-only
// calls the skill commands need.
type Client struct {
	endpoint   string
	commitment string
	httpClient *http.Client
	reqID      uint64
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		commitment: cfg.Commitment,
		httpClient: httpClient,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call performs one JSON-RPC round trip and unmarshals the result into
// out. Transport failures, bad statuses and non-JSON bodies all come
// back as *ErrRPCUnavailable; node-side errors as *ErrRPC.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.reqID, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ErrRPCUnavailable{Endpoint: c.endpoint, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ErrRPCUnavailable{
			Endpoint: c.endpoint,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &ErrRPCUnavailable{Endpoint: c.endpoint, Cause: err}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return &ErrRPCUnavailable{
			Endpoint: c.endpoint,
			Body:     strings.TrimSpace(string(body[:min(len(body), 512)])),
		}
	}
	if rpcResp.Error != nil {
		return &ErrRPC{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

// Balance returns the lamport balance of an address.
func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	params := []any{address, map[string]string{"commitment": c.commitment}}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// SignatureInfo is one entry of a transaction history listing.
type SignatureInfo struct {
	Signature string          `json:"signature"`
	Slot      uint64          `json:"slot"`
	Err       json.RawMessage `json:"err"`
	BlockTime *int64          `json:"blockTime"`
	Memo      string          `json:"memo"`
}

// Failed reports whether the transaction errored on-chain.
func (s SignatureInfo) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// RecentSignatures lists the newest transaction signatures for an address.
func (c *Client) RecentSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	var result []SignatureInfo
	params := []any{address, map[string]any{"limit": limit, "commitment": c.commitment}}
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// PerfSample is one recent performance sample from the cluster.
type PerfSample struct {
	Slot             uint64 `json:"slot"`
	NumTransactions  uint64 `json:"numTransactions"`
	NumSlots         uint64 `json:"numSlots"`
	SamplePeriodSecs uint64 `json:"samplePeriodSecs"`
}

// TPS is the transactions-per-second rate the sample observed.
func (s PerfSample) TPS() float64 {
	if s.SamplePeriodSecs == 0 {
		return 0
	}
	return float64(s.NumTransactions) / float64(s.SamplePeriodSecs)
}

// PerformanceSamples returns the n most recent performance samples.
func (c *Client) PerformanceSamples(ctx context.Context, n int) ([]PerfSample, error) {
	if n <= 0 {
		n = 1
	}
	var result []PerfSample
	if err := c.call(ctx, "getRecentPerformanceSamples", []any{n}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Slot returns the current slot.
func (c *Client) Slot(ctx context.Context) (uint64, error) {
	var slot uint64
	params := []any{map[string]string{"commitment": c.commitment}}
	if err := c.call(ctx, "getSlot", params, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// Health reports whether the node considers itself healthy.
func (c *Client) Health(ctx context.Context) (bool, error) {
	var status string
	if err := c.call(ctx, "getHealth", nil, &status); err != nil {
		// The node answers health problems with an rpc error rather
		// than a transport failure.
		var rpcErr *ErrRPC
		if errors.As(err, &rpcErr) {
			return false, nil
		}
		return false, err
	}
	return status == "ok", nil
}

// FormatSol renders a lamport amount as a SOL string, trimming trailing
// zeros ("1.5 SOL", not "1.500000000 SOL").
func FormatSol(lamports uint64) string {
	sol := float64(lamports) / LamportsPerSol
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.9f", sol), "0"), ".")
	if s == "" {
		s = "0"
	}
	return s + " SOL"
}
