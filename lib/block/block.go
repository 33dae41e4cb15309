// Package block implements the Solana JSON-RPC calls used by the dashboard: network performance, validators, supply,
// epoch and transaction history.
package block

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/tarancss/soldash/lib/block/types"
	"github.com/tarancss/soldash/lib/fetch"
)

// VoteProgram is the vote program address, the busiest account on the network.
const VoteProgram = "Vote111111111111111111111111111111111111111"

// request is a JSON-RPC 2.0 request.
type request struct {
	Version string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// response is a JSON-RPC 2.0 reply, Result is left raw so that each call decodes its own type.
type response struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is the error object of a JSON-RPC reply.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client is a connection to a Solana RPC node.
type Client struct {
	c    *fetch.Client
	node string
	id   uint64
}

// New returns a client for the RPC node url.
func New(c *fetch.Client, node string) *Client {
	return &Client{c: c, node: node}
}

// Node returns the RPC url.
func (b *Client) Node() string { return b.node }

// Call invokes method with params and decodes the result into res. RPC error objects and replies without result are
// reported as fetch.ResponseError.
func (b *Client) Call(ctx context.Context, method string, res interface{}, params ...interface{}) error {
	body, err := b.c.PostJSON(ctx, b.node, request{
		Version: "2.0",
		ID:      atomic.AddUint64(&b.id, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	var r response
	if err = json.Unmarshal(body, &r); err != nil {
		return &fetch.ResponseError{URL: "rpc " + method, Err: err}
	}

	if r.Error != nil {
		return &fetch.ResponseError{URL: "rpc " + method, Err: r.Error}
	}

	if len(r.Result) == 0 || string(r.Result) == "null" {
		return &fetch.ResponseError{URL: "rpc " + method, Err: types.ErrNoResult}
	}

	if err = json.Unmarshal(r.Result, res); err != nil {
		return &fetch.TransformError{Source: method, Err: err}
	}

	return nil
}

// RecentPerformanceSamples returns the last n performance samples.
func (b *Client) RecentPerformanceSamples(ctx context.Context, n int) (s []types.PerformanceSample, err error) {
	err = b.Call(ctx, "getRecentPerformanceSamples", &s, n)

	return
}

// VoteAccounts returns current and delinquent vote accounts.
func (b *Client) VoteAccounts(ctx context.Context) (v types.VoteAccounts, err error) {
	err = b.Call(ctx, "getVoteAccounts", &v)

	return
}

// Supply returns the lamport supply.
func (b *Client) Supply(ctx context.Context) (types.Supply, error) {
	var r struct {
		Value types.Supply `json:"value"`
	}

	err := b.Call(ctx, "getSupply", &r)

	return r.Value, err
}

// EpochInfo returns the current epoch.
func (b *Client) EpochInfo(ctx context.Context) (e types.EpochInfo, err error) {
	err = b.Call(ctx, "getEpochInfo", &e)

	return
}

// SignaturesForAddress returns the latest limit signatures involving address.
func (b *Client) SignaturesForAddress(ctx context.Context, address string, limit int) (s []types.Signature,
	err error) {
	err = b.Call(ctx, "getSignaturesForAddress", &s, address, map[string]int{"limit": limit})

	return
}

// Transaction returns the details of the transaction for the given signature.
func (b *Client) Transaction(ctx context.Context, signature string) (tx types.Transaction, err error) {
	err = b.Call(ctx, "getTransaction", &tx, signature,
		map[string]interface{}{"encoding": "json", "maxSupportedTransactionVersion": 0})

	return
}

// TPS returns the transactions per second of a performance sample.
func TPS(s []types.PerformanceSample) (float64, error) {
	if len(s) == 0 {
		return 0, types.ErrNoSamples
	}

	if s[0].SamplePeriodSecs == 0 {
		return 0, types.ErrZeroPeriod
	}

	return float64(s[0].NumTransactions) / float64(s[0].SamplePeriodSecs), nil
}
