package sources

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/soldash/lib/block"
	"github.com/tarancss/soldash/lib/block/blocktest"
	"github.com/tarancss/soldash/lib/block/types"
	"github.com/tarancss/soldash/lib/fetch"
)

func rpcEnv(t *testing.T) (*blocktest.Node, *Env) {
	t.Helper()

	node := blocktest.NewNode()
	t.Cleanup(node.Close)

	c := fetch.NewClient(time.Second, 0, 0)

	return node, &Env{HTTP: c, RPC: block.New(c, node.URL), Explorer: "https://solscan.io"}
}

func networkNode(node *blocktest.Node) {
	node.Result("getRecentPerformanceSamples", []map[string]interface{}{
		{"slot": 250000000, "numTransactions": 240000, "numSlots": 150, "samplePeriodSecs": 60},
	})
	node.Result("getVoteAccounts", map[string]interface{}{
		"current":    []map[string]interface{}{{"votePubkey": "v1"}, {"votePubkey": "v2"}},
		"delinquent": []map[string]interface{}{{"votePubkey": "v3"}},
	})
	node.Result("getSupply", map[string]interface{}{
		"context": map[string]int{"slot": 1},
		"value":   map[string]uint64{"total": 580_000_000_000_000_000, "circulating": 459_234_567_000_000_000},
	})
	node.Result("getEpochInfo", map[string]uint64{"epoch": 612, "slotIndex": 108000, "slotsInEpoch": 432000})
}

func TestNetwork(t *testing.T) {
	node, env := rpcEnv(t)
	networkNode(node)

	raw, err := networkEndpoint(env).Fetch(context.Background())
	require.NoError(t, err)

	s, err := Stats(raw)
	require.NoError(t, err)
	assert.Equal(t, NetworkStats{
		TPS:                 4000,
		ActiveValidators:    2,
		DelinquentValidator: 1,
		CirculatingSupply:   459_234_567_000_000_000,
		TotalSupply:         580_000_000_000_000_000,
		Epoch:               612,
		SlotIndex:           108000,
		SlotsInEpoch:        432000,
	}, s)

	for _, m := range []string{"getRecentPerformanceSamples", "getVoteAccounts", "getSupply", "getEpochInfo"} {
		assert.Equal(t, 1, node.Calls(m), m)
	}

	v := networkView(env, s).(networkPanel)
	assert.Equal(t, networkPanel{
		TPS:               "4,000",
		ActiveValidators:  "2",
		Delinquent:        "1",
		CirculatingSupply: "459.2M SOL",
		TotalSupply:       "580.0M SOL",
		Epoch:             "612",
		SlotHeight:        "108,000",
		EpochProgress:     "25.00%",
	}, v)
}

func TestNetworkFailures(t *testing.T) {
	node, env := rpcEnv(t)
	networkNode(node)
	node.Handle("getSupply", func([]json.RawMessage) (interface{}, interface{}) {
		return nil, map[string]interface{}{"code": -32005, "message": "Node is behind"}
	})

	_, err := networkEndpoint(env).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, fetch.KindResponse, fetch.Classify(err))
	assert.Contains(t, err.Error(), "Node is behind")

	// no samples
	_, err = Stats([]byte(`{"samples":[],"voteAccounts":{"current":[]},"supply":{"total":1,"circulating":1},` +
		`"epoch":{"epoch":1,"slotIndex":1}}`))
	assert.Equal(t, fetch.KindTransform, fetch.Classify(err))

	// zero period
	_, err = Stats([]byte(`{"samples":[{"numTransactions":1,"samplePeriodSecs":0}],"voteAccounts":{"current":[]},` +
		`"supply":{"total":1,"circulating":1},"epoch":{"epoch":1,"slotIndex":1}}`))
	assert.ErrorIs(t, err, types.ErrZeroPeriod)

	// inconsistent supply
	_, err = Stats([]byte(`{"samples":[{"numTransactions":1,"samplePeriodSecs":1}],"voteAccounts":{"current":[]},` +
		`"supply":{"total":1,"circulating":2},"epoch":{"epoch":1,"slotIndex":1}}`))
	assert.Equal(t, fetch.KindTransform, fetch.Classify(err))
}

func transaction(signer string, fee uint64) map[string]interface{} {
	return map[string]interface{}{
		"slot":      250000001,
		"blockTime": 1717243200,
		"meta":      map[string]interface{}{"fee": fee, "err": nil},
		"transaction": map[string]interface{}{
			"signatures": []string{"x"},
			"message":    map[string]interface{}{"accountKeys": []string{signer, "Vote111111111111111111111111111111111111111"}},
		},
	}
}

func activityNode(node *blocktest.Node, txs map[string]interface{}) {
	node.Handle("getSignaturesForAddress", func(params []json.RawMessage) (interface{}, interface{}) {
		var addr string
		if len(params) != 2 || json.Unmarshal(params[0], &addr) != nil || addr != block.VoteProgram {
			return nil, map[string]interface{}{"code": -32602, "message": "Invalid params"}
		}

		return []map[string]interface{}{
			{"signature": "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
				"slot": 250000001, "blockTime": 1717243200, "err": nil},
			{"signature": "sig2", "slot": 250000002, "blockTime": nil, "err": map[string]int{"InstructionError": 0}},
		}, nil
	})
	node.Handle("getTransaction", func(params []json.RawMessage) (interface{}, interface{}) {
		var sig string
		if len(params) == 0 || json.Unmarshal(params[0], &sig) != nil {
			return nil, map[string]interface{}{"code": -32602, "message": "Invalid params"}
		}

		return txs[sig], nil
	})
}

func TestActivity(t *testing.T) {
	node, env := rpcEnv(t)
	activityNode(node, map[string]interface{}{
		"5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW": transaction(
			"Signer1111111111111111111111111111111111111", 5000),
		"sig2": transaction("Signer2222222222222222222222222222222222222", 10000),
	})

	raw, err := activityEndpoint(env).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, node.Calls("getTransaction"))

	txs, err := RecentTxs(raw)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "Signer1111111111111111111111111111111111111", txs[0].Signer)
	assert.Equal(t, 0.000005, txs[0].Fee)
	assert.False(t, txs[0].Failed)
	assert.True(t, txs[1].Failed)
	// block time falls back to the transaction's
	require.NotNil(t, txs[1].BlockTime)
	assert.Equal(t, int64(1717243200), *txs[1].BlockTime)

	v := activityView(env, txs).([]txView)
	assert.Equal(t, txView{
		Signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		Short:     "5VER...kQUW",
		URL:       "https://solscan.io/tx/5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		Signer:    "Sign...1111",
		SignerURL: "https://solscan.io/account/Signer1111111111111111111111111111111111111",
		Fee:       "Fee: 0.000005 SOL",
		Time:      "June 01, 2024 12:00:00 UTC",
		Status:    "Success",
	}, v[0])
	assert.Equal(t, "Failed", v[1].Status)
}

func TestActivityFailures(t *testing.T) {
	node, env := rpcEnv(t)

	// transaction not found
	activityNode(node, map[string]interface{}{
		"5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW": transaction("s", 1),
	})

	_, err := activityEndpoint(env).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNoTrx))
	assert.Equal(t, fetch.KindResponse, fetch.Classify(err))

	// no meta
	_, err = RecentTxs([]byte(`[{"signature":{"signature":"a"},"transaction":{"meta":null,` +
		`"transaction":{"message":{"accountKeys":["k"]}}}}]`))
	assert.ErrorIs(t, err, types.ErrNoTrxMeta)
	assert.Equal(t, fetch.KindTransform, fetch.Classify(err))

	// no account keys
	_, err = RecentTxs([]byte(`[{"signature":{"signature":"a"},"transaction":{"meta":{"fee":1},` +
		`"transaction":{"message":{"accountKeys":[]}}}}]`))
	assert.ErrorIs(t, err, types.ErrNoAccountKeys)

	// signatures unavailable
	before := node.Calls("getTransaction")
	node.Handle("getSignaturesForAddress", func([]json.RawMessage) (interface{}, interface{}) {
		return nil, map[string]interface{}{"code": -32000, "message": "busy"}
	})

	_, err = activityEndpoint(env).Fetch(context.Background())
	assert.Equal(t, fetch.KindResponse, fetch.Classify(err))
	assert.Equal(t, before, node.Calls("getTransaction"))
}
