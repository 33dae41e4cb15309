// Package types common Solana RPC types.
package types

import (
	"errors"
)

// PerformanceSample is one entry of getRecentPerformanceSamples.
type PerformanceSample struct {
	Slot             uint64 `json:"slot"`
	NumTransactions  uint64 `json:"numTransactions"`
	NumSlots         uint64 `json:"numSlots"`
	SamplePeriodSecs uint64 `json:"samplePeriodSecs"`
}

// VoteAccount contains the fields of getVoteAccounts entries we care about.
type VoteAccount struct {
	VotePubkey     string `json:"votePubkey"`
	NodePubkey     string `json:"nodePubkey"`
	ActivatedStake uint64 `json:"activatedStake"`
}

// VoteAccounts is the result of getVoteAccounts.
type VoteAccounts struct {
	Current    []VoteAccount `json:"current"`
	Delinquent []VoteAccount `json:"delinquent"`
}

// Supply contains the value of getSupply, amounts in lamports.
type Supply struct {
	Total          uint64 `json:"total"`
	Circulating    uint64 `json:"circulating"`
	NonCirculating uint64 `json:"nonCirculating"`
}

// EpochInfo is the result of getEpochInfo.
type EpochInfo struct {
	AbsoluteSlot uint64 `json:"absoluteSlot"`
	BlockHeight  uint64 `json:"blockHeight"`
	Epoch        uint64 `json:"epoch"`
	SlotIndex    uint64 `json:"slotIndex"`
	SlotsInEpoch uint64 `json:"slotsInEpoch"`
}

// Signature is one entry of getSignaturesForAddress. Err is the raw transaction error, null on success.
type Signature struct {
	Signature string      `json:"signature"`
	Slot      uint64      `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// Transaction contains a simplified number of getTransaction fields.
type Transaction struct {
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Fee uint64      `json:"fee"`
		Err interface{} `json:"err"`
	} `json:"meta"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

// LamportsPerSOL converts lamports to SOL.
const LamportsPerSOL = 1_000_000_000

// Error codes.
var (
	ErrNoResult      = errors.New("rpc response does not contain a result")
	ErrNoSamples     = errors.New("rpc returned no performance samples")
	ErrZeroPeriod    = errors.New("performance sample has a zero sample period")
	ErrNoTrx         = errors.New("transaction not found")
	ErrNoTrxMeta     = errors.New("malformed transaction, field 'meta' missing")
	ErrNoAccountKeys = errors.New("malformed transaction, field 'accountKeys' empty")
)
