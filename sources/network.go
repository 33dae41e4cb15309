package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tarancss/soldash/lib/block"
	"github.com/tarancss/soldash/lib/block/types"
	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/format"
	"github.com/tarancss/soldash/lib/schema"
)

const networkSchema = `{
	"type": "object",
	"required": ["samples", "voteAccounts", "supply", "epoch"],
	"properties": {
		"samples": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "object", "required": ["numTransactions", "samplePeriodSecs"]}
		},
		"voteAccounts": {
			"type": "object",
			"required": ["current"],
			"properties": {"current": {"type": "array"}, "delinquent": {"type": ["array", "null"]}}
		},
		"supply": {"type": "object", "required": ["total", "circulating"]},
		"epoch": {"type": "object", "required": ["epoch", "slotIndex"]}
	}
}`

// NetworkStats are the live statistics of the Solana network, supplies in lamports.
type NetworkStats struct {
	TPS                 float64 `json:"tps"`
	ActiveValidators    int     `json:"activeValidators"`
	DelinquentValidator int     `json:"delinquentValidators"`
	CirculatingSupply   uint64  `json:"circulatingSupply"`
	TotalSupply         uint64  `json:"totalSupply"`
	Epoch               uint64  `json:"epoch"`
	SlotIndex           uint64  `json:"slotIndex"`
	SlotsInEpoch        uint64  `json:"slotsInEpoch"`
}

type networkRaw struct {
	Samples      []types.PerformanceSample `json:"samples"`
	VoteAccounts types.VoteAccounts        `json:"voteAccounts"`
	Supply       types.Supply              `json:"supply"`
	Epoch        types.EpochInfo           `json:"epoch"`
}

var networkDoc = schema.MustCompile(Network, networkSchema)

// NetworkSource shows the throughput, validators, supply and epoch of the network.
var NetworkSource = &Def[NetworkStats]{
	id:        Network,
	title:     "Network Overview",
	defaults:  Settings{Refresh: time.Minute, Fresh: time.Minute},
	endpoint:  networkEndpoint,
	transform: Stats,
	view:      networkView,
}

// networkEndpoint issues the four RPC calls concurrently, they all must succeed.
func networkEndpoint(env *Env) fetch.Endpoint {
	return fetch.EndpointFunc(func(ctx context.Context) ([]byte, error) {
		var raw networkRaw

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			raw.Samples, err = env.RPC.RecentPerformanceSamples(ctx, 1)

			return
		})
		g.Go(func() (err error) {
			raw.VoteAccounts, err = env.RPC.VoteAccounts(ctx)

			return
		})
		g.Go(func() (err error) {
			raw.Supply, err = env.RPC.Supply(ctx)

			return
		})
		g.Go(func() (err error) {
			raw.Epoch, err = env.RPC.EpochInfo(ctx)

			return
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}

		return json.Marshal(raw)
	})
}

// Stats transforms the joined RPC results.
func Stats(raw []byte) (NetworkStats, error) {
	var (
		r networkRaw
		s NetworkStats
	)

	if err := networkDoc.Decode(raw, &r); err != nil {
		return s, err
	}

	tps, err := block.TPS(r.Samples)
	if err != nil {
		return s, &fetch.TransformError{Source: Network, Err: err}
	}

	if r.Supply.Circulating > r.Supply.Total {
		return s, &fetch.TransformError{Source: Network, Err: fmt.Errorf("circulating supply %d exceeds total %d",
			r.Supply.Circulating, r.Supply.Total)}
	}

	s.TPS = tps
	s.ActiveValidators = len(r.VoteAccounts.Current)
	s.DelinquentValidator = len(r.VoteAccounts.Delinquent)
	s.CirculatingSupply = r.Supply.Circulating
	s.TotalSupply = r.Supply.Total
	s.Epoch = r.Epoch.Epoch
	s.SlotIndex = r.Epoch.SlotIndex
	s.SlotsInEpoch = r.Epoch.SlotsInEpoch

	return s, nil
}

type networkPanel struct {
	TPS               string `json:"tps"`
	ActiveValidators  string `json:"activeValidators"`
	Delinquent        string `json:"delinquentValidators"`
	CirculatingSupply string `json:"circulatingSupply"`
	TotalSupply       string `json:"totalSupply"`
	Epoch             string `json:"epoch"`
	SlotHeight        string `json:"slotHeight"`
	EpochProgress     string `json:"epochProgress"`
}

func networkView(_ *Env, s NetworkStats) interface{} {
	v := networkPanel{
		TPS:               format.Count(int64(s.TPS + 0.5)),
		ActiveValidators:  format.Count(int64(s.ActiveValidators)),
		Delinquent:        format.Count(int64(s.DelinquentValidator)),
		CirculatingSupply: format.SOLCompact(s.CirculatingSupply),
		TotalSupply:       format.SOLCompact(s.TotalSupply),
		Epoch:             format.Count(int64(s.Epoch)),
		SlotHeight:        format.Count(int64(s.SlotIndex)),
		EpochProgress:     format.NA,
	}

	if s.SlotsInEpoch > 0 {
		p := float64(s.SlotIndex) / float64(s.SlotsInEpoch) * 100
		v.EpochProgress = format.Percent(&p)
	}

	return v
}
