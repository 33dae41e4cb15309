package sources

import (
	"time"

	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/format"
	"github.com/tarancss/soldash/lib/schema"
)

// topPools is the number of pools shown.
const topPools = 15

const poolsSchema = `{
	"type": "object",
	"required": ["data"],
	"properties": {
		"data": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["pool", "project", "chain", "symbol"],
				"properties": {
					"pool": {"type": "string"},
					"project": {"type": "string"},
					"chain": {"type": "string"},
					"symbol": {"type": "string"},
					"tvlUsd": {"type": ["number", "null"]},
					"apy": {"type": ["number", "null"]}
				}
			}
		}
	}
}`

// Pool is a yield pool, TVL and APY are null when the aggregator has no figure.
type Pool struct {
	Pool    string   `json:"pool"`
	Project string   `json:"project"`
	Chain   string   `json:"chain"`
	Symbol  string   `json:"symbol"`
	TVLUsd  *float64 `json:"tvlUsd"`
	APY     *float64 `json:"apy"`
}

var pools = schema.MustCompile(Yields, poolsSchema)

// YieldsSource lists the Solana pools with the largest TVL.
var YieldsSource = &Def[[]Pool]{
	id:       Yields,
	title:    "Top Yield Pools",
	defaults: Settings{Refresh: 5 * time.Minute, Fresh: 5 * time.Minute},
	endpoint: func(env *Env) fetch.Endpoint {
		return fetch.URL{Client: env.HTTP, URI: env.Yields + "/pools"}
	},
	transform: TopPools,
	view:      poolsView,
}

// TopPools keeps the Solana pools of a /pools response and returns the top ones by TVL, a null TVL counts as zero.
func TopPools(raw []byte) ([]Pool, error) {
	var r struct {
		Data []Pool `json:"data"`
	}

	if err := pools.Decode(raw, &r); err != nil {
		return nil, err
	}

	sol := FilterChain(r.Data, Solana, func(p Pool) string { return p.Chain })

	return TopBy(sol, topPools, func(p Pool) float64 { return orZero(p.TVLUsd) }), nil
}

type poolView struct {
	Rank    int    `json:"rank"`
	Project string `json:"project"`
	Symbol  string `json:"symbol"`
	TVL     string `json:"tvl"`
	APY     string `json:"apy"`
}

func poolsView(_ *Env, ps []Pool) interface{} {
	v := make([]poolView, 0, len(ps))
	for i, p := range ps {
		v = append(v, poolView{
			Rank:    i + 1,
			Project: p.Project,
			Symbol:  p.Symbol,
			TVL:     format.USDPtr(p.TVLUsd),
			APY:     format.Percent(p.APY),
		})
	}

	return v
}
