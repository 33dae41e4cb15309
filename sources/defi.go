package sources

import (
	"time"

	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/format"
	"github.com/tarancss/soldash/lib/schema"
)

// topProtocols is the number of protocols shown.
const topProtocols = 7

const protocolsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "chain"],
		"properties": {
			"name": {"type": "string"},
			"symbol": {"type": ["string", "null"]},
			"chain": {"type": "string"},
			"category": {"type": ["string", "null"]},
			"tvl": {"type": ["number", "null"]}
		}
	}
}`

// Protocol is a DeFi protocol and its total value locked in USD.
type Protocol struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Chain    string  `json:"chain"`
	Category string  `json:"category"`
	TVL      float64 `json:"tvl"`
}

// protocol is a /protocols entry, tvl may be null.
type protocol struct {
	Name     string   `json:"name"`
	Symbol   *string  `json:"symbol"`
	Chain    string   `json:"chain"`
	Category *string  `json:"category"`
	TVL      *float64 `json:"tvl"`
}

var protocols = schema.MustCompile(DeFi, protocolsSchema)

// DeFiSource lists the Solana protocols with the largest TVL.
var DeFiSource = &Def[[]Protocol]{
	id:       DeFi,
	title:    "DeFi Analytics",
	defaults: Settings{Refresh: 5 * time.Minute, Fresh: 5 * time.Minute},
	endpoint: func(env *Env) fetch.Endpoint {
		return fetch.URL{Client: env.HTTP, URI: env.DeFi + "/protocols"}
	},
	transform: TopProtocols,
	view:      protocolsView,
}

// TopProtocols keeps the Solana protocols of a /protocols response and returns the top ones by TVL.
func TopProtocols(raw []byte) ([]Protocol, error) {
	var all []protocol
	if err := protocols.Decode(raw, &all); err != nil {
		return nil, err
	}

	sol := FilterChain(all, Solana, func(p protocol) string { return p.Chain })
	top := TopBy(sol, topProtocols, func(p protocol) float64 { return orZero(p.TVL) })

	res := make([]Protocol, 0, len(top))
	for _, p := range top {
		res = append(res, Protocol{
			Name:     p.Name,
			Symbol:   str(p.Symbol),
			Chain:    p.Chain,
			Category: str(p.Category),
			TVL:      orZero(p.TVL),
		})
	}

	return res, nil
}

type protocolView struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol,omitempty"`
	Category string  `json:"category,omitempty"`
	TVL      float64 `json:"tvl"`
	TVLText  string  `json:"tvlText"`
	Axis     string  `json:"axis"`
}

func protocolsView(_ *Env, ps []Protocol) interface{} {
	v := make([]protocolView, 0, len(ps))
	for _, p := range ps {
		v = append(v, protocolView{
			Name:     p.Name,
			Symbol:   p.Symbol,
			Category: p.Category,
			TVL:      p.TVL,
			TVLText:  format.USD(p.TVL),
			Axis:     format.Compact(p.TVL),
		})
	}

	return v
}

func str(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
