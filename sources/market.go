package sources

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/format"
	"github.com/tarancss/soldash/lib/schema"
)

// market data and the 24h price chart of SOL, joined by the endpoint as {"coin": ..., "chart": ...}
const marketSchema = `{
	"type": "object",
	"required": ["coin", "chart"],
	"properties": {
		"coin": {
			"type": "object",
			"required": ["market_data"],
			"properties": {
				"market_data": {
					"type": "object",
					"required": ["current_price", "market_cap", "total_volume", "price_change_percentage_24h"],
					"properties": {
						"current_price": {"$ref": "#/$defs/usd"},
						"market_cap": {"$ref": "#/$defs/usd"},
						"total_volume": {"$ref": "#/$defs/usd"},
						"price_change_percentage_24h": {"type": "number"}
					}
				}
			}
		},
		"chart": {
			"type": "object",
			"required": ["prices"],
			"properties": {
				"prices": {
					"type": "array",
					"items": {"type": "array", "prefixItems": [{"type": "number"}, {"type": "number"}], "minItems": 2}
				}
			}
		}
	},
	"$defs": {
		"usd": {"type": "object", "required": ["usd"], "properties": {"usd": {"type": "number"}}}
	}
}`

// MarketData is the SOL market overview, amounts in USD.
type MarketData struct {
	Price     float64      `json:"price"`
	Change24h float64      `json:"change24h"`
	MarketCap float64      `json:"marketCap"`
	Volume24h float64      `json:"volume24h"`
	Series    []PricePoint `json:"series"`
}

// PricePoint is a point of the price chart, Time in unix milliseconds.
type PricePoint struct {
	Time  int64   `json:"time"`
	Price float64 `json:"price"`
}

type marketRaw struct {
	Coin  json.RawMessage `json:"coin"`
	Chart json.RawMessage `json:"chart"`
}

type usd struct {
	USD float64 `json:"usd"`
}

type coinResponse struct {
	MarketData struct {
		CurrentPrice usd     `json:"current_price"`
		MarketCap    usd     `json:"market_cap"`
		TotalVolume  usd     `json:"total_volume"`
		Change24h    float64 `json:"price_change_percentage_24h"`
	} `json:"market_data"`
}

type chartResponse struct {
	Prices [][]float64 `json:"prices"`
}

var marketDoc = schema.MustCompile(Market, marketSchema)

// MarketSource shows the price, market cap and 24h chart of SOL.
var MarketSource = &Def[MarketData]{
	id:        Market,
	title:     "Solana Market",
	defaults:  Settings{Refresh: 5 * time.Minute, Fresh: 5 * time.Minute},
	endpoint:  marketEndpoint,
	transform: Overview,
	view:      marketView,
}

// marketEndpoint requests the coin and its chart concurrently, both must succeed.
func marketEndpoint(env *Env) fetch.Endpoint {
	coin := env.Price + "/coins/solana?localization=false&tickers=false&market_data=true&community_data=false" +
		"&developer_data=false&sparkline=false"
	chart := env.Price + "/coins/solana/market_chart?vs_currency=usd&days=1"

	return fetch.EndpointFunc(func(ctx context.Context) ([]byte, error) {
		var raw marketRaw

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			raw.Coin, err = env.HTTP.Get(ctx, coin)

			return
		})
		g.Go(func() (err error) {
			raw.Chart, err = env.HTTP.Get(ctx, chart)

			return
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}

		return json.Marshal(raw)
	})
}

// Overview transforms the joined coin and chart responses.
func Overview(raw []byte) (MarketData, error) {
	var m MarketData

	if err := marketDoc.Validate(raw); err != nil {
		return m, err
	}

	var r marketRaw
	if err := json.Unmarshal(raw, &r); err != nil {
		return m, &fetch.TransformError{Source: Market, Err: err}
	}

	var (
		coin  coinResponse
		chart chartResponse
	)

	if err := json.Unmarshal(r.Coin, &coin); err != nil {
		return m, &fetch.TransformError{Source: Market, Err: err}
	}

	if err := json.Unmarshal(r.Chart, &chart); err != nil {
		return m, &fetch.TransformError{Source: Market, Err: err}
	}

	m.Price = coin.MarketData.CurrentPrice.USD
	m.Change24h = coin.MarketData.Change24h
	m.MarketCap = coin.MarketData.MarketCap.USD
	m.Volume24h = coin.MarketData.TotalVolume.USD

	m.Series = make([]PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		m.Series = append(m.Series, PricePoint{Time: int64(p[0]), Price: p[1]})
	}

	return m, nil
}

type marketPanel struct {
	Price     string       `json:"price"`
	Change    string       `json:"change"`
	Up        bool         `json:"up"`
	MarketCap string       `json:"marketCap"`
	Volume    string       `json:"volume24h"`
	Labels    []string     `json:"labels"`
	Series    []PricePoint `json:"series"`
}

func marketView(_ *Env, m MarketData) interface{} {
	v := marketPanel{
		Price:     format.Price(m.Price),
		Change:    format.Change(m.Change24h),
		Up:        m.Change24h >= 0,
		MarketCap: format.Compact(m.MarketCap),
		Volume:    format.Compact(m.Volume24h),
		Labels:    make([]string, 0, len(m.Series)),
		Series:    m.Series,
	}

	for _, p := range m.Series {
		v.Labels = append(v.Labels, time.UnixMilli(p.Time).UTC().Format("15:04"))
	}

	return v
}
