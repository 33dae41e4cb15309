package sources

import (
	"net/url"
	"strings"
	"time"

	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/format"
	"github.com/tarancss/soldash/lib/schema"
)

const marketsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "symbol", "name", "current_price"],
		"properties": {
			"id": {"type": "string"},
			"symbol": {"type": "string"},
			"name": {"type": "string"},
			"image": {"type": ["string", "null"]},
			"current_price": {"type": ["number", "null"]},
			"market_cap": {"type": ["number", "null"]},
			"total_volume": {"type": ["number", "null"]},
			"price_change_percentage_24h": {"type": ["number", "null"]}
		}
	}
}`

// Token holds the market data of an ecosystem token, prices in USD.
type Token struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Image     string   `json:"image"`
	Price     float64  `json:"price"`
	MarketCap float64  `json:"marketCap"`
	Volume    float64  `json:"volume"`
	Change24h *float64 `json:"change24h"`
}

type marketsEntry struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Image     *string  `json:"image"`
	Price     *float64 `json:"current_price"`
	MarketCap *float64 `json:"market_cap"`
	Volume    *float64 `json:"total_volume"`
	Change24h *float64 `json:"price_change_percentage_24h"`
}

var markets = schema.MustCompile(Tokens, marketsSchema)

// TokensSource lists the largest tokens of the Solana ecosystem by market cap.
var TokensSource = &Def[[]Token]{
	id:       Tokens,
	title:    "Token Metrics",
	defaults: Settings{Refresh: 5 * time.Minute, Fresh: 5 * time.Minute},
	endpoint: func(env *Env) fetch.Endpoint {
		q := url.Values{}
		q.Set("vs_currency", "usd")
		q.Set("order", "market_cap_desc")
		q.Set("per_page", "10")
		q.Set("page", "1")
		q.Set("sparkline", "false")
		q.Set("category", "solana-ecosystem")

		return fetch.URL{Client: env.HTTP, URI: env.Price + "/coins/markets?" + q.Encode()}
	},
	transform: TokenMetrics,
	view:      tokensView,
}

// TokenMetrics flattens a /coins/markets response. The upstream order, by market cap, is kept.
func TokenMetrics(raw []byte) ([]Token, error) {
	var all []marketsEntry
	if err := markets.Decode(raw, &all); err != nil {
		return nil, err
	}

	res := make([]Token, 0, len(all))
	for _, m := range all {
		res = append(res, Token{
			ID:        m.ID,
			Symbol:    m.Symbol,
			Name:      m.Name,
			Image:     str(m.Image),
			Price:     orZero(m.Price),
			MarketCap: orZero(m.MarketCap),
			Volume:    orZero(m.Volume),
			Change24h: m.Change24h,
		})
	}

	return res, nil
}

type tokenView struct {
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Image     string `json:"image,omitempty"`
	Price     string `json:"price"`
	Change    string `json:"change"`
	Up        bool   `json:"up"`
	MarketCap string `json:"marketCap"`
}

func tokensView(_ *Env, ts []Token) interface{} {
	v := make([]tokenView, 0, len(ts))
	for _, t := range ts {
		tv := tokenView{
			Name:      t.Name,
			Symbol:    strings.ToUpper(t.Symbol),
			Image:     t.Image,
			Price:     format.Price(t.Price),
			Change:    format.NA,
			MarketCap: "MCap: " + format.Millions(t.MarketCap),
		}

		if t.Change24h != nil {
			tv.Change = format.Change(*t.Change24h)
			tv.Up = *t.Change24h >= 0
		}

		v = append(v, tv)
	}

	return v
}
