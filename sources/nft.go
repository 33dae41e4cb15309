package sources

import (
	"strconv"
	"strings"
	"time"

	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/format"
	"github.com/tarancss/soldash/lib/schema"
)

// topCollections is the number of collections shown.
const topCollections = 10

const collectionsSchema = `{
	"type": "object",
	"required": ["result"],
	"properties": {
		"result": {
			"type": "object",
			"required": ["data"],
			"properties": {
				"data": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["name"],
						"properties": {
							"name": {"type": "string"},
							"logo": {"type": ["string", "null"]},
							"floor": {"type": ["number", "null"]},
							"floor_marketcap": {"type": ["number", "null"]},
							"floor_marketcap_pretty": {"type": ["string", "null"]},
							"on_sale": {"type": ["integer", "null"]},
							"holders": {"type": ["integer", "null"]},
							"items": {"type": ["integer", "null"]}
						}
					}
				}
			}
		}
	}
}`

// Collection is an NFT collection, the floor price in SOL.
type Collection struct {
	Name                 string  `json:"name"`
	Logo                 string  `json:"logo"`
	Floor                float64 `json:"floor"`
	FloorMarketCap       float64 `json:"floorMarketCap"`
	FloorMarketCapPretty string  `json:"floorMarketCapPretty"`
	OnSale               int64   `json:"onSale"`
	Holders              int64   `json:"holders"`
	Items                int64   `json:"items"`
}

type collectionsResponse struct {
	Result struct {
		Data []struct {
			Name                 string   `json:"name"`
			Logo                 *string  `json:"logo"`
			Floor                *float64 `json:"floor"`
			FloorMarketCap       *float64 `json:"floor_marketcap"`
			FloorMarketCapPretty *string  `json:"floor_marketcap_pretty"`
			OnSale               *int64   `json:"on_sale"`
			Holders              *int64   `json:"holders"`
			Items                *int64   `json:"items"`
		} `json:"data"`
	} `json:"result"`
}

var collections = schema.MustCompile(NFT, collectionsSchema)

// NFTSource lists the first collections of the rarity service.
var NFTSource = &Def[[]Collection]{
	id:       NFT,
	title:    "NFT Trends",
	defaults: Settings{Refresh: time.Hour, Fresh: time.Hour},
	endpoint: func(env *Env) fetch.Endpoint {
		return fetch.URL{Client: env.HTTP, URI: env.NFT + "/v0.1/collections"}
	},
	transform: Collections,
	view:      collectionsView,
}

// Collections returns the first collections of a /collections response, in upstream order.
func Collections(raw []byte) ([]Collection, error) {
	var r collectionsResponse
	if err := collections.Decode(raw, &r); err != nil {
		return nil, err
	}

	data := r.Result.Data
	if len(data) > topCollections {
		data = data[:topCollections]
	}

	res := make([]Collection, 0, len(data))
	for _, c := range data {
		res = append(res, Collection{
			Name:                 c.Name,
			Logo:                 str(c.Logo),
			Floor:                orZero(c.Floor),
			FloorMarketCap:       orZero(c.FloorMarketCap),
			FloorMarketCapPretty: str(c.FloorMarketCapPretty),
			OnSale:               count(c.OnSale),
			Holders:              count(c.Holders),
			Items:                count(c.Items),
		})
	}

	return res, nil
}

type collectionView struct {
	Name      string `json:"name"`
	Logo      string `json:"logo,omitempty"`
	Floor     string `json:"floor"`
	MarketCap string `json:"marketCap"`
	Items     string `json:"items"`
	Holders   string `json:"holders"`
	OnSale    string `json:"onSale"`
}

func collectionsView(env *Env, cs []Collection) interface{} {
	v := make([]collectionView, 0, len(cs))
	for _, c := range cs {
		cv := collectionView{
			Name:      c.Name,
			Floor:     strconv.FormatFloat(c.Floor, 'f', -1, 64) + " SOL",
			MarketCap: c.FloorMarketCapPretty,
			Items:     format.Count(c.Items),
			Holders:   format.Count(c.Holders),
			OnSale:    format.Count(c.OnSale),
		}

		if cv.MarketCap == "" {
			cv.MarketCap = format.NA
		}

		// logos are paths on the rarity service
		if c.Logo != "" {
			cv.Logo = c.Logo
			if strings.HasPrefix(c.Logo, "/") {
				cv.Logo = strings.TrimSuffix(env.NFTSite, "/") + c.Logo
			}
		}

		v = append(v, cv)
	}

	return v
}

func count(n *int64) int64 {
	if n == nil {
		return 0
	}

	return *n
}
