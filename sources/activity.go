package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tarancss/soldash/lib/block"
	"github.com/tarancss/soldash/lib/block/types"
	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/format"
	"github.com/tarancss/soldash/lib/schema"
)

// recentTxs is the number of transactions shown.
const recentTxs = 5

const activitySchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["signature", "transaction"],
		"properties": {
			"signature": {
				"type": "object",
				"required": ["signature"],
				"properties": {"signature": {"type": "string"}, "blockTime": {"type": ["integer", "null"]}}
			},
			"transaction": {"type": "object", "required": ["transaction"]}
		}
	}
}`

// Tx is a recent transaction of the vote program, the fee in SOL.
type Tx struct {
	Signature string  `json:"signature"`
	Slot      uint64  `json:"slot"`
	BlockTime *int64  `json:"blockTime"`
	Failed    bool    `json:"failed"`
	Signer    string  `json:"signer"`
	Fee       float64 `json:"fee"`
}

// activityRaw is a signature and its transaction details.
type activityRaw struct {
	Signature   types.Signature   `json:"signature"`
	Transaction types.Transaction `json:"transaction"`
}

var activityDoc = schema.MustCompile(Activity, activitySchema)

// ActivitySource lists the latest transactions of the vote program with their signer and fee.
var ActivitySource = &Def[[]Tx]{
	id:        Activity,
	title:     "Recent Activity",
	defaults:  Settings{Refresh: 30 * time.Second, Fresh: 30 * time.Second},
	endpoint:  activityEndpoint,
	transform: RecentTxs,
	view:      activityView,
}

// activityEndpoint gets the latest signatures, then the details of every signature concurrently.
func activityEndpoint(env *Env) fetch.Endpoint {
	return fetch.EndpointFunc(func(ctx context.Context) ([]byte, error) {
		sigs, err := env.RPC.SignaturesForAddress(ctx, block.VoteProgram, recentTxs)
		if err != nil {
			return nil, err
		}

		raw := make([]activityRaw, len(sigs))

		g, ctx := errgroup.WithContext(ctx)

		for i, s := range sigs {
			raw[i].Signature = s

			g.Go(func() error {
				tx, err := env.RPC.Transaction(ctx, s.Signature)
				if errors.Is(err, types.ErrNoResult) {
					return &fetch.ResponseError{URL: "rpc getTransaction", Err: fmt.Errorf("%w: %s", types.ErrNoTrx,
						s.Signature)}
				}

				raw[i].Transaction = tx

				return err
			})
		}

		if err = g.Wait(); err != nil {
			return nil, err
		}

		return json.Marshal(raw)
	})
}

// RecentTxs transforms signatures and their details, the signer is the first account key.
func RecentTxs(raw []byte) ([]Tx, error) {
	var all []activityRaw
	if err := activityDoc.Decode(raw, &all); err != nil {
		return nil, err
	}

	res := make([]Tx, 0, len(all))

	for _, a := range all {
		t := a.Transaction
		if t.Meta == nil {
			return nil, &fetch.TransformError{Source: Activity, Err: fmt.Errorf("%w: %s", types.ErrNoTrxMeta,
				a.Signature.Signature)}
		}

		keys := t.Transaction.Message.AccountKeys
		if len(keys) == 0 {
			return nil, &fetch.TransformError{Source: Activity, Err: fmt.Errorf("%w: %s", types.ErrNoAccountKeys,
				a.Signature.Signature)}
		}

		bt := a.Signature.BlockTime
		if bt == nil {
			bt = t.BlockTime
		}

		res = append(res, Tx{
			Signature: a.Signature.Signature,
			Slot:      a.Signature.Slot,
			BlockTime: bt,
			Failed:    a.Signature.Err != nil,
			Signer:    keys[0],
			Fee:       float64(t.Meta.Fee) / types.LamportsPerSOL,
		})
	}

	return res, nil
}

type txView struct {
	Signature string `json:"signature"`
	Short     string `json:"short"`
	URL       string `json:"url"`
	Signer    string `json:"signer"`
	SignerURL string `json:"signerUrl"`
	Fee       string `json:"fee"`
	Time      string `json:"time"`
	Status    string `json:"status"`
}

func activityView(env *Env, txs []Tx) interface{} {
	v := make([]txView, 0, len(txs))
	for _, t := range txs {
		tv := txView{
			Signature: t.Signature,
			Short:     format.TruncateAddress(t.Signature),
			URL:       ExplorerURL(env.Explorer, "tx", t.Signature),
			Signer:    format.TruncateAddress(t.Signer),
			SignerURL: ExplorerURL(env.Explorer, "account", t.Signer),
			Fee:       "Fee: " + format.SOL(t.Fee),
			Time:      format.NA,
			Status:    "Success",
		}

		if t.BlockTime != nil {
			tv.Time = format.BlockTime(time.Unix(*t.BlockTime, 0))
		}

		if t.Failed {
			tv.Status = "Failed"
		}

		v = append(v, tv)
	}

	return v
}

// ExplorerURL links kind ("tx" or "account") id on the block explorer at base.
func ExplorerURL(base, kind, id string) string {
	return base + "/" + kind + "/" + id
}
