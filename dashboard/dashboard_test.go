package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/config"
	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/msg"
	"github.com/tarancss/soldash/lib/store/memory"
	"github.com/tarancss/soldash/panel"
	"github.com/tarancss/soldash/sources"
)

const poolsFixture = `{"status":"success","data":[
	{"pool":"p1","project":"kamino","chain":"Solana","symbol":"USDC","tvlUsd":800000,"apy":4.2},
	{"pool":"p2","project":"marinade","chain":"Solana","symbol":"MSOL","tvlUsd":1200000,"apy":7.1}
]}`

// broker records the events sent, it implements msg.MsgBroker.
type broker struct {
	l      sync.Mutex
	events []msg.Event
}

func (b *broker) Setup(interface{}) error { return nil }
func (b *broker) Close() error            { return nil }

func (b *broker) SendEvent(_ string, e msg.Event) error {
	b.l.Lock()
	b.events = append(b.events, e)
	b.l.Unlock()

	return nil
}

func (b *broker) GetEvents(string, *sync.Mutex) (<-chan msg.Event, <-chan error, error) {
	return nil, nil, nil
}

func (b *broker) keys() []string {
	b.l.Lock()
	defer b.l.Unlock()

	ks := make([]string, 0, len(b.events))
	for _, e := range b.events {
		ks = append(ks, e.Key())
	}

	return ks
}

// upstream serves the yields pools and fails the DeFi protocols.
func upstream(t *testing.T) *sources.Env {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pools":
			_, _ = w.Write([]byte(poolsFixture))
		case "/protocols":
			http.Error(w, "upstream down", http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return &sources.Env{
		HTTP:     fetch.NewClient(time.Second, 0, 0),
		DeFi:     srv.URL,
		Yields:   srv.URL,
		Explorer: "https://solscan.io",
	}
}

func newDashboard(t *testing.T, mb msg.MsgBroker) (*Dashboard, *memory.Memory) {
	t.Helper()

	clk := clock.NewMock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	cache := memory.New(clk)

	d, err := New(config.Default(), upstream(t), cache, mb, sources.Hooks{Clock: clk},
		sources.YieldsSource, sources.DeFiSource)
	require.NoError(t, err)

	return d, cache
}

func settled(d *Dashboard) bool {
	for _, v := range d.Views() {
		if v.Status == panel.Loading {
			return false
		}
	}

	return true
}

func TestNew(t *testing.T) {
	conf := config.Default()

	_, err := New(conf, nil, nil, nil, sources.Hooks{})
	assert.ErrorIs(t, err, ErrNoCache)

	_, err = New(conf, nil, memory.New(nil), nil, sources.Hooks{}, sources.NFTSource, sources.NFTSource)
	assert.ErrorIs(t, err, ErrDuplicate)

	conf.Sources = []config.SourceConfig{{ID: sources.NFT, Disabled: true}}
	_, err = New(conf, nil, memory.New(nil), nil, sources.Hooks{}, sources.NFTSource)
	assert.ErrorIs(t, err, ErrNoPanels)

	// every source but the disabled one, loading until started
	d, err := New(conf, nil, memory.New(nil), nil, sources.Hooks{})
	require.NoError(t, err)

	vs := d.Views()
	require.Len(t, vs, 6)
	assert.Equal(t, sources.Market, vs[0].Source)

	for _, v := range vs {
		assert.Equal(t, panel.Loading, v.Status)
		assert.NotEqual(t, sources.NFT, v.Source)
	}

	_, ok := d.View(sources.NFT)
	assert.False(t, ok)

	// overrides reach the panels
	conf.Sources = []config.SourceConfig{{ID: sources.Yields, Refresh: -1}}
	_, err = New(conf, nil, memory.New(nil), nil, sources.Hooks{}, sources.YieldsSource)
	assert.NoError(t, err, "negative overrides keep the defaults")

	conf.Sources = []config.SourceConfig{{ID: sources.Yields, Timeout: -1}}
	_, err = New(conf, nil, memory.New(nil), nil, sources.Hooks{}, sources.YieldsSource)
	assert.ErrorIs(t, err, panel.ErrConfig)
}

func TestDashboard(t *testing.T) {
	mb := &broker{}
	d, cache := newDashboard(t, mb)

	require.NoError(t, d.Start(context.Background()))
	assert.ErrorIs(t, d.Start(context.Background()), panel.ErrStarted)

	require.Eventually(t, func() bool { return settled(d) }, 2*time.Second, time.Millisecond)

	y, ok := d.View(sources.Yields)
	require.True(t, ok)
	assert.Equal(t, panel.Ready, y.Status)
	assert.Equal(t, uint64(1), y.Cycle)
	assert.NotNil(t, y.Data)

	f, ok := d.View(sources.DeFi)
	require.True(t, ok)
	assert.Equal(t, panel.Error, f.Status)
	require.NotNil(t, f.Error)
	assert.Equal(t, fetch.KindResponse, f.Error.Kind)
	assert.Nil(t, f.Data)

	// the failing panel does not write the cache
	assert.Equal(t, 1, cache.Len())

	d.Stop()
	d.Stop()

	assert.Zero(t, cache.Len(), "cache purged on stop")
	assert.ElementsMatch(t, []string{"yields.ready.1", "defi.error.1"}, mb.keys())

	mb.l.Lock()
	defer mb.l.Unlock()

	for _, e := range mb.events {
		var v sources.View
		require.NoError(t, json.Unmarshal(e.View, &v))
		assert.Equal(t, e.Source, v.Source)
		assert.Equal(t, e.Status, string(v.Status))
	}
}

func TestStopBeforeStart(t *testing.T) {
	mb := &broker{}
	d, _ := newDashboard(t, mb)

	d.Stop()
	assert.Error(t, d.Start(context.Background()))
	assert.Empty(t, mb.keys())
	assert.Equal(t, "dashboard already stopped", d.Serve("", "0", "", "", ""))
}

func TestServe(t *testing.T) {
	d, _ := newDashboard(t, nil)

	res := make(chan string)

	go func() { res <- d.Serve("localhost", "0", "", "", "") }()

	require.Eventually(t, func() bool {
		d.sl.Lock()
		defer d.sl.Unlock()

		return d.s != nil
	}, time.Second, time.Millisecond)

	d.Stop()

	select {
	case r := <-res:
		assert.Contains(t, r, http.ErrServerClosed.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestAPI(t *testing.T) {
	d, _ := newDashboard(t, nil)

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.Eventually(t, func() bool { return settled(d) }, 2*time.Second, time.Millisecond)

	srv := httptest.NewServer(d.Router())
	defer srv.Close()

	sig := strings.Repeat("5VERv8NMvzbJ", 7) + "MEkV"
	addr := "Vote111111111111111111111111111111111111111"

	cases := []struct {
		name, method, uri string
		status            int
		errExp            string
		check             func(t *testing.T, body string)
	}{
		{"home_1", http.MethodGet, "/", http.StatusOK, "", func(t *testing.T, b string) {
			assert.Equal(t, "Hello, this is your Solana dashboard!", b)
		}},
		{"panels_0", http.MethodPost, "/panels", http.StatusMethodNotAllowed, "", nil},
		{"panels_1", http.MethodGet, "/panels", http.StatusOK, "", func(t *testing.T, b string) {
			var vs []sources.View
			require.NoError(t, json.Unmarshal([]byte(b), &vs))
			require.Len(t, vs, 2)
			assert.Equal(t, sources.Yields, vs[0].Source)
			assert.Equal(t, sources.DeFi, vs[1].Source)
		}},
		{"panels_2", http.MethodGet, "/panels?src=defi&src=defi", http.StatusOK, "", func(t *testing.T, b string) {
			var vs []sources.View
			require.NoError(t, json.Unmarshal([]byte(b), &vs))
			require.Len(t, vs, 1)
			assert.Equal(t, panel.Error, vs[0].Status)
		}},
		{"panels_3", http.MethodGet, "/panels?src=swap", http.StatusBadRequest, "source not available: swap", nil},
		{"panel_1", http.MethodGet, "/panels/yields", http.StatusOK, "", func(t *testing.T, b string) {
			var v sources.View
			require.NoError(t, json.Unmarshal([]byte(b), &v))
			assert.Equal(t, panel.Ready, v.Status)
			assert.Equal(t, "Top Yield Pools", v.Title)
		}},
		{"panel_2", http.MethodGet, "/panels/nft", http.StatusBadRequest, "source not available: nft", nil},
		{"search_0", http.MethodGet, "/search", http.StatusBadRequest, ErrNoQuery.Error(), nil},
		{"search_1", http.MethodGet, "/search?q=%20", http.StatusBadRequest, ErrNoQuery.Error(), nil},
		{"search_2", http.MethodGet, "/search?q=" + sig, http.StatusOK, "", func(t *testing.T, b string) {
			assert.Equal(t, "https://solscan.io/tx/"+sig, b)
		}},
		{"search_3", http.MethodGet, "/search?q=" + addr, http.StatusOK, "", func(t *testing.T, b string) {
			assert.Equal(t, "https://solscan.io/account/"+addr, b)
		}},
		{"search_4", http.MethodGet, "/search?q=bonk", http.StatusOK, "", func(t *testing.T, b string) {
			assert.Equal(t, "https://solscan.io/account/bonk", b)
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req, err := http.NewRequest(c.method, srv.URL+c.uri, nil)
			require.NoError(t, err)

			resp, err := srv.Client().Do(req)
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, c.status, resp.StatusCode)

			if c.status == http.StatusMethodNotAllowed {
				return
			}

			var res Response
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
			assert.Equal(t, c.errExp, res.Error)

			if c.check != nil {
				c.check(t, res.Body)
			}
		})
	}
}

func TestSearchKind(t *testing.T) {
	cases := []struct {
		q, kind string
		known   bool
	}{
		{strings.Repeat("a", 88), "tx", true},
		{strings.Repeat("a", 87), "account", false},
		{strings.Repeat("a", 44), "account", true},
		{"So11111111111111111111111111111111111111112", "account", true},
		{"0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", "account", false},
		{"bonk", "account", false},
	}

	for _, c := range cases {
		kind, known := SearchKind(c.q)
		assert.Equal(t, c.kind, kind, c.q)
		assert.Equal(t, c.known, known, c.q)
	}
}

func TestETag(t *testing.T) {
	a, err := etag([]byte(`{"source":"defi","cycle":1,"data":[1,2]}`))
	require.NoError(t, err)

	b, err := etag([]byte(`{ "data": [1, 2], "cycle": 1, "source": "defi" }`))
	require.NoError(t, err)
	assert.Equal(t, a, b, "tags ignore key order and spacing")

	c, err := etag([]byte(`{"source":"defi","cycle":2,"data":[1,2]}`))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = etag([]byte(`{"source":`))
	assert.Error(t, err)
}

func TestAPINotModified(t *testing.T) {
	d, _ := newDashboard(t, nil)

	srv := httptest.NewServer(d.Router())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/panels/yields")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	tag := resp.Header.Get("ETag")
	require.NotEmpty(t, tag)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/panels/yields", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", tag)

	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	// another panel has another tag
	req, err = http.NewRequest(http.MethodGet, srv.URL+"/panels/defi", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", tag)

	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, tag, resp.Header.Get("ETag"))
}
