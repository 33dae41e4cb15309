package dashboard

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gowebpki/jcs"

	"github.com/tarancss/soldash/lib/util"
	"github.com/tarancss/soldash/sources"
)

// Errors returned to client requests.
var (
	ErrNoSource = errors.New("source not available")
	ErrNoQuery  = errors.New("empty search - missing query: ?q=<signature or address>")
)

var (
	txPattern      = regexp.MustCompile(`^[A-Za-z0-9]{88}$`)
	addressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// Response defines the data structure returned to the client making the http request.
type Response struct {
	Body  string `json:"body"`
	Error string `json:"error,omitempty"`
}

// reply writes res with the given status, or a bad request with err.
func reply(rw http.ResponseWriter, r *http.Request, res *Response, err error) {
	rw.Header().Set("Content-Type", "application/json;charset=utf8")

	if err != nil {
		res.Error = fmt.Sprintf("%s", err)

		rw.WriteHeader(http.StatusBadRequest)
	} else {
		rw.WriteHeader(http.StatusOK)
	}
	// log request
	log.Printf("httpreq from %v %s err:%v\n", r.RemoteAddr, r.RequestURI, err)

	_ = json.NewEncoder(rw).Encode(res)
}

// replyView replies body, a JSON encoded view or views, tagged with its ETag. A request whose If-None-Match matches
// the tag is replied not modified.
func replyView(rw http.ResponseWriter, r *http.Request, res *Response, body []byte) {
	tag, err := etag(body)
	if err != nil {
		log.Printf("Error tagging %s:%s", r.RequestURI, err)
	} else {
		rw.Header().Set("ETag", tag)

		if r.Header.Get("If-None-Match") == tag {
			rw.WriteHeader(http.StatusNotModified)

			return
		}
	}

	res.Body = string(body)
	reply(rw, r, res, nil)
}

// etag returns the strong entity tag of a JSON document, the digest of its canonical form.
func etag(doc []byte) (string, error) {
	c, err := jcs.Transform(doc)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(c)

	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

// homeHandler just replies a welcome message to the client.
func (d *Dashboard) homeHandler(rw http.ResponseWriter, r *http.Request) {
	reply(rw, r, &Response{Body: "Hello, this is your Solana dashboard!"}, nil)
}

// panelsHandler replies the views of the panels in dashboard order. The panels may be filtered by source with
// ?src=<source>, the query may be repeated.
func (d *Dashboard) panelsHandler(rw http.ResponseWriter, r *http.Request) {
	var res Response

	if err := r.ParseForm(); err != nil {
		log.Print("Error parsing request URL")
		reply(rw, r, &res, err)

		return
	}

	srcs := util.Unique(r.Form["src"])
	for _, s := range srcs {
		if _, ok := d.View(s); !ok {
			reply(rw, r, &res, fmt.Errorf("%w: %s", ErrNoSource, s))

			return
		}
	}

	vs := make([]sources.View, 0, len(d.srcs))

	for _, v := range d.Views() {
		if len(srcs) == 0 || util.In(srcs, v.Source) {
			vs = append(vs, v)
		}
	}

	tmp, _ := json.Marshal(vs)
	replyView(rw, r, &res, tmp)
}

// panelHandler replies the view of the panel of the source in the uri.
func (d *Dashboard) panelHandler(rw http.ResponseWriter, r *http.Request) {
	var res Response

	source := mux.Vars(r)["source"]

	v, ok := d.View(source)
	if !ok {
		reply(rw, r, &res, fmt.Errorf("%w: %s", ErrNoSource, source))

		return
	}

	tmp, _ := json.Marshal(v)
	replyView(rw, r, &res, tmp)
}

// searchHandler replies the block explorer url of the transaction signature or account address searched with ?q=.
func (d *Dashboard) searchHandler(rw http.ResponseWriter, r *http.Request) {
	var res Response

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		reply(rw, r, &res, ErrNoQuery)

		return
	}

	kind, known := SearchKind(q)
	if !known {
		log.Printf("Search %q is neither a signature nor an address, searching it as an account", q)
	}

	res.Body = sources.ExplorerURL(d.env.Explorer, kind, q)
	reply(rw, r, &res, nil)
}

// SearchKind returns the explorer page kind of a search: tx for 88 characters signatures, account otherwise. known is
// false when q is neither a signature nor a base58 address.
func SearchKind(q string) (kind string, known bool) {
	switch {
	case txPattern.MatchString(q):
		return "tx", true
	case addressPattern.MatchString(q):
		return "account", true
	default:
		return "account", false
	}
}
