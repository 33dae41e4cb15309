// Package blocktest provides a mock Solana RPC node for tests.
package blocktest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// mockRequest is the JSON-RPC request as seen by the mock node.
type mockRequest struct {
	Version string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      *json.RawMessage  `json:"id"`
}

// mockResponse is the JSON-RPC reply of the mock node.
type mockResponse struct {
	Version string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  interface{}      `json:"result,omitempty"`
	Error   interface{}      `json:"error,omitempty"`
}

// Reply computes the result of a call from its params. A non-nil error object is replied as the JSON-RPC error.
type Reply func(params []json.RawMessage) (result interface{}, rpcErr interface{})

// Node is a mock RPC node replying to the registered methods.
type Node struct {
	*httptest.Server

	l       sync.Mutex
	methods map[string]Reply
	calls   map[string]int
}

// NewNode starts a mock node. Close it when done.
func NewNode() *Node {
	n := &Node{methods: make(map[string]Reply), calls: make(map[string]int)}
	n.Server = httptest.NewServer(http.HandlerFunc(n.handle))

	return n
}

// Handle registers the reply for method.
func (n *Node) Handle(method string, r Reply) {
	n.l.Lock()
	n.methods[method] = r
	n.l.Unlock()
}

// Result registers a fixed result for method.
func (n *Node) Result(method string, result interface{}) {
	n.Handle(method, func([]json.RawMessage) (interface{}, interface{}) { return result, nil })
}

// Calls returns how many times method has been called.
func (n *Node) Calls(method string) int {
	n.l.Lock()
	defer n.l.Unlock()

	return n.calls[method]
}

func (n *Node) handle(w http.ResponseWriter, r *http.Request) {
	var req mockRequest

	res := mockResponse{Version: "2.0"}

	defer func() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(res)
	}()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		res.Error = map[string]interface{}{"code": -32700, "message": "parse error"}

		return
	}

	res.ID = req.ID

	n.l.Lock()
	reply, ok := n.methods[req.Method]
	n.calls[req.Method]++
	n.l.Unlock()

	if !ok {
		res.Error = map[string]interface{}{"code": -32601, "message": "Method not found"}

		return
	}

	res.Result, res.Error = reply(req.Params)
}
