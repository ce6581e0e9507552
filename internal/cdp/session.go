package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// rpcRequest is one DevTools protocol call.
type rpcRequest struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// rpcResponse is a reply or event frame from the browser.
// Event frames carry Method and no ID; replies carry the request ID.
type rpcResponse struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// rpcError is the protocol-level error payload.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

// Session is one live DevTools websocket session bound to a single target.
// It is safe for concurrent use; writes are serialized and replies are
// routed to callers by request ID.
type Session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	nextID  atomic.Int64
	pending map[int64]chan *rpcResponse
	mu      sync.Mutex

	done   chan struct{}
	closed atomic.Bool
}

// Dial opens a DevTools session on the target's websocket endpoint.
func Dial(ctx context.Context, wsURL string) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing devtools session: %w", err)
	}

	s := &Session{
		conn:    conn,
		pending: make(map[int64]chan *rpcResponse),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// readLoop routes reply frames to waiting callers and drops event frames.
func (s *Session) readLoop() {
	defer close(s.done)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				log.Printf("[cdp] session read error: %v", err)
			}
			s.failPending(err)
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			log.Printf("[cdp] dropping malformed frame: %v", err)
			continue
		}
		if resp.Method != "" && resp.ID == 0 {
			// Unsolicited event; the pipeline polls rather than subscribes.
			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[resp.ID]
		if ok {
			delete(s.pending, resp.ID)
		}
		s.mu.Unlock()

		if ok {
			ch <- &resp
		}
	}
}

// failPending unblocks every in-flight call after the connection drops.
func (s *Session) failPending(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.pending {
		delete(s.pending, id)
		close(ch)
	}
	_ = err
}

// Call performs one protocol method call and decodes the result into out
// (which may be nil).
func (s *Session) Call(ctx context.Context, method string, params, out interface{}) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}

	id := s.nextID.Add(1)
	ch := make(chan *rpcResponse, 1)

	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()

	req := rpcRequest{ID: id, Method: method, Params: params}

	s.writeMu.Lock()
	err := s.conn.WriteJSON(req)
	s.writeMu.Unlock()
	if err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: session closed mid-call", method)
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("%s: decoding result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return ctx.Err()
	case <-s.done:
		return fmt.Errorf("%s: session closed", method)
	}
}

// Close shuts the session down and unblocks pending calls.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close()
}

// evaluateParams are the Runtime.evaluate arguments the pipeline uses.
type evaluateParams struct {
	Expression    string `json:"expression"`
	ReturnByValue bool   `json:"returnByValue"`
	AwaitPromise  bool   `json:"awaitPromise"`
}

// remoteObject is the value half of a Runtime.evaluate result.
type remoteObject struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// evaluateResult is the Runtime.evaluate reply payload.
type evaluateResult struct {
	Result           remoteObject `json:"result"`
	ExceptionDetails *struct {
		Text      string `json:"text"`
		Exception *struct {
			Description string `json:"description"`
		} `json:"exception"`
	} `json:"exceptionDetails"`
}

// Evaluate runs the expression in the target page and returns its value as
// raw JSON. Promises are awaited; page exceptions become errors.
func (s *Session) Evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	var res evaluateResult
	err := s.Call(ctx, "Runtime.evaluate", evaluateParams{
		Expression:    expression,
		ReturnByValue: true,
		AwaitPromise:  true,
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.ExceptionDetails != nil {
		desc := res.ExceptionDetails.Text
		if res.ExceptionDetails.Exception != nil && res.ExceptionDetails.Exception.Description != "" {
			desc = res.ExceptionDetails.Exception.Description
		}
		return nil, fmt.Errorf("page exception: %s", desc)
	}
	return res.Result.Value, nil
}

// EvaluateBool runs the expression and decodes a boolean result.
func (s *Session) EvaluateBool(ctx context.Context, expression string) (bool, error) {
	raw, err := s.Evaluate(ctx, expression)
	if err != nil {
		return false, err
	}
	var v bool
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("expected boolean result, got %s", raw)
	}
	return v, nil
}

// EvaluateString runs the expression and decodes a string result.
// A null or undefined result decodes to "".
func (s *Session) EvaluateString(ctx context.Context, expression string) (string, error) {
	raw, err := s.Evaluate(ctx, expression)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("expected string result, got %s", raw)
	}
	return v, nil
}
