// Package rpc serves the Ethereum JSON-RPC surface of the bridge over HTTP
// and WebSocket.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/telemetry"
	"github.com/gorilla/websocket"
)

// Protocol level JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
)

const (
	maxRequestSize = 5 * 1024 * 1024
	maxBatchSize   = 100
	requestTimeout = 30 * time.Second

	wsReadLimit    = maxRequestSize
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteWait    = 10 * time.Second
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object. Data carries the bridge error code
// (e.g. "B2") when one applies.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *Error) Error() string { return fmt.Sprintf("%d: %s", e.Code, e.Message) }

var nullID = json.RawMessage("null")

func errorResponse(id json.RawMessage, code int, msg string) *response {
	if id == nil {
		id = nullID
	}
	return &response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: msg}}
}

// Server dispatches JSON-RPC requests to a Handler.
type Server struct {
	handler  *Handler
	upgrader websocket.Upgrader
	http     *http.Server
}

func NewServer(handler *Handler) *Server {
	return &Server{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP handler: JSON-RPC over POST on / and WebSocket
// on /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/", s.serveHTTP)
	return mux
}

// Start listens on addr and serves until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	log.Info(log.RPCMonitoring, "JSON-RPC server started", "address", fmt.Sprintf("http://%s", listener.Addr()))
	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(log.RPCMonitoring, "JSON-RPC server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			log.Warn(log.RPCMonitoring, "JSON-RPC server shutdown", "err", err)
		}
	}()
	return listener.Addr(), nil
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize+1))
	if err != nil {
		http.Error(w, "failed to read request", http.StatusBadRequest)
		return
	}
	if len(body) > maxRequestSize {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(s.handleMessage(r.Context(), body))
}

// handleMessage answers a single request or a batch. Batch entries are
// answered in order.
func (s *Server) handleMessage(ctx context.Context, body []byte) []byte {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(body, &batch); err != nil {
			return mustMarshal(errorResponse(nil, CodeParseError, "parse error"))
		}
		if len(batch) == 0 {
			return mustMarshal(errorResponse(nil, CodeInvalidRequest, "empty batch"))
		}
		if len(batch) > maxBatchSize {
			return mustMarshal(errorResponse(nil, CodeInvalidRequest, fmt.Sprintf("batch of %d exceeds limit %d", len(batch), maxBatchSize)))
		}
		out := make([]*response, len(batch))
		for i, msg := range batch {
			out[i] = s.handleRaw(ctx, msg)
		}
		return mustMarshal(out)
	}
	return mustMarshal(s.handleRaw(ctx, body))
}

func (s *Server) handleRaw(ctx context.Context, msg json.RawMessage) *response {
	var req request
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorResponse(nil, CodeParseError, "parse error")
	}
	if req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "missing method")
	}
	return s.dispatch(ctx, &req)
}

func (s *Server) dispatch(ctx context.Context, req *request) *response {
	id := req.ID
	if id == nil {
		id = nullID
	}
	fn, ok := s.handler.lookup(req.Method)
	if !ok {
		log.Debug(log.RPCMonitoring, "unknown method", "method", req.Method)
		return errorResponse(id, CodeMethodNotFound, fmt.Sprintf("the method %s does not exist/is not available", req.Method))
	}

	var params []json.RawMessage
	if len(req.Params) > 0 && !bytes.Equal(req.Params, nullID) {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(id, bridgeerrors.CodeInvalidParams, "params must be an array")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, telemetry.Span_RPCRequest, telemetry.AttrMethod.String(req.Method))
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()
	result, err := fn(ctx, params)
	if err != nil {
		log.Debug(log.RPCMonitoring, "request failed", "method", req.Method, "elapsed", time.Since(start), "err", err)
		return &response{JSONRPC: "2.0", ID: id, Error: &Error{
			Code:    bridgeerrors.RPCCode(err),
			Message: err.Error(),
			Data:    bridgeerrors.GetErrorCode(err),
		}}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		log.Error(log.RPCMonitoring, "result encoding failed", "method", req.Method, "err", err)
		return errorResponse(id, bridgeerrors.CodeInternal, "result encoding failed")
	}
	log.Trace(log.RPCMonitoring, "request served", "method", req.Method, "elapsed", time.Since(start))
	return &response{JSONRPC: "2.0", ID: id, Result: raw}
}

func mustMarshal(v interface{}) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		// responses hold only RawMessage and plain fields
		panic(err)
	}
	return out
}

// serveWS answers requests on one WebSocket connection in arrival order.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(log.RPCMonitoring, "websocket upgrade failed", "err", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan []byte, 16)
	done := make(chan struct{})
	go s.wsWritePump(conn, send, done)

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	defer func() {
		close(send)
		<-done
	}()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug(log.RPCMonitoring, "websocket read error", "err", err)
			}
			return
		}
		out := s.handleMessage(ctx, message)
		select {
		case send <- out:
		case <-done:
			return
		}
	}
}

func (s *Server) wsWritePump(conn *websocket.Conn, send <-chan []byte, done chan<- struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()
	for {
		select {
		case message, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
