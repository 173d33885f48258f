package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nciso/server/internal/jsonrpc"
	"nciso/server/internal/observability"
)

// RequestProcessor processes JSON-RPC requests.
// Implemented by the MCP handler.
type RequestProcessor interface {
	ProcessRequest(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error)
}

// keepAlive is the interval of SSE comment frames that keep proxies from
// closing idle streams.
const keepAlive = 25 * time.Second

type session struct {
	id       string
	userID   string
	tenantID string
	messages chan []byte
}

// ownedBy reports whether the caller opened the session.
func (s *session) ownedBy(authCtx *AuthContext) bool {
	if authCtx == nil {
		return s.userID == "" && s.tenantID == ""
	}
	return s.userID == authCtx.UserID && s.tenantID == authCtx.TenantID
}

// transport manages SSE and inline JSON-RPC transport for MCP.
type transport struct {
	processor RequestProcessor
	endpoint  string
	sessions  map[string]*session
	mu        sync.RWMutex
}

// Transport creates an http.Handler serving MCP at endpoint. GET opens an SSE
// stream; POST with ?sessionId= answers on that stream; POST without it
// answers inline.
func Transport(processor RequestProcessor, endpoint string) http.Handler {
	return &transport{
		processor: processor,
		endpoint:  endpoint,
		sessions:  make(map[string]*session),
	}
}

func (t *transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		t.handleSSE(w, r)
	case http.MethodPost:
		t.handleMessage(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (t *transport) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s := &session{
		id:       uuid.NewString(),
		messages: make(chan []byte, 100),
	}
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		s.userID, s.tenantID = authCtx.UserID, authCtx.TenantID
	}

	t.mu.Lock()
	t.sessions[s.id] = s
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.sessions, s.id)
		t.mu.Unlock()
	}()

	fmt.Fprintf(w, "event: endpoint\ndata: %s?sessionId=%s\n\n", t.endpoint, s.id)
	flusher.Flush()
	observability.L().Debug("sse session opened", zap.String("session", s.id))

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case msg := <-s.messages:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			observability.L().Debug("sse session closed", zap.String("session", s.id))
			return
		}
	}
}

func (t *transport) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		t.handleInlineMessage(w, r)
		return
	}

	t.mu.RLock()
	s, ok := t.sessions[sessionID]
	t.mu.RUnlock()

	// Sessions are bound to the user and tenant that opened them.
	if !ok || !s.ownedBy(GetAuthContext(r.Context())) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	req, rpcErr := readRequest(r)
	if rpcErr != nil {
		t.send(s, jsonrpc.Reply(nil, nil, rpcErr))
		w.WriteHeader(http.StatusAccepted)
		return
	}

	result, rpcErr := t.processor.ProcessRequest(r.Context(), req)
	if rpcErr != nil || !req.IsNotification() {
		t.send(s, jsonrpc.Reply(req.ID, result, rpcErr))
	}

	w.WriteHeader(http.StatusAccepted)
}

func (t *transport) handleInlineMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	req, rpcErr := readRequest(r)
	if rpcErr != nil {
		_ = json.NewEncoder(w).Encode(jsonrpc.Reply(nil, nil, rpcErr))
		return
	}

	result, rpcErr := t.processor.ProcessRequest(r.Context(), req)
	if req.IsNotification() && rpcErr == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	_ = json.NewEncoder(w).Encode(jsonrpc.Reply(req.ID, result, rpcErr))
}

func readRequest(r *http.Request) (*jsonrpc.Request, *jsonrpc.Error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.ParseError, "Parse error")
	}
	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.ParseError, "Parse error")
	}
	if req.JSONRPC != jsonrpc.Version || req.Method == "" {
		return &req, jsonrpc.NewError(jsonrpc.InvalidRequest, "Invalid Request")
	}
	observability.L().Debug("jsonrpc request",
		zap.String("method", req.Method),
		zap.Any("id", req.ID),
		zap.String("request_id", GetRequestID(r.Context())),
	)
	return &req, nil
}

func (t *transport) send(s *session, resp jsonrpc.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		observability.L().Error("marshal jsonrpc response", zap.Error(err))
		return
	}
	select {
	case s.messages <- data:
	default:
		observability.L().Warn("session message buffer full", zap.String("session", s.id))
	}
}
