package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"prizeboost/native/boost"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server exposes the boost module over JSON-RPC plus a websocket event
// stream. Engine operations are serialized behind a single mutex: the module's
// execution model is one transactional call at a time, and the coarse lock is
// what provides it in a concurrent HTTP server.
type Server struct {
	engine  *boost.Engine
	logger  *slog.Logger
	auth    *Authenticator
	limiter *rateLimiter
	stream  *BoostStream

	mu sync.Mutex
}

// ServerConfig collects the server's construction knobs.
type ServerConfig struct {
	Auth   AuthConfig
	Logger *slog.Logger
	Stream *BoostStream
}

// NewServer constructs the RPC server around the boost engine.
func NewServer(engine *boost.Engine, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  engine,
		logger:  logger,
		auth:    NewAuthenticator(cfg.Auth),
		limiter: newRateLimiter(),
		stream:  cfg.Stream,
	}
}

// Handler returns the HTTP handler serving the RPC endpoint and the websocket
// stream. Callers may wrap it with instrumentation middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.HandleFunc("/ws/boosts", s.handleBoostStream)
	return mux
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// mutatingMethods require a valid bearer credential; queries stay open.
var mutatingMethods = map[string]bool{
	"boost_preClaim":             true,
	"boost_postClaim":            true,
	"boost_setMultiplier":        true,
	"boost_setPerWinnerLimit":    true,
	"boost_setSourceEligibility": true,
	"boost_withdraw":             true,
	"boost_pause":                true,
	"boost_resume":               true,
	"boost_transferOwnership":    true,
	"boost_acceptOwnership":      true,
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	clientIP := clientAddress(r)
	if !s.limiter.allow(clientIP) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body", nil)
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, nil, codeInvalidRequest, "request body too large", nil)
		return
	}

	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		return
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	if mutatingMethods[method] {
		if err := s.auth.Authorize(r); err != nil {
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, err.Error(), nil)
			return
		}
	}

	handler, ok := s.methods()[method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "unknown method "+method, nil)
		return
	}

	s.mu.Lock()
	result, rpcErr := handler(&req)
	s.mu.Unlock()
	if rpcErr != nil {
		status := http.StatusBadRequest
		if rpcErr.Code == codeUnauthorized {
			status = http.StatusForbidden
		}
		if rpcErr.Code == codeServerError {
			status = http.StatusInternalServerError
		}
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

type methodHandler func(req *RPCRequest) (interface{}, *RPCError)

func (s *Server) methods() map[string]methodHandler {
	return map[string]methodHandler{
		"boost_preClaim":             s.handlePreClaim,
		"boost_postClaim":            s.handlePostClaim,
		"boost_setMultiplier":        s.handleSetMultiplier,
		"boost_setPerWinnerLimit":    s.handleSetPerWinnerLimit,
		"boost_setSourceEligibility": s.handleSetSourceEligibility,
		"boost_withdraw":             s.handleWithdraw,
		"boost_pause":                s.handlePause,
		"boost_resume":               s.handleResume,
		"boost_transferOwnership":    s.handleTransferOwnership,
		"boost_acceptOwnership":      s.handleAcceptOwnership,
		"boost_getConfig":            s.handleGetConfig,
		"boost_winnerTotal":          s.handleWinnerTotal,
		"boost_sourceEligible":       s.handleSourceEligible,
		"boost_owner":                s.handleOwner,
		"boost_reserveBalance":       s.handleReserveBalance,
	}
}

// moduleError maps engine errors onto JSON-RPC error objects.
func moduleError(err error) *RPCError {
	switch {
	case errors.Is(err, boost.ErrUnauthorized),
		errors.Is(err, boost.ErrNotPendingOwner),
		errors.Is(err, boost.ErrNoPendingOwner):
		return &RPCError{Code: codeUnauthorized, Message: err.Error()}
	case errors.Is(err, boost.ErrInvalidConfig),
		errors.Is(err, boost.ErrInvalidAmount):
		return &RPCError{Code: codeInvalidParams, Message: err.Error()}
	default:
		return &RPCError{Code: codeServerError, Message: err.Error()}
	}
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
