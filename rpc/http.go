package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nondejus/lbrycrd/core/chain"
	"github.com/nondejus/lbrycrd/core/query"
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
	codeServerError    = -32000
	codeNotFound       = -32004
)

// Server exposes the claimtrie query engine over JSON-RPC, plus the
// Prometheus scrape endpoint.
type Server struct {
	engine *query.Engine
	log    *slog.Logger
}

func NewServer(engine *query.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, log: logger.With(slog.String("component", "rpc"))}
}

// Handler returns the HTTP handler serving the RPC endpoint and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", slog.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
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

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &RPCError{Code: code, Message: message}}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeQueryError maps the engine's error taxonomy onto RPC codes: input
// errors are invalid params, unknown blocks are not-found, everything that
// aborted the query is a server error.
func (s *Server) writeQueryError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, query.ErrClaimIDNotHex),
		errors.Is(err, query.ErrClaimIDTooLong),
		errors.Is(err, query.ErrClaimIDTooShort),
		errors.Is(err, query.ErrNegativeIndex):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error())
	case errors.Is(err, chain.ErrBlockNotFound),
		errors.Is(err, chain.ErrNotInMainChain):
		writeError(w, http.StatusBadRequest, id, codeNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error())
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, nil, codeParseError, "request too large")
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	s.dispatch(w, r, &req)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "getvalueforname":
		s.handleGetValueForName(w, r, req)
	case "getclaimsforname":
		s.handleGetClaimsForName(w, r, req)
	case "getclaimbyid":
		s.handleGetClaimByID(w, r, req)
	case "getclaimbybid":
		s.handleGetClaimByBid(w, r, req)
	case "getclaimbyseq":
		s.handleGetClaimBySeq(w, r, req)
	case "getnameproof":
		s.handleGetNameProof(w, r, req)
	case "getclaimproofbybid":
		s.handleGetClaimProofByBid(w, r, req)
	case "getclaimproofbyseq":
		s.handleGetClaimProofBySeq(w, r, req)
	case "getnamesintrie":
		s.handleGetNamesInTrie(w, r, req)
	case "gettotalclaimednames":
		s.handleGetTotalClaimedNames(w, req)
	case "gettotalclaims":
		s.handleGetTotalClaims(w, req)
	case "gettotalvalueofclaims":
		s.handleGetTotalValueOfClaims(w, req)
	case "getchangesinblock":
		s.handleGetChangesInBlock(w, req)
	case "getclaimstatus":
		s.handleGetClaimStatus(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found")
	}
}
