package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nondejus/lbrycrd/core/types"
)

// Parameters are positional, matching the historical claimtrie RPC shape:
// [name, blockhash, claimid] and friends, trailing parameters optional.

func stringParam(params []json.RawMessage, i int) (string, bool, error) {
	if i >= len(params) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(params[i], &s); err != nil {
		return "", false, fmt.Errorf("parameter %d must be a string", i+1)
	}
	return s, true, nil
}

func intParam(params []json.RawMessage, i int) (int, bool, error) {
	if i >= len(params) {
		return 0, false, nil
	}
	var n int
	if err := json.Unmarshal(params[i], &n); err != nil {
		return 0, false, fmt.Errorf("parameter %d must be an integer", i+1)
	}
	return n, true, nil
}

func boolParam(params []json.RawMessage, i int) (bool, bool, error) {
	if i >= len(params) {
		return false, false, nil
	}
	var b bool
	if err := json.Unmarshal(params[i], &b); err != nil {
		return false, false, fmt.Errorf("parameter %d must be a boolean", i+1)
	}
	return b, true, nil
}

func hashParam(params []json.RawMessage, i int) (*common.Hash, error) {
	s, ok, err := stringParam(params, i)
	if err != nil {
		return nil, err
	}
	if !ok || s == "" {
		return nil, nil
	}
	raw := common.FromHex(s)
	if len(raw) != common.HashLength {
		return nil, fmt.Errorf("parameter %d must be a block hash", i+1)
	}
	hash := common.BytesToHash(raw)
	return &hash, nil
}

// emptyResult stands in for queries that resolved nothing; the historical
// interface answers those with an empty object rather than an error.
var emptyResult = struct{}{}

func (s *Server) handleGetValueForName(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	name, ok, err := stringParam(req.Params, 0)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "name (parameter 1) required")
		return
	}
	blockHash, err := hashParam(req.Params, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	claimID, _, err := stringParam(req.Params, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	result, err := s.engine.ValueForName(r.Context(), name, blockHash, claimID)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	if result == nil {
		writeResult(w, req.ID, emptyResult)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetClaimsForName(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	name, ok, err := stringParam(req.Params, 0)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "name (parameter 1) required")
		return
	}
	blockHash, err := hashParam(req.Params, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	result, err := s.engine.ClaimsForName(r.Context(), name, blockHash)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetClaimByID(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	claimID, ok, err := stringParam(req.Params, 0)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "claimId (parameter 1) required")
		return
	}
	result, err := s.engine.ClaimByID(r.Context(), claimID)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	if result == nil {
		writeResult(w, req.ID, emptyResult)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetClaimByBid(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	name, ok, err := stringParam(req.Params, 0)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "name (parameter 1) required")
		return
	}
	bid, _, err := intParam(req.Params, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	blockHash, err := hashParam(req.Params, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	result, err := s.engine.ClaimByBid(r.Context(), name, bid, blockHash)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	if result == nil {
		writeResult(w, req.ID, emptyResult)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetClaimBySeq(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	name, ok, err := stringParam(req.Params, 0)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "name (parameter 1) required")
		return
	}
	seq, _, err := intParam(req.Params, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	blockHash, err := hashParam(req.Params, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	result, err := s.engine.ClaimBySeq(r.Context(), name, seq, blockHash)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	if result == nil {
		writeResult(w, req.ID, emptyResult)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetNameProof(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	name, ok, err := stringParam(req.Params, 0)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "name (parameter 1) required")
		return
	}
	blockHash, err := hashParam(req.Params, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	claimID, _, err := stringParam(req.Params, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	result, err := s.engine.NameProof(r.Context(), name, blockHash, claimID)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetClaimProofByBid(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	name, ok, err := stringParam(req.Params, 0)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "name (parameter 1) required")
		return
	}
	bid, _, err := intParam(req.Params, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	blockHash, err := hashParam(req.Params, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	result, err := s.engine.ProofByBid(r.Context(), name, bid, blockHash)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	if result == nil {
		writeResult(w, req.ID, emptyResult)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetClaimProofBySeq(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	name, ok, err := stringParam(req.Params, 0)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "name (parameter 1) required")
		return
	}
	seq, _, err := intParam(req.Params, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	blockHash, err := hashParam(req.Params, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	result, err := s.engine.ProofBySeq(r.Context(), name, seq, blockHash)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	if result == nil {
		writeResult(w, req.ID, emptyResult)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetNamesInTrie(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	blockHash, err := hashParam(req.Params, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	names, err := s.engine.NamesInRegistry(r.Context(), blockHash)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, names)
}

func (s *Server) handleGetTotalClaimedNames(w http.ResponseWriter, req *RPCRequest) {
	total, err := s.engine.TotalClaimedNames()
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, total)
}

func (s *Server) handleGetTotalClaims(w http.ResponseWriter, req *RPCRequest) {
	total, err := s.engine.TotalClaims()
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, total)
}

func (s *Server) handleGetTotalValueOfClaims(w http.ResponseWriter, req *RPCRequest) {
	controllingOnly, _, err := boolParam(req.Params, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	total, err := s.engine.TotalValueOfClaims(controllingOnly)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, total)
}

func (s *Server) handleGetChangesInBlock(w http.ResponseWriter, req *RPCRequest) {
	blockHash, err := hashParam(req.Params, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	result, err := s.engine.ChangesInBlock(blockHash)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetClaimStatus(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	name, ok, err := stringParam(req.Params, 0)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "name (parameter 1) required")
		return
	}
	txid, ok, err := stringParam(req.Params, 1)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "txid (parameter 2) required")
		return
	}
	raw := common.FromHex(txid)
	if len(raw) != common.HashLength {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "txid (parameter 2) must be a transaction hash")
		return
	}
	n, _, err := intParam(req.Params, 2)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "vout (parameter 3) must be a non-negative integer")
		return
	}
	op := types.OutPoint{TxID: common.BytesToHash(raw), N: uint32(n)}
	result, err := s.engine.StatusOfOutput(r.Context(), name, op)
	if err != nil {
		s.writeQueryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}
