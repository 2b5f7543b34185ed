package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"prizeboost/crypto"
	"prizeboost/native/boost"
)

type claimParams struct {
	Source    string `json:"source"`
	Winner    string `json:"winner"`
	Recipient string `json:"recipient,omitempty"`
	Tier      uint8  `json:"tier"`
	Draw      uint32 `json:"draw"`
	Index     uint32 `json:"index"`
	Prize     string `json:"prize"`
	Timestamp uint64 `json:"timestamp,omitempty"`
	// AuxData is accepted for hook-contract compatibility and ignored: the
	// pre-claim hook never produces any.
	AuxData string `json:"auxData,omitempty"`
}

type preClaimParams struct {
	Winner          string `json:"winner"`
	Tier            uint8  `json:"tier"`
	Index           uint32 `json:"index"`
	RequestedPayout string `json:"requestedPayout,omitempty"`
	Recipient       string `json:"recipient,omitempty"`
}

type setMultiplierParams struct {
	Caller string `json:"caller"`
	Value  uint64 `json:"value"`
}

type setLimitParams struct {
	Caller string `json:"caller"`
	Limit  string `json:"limit"`
}

type setSourceParams struct {
	Caller   string `json:"caller"`
	Source   string `json:"source"`
	Eligible bool   `json:"eligible"`
}

type withdrawParams struct {
	Caller      string `json:"caller"`
	Token       string `json:"token"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type transferOwnershipParams struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
}

type addressParams struct {
	Address string `json:"address"`
}

type tokenParams struct {
	Token string `json:"token,omitempty"`
}

func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single params object"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}

func parseAddress(field, raw string) ([20]byte, *RPCError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, &RPCError{Code: codeInvalidParams, Message: field + " is required"}
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid %s: %v", field, err)}
	}
	return addr.Array(), nil
}

func parseOptionalAddress(field, raw string) ([20]byte, *RPCError) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, nil
	}
	return parseAddress(field, raw)
}

func parseAmount(field, raw string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() < 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: field + " must be a non-negative base-10 integer"}
	}
	return value, nil
}

func encodeAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.BoostPrefix, addr[:]).String()
}

func (s *Server) handlePreClaim(req *RPCRequest) (interface{}, *RPCError) {
	var params preClaimParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	winner, rpcErr := parseAddress("winner", params.Winner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	recipient, rpcErr := parseOptionalAddress("recipient", params.Recipient)
	if rpcErr != nil {
		return nil, rpcErr
	}
	payout, rpcErr := parseAmount("requestedPayout", params.RequestedPayout)
	if rpcErr != nil {
		return nil, rpcErr
	}
	redirect, aux, err := s.engine.PreClaim(winner, params.Tier, params.Index, payout, recipient)
	if err != nil {
		return nil, moduleError(err)
	}
	var zero [20]byte
	result := map[string]string{"redirect": "", "auxData": ""}
	if redirect != zero {
		result["redirect"] = encodeAddress(redirect)
	}
	if len(aux) > 0 {
		result["auxData"] = fmt.Sprintf("%x", aux)
	}
	return result, nil
}

func (s *Server) handlePostClaim(req *RPCRequest) (interface{}, *RPCError) {
	var params claimParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	source, rpcErr := parseAddress("source", params.Source)
	if rpcErr != nil {
		return nil, rpcErr
	}
	winner, rpcErr := parseAddress("winner", params.Winner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	recipient, rpcErr := parseOptionalAddress("recipient", params.Recipient)
	if rpcErr != nil {
		return nil, rpcErr
	}
	prize, rpcErr := parseAmount("prize", params.Prize)
	if rpcErr != nil {
		return nil, rpcErr
	}
	timestamp := params.Timestamp
	if timestamp == 0 {
		timestamp = uint64(time.Now().Unix())
	}
	ctx := &boost.ClaimContext{
		Source:    source,
		Winner:    winner,
		Recipient: recipient,
		Tier:      params.Tier,
		Draw:      params.Draw,
		Index:     params.Index,
		Prize:     prize,
		Timestamp: timestamp,
	}
	if err := s.engine.PostClaim(ctx); err != nil {
		return nil, moduleError(err)
	}
	total, err := s.engine.WinnerTotal(winner)
	if err != nil {
		return nil, moduleError(err)
	}
	return map[string]string{
		"winner": params.Winner,
		"total":  total.String(),
	}, nil
}

func (s *Server) handleSetMultiplier(req *RPCRequest) (interface{}, *RPCError) {
	var params setMultiplierParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetMultiplier(caller, params.Value); err != nil {
		return nil, moduleError(err)
	}
	return map[string]interface{}{"multiplier": params.Value}, nil
}

func (s *Server) handleSetPerWinnerLimit(req *RPCRequest) (interface{}, *RPCError) {
	var params setLimitParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	limit, rpcErr := parseAmount("limit", params.Limit)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetMaxBoostPerWinner(caller, limit); err != nil {
		return nil, moduleError(err)
	}
	return map[string]string{"limit": limit.String()}, nil
}

func (s *Server) handleSetSourceEligibility(req *RPCRequest) (interface{}, *RPCError) {
	var params setSourceParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	source, rpcErr := parseAddress("source", params.Source)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetSourceEligibility(caller, source, params.Eligible); err != nil {
		return nil, moduleError(err)
	}
	return map[string]interface{}{
		"source":   params.Source,
		"eligible": params.Eligible,
	}, nil
}

func (s *Server) handleWithdraw(req *RPCRequest) (interface{}, *RPCError) {
	var params withdrawParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	destination, rpcErr := parseAddress("destination", params.Destination)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.engine.Withdraw(caller, params.Token, destination, amount)
	if err != nil {
		return nil, moduleError(err)
	}
	return map[string]string{"receipt": receipt}, nil
}

func (s *Server) handlePause(req *RPCRequest) (interface{}, *RPCError) {
	var params callerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Pause(caller); err != nil {
		return nil, moduleError(err)
	}
	return map[string]bool{"paused": true}, nil
}

func (s *Server) handleResume(req *RPCRequest) (interface{}, *RPCError) {
	var params callerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Resume(caller); err != nil {
		return nil, moduleError(err)
	}
	return map[string]bool{"paused": false}, nil
}

func (s *Server) handleTransferOwnership(req *RPCRequest) (interface{}, *RPCError) {
	var params transferOwnershipParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	newOwner, rpcErr := parseOptionalAddress("newOwner", params.NewOwner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.TransferOwnership(caller, newOwner); err != nil {
		return nil, moduleError(err)
	}
	return map[string]string{"pendingOwner": params.NewOwner}, nil
}

func (s *Server) handleAcceptOwnership(req *RPCRequest) (interface{}, *RPCError) {
	var params callerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.AcceptOwnership(caller); err != nil {
		return nil, moduleError(err)
	}
	return map[string]string{"owner": params.Caller}, nil
}

func (s *Server) handleGetConfig(req *RPCRequest) (interface{}, *RPCError) {
	cfg, err := s.engine.Config()
	if err != nil {
		return nil, moduleError(err)
	}
	return map[string]interface{}{
		"multiplier":        cfg.Multiplier,
		"maxBoostPerWinner": cfg.MaxBoostPerWinner.String(),
		"reserveToken":      cfg.ReserveToken,
		"oracle":            encodeAddress(cfg.Oracle),
		"paused":            cfg.Paused,
	}, nil
}

func (s *Server) handleWinnerTotal(req *RPCRequest) (interface{}, *RPCError) {
	var params addressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	winner, rpcErr := parseAddress("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	total, err := s.engine.WinnerTotal(winner)
	if err != nil {
		return nil, moduleError(err)
	}
	return map[string]string{
		"winner": params.Address,
		"total":  total.String(),
	}, nil
}

func (s *Server) handleSourceEligible(req *RPCRequest) (interface{}, *RPCError) {
	var params addressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	source, rpcErr := parseAddress("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	eligible, err := s.engine.SourceEligible(source)
	if err != nil {
		return nil, moduleError(err)
	}
	return map[string]interface{}{
		"source":   params.Address,
		"eligible": eligible,
	}, nil
}

func (s *Server) handleOwner(req *RPCRequest) (interface{}, *RPCError) {
	owner, err := s.engine.Owner()
	if err != nil {
		return nil, moduleError(err)
	}
	result := map[string]string{"owner": encodeAddress(owner)}
	pending, ok, err := s.engine.PendingOwner()
	if err != nil {
		return nil, moduleError(err)
	}
	if ok {
		result["pendingOwner"] = encodeAddress(pending)
	}
	return result, nil
}

func (s *Server) handleReserveBalance(req *RPCRequest) (interface{}, *RPCError) {
	var params tokenParams
	if len(req.Params) > 0 {
		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			return nil, rpcErr
		}
	}
	token := strings.TrimSpace(params.Token)
	if token == "" {
		cfg, err := s.engine.Config()
		if err != nil {
			return nil, moduleError(err)
		}
		token = cfg.ReserveToken
	}
	balance, err := s.engine.ReserveBalance(token)
	if err != nil {
		return nil, moduleError(err)
	}
	return map[string]string{
		"token":   token,
		"balance": balance.String(),
	}, nil
}
