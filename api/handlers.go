package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// ──────────────────────────────────────────────────
// Request and response bodies
// ──────────────────────────────────────────────────

type initializeRequest struct {
	Admin types.Address `json:"admin"`
}

type emergencyRequest struct {
	Admin   types.Address `json:"admin"`
	Enabled bool          `json:"enabled"`
}

type emergencyResponse struct {
	Enabled bool `json:"enabled"`
}

type createStreamRequest struct {
	Sender    types.Address `json:"sender"`
	Recipient types.Address `json:"recipient"`
	Asset     types.Asset   `json:"asset"`
	Amount    types.Amount  `json:"amount"`
	Duration  uint64        `json:"duration"`
}

type createStreamResponse struct {
	StreamID uint64         `json:"stream_id"`
	Stream   *stream.Stream `json:"stream"`
}

type topUpRequest struct {
	Sender types.Address `json:"sender"`
	Amount types.Amount  `json:"amount"`
}

type withdrawRequest struct {
	Recipient types.Address `json:"recipient"`
}

type cancelRequest struct {
	Sender types.Address `json:"sender"`
}

type amountResponse struct {
	StreamID uint64       `json:"stream_id"`
	Amount   types.Amount `json:"amount"`
}

type streamView struct {
	*stream.Stream
	Status    stream.Status `json:"status"`
	Claimable types.Amount  `json:"claimable"`
	EndTime   uint64        `json:"end_time"`
}

func viewOf(s *stream.Stream) streamView {
	return streamView{
		Stream:    s,
		Status:    s.Status(),
		Claimable: s.Claimable(),
		EndTime:   s.EndTime(),
	}
}

// ──────────────────────────────────────────────────
// Governance
// ──────────────────────────────────────────────────

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.ledgerFor(r).Initialize(r.Context(), req.Admin); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, initializeRequest{Admin: req.Admin})
}

func (s *Server) handleGetEmergency(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.ledgerFor(r).IsEmergencyMode(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emergencyResponse{Enabled: enabled})
}

func (s *Server) handleSetEmergency(w http.ResponseWriter, r *http.Request) {
	var req emergencyRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.ledgerFor(r).SetEmergencyMode(r.Context(), req.Admin, req.Enabled); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emergencyResponse{Enabled: req.Enabled})
}

// ──────────────────────────────────────────────────
// Streams
// ──────────────────────────────────────────────────

func (s *Server) handleCreateStream(w http.ResponseWriter, r *http.Request) {
	var req createStreamRequest
	if !decode(w, r, &req) {
		return
	}
	l := s.ledgerFor(r)
	id, err := l.CreateStream(r.Context(), req.Sender, req.Recipient, req.Asset, req.Amount, req.Duration)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := l.GetStream(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createStreamResponse{StreamID: id, Stream: st})
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	opts, err := listOpts(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	streams, err := s.ledgerFor(r).ListStreams(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views := make([]streamView, len(streams))
	for i, st := range streams {
		views[i] = viewOf(st)
	}
	writeJSON(w, http.StatusOK, map[string]any{"streams": views})
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}
	st, err := s.ledgerFor(r).GetStream(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(st))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}
	split, err := s.ledgerFor(r).Preview(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, split)
}

func (s *Server) handleClaimable(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}
	amount, err := s.ledgerFor(r).Claimable(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{StreamID: id, Amount: amount})
}

func (s *Server) handleTopUp(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}
	var req topUpRequest
	if !decode(w, r, &req) {
		return
	}
	l := s.ledgerFor(r)
	if err := l.TopUpStream(r.Context(), req.Sender, id, req.Amount); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := l.GetStream(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(st))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}
	var req withdrawRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := s.ledgerFor(r).Withdraw(r.Context(), req.Recipient, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{StreamID: id, Amount: amount})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if !decode(w, r, &req) {
		return
	}
	split, err := s.ledgerFor(r).CancelStream(r.Context(), req.Sender, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, split)
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledgerFor(r).Summary(r.Context(), types.Address(chi.URLParam(r, "address")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

const maxBodyBytes = 1 << 20

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

func streamID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "streamID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("bad stream id %q", raw))
		return 0, false
	}
	return id, true
}

func listOpts(r *http.Request) (stream.ListOpts, error) {
	q := r.URL.Query()
	opts := stream.ListOpts{
		Party: types.Address(q.Get("party")),
		Role:  stream.Role(q.Get("role")),
		Asset: types.Asset(q.Get("asset")),
	}

	switch opts.Role {
	case stream.RoleAny, stream.RoleSender, stream.RoleRecipient:
	default:
		return opts, streamledger.ValidationError{Field: "role", Message: "must be sender or recipient"}
	}

	var err error
	if opts.ActiveOnly, err = boolParam(q.Get("active")); err != nil {
		return opts, streamledger.ValidationError{Field: "active", Message: err.Error()}
	}
	if opts.Settling, err = boolParam(q.Get("settling")); err != nil {
		return opts, streamledger.ValidationError{Field: "settling", Message: err.Error()}
	}
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		return opts, streamledger.ValidationError{Field: "limit", Message: err.Error()}
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		return opts, streamledger.ValidationError{Field: "offset", Message: err.Error()}
	}
	return opts, nil
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return n, nil
}
