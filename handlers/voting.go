// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/secret-ballot/gate"
	"github.com/danielhkuo/secret-ballot/middleware"
	"github.com/danielhkuo/secret-ballot/models"
)

// VotingHandler serves the voter-facing calls. Every route is wrapped in
// middleware.WithVoter, so the voter ID comes from the request context.
type VotingHandler struct {
	gate *gate.Gate
}

func NewVotingHandler(g *gate.Gate) *VotingHandler {
	return &VotingHandler{gate: g}
}

// GetState handles GET /ballots/{id}/state
func (h *VotingHandler) GetState(w http.ResponseWriter, r *http.Request) {
	voterID, ok := middleware.VoterFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Please sign in to vote")
		return
	}

	state, err := h.gate.GetVotingState(r.Context(), voterID, r.PathValue("id"))
	if err != nil {
		WriteError(w, "get voting state", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, state)
}

// RequestToken handles POST /ballots/{id}/token
// Idempotent: a voter with a live token gets the same one back.
func (h *VotingHandler) RequestToken(w http.ResponseWriter, r *http.Request) {
	voterID, ok := middleware.VoterFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Please sign in to vote")
		return
	}

	tok, err := h.gate.RequestToken(r.Context(), voterID, r.PathValue("id"))
	if err != nil {
		WriteError(w, "request token", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, tok)
}

// CastVote handles POST /ballots/{id}/votes
// The token comes from the X-Voting-Token header, or token_id in the body.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	voterID, ok := middleware.VoterFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Please sign in to vote")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	tokenID := r.Header.Get("X-Voting-Token")
	if tokenID == "" {
		tokenID = req.TokenID
	}
	if tokenID == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "A voting token is required, please request one first")
		return
	}

	receipt, err := h.gate.CastVote(r.Context(), voterID, r.PathValue("id"), tokenID, req.Choice)
	if err != nil {
		WriteError(w, "cast vote", err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, receipt)
}
