// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/secret-ballot/gate"
	"github.com/danielhkuo/secret-ballot/middleware"
)

// ResultsHandler serves the public read side: results after close, turnout
// and receipt checks at any time.
type ResultsHandler struct {
	gate *gate.Gate
}

func NewResultsHandler(g *gate.Gate) *ResultsHandler {
	return &ResultsHandler{gate: g}
}

// GetResults handles GET /ballots/{id}/results
// Results are sealed until the deadline has passed.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.gate.GetResults(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, "get results", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// GetTurnout handles GET /ballots/{id}/turnout
func (h *ResultsHandler) GetTurnout(w http.ResponseWriter, r *http.Request) {
	turnout, err := h.gate.Turnout(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, "get turnout", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, turnout)
}

// VerifyReceipt handles GET /ballots/{id}/receipts/{code}
func (h *ResultsHandler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "confirmation code is required")
		return
	}

	check, err := h.gate.VerifyReceipt(r.Context(), r.PathValue("id"), code)
	if err != nil {
		WriteError(w, "verify receipt", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, check)
}
