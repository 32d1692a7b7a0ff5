// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/secret-ballot/auth"
	"github.com/danielhkuo/secret-ballot/cliparse"
	"github.com/danielhkuo/secret-ballot/db"
	"github.com/danielhkuo/secret-ballot/middleware"
	"github.com/danielhkuo/secret-ballot/models"
)

// BallotHandler is the topic layer's entry point for ballot definitions
type BallotHandler struct {
	dir *db.Directory
	cfg cliparse.Config
	now func() time.Time
}

func NewBallotHandler(dir *db.Directory, cfg cliparse.Config, now func() time.Time) *BallotHandler {
	if now == nil {
		now = time.Now
	}
	return &BallotHandler{dir: dir, cfg: cfg, now: now}
}

// Register handles PUT /ballots/{id}
func (h *BallotHandler) Register(w http.ResponseWriter, r *http.Request) {
	ballotID := r.PathValue("id")
	if ballotID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ballot id is required")
		return
	}

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(ballotID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var req models.RegisterBallotRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	window, err := h.dir.Register(r.Context(), models.BallotWindow{
		BallotID:   ballotID,
		Type:       req.Type,
		Options:    req.Options,
		OpensAt:    req.OpensAt,
		DeadlineAt: req.DeadlineAt,
	}, h.now())
	if err != nil {
		WriteError(w, "register ballot", err)
		return
	}

	slog.Info("ballot registered", "ballot_id", window.BallotID, "type", window.Type,
		"opens_at", window.OpensAt, "deadline_at", window.DeadlineAt)

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterBallotResponse{
		BallotID: window.BallotID,
	})
}

// Get handles GET /ballots/{id}
func (h *BallotHandler) Get(w http.ResponseWriter, r *http.Request) {
	window, err := h.dir.Window(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, "get ballot", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, window)
}
