// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/secret-ballot/middleware"
	"github.com/danielhkuo/secret-ballot/models"
	"github.com/danielhkuo/secret-ballot/tokens"
)

const retryMessage = "Something went wrong, please try again"

// WriteError maps a voting error to a status code and a plain message.
// Anything outside the voting taxonomy is an infrastructure failure: it is
// logged and the user gets a generic retry prompt.
func WriteError(w http.ResponseWriter, op string, err error) {
	if !models.IsVotingError(err) && !errors.Is(err, tokens.ErrNoVoter) {
		slog.Error(op+" failed", "error", err)
	}
	status, message := classify(err)
	middleware.ErrorResponse(w, status, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrBallotNotFound):
		return http.StatusNotFound, "Ballot not found"
	case errors.Is(err, models.ErrBallotNotOpen):
		return http.StatusConflict, "Voting is not open for this ballot"
	case errors.Is(err, models.ErrBallotClosed):
		return http.StatusConflict, "Voting has closed"
	case errors.Is(err, models.ErrBallotStillOpen):
		return http.StatusForbidden, "Results are hidden until voting closes"
	case errors.Is(err, models.ErrBallotExists):
		return http.StatusConflict, "Ballot already registered"
	case errors.Is(err, models.ErrInvalidBallot):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, models.ErrTokenNotFound):
		return http.StatusUnauthorized, "Your voting token was not recognised"
	case errors.Is(err, models.ErrTokenExpired):
		return http.StatusGone, "Your voting token has expired, please request a new one"
	case errors.Is(err, models.ErrTokenAlreadyUsed):
		return http.StatusConflict, "You have already voted"
	case errors.Is(err, models.ErrTokenMismatch):
		return http.StatusForbidden, "This voting token is not yours to use"

	case errors.Is(err, models.ErrInvalidChoice):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, tokens.ErrNoVoter):
		return http.StatusUnauthorized, "Please sign in to vote"
	}

	return http.StatusInternalServerError, retryMessage
}
