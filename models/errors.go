// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "errors"

// Window and lifecycle errors. The caller may retry later.
var (
	ErrBallotNotFound  = errors.New("ballot not found")
	ErrBallotNotOpen   = errors.New("ballot is not open")
	ErrBallotClosed    = errors.New("ballot is closed")
	ErrBallotStillOpen = errors.New("ballot is still open")
	ErrBallotExists    = errors.New("ballot already registered")
	ErrInvalidBallot   = errors.New("invalid ballot definition")
)

// Entitlement errors. Terminal for the attempt, never retried silently.
var (
	ErrTokenNotFound    = errors.New("voting token not found")
	ErrTokenExpired     = errors.New("voting token expired")
	ErrTokenAlreadyUsed = errors.New("voting token already used")
	ErrTokenMismatch    = errors.New("voting token does not match voter or ballot")
)

// ErrInvalidChoice is returned when a payload does not fit the ballot type.
var ErrInvalidChoice = errors.New("invalid choice")

var votingErrors = []error{
	ErrBallotNotFound, ErrBallotNotOpen, ErrBallotClosed, ErrBallotStillOpen,
	ErrBallotExists, ErrInvalidBallot,
	ErrTokenNotFound, ErrTokenExpired, ErrTokenAlreadyUsed, ErrTokenMismatch,
	ErrInvalidChoice,
}

// IsVotingError reports whether err belongs to the voting taxonomy. Anything
// else is an infrastructure failure.
func IsVotingError(err error) bool {
	for _, target := range votingErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
