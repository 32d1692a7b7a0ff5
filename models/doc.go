// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, domain and error types.

# Domain Types

  - BallotWindow: read-only ballot definition (type, options, window)
  - VotingToken: one voter's single-use entitlement for one ballot
  - CastBallot: one anonymous vote, sealed, with no voter reference
  - AggregateResult: raw counts of a closed ballot
  - Results: formatted results with outcome and runoff rounds

VotingToken and CastBallot share no field besides the ballot ID. Nothing
stored with a CastBallot can be traced back to a voter.

# Choice Payloads

	{"approve": true}          yes_no
	{"option": 2}              multiple_choice
	{"ranking": [1, 0, 2]}     ranked

# Errors

Sentinel errors are matched with errors.Is:

	ErrBallotNotFound, ErrBallotNotOpen, ErrBallotClosed, ErrBallotStillOpen
	ErrTokenNotFound, ErrTokenExpired, ErrTokenAlreadyUsed, ErrTokenMismatch
	ErrInvalidChoice

IsVotingError separates these from infrastructure failures.
*/
package models
