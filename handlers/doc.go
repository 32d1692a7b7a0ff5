// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the secret-ballot API.

# Handler Types

  - BallotHandler: Ballot registration by the topic layer
  - VotingHandler: Voting state, token requests and casting
  - ResultsHandler: Results, turnout and receipt checks

Voting and results handlers share one *gate.Gate:

	g := gate.New(conn, issuer, store, reader, func() time.Time { return time.Now().UTC() })
	votingHandler := handlers.NewVotingHandler(g)

# Voting Flow

	GET  /ballots/{id}/state → GetState
	POST /ballots/{id}/token → RequestToken (returns token_id, expires_at)
	POST /ballots/{id}/votes → CastVote (returns a receipt)

The voter comes from the session set by middleware.WithVoter. The token
travels in the X-Voting-Token header or the token_id body field.

# Errors

WriteError maps domain errors to a status and a plain message. Anything
it does not recognise is logged and answered with a generic 500, so
database detail never reaches the client.
*/
package handlers
