// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the secret-ballot API.

# Route Registration

NewRouter wires the voting core and returns a configured http.ServeMux:

	mux := router.NewRouter(db, cfg, keyring, time.Now)

# Endpoints

Health:

	GET /health

Ballot registration (topic layer, requires X-Admin-Key):

	PUT /ballots/{id} - Register a ballot definition
	GET /ballots/{id} - Ballot window and options

Voting (requires Authorization: Bearer <voter jwt>):

	GET  /ballots/{id}/state - Voting state for the signed-in voter
	POST /ballots/{id}/token - Issue or fetch a voting token
	POST /ballots/{id}/votes - Cast with X-Voting-Token

Results (public):

	GET /ballots/{id}/results         - Results (after the deadline only)
	GET /ballots/{id}/turnout         - Number of ballots cast
	GET /ballots/{id}/receipts/{code} - Check a confirmation code
*/
package router
