// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the secret-ballot API server.

secret-ballot casts anonymous votes on ballots owned by a topic layer.
A signed-in voter gets a one-time voting token, spends it on a sealed
ballot, and receives a receipt that carries nothing about who voted.
Results stay hidden until the deadline.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=ballots.db BALLOT_KEY=... go run main.go

Or with flags:

	go run main.go -p 3318 -t postgres -d "postgres://..."

A .env file in the working directory is loaded first. Variables already
set in the environment win.

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite path or PostgreSQL connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for the topic layer's admin key HMAC
  - BALLOT_KEY (--ballot-key): Base64 32-byte key that seals ballot choices
  - VOTER_JWT_SECRET (--jwt-secret): Secret that signs voter sessions

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - BALLOT_KEY_ID (--ballot-key-id): Active key id (default: k1)
  - BALLOT_RETIRED_KEYS (--retired-keys): id:base64 pairs still able to open old ballots
  - VOTING_TOKEN_TTL (--token-ttl): Token lifetime (default: 30m)
  - CAST_TIME_GRANULARITY (--cast-granularity): Truncation of stored cast times (default: 1h)

# Architecture

  - handlers: HTTP request handlers (ballots, voting, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, voter sessions, JSON helpers
  - gate: Voting state machine and the cast transaction
  - tokens: Voting token issue and consume
  - ballots: Choice validation, sealed storage, tallying
  - tally: Outcome rules, runoff and result snapshots
  - seal: Ballot payload encryption
  - models: Request, response and domain types
  - auth: Identifiers, admin keys, voter JWTs
  - db: Connection, schema and the ballot directory
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
