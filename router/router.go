// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/danielhkuo/secret-ballot/ballots"
	"github.com/danielhkuo/secret-ballot/cliparse"
	"github.com/danielhkuo/secret-ballot/db"
	"github.com/danielhkuo/secret-ballot/gate"
	"github.com/danielhkuo/secret-ballot/handlers"
	"github.com/danielhkuo/secret-ballot/middleware"
	"github.com/danielhkuo/secret-ballot/seal"
	"github.com/danielhkuo/secret-ballot/tally"
	"github.com/danielhkuo/secret-ballot/tokens"
)

func NewRouter(conn *sql.DB, cfg cliparse.Config, keyring *seal.Keyring, now func() time.Time) *http.ServeMux {
	mux := http.NewServeMux()

	// Every stored and returned time is UTC, whatever clock we were given
	if now == nil {
		now = time.Now
	}
	clock := now
	now = func() time.Time { return clock().UTC() }

	// Wire the voting core
	dir := db.NewDirectory(conn)
	issuer := tokens.NewIssuer(conn, dir, cfg.TokenTTL, now)
	store := ballots.NewStore(conn, keyring, dir, cfg.CastGranularity, now)
	reader := tally.NewReader(conn, store, now)
	g := gate.New(conn, issuer, store, reader, now)

	// Initialize handlers
	ballotHandler := handlers.NewBallotHandler(dir, cfg, now)
	votingHandler := handlers.NewVotingHandler(g)
	resultsHandler := handlers.NewResultsHandler(g)

	voter := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.WithVoter(cfg.JWTSecret, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Ballot registration (topic layer, requires X-Admin-Key)
	mux.HandleFunc("PUT /ballots/{id}", middleware.WithLogging(ballotHandler.Register))
	mux.HandleFunc("GET /ballots/{id}", middleware.WithLogging(ballotHandler.Get))

	// Voting (signed-in voters)
	mux.HandleFunc("GET /ballots/{id}/state", voter(votingHandler.GetState))
	mux.HandleFunc("POST /ballots/{id}/token", voter(votingHandler.RequestToken))
	mux.HandleFunc("POST /ballots/{id}/votes", voter(votingHandler.CastVote))

	// Results (public, sealed until the deadline)
	mux.HandleFunc("GET /ballots/{id}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /ballots/{id}/turnout", middleware.WithLogging(resultsHandler.GetTurnout))
	mux.HandleFunc("GET /ballots/{id}/receipts/{code}", middleware.WithLogging(resultsHandler.VerifyReceipt))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secret-ballot API v1"))
	})

	return mux
}
