// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/secret-ballot/ballots"
	"github.com/danielhkuo/secret-ballot/cliparse"
	"github.com/danielhkuo/secret-ballot/db"
	"github.com/danielhkuo/secret-ballot/gate"
	"github.com/danielhkuo/secret-ballot/middleware"
	"github.com/danielhkuo/secret-ballot/tally"
	"github.com/danielhkuo/secret-ballot/testutil"
	"github.com/danielhkuo/secret-ballot/tokens"
)

var (
	opens    = testutil.Date(2024, time.January, 1, 0)
	deadline = testutil.Date(2024, time.January, 8, 0)
)

type testEnv struct {
	db      *sql.DB
	cfg     cliparse.Config
	clock   *testutil.Clock
	ballots *BallotHandler
	voting  *VotingHandler
	results *ResultsHandler
}

func setupEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	t.Cleanup(func() { conn.Close() })

	cfg := testutil.GetTestConfig()
	clock := testutil.NewClock(now)
	dir := db.NewDirectory(conn)
	issuer := tokens.NewIssuer(conn, dir, cfg.TokenTTL, clock.Now)
	store := ballots.NewStore(conn, testutil.TestKeyring(t), dir, cfg.CastGranularity, clock.Now)
	g := gate.New(conn, issuer, store, tally.NewReader(conn, store, clock.Now), clock.Now)

	return &testEnv{
		db:      conn,
		cfg:     cfg,
		clock:   clock,
		ballots: NewBallotHandler(dir, cfg, clock.Now),
		voting:  NewVotingHandler(g),
		results: NewResultsHandler(g),
	}
}

// asVoter wraps a voting handler the way the router does
func (e *testEnv) asVoter(h http.HandlerFunc) http.HandlerFunc {
	return middleware.WithVoter(e.cfg.JWTSecret, h)
}

// serve runs one request against a handler with the ballot id path value set
func serve(h http.HandlerFunc, req *http.Request, ballotID string) *httptest.ResponseRecorder {
	req.SetPathValue("id", ballotID)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func withHeader(headers map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out[key] = value
	return out
}
