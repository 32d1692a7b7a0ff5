// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielhkuo/secret-ballot/models"
	"github.com/danielhkuo/secret-ballot/testutil"
)

func TestResultsSealedUntilDeadline(t *testing.T) {
	env := setupEnv(t, testutil.Date(2024, time.January, 2, 0))
	testutil.CreateTestBallot(t, env.db, "referendum", models.TypeYesNo, nil, opens, deadline)

	tok := requestToken(t, env, "citizen-1", "referendum")
	testutil.AssertStatus(t, castVote(t, env, "citizen-1", "referendum", tok.TokenID, `{"approve": true}`), http.StatusCreated)

	for _, now := range []time.Time{opens, deadline.Add(-time.Second)} {
		env.clock.Set(now)
		w := serve(env.results.GetResults, testutil.MakeRequest("GET", "/ballots/referendum/results", nil, nil), "referendum")
		testutil.AssertStatus(t, w, http.StatusForbidden)
		if !containsMessage(t, w, "Results are hidden until voting closes") {
			t.Errorf("Expected sealed message, got %s", w.Body.String())
		}
	}

	env.clock.Set(deadline)
	w := serve(env.results.GetResults, testutil.MakeRequest("GET", "/ballots/referendum/results", nil, nil), "referendum")
	testutil.AssertStatus(t, w, http.StatusOK)

	var res models.Results
	testutil.AssertJSON(t, w, &res)
	if res.Total != 1 || res.Options[0].Count != 1 || res.Options[1].Count != 0 {
		t.Errorf("Expected yes=1 no=0 total=1, got %+v", res)
	}
	if res.Options[0].PercentText != "100%" {
		t.Errorf("Expected 100%%, got %s", res.Options[0].PercentText)
	}
	if res.InputsHash == "" {
		t.Error("Expected inputs_hash in results")
	}
}

func TestResultsUnknownBallot(t *testing.T) {
	env := setupEnv(t, deadline)

	for _, h := range []http.HandlerFunc{env.results.GetResults, env.results.GetTurnout} {
		w := serve(h, testutil.MakeRequest("GET", "/ballots/nope/results", nil, nil), "nope")
		testutil.AssertStatus(t, w, http.StatusNotFound)
	}
}

func TestTurnoutWhileOpen(t *testing.T) {
	env := setupEnv(t, testutil.Date(2024, time.January, 2, 0))
	testutil.CreateTestBallot(t, env.db, "referendum", models.TypeYesNo, nil, opens, deadline)

	for _, voter := range []string{"citizen-1", "citizen-2"} {
		tok := requestToken(t, env, voter, "referendum")
		testutil.AssertStatus(t, castVote(t, env, voter, "referendum", tok.TokenID, `{"approve": false}`), http.StatusCreated)
	}
	// An issued but unused token does not count
	requestToken(t, env, "citizen-3", "referendum")

	w := serve(env.results.GetTurnout, testutil.MakeRequest("GET", "/ballots/referendum/turnout", nil, nil), "referendum")
	testutil.AssertStatus(t, w, http.StatusOK)

	var turnout models.TurnoutResponse
	testutil.AssertJSON(t, w, &turnout)
	if turnout.CastCount != 2 {
		t.Errorf("Expected cast_count 2, got %d", turnout.CastCount)
	}
}

func TestVerifyReceipt(t *testing.T) {
	env := setupEnv(t, testutil.Date(2024, time.January, 2, 0))
	testutil.CreateTestBallot(t, env.db, "referendum", models.TypeYesNo, nil, opens, deadline)

	tok := requestToken(t, env, "citizen-1", "referendum")
	w := castVote(t, env, "citizen-1", "referendum", tok.TokenID, `{"approve": true}`)
	var receipt models.Receipt
	testutil.AssertJSON(t, w, &receipt)

	check := func(code string) models.ReceiptCheckResponse {
		t.Helper()
		req := testutil.MakeRequest("GET", "/ballots/referendum/receipts/"+code, nil, nil)
		req.SetPathValue("code", code)
		w := serve(env.results.VerifyReceipt, req, "referendum")
		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.ReceiptCheckResponse
		testutil.AssertJSON(t, w, &resp)
		return resp
	}

	if resp := check(receipt.ConfirmationCode); !resp.Recorded || resp.CastAt == nil {
		t.Errorf("Expected receipt to verify, got %+v", resp)
	}
	if resp := check("zzzzzz"); resp.Recorded {
		t.Errorf("Expected unknown code not to verify, got %+v", resp)
	}

	req := testutil.MakeRequest("GET", "/ballots/referendum/receipts/", nil, nil)
	w = serve(env.results.VerifyReceipt, req, "referendum")
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}
