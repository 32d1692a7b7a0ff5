// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/secret-ballot/ballots"
	"github.com/danielhkuo/secret-ballot/models"
	"github.com/danielhkuo/secret-ballot/tally"
	"github.com/danielhkuo/secret-ballot/tokens"
)

// Gate answers "can this voter vote now", hands out tokens, casts votes and
// releases results once the window has closed.
type Gate struct {
	db     *sql.DB
	issuer *tokens.Issuer
	store  *ballots.Store
	reader *tally.Reader
	now    func() time.Time
}

func New(conn *sql.DB, issuer *tokens.Issuer, store *ballots.Store, reader *tally.Reader, now func() time.Time) *Gate {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Gate{
		db:     conn,
		issuer: issuer,
		store:  store,
		reader: reader,
		now:    now,
	}
}

// GetVotingState is read-only: it never mints a token.
func (g *Gate) GetVotingState(ctx context.Context, voterID, ballotID string) (models.VotingState, error) {
	if voterID == "" {
		return models.VotingState{}, tokens.ErrNoVoter
	}

	w, err := g.issuer.Window(ctx, ballotID)
	if err != nil {
		return models.VotingState{}, err
	}

	latest, err := g.issuer.Latest(ctx, voterID, ballotID)
	if err != nil {
		return models.VotingState{}, err
	}

	now := g.now()
	state := Derive(w, latest, now)

	vs := models.VotingState{
		BallotID:   w.BallotID,
		State:      string(state),
		OpensAt:    w.OpensAt,
		DeadlineAt: w.DeadlineAt,
		CanReveal:  w.IsPast(now),
		Relative:   relative(w, now),
	}
	if state == EligibleTokenIssued {
		exp := latest.ExpiresAt
		vs.ExpiresAt = &exp
	}

	return vs, nil
}

// RequestToken returns the voter's live token, minting one if needed.
// The pair must be able to move into EligibleTokenIssued from where it
// stands now.
func (g *Gate) RequestToken(ctx context.Context, voterID, ballotID string) (models.TokenResponse, error) {
	if voterID == "" {
		return models.TokenResponse{}, tokens.ErrNoVoter
	}

	w, err := g.issuer.Window(ctx, ballotID)
	if err != nil {
		return models.TokenResponse{}, err
	}
	if !w.IsOpen(g.now()) {
		return models.TokenResponse{}, models.ErrBallotNotOpen
	}

	latest, err := g.issuer.Latest(ctx, voterID, ballotID)
	if err != nil {
		return models.TokenResponse{}, err
	}
	from := Derive(w, latest, g.now())
	if from != EligibleTokenIssued {
		if err := checkTransition(from, EligibleTokenIssued); err != nil {
			return models.TokenResponse{}, err
		}
	}

	tok, err := g.issuer.IssueOrFetch(ctx, voterID, ballotID)
	if err != nil {
		return models.TokenResponse{}, err
	}
	return models.TokenResponse{TokenID: tok.TokenID, ExpiresAt: tok.ExpiresAt}, nil
}

// CastVote consumes the token and records the ballot in one transaction.
// If anything after consumption fails the token stays usable.
func (g *Gate) CastVote(ctx context.Context, voterID, ballotID, tokenID string, choice json.RawMessage) (models.Receipt, error) {
	w, err := g.issuer.Window(ctx, ballotID)
	if err != nil {
		return models.Receipt{}, err
	}
	if !w.IsOpen(g.now()) {
		return models.Receipt{}, models.ErrBallotClosed
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Receipt{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tokVoter, tokBallot, err := g.issuer.Consume(ctx, tx, tokenID)
	if err != nil {
		return models.Receipt{}, err
	}
	if tokVoter != voterID || tokBallot != ballotID {
		return models.Receipt{}, models.ErrTokenMismatch
	}

	cb, err := g.store.Cast(ctx, tx, w, choice)
	if err != nil {
		return models.Receipt{}, err
	}

	// The deadline may have passed while we waited for the database. A vote
	// committed after it could miss a result snapshot already taken.
	if !w.IsOpen(g.now()) {
		return models.Receipt{}, models.ErrBallotClosed
	}

	if err := tx.Commit(); err != nil {
		return models.Receipt{}, fmt.Errorf("failed to commit vote: %w", err)
	}

	slog.Info("ballot cast", "ballot_id", ballotID)

	return models.Receipt{
		BallotID:         cb.BallotID,
		CastAt:           cb.CastAt,
		ConfirmationCode: cb.ConfirmationCode,
	}, nil
}

// CanReveal reports whether the ballot's deadline has passed.
func (g *Gate) CanReveal(ctx context.Context, ballotID string) (bool, error) {
	w, err := g.issuer.Window(ctx, ballotID)
	if err != nil {
		return false, err
	}
	return w.IsPast(g.now()), nil
}

// GetResults returns the published result, or models.ErrBallotStillOpen
// before the deadline.
func (g *Gate) GetResults(ctx context.Context, ballotID string) (models.Results, error) {
	w, err := g.issuer.Window(ctx, ballotID)
	if err != nil {
		return models.Results{}, err
	}
	if !w.IsPast(g.now()) {
		return models.Results{}, models.ErrBallotStillOpen
	}
	return g.reader.Results(ctx, w)
}

func (g *Gate) Turnout(ctx context.Context, ballotID string) (models.TurnoutResponse, error) {
	if _, err := g.issuer.Window(ctx, ballotID); err != nil {
		return models.TurnoutResponse{}, err
	}
	n, err := g.store.Count(ctx, ballotID)
	if err != nil {
		return models.TurnoutResponse{}, err
	}
	return models.TurnoutResponse{BallotID: ballotID, CastCount: n}, nil
}

func (g *Gate) VerifyReceipt(ctx context.Context, ballotID, code string) (models.ReceiptCheckResponse, error) {
	if _, err := g.issuer.Window(ctx, ballotID); err != nil {
		return models.ReceiptCheckResponse{}, err
	}
	return g.store.VerifyReceipt(ctx, ballotID, code)
}

func relative(w models.BallotWindow, now time.Time) string {
	switch {
	case now.Before(w.OpensAt):
		return "opens " + humanize.RelTime(w.OpensAt, now, "ago", "from now")
	case w.IsPast(now):
		return "closed " + humanize.RelTime(w.DeadlineAt, now, "ago", "from now")
	default:
		return "closes " + humanize.RelTime(w.DeadlineAt, now, "ago", "from now")
	}
}
