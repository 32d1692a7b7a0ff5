// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/secret-ballot/auth"
	"github.com/danielhkuo/secret-ballot/db"
	"github.com/danielhkuo/secret-ballot/models"
)

// ErrNoVoter is returned when a call carries no voter identity
var ErrNoVoter = errors.New("voter id is required")

// issueAttempts bounds retries after losing a concurrent mint
const issueAttempts = 3

var errIssueRace = errors.New("concurrent token issue")

// WindowSource resolves ballot definitions
type WindowSource interface {
	Window(ctx context.Context, ballotID string) (models.BallotWindow, error)
}

// Issuer mints and consumes voting tokens. It is the only component that
// ever sees a voter ID next to a ballot ID.
type Issuer struct {
	db       *sql.DB
	windows  WindowSource
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

func NewIssuer(conn *sql.DB, windows WindowSource, ttl time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Issuer{
		db:       conn,
		windows:  windows,
		ttl:      ttl,
		now:      now,
		generate: auth.GenerateVotingToken,
	}
}

// IssueOrFetch returns the voter's live token for the ballot, minting one if
// none exists. Repeated calls return the same token until it is consumed or
// lapses.
func (i *Issuer) IssueOrFetch(ctx context.Context, voterID, ballotID string) (models.VotingToken, error) {
	if voterID == "" {
		return models.VotingToken{}, ErrNoVoter
	}

	w, err := i.windows.Window(ctx, ballotID)
	if err != nil {
		return models.VotingToken{}, err
	}

	for attempt := 0; attempt < issueAttempts; attempt++ {
		tok, err := i.issueOnce(ctx, w, voterID)
		if errors.Is(err, errIssueRace) {
			continue
		}
		return tok, err
	}

	return models.VotingToken{}, fmt.Errorf("failed to issue token after %d attempts", issueAttempts)
}

func (i *Issuer) issueOnce(ctx context.Context, w models.BallotWindow, voterID string) (models.VotingToken, error) {
	now := i.now()

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return models.VotingToken{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Outside the window nothing else matters, not even a past vote
	if !w.IsOpen(now) {
		return models.VotingToken{}, models.ErrBallotNotOpen
	}

	voted, err := hasConsumed(ctx, tx, voterID, w.BallotID)
	if err != nil {
		return models.VotingToken{}, err
	}
	if voted {
		return models.VotingToken{}, models.ErrTokenAlreadyUsed
	}

	latest, err := latestToken(ctx, tx, voterID, w.BallotID)
	if err != nil {
		return models.VotingToken{}, err
	}
	if latest != nil && !latest.IsExpired(now) {
		return *latest, nil
	}

	tokenID, err := i.generate()
	if err != nil {
		return models.VotingToken{}, err
	}

	tok := models.VotingToken{
		TokenID:   tokenID,
		BallotID:  w.BallotID,
		VoterID:   voterID,
		ExpiresAt: now.Add(i.ttl),
		IssuedAt:  now,
	}
	if tok.ExpiresAt.After(w.DeadlineAt) {
		tok.ExpiresAt = w.DeadlineAt
	}
	if latest != nil {
		tok.Seq = latest.Seq + 1
	}

	// UNIQUE (ballot_id, voter_id, seq) turns a concurrent mint into a
	// constraint failure for the slower request.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO voting_tokens (token_id, ballot_id, voter_id, seq, consumed, expires_at, issued_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
	`, tok.TokenID, tok.BallotID, tok.VoterID, tok.Seq, tok.ExpiresAt, tok.IssuedAt)
	if db.IsUniqueViolation(err) {
		return models.VotingToken{}, errIssueRace
	}
	if err != nil {
		return models.VotingToken{}, fmt.Errorf("failed to insert voting token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if db.IsUniqueViolation(err) {
			return models.VotingToken{}, errIssueRace
		}
		return models.VotingToken{}, fmt.Errorf("failed to commit voting token: %w", err)
	}

	slog.Info("voting token issued", "ballot_id", tok.BallotID, "seq", tok.Seq)

	return tok, nil
}

// Consume marks a token used and returns who it belonged to. The returned
// identity is for consistency checks only and must not be stored with the
// ballot. Run it inside the caller's transaction so a failed cast undoes it.
func (i *Issuer) Consume(ctx context.Context, q db.Querier, tokenID string) (voterID, ballotID string, err error) {
	if auth.ValidateTokenFormat(tokenID) != nil {
		return "", "", models.ErrTokenNotFound
	}

	now := i.now()

	var consumed bool
	var expiresAt time.Time
	err = q.QueryRowContext(ctx, `
		SELECT voter_id, ballot_id, consumed, expires_at
		FROM voting_tokens
		WHERE token_id = $1
	`, tokenID).Scan(&voterID, &ballotID, &consumed, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return "", "", models.ErrTokenNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to query voting token: %w", err)
	}

	if consumed {
		return "", "", models.ErrTokenAlreadyUsed
	}
	if !now.Before(expiresAt) {
		return "", "", models.ErrTokenExpired
	}

	// Compare-and-swap: a concurrent consumer that got here first leaves
	// nothing for us to update.
	res, err := q.ExecContext(ctx, `
		UPDATE voting_tokens
		SET consumed = TRUE, consumed_at = $1
		WHERE token_id = $2 AND consumed = FALSE
	`, now, tokenID)
	if err != nil {
		return "", "", fmt.Errorf("failed to consume voting token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", "", fmt.Errorf("failed to consume voting token: %w", err)
	}
	if n != 1 {
		return "", "", models.ErrTokenAlreadyUsed
	}

	var used int
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM voting_tokens
		WHERE ballot_id = $1 AND voter_id = $2 AND consumed = TRUE
	`, ballotID, voterID).Scan(&used)
	if err != nil {
		return "", "", fmt.Errorf("failed to count consumed tokens: %w", err)
	}
	if used > 1 {
		return "", "", models.ErrTokenAlreadyUsed
	}

	return voterID, ballotID, nil
}

// Latest returns the most recent token for the pair, or nil. Read-only.
func (i *Issuer) Latest(ctx context.Context, voterID, ballotID string) (*models.VotingToken, error) {
	return latestToken(ctx, i.db, voterID, ballotID)
}

// Window exposes the ballot definition the issuer validates against
func (i *Issuer) Window(ctx context.Context, ballotID string) (models.BallotWindow, error) {
	return i.windows.Window(ctx, ballotID)
}

func latestToken(ctx context.Context, q db.Querier, voterID, ballotID string) (*models.VotingToken, error) {
	var tok models.VotingToken
	var consumedAt sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT token_id, ballot_id, voter_id, seq, consumed, consumed_at, expires_at, issued_at
		FROM voting_tokens
		WHERE ballot_id = $1 AND voter_id = $2
		ORDER BY seq DESC
		LIMIT 1
	`, ballotID, voterID).Scan(
		&tok.TokenID, &tok.BallotID, &tok.VoterID, &tok.Seq,
		&tok.Consumed, &consumedAt, &tok.ExpiresAt, &tok.IssuedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest token: %w", err)
	}

	if consumedAt.Valid {
		t := consumedAt.Time.UTC()
		tok.ConsumedAt = &t
	}
	tok.ExpiresAt = tok.ExpiresAt.UTC()
	tok.IssuedAt = tok.IssuedAt.UTC()

	return &tok, nil
}

func hasConsumed(ctx context.Context, q db.Querier, voterID, ballotID string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM voting_tokens
			WHERE ballot_id = $1 AND voter_id = $2 AND consumed = TRUE
		)
	`, ballotID, voterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check consumed tokens: %w", err)
	}
	return exists, nil
}
