// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/secret-ballot/models"
)

// Tallier produces the raw aggregate of a closed ballot
type Tallier interface {
	Tally(ctx context.Context, ballotID string) (models.AggregateResult, error)
}

// Reader serves results. The first read after close computes the result and
// stores it as an immutable snapshot; every later read returns the snapshot.
type Reader struct {
	db      *sql.DB
	tallier Tallier
	now     func() time.Time
}

func NewReader(conn *sql.DB, tallier Tallier, now func() time.Time) *Reader {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Reader{db: conn, tallier: tallier, now: now}
}

// Results returns the published result for a closed ballot. The caller is
// responsible for checking that the ballot may be revealed.
func (r *Reader) Results(ctx context.Context, w models.BallotWindow) (models.Results, error) {
	res, found, err := r.snapshot(ctx, w.BallotID)
	if err != nil || found {
		return res, err
	}

	agg, err := r.tallier.Tally(ctx, w.BallotID)
	if err != nil {
		return models.Results{}, err
	}

	res = Build(w, agg, r.now())
	payload, err := json.Marshal(res)
	if err != nil {
		return models.Results{}, fmt.Errorf("failed to encode results: %w", err)
	}

	// A concurrent reader may have stored its snapshot first; keep theirs.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO result_snapshots (ballot_id, computed_at, inputs_hash, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ballot_id) DO NOTHING
	`, res.BallotID, res.ComputedAt, res.InputsHash, string(payload))
	if err != nil {
		return models.Results{}, fmt.Errorf("failed to store result snapshot: %w", err)
	}

	res, found, err = r.snapshot(ctx, w.BallotID)
	if err != nil {
		return models.Results{}, err
	}
	if !found {
		return models.Results{}, errors.New("result snapshot missing after insert")
	}

	slog.Info("results published", "ballot_id", w.BallotID, "total", res.Total, "inputs_hash", res.InputsHash)

	return res, nil
}

func (r *Reader) snapshot(ctx context.Context, ballotID string) (models.Results, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `
		SELECT payload FROM result_snapshots WHERE ballot_id = $1
	`, ballotID).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return models.Results{}, false, nil
	}
	if err != nil {
		return models.Results{}, false, fmt.Errorf("failed to query result snapshot: %w", err)
	}

	var res models.Results
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return models.Results{}, false, fmt.Errorf("failed to decode result snapshot: %w", err)
	}
	return res, true, nil
}
