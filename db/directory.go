// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/secret-ballot/models"
)

// MaxOptions bounds the option set of a single ballot
const MaxOptions = 64

// Directory reads ballot definitions. The topic layer owns them; the voting
// core only reads, apart from Register which is the topic layer's entry point.
type Directory struct {
	db Querier
}

func NewDirectory(db Querier) *Directory {
	return &Directory{db: db}
}

// Window returns the ballot definition or models.ErrBallotNotFound
func (d *Directory) Window(ctx context.Context, ballotID string) (models.BallotWindow, error) {
	var w models.BallotWindow
	var options []byte
	err := d.db.QueryRowContext(ctx, `
		SELECT id, type, options, opens_at, deadline_at
		FROM ballot_definitions
		WHERE id = $1
	`, ballotID).Scan(&w.BallotID, &w.Type, &options, &w.OpensAt, &w.DeadlineAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.BallotWindow{}, models.ErrBallotNotFound
	}
	if err != nil {
		return models.BallotWindow{}, fmt.Errorf("failed to query ballot definition: %w", err)
	}

	if err := json.Unmarshal(options, &w.Options); err != nil {
		return models.BallotWindow{}, fmt.Errorf("failed to decode options of %s: %w", ballotID, err)
	}
	w.OpensAt = w.OpensAt.UTC()
	w.DeadlineAt = w.DeadlineAt.UTC()

	return w, nil
}

// Register stores a new ballot definition. Definitions are immutable: a
// second registration of the same ID fails with models.ErrBallotExists.
func (d *Directory) Register(ctx context.Context, w models.BallotWindow, now time.Time) (models.BallotWindow, error) {
	w, err := NormalizeWindow(w)
	if err != nil {
		return models.BallotWindow{}, err
	}

	options, err := json.Marshal(w.Options)
	if err != nil {
		return models.BallotWindow{}, fmt.Errorf("failed to encode options: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO ballot_definitions (id, type, options, opens_at, deadline_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.BallotID, w.Type, string(options), w.OpensAt, w.DeadlineAt, now.UTC())

	if IsUniqueViolation(err) {
		return models.BallotWindow{}, models.ErrBallotExists
	}
	if err != nil {
		return models.BallotWindow{}, fmt.Errorf("failed to insert ballot definition: %w", err)
	}

	return w, nil
}

// NormalizeWindow validates a definition and fills in the fixed yes/no options
func NormalizeWindow(w models.BallotWindow) (models.BallotWindow, error) {
	w.BallotID = strings.TrimSpace(w.BallotID)
	if w.BallotID == "" {
		return w, fmt.Errorf("%w: ballot id is required", models.ErrInvalidBallot)
	}
	if w.OpensAt.IsZero() || w.DeadlineAt.IsZero() {
		return w, fmt.Errorf("%w: opens_at and deadline_at are required", models.ErrInvalidBallot)
	}
	if !w.OpensAt.Before(w.DeadlineAt) {
		return w, fmt.Errorf("%w: opens_at must be before deadline_at", models.ErrInvalidBallot)
	}
	w.OpensAt = w.OpensAt.UTC()
	w.DeadlineAt = w.DeadlineAt.UTC()

	switch w.Type {
	case models.TypeYesNo:
		w.Options = append([]string(nil), models.YesNoOptions...)
		return w, nil
	case models.TypeMultipleChoice, models.TypeRanked:
	default:
		return w, fmt.Errorf("%w: unknown ballot type %q", models.ErrInvalidBallot, w.Type)
	}

	if len(w.Options) < 2 {
		return w, fmt.Errorf("%w: at least 2 options required", models.ErrInvalidBallot)
	}
	if len(w.Options) > MaxOptions {
		return w, fmt.Errorf("%w: at most %d options allowed", models.ErrInvalidBallot, MaxOptions)
	}

	w.Options = append([]string(nil), w.Options...)
	seen := make(map[string]bool, len(w.Options))
	for i, label := range w.Options {
		label = strings.TrimSpace(label)
		if label == "" {
			return w, fmt.Errorf("%w: option %d has an empty label", models.ErrInvalidBallot, i)
		}
		if seen[label] {
			return w, fmt.Errorf("%w: duplicate option %q", models.ErrInvalidBallot, label)
		}
		seen[label] = true
		w.Options[i] = label
	}

	return w, nil
}
