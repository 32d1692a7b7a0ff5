// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballots

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/danielhkuo/secret-ballot/auth"
	"github.com/danielhkuo/secret-ballot/db"
	"github.com/danielhkuo/secret-ballot/models"
	"github.com/danielhkuo/secret-ballot/seal"
)

// NonceBytes is the size of the per-cast random nonce fed into the
// uniqueness hash.
const NonceBytes = 32

// WindowSource resolves ballot definitions
type WindowSource interface {
	Window(ctx context.Context, ballotID string) (models.BallotWindow, error)
}

// Store records anonymous ballots. Nothing it writes or reads refers to a
// voter or a voting token.
type Store struct {
	db          *sql.DB
	keyring     *seal.Keyring
	windows     WindowSource
	granularity time.Duration
	now         func() time.Time
}

func NewStore(conn *sql.DB, keyring *seal.Keyring, windows WindowSource, granularity time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		db:          conn,
		keyring:     keyring,
		windows:     windows,
		granularity: granularity,
		now:         now,
	}
}

// Cast validates, seals and appends one ballot. q is normally the caller's
// transaction so the insert commits or rolls back with the token consumption.
func (s *Store) Cast(ctx context.Context, q db.Querier, w models.BallotWindow, raw json.RawMessage) (models.CastBallot, error) {
	payload, err := ValidateChoice(w, raw)
	if err != nil {
		return models.CastBallot{}, err
	}

	nonce := make([]byte, NonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return models.CastBallot{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	hash := uniquenessHash(w.BallotID, payload, nonce, now)

	recordID, err := uuid.NewRandom()
	if err != nil {
		return models.CastBallot{}, fmt.Errorf("failed to generate record id: %w", err)
	}

	keyID, sealed, err := s.keyring.Seal(payload, []byte(w.BallotID))
	if err != nil {
		return models.CastBallot{}, fmt.Errorf("failed to seal choice: %w", err)
	}

	cb := models.CastBallot{
		RecordID:         recordID.String(),
		BallotID:         w.BallotID,
		EncryptedChoice:  sealed,
		KeyID:            keyID,
		UniquenessHash:   hex.EncodeToString(hash),
		ConfirmationCode: auth.ConfirmationCode(hash),
		CastAt:           s.coarsen(now),
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO cast_ballots (ballot_record_id, ballot_id, encrypted_choice, key_id, uniqueness_hash, confirmation_code, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cb.RecordID, cb.BallotID, cb.EncryptedChoice, cb.KeyID, cb.UniquenessHash, cb.ConfirmationCode, cb.CastAt)
	if err != nil {
		return models.CastBallot{}, fmt.Errorf("failed to insert cast ballot: %w", err)
	}

	return cb, nil
}

// Tally opens and counts every ballot cast for ballotID. It refuses to run
// before the deadline.
func (s *Store) Tally(ctx context.Context, ballotID string) (models.AggregateResult, error) {
	w, err := s.windows.Window(ctx, ballotID)
	if err != nil {
		return models.AggregateResult{}, err
	}
	if !w.IsPast(s.now()) {
		return models.AggregateResult{}, models.ErrBallotStillOpen
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT encrypted_choice, key_id, uniqueness_hash
		FROM cast_ballots
		WHERE ballot_id = $1
		ORDER BY uniqueness_hash
	`, ballotID)
	if err != nil {
		return models.AggregateResult{}, fmt.Errorf("failed to query cast ballots: %w", err)
	}
	defer rows.Close()

	agg := models.AggregateResult{
		BallotID: w.BallotID,
		Type:     w.Type,
		Counts:   make([]int, len(w.Options)),
	}
	if w.Type == models.TypeRanked {
		agg.RankCounts = make([][]int, len(w.Options))
		for i := range agg.RankCounts {
			agg.RankCounts[i] = make([]int, len(w.Options))
		}
	}

	var hashes []string
	for rows.Next() {
		var sealed, keyID, hash string
		if err := rows.Scan(&sealed, &keyID, &hash); err != nil {
			return models.AggregateResult{}, fmt.Errorf("failed to scan cast ballot: %w", err)
		}

		payload, err := s.keyring.Open(keyID, sealed, []byte(w.BallotID))
		if err != nil {
			return models.AggregateResult{}, fmt.Errorf("failed to open ballot %s: %w", hash, err)
		}
		c, err := decodeChoice(w, payload)
		if err != nil {
			return models.AggregateResult{}, fmt.Errorf("stored ballot %s is unreadable: %w", hash, err)
		}

		switch w.Type {
		case models.TypeYesNo:
			if *c.Approve {
				agg.Counts[0]++
			} else {
				agg.Counts[1]++
			}
		case models.TypeMultipleChoice:
			agg.Counts[*c.Option]++
		case models.TypeRanked:
			agg.Counts[c.Ranking[0]]++
			for pos, opt := range c.Ranking {
				agg.RankCounts[opt][pos]++
			}
			agg.Rankings = append(agg.Rankings, c.Ranking)
		}

		agg.Total++
		hashes = append(hashes, hash)
	}
	if err := rows.Err(); err != nil {
		return models.AggregateResult{}, fmt.Errorf("failed to read cast ballots: %w", err)
	}

	// Storage order must not show through
	slices.SortFunc(agg.Rankings, func(a, b []int) int { return slices.Compare(a, b) })
	agg.InputsHash = InputsHash(hashes)

	slog.Info("ballot tallied", "ballot_id", ballotID, "total", agg.Total)

	return agg, nil
}

// Count returns how many ballots have been cast. Turnout reveals nothing
// about content and is available while voting is open.
func (s *Store) Count(ctx context.Context, ballotID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cast_ballots WHERE ballot_id = $1
	`, ballotID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cast ballots: %w", err)
	}
	return n, nil
}

// VerifyReceipt looks up a confirmation code. It returns the coarse cast time
// when a ballot with that code exists.
func (s *Store) VerifyReceipt(ctx context.Context, ballotID, code string) (models.ReceiptCheckResponse, error) {
	res := models.ReceiptCheckResponse{BallotID: ballotID}

	var castAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT cast_at FROM cast_ballots
		WHERE ballot_id = $1 AND confirmation_code = $2
		LIMIT 1
	`, ballotID, code).Scan(&castAt)

	if errors.Is(err, sql.ErrNoRows) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("failed to look up receipt: %w", err)
	}

	castAt = castAt.UTC()
	res.Recorded = true
	res.CastAt = &castAt
	return res, nil
}

func (s *Store) coarsen(t time.Time) time.Time {
	if s.granularity <= 0 {
		return t.UTC()
	}
	return t.UTC().Truncate(s.granularity)
}

// uniquenessHash = SHA3-256(len‖ballotID ‖ len‖payload ‖ nonce ‖ castAt).
// Lengths are 8-byte big endian so field boundaries cannot shift.
func uniquenessHash(ballotID string, payload, nonce []byte, castAt time.Time) []byte {
	h := sha3.New256()
	var n [8]byte

	binary.BigEndian.PutUint64(n[:], uint64(len(ballotID)))
	h.Write(n[:])
	h.Write([]byte(ballotID))

	binary.BigEndian.PutUint64(n[:], uint64(len(payload)))
	h.Write(n[:])
	h.Write(payload)

	h.Write(nonce)

	binary.BigEndian.PutUint64(n[:], uint64(castAt.UnixNano()))
	h.Write(n[:])

	return h.Sum(nil)
}

// InputsHash commits to the set of ballots a tally counted, independent of
// the order they were read in.
func InputsHash(uniquenessHashes []string) string {
	sorted := slices.Clone(uniquenessHashes)
	slices.Sort(sorted)

	h := sha3.New256()
	for _, u := range sorted {
		h.Write([]byte(u))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
