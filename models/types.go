// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"
)

// Ballot type constants
const (
	TypeYesNo          = "yes_no"
	TypeMultipleChoice = "multiple_choice"
	TypeRanked         = "ranked"
)

// Fixed option labels for yes/no ballots
var YesNoOptions = []string{"yes", "no"}

// Request types

// RegisterBallotRequest is sent by the topic layer when a topic gets a ballot
type RegisterBallotRequest struct {
	Type       string    `json:"type"`
	Options    []string  `json:"options"`
	OpensAt    time.Time `json:"opens_at"`
	DeadlineAt time.Time `json:"deadline_at"`
}

// Choice is the vote payload. Exactly one field is set, depending on ballot type.
type Choice struct {
	Approve *bool `json:"approve,omitempty"`
	Option  *int  `json:"option,omitempty"`
	Ranking []int `json:"ranking,omitempty"`
}

type CastVoteRequest struct {
	TokenID string          `json:"token_id,omitempty"`
	Choice  json.RawMessage `json:"choice"`
}

// Response types

type RegisterBallotResponse struct {
	BallotID string `json:"ballot_id"`
}

type TokenResponse struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Receipt is what a voter gets back after casting. It never carries the
// voter's identity or the token.
type Receipt struct {
	BallotID         string    `json:"ballot_id"`
	CastAt           time.Time `json:"cast_at"`
	ConfirmationCode string    `json:"confirmation_code"`
}

type TurnoutResponse struct {
	BallotID  string `json:"ballot_id"`
	CastCount int    `json:"cast_count"`
}

type ReceiptCheckResponse struct {
	BallotID string     `json:"ballot_id"`
	Recorded bool       `json:"recorded"`
	CastAt   *time.Time `json:"cast_at,omitempty"`
}

// VotingState drives the UI: "vote now", "already voted", "results".
type VotingState struct {
	BallotID   string     `json:"ballot_id"`
	State      string     `json:"state"`
	OpensAt    time.Time  `json:"opens_at"`
	DeadlineAt time.Time  `json:"deadline_at"`
	ExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	CanReveal  bool       `json:"can_reveal"`
	Relative   string     `json:"relative"` // "closes 3 days from now"
}

// Domain types

// BallotWindow is the read-only view of a ballot definition owned by the
// topic layer.
type BallotWindow struct {
	BallotID   string    `json:"ballot_id"`
	Type       string    `json:"type"`
	Options    []string  `json:"options"`
	OpensAt    time.Time `json:"opens_at"`
	DeadlineAt time.Time `json:"deadline_at"`
}

// IsOpen reports whether now falls within [OpensAt, DeadlineAt).
func (w BallotWindow) IsOpen(now time.Time) bool {
	return !now.Before(w.OpensAt) && now.Before(w.DeadlineAt)
}

// IsPast reports whether the deadline has been reached.
func (w BallotWindow) IsPast(now time.Time) bool {
	return !now.Before(w.DeadlineAt)
}

// VotingToken is a voter's one-time right to vote on one ballot.
// It is the only record where voter identity and ballot participation meet.
type VotingToken struct {
	TokenID    string     `json:"token_id"`
	BallotID   string     `json:"ballot_id"`
	VoterID    string     `json:"-"`
	Seq        int        `json:"-"`
	Consumed   bool       `json:"consumed"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	IssuedAt   time.Time  `json:"issued_at"`
}

// IsExpired reports whether the token has lapsed at now.
func (t VotingToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// CastBallot is one anonymous vote. None of its fields identify the voter.
type CastBallot struct {
	RecordID         string    `json:"ballot_record_id"`
	BallotID         string    `json:"ballot_id"`
	EncryptedChoice  string    `json:"-"`
	KeyID            string    `json:"-"`
	UniquenessHash   string    `json:"uniqueness_hash"`
	ConfirmationCode string    `json:"confirmation_code"`
	CastAt           time.Time `json:"cast_at"`
}

// AggregateResult is the raw tally of a closed ballot.
type AggregateResult struct {
	BallotID string `json:"ballot_id"`
	Type     string `json:"type"`
	Total    int    `json:"total"`
	// Counts holds one entry per option index. For yes/no ballots index 0 is
	// "yes" and index 1 is "no"; for ranked ballots it counts first preferences.
	Counts []int `json:"counts"`
	// RankCounts[option][position] for ranked ballots.
	RankCounts [][]int `json:"rank_counts,omitempty"`
	// Rankings holds every ranked ballot in canonical sorted order.
	Rankings [][]int `json:"rankings,omitempty"`
	// InputsHash commits to the set of uniqueness hashes that were counted.
	InputsHash string `json:"inputs_hash"`
}

// Result types

type OptionResult struct {
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	Count       int     `json:"count"`
	Percent     float64 `json:"percent"`
	PercentText string  `json:"percent_text"`
}

// RunoffRound is one round of ranked elimination.
type RunoffRound struct {
	Round      int         `json:"round"`
	Counts     map[int]int `json:"counts"`
	Active     int         `json:"active_ballots"`
	Eliminated []int       `json:"eliminated,omitempty"`
}

type Outcome struct {
	Decided    bool   `json:"decided"`
	Winner     *int   `json:"winner,omitempty"`
	WinnerName string `json:"winner_label,omitempty"`
	Majority   bool   `json:"majority"`
	NoMajority bool   `json:"no_majority"`
}

type Results struct {
	BallotID   string         `json:"ballot_id"`
	Type       string         `json:"type"`
	Total      int            `json:"total"`
	Options    []OptionResult `json:"options"`
	RankCounts [][]int        `json:"rank_counts,omitempty"`
	Rounds     []RunoffRound  `json:"rounds,omitempty"`
	Outcome    Outcome        `json:"outcome"`
	InputsHash string         `json:"inputs_hash"`
	ComputedAt time.Time      `json:"computed_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
