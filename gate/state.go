// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gate

import (
	"fmt"
	"time"

	"github.com/danielhkuo/secret-ballot/models"
)

// State is where a (voter, ballot) pair stands in the voting lifecycle
type State string

const (
	NotEligibleYet      State = "not_eligible_yet"
	EligibleUnissued    State = "eligible_unissued"
	EligibleTokenIssued State = "eligible_token_issued"
	Cast                State = "cast"
	Expired             State = "expired"
	Closed              State = "closed"
)

var transitions = map[State][]State{
	NotEligibleYet:      {EligibleUnissued, Closed},
	EligibleUnissued:    {EligibleTokenIssued, Closed},
	EligibleTokenIssued: {Cast, Expired, Closed},
	// A lapsed token can be replaced while the window is open
	Expired: {EligibleTokenIssued, Closed},
	Cast:    nil,
	Closed:  nil,
}

// CanTransition reports whether the lifecycle allows moving from one state
// to another.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// checkTransition maps a refused move to the error the caller sees
func checkTransition(from, to State) error {
	if CanTransition(from, to) {
		return nil
	}
	if from.Terminal() {
		if from == Cast {
			return models.ErrTokenAlreadyUsed
		}
		return models.ErrBallotNotOpen
	}
	if from == NotEligibleYet {
		return models.ErrBallotNotOpen
	}
	return fmt.Errorf("voting state cannot move from %s to %s", from, to)
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Derive computes the state from the ballot window and the pair's most
// recent token (nil if none was ever issued). Having cast wins over
// everything else; after the deadline any other pair is Closed.
func Derive(w models.BallotWindow, latest *models.VotingToken, now time.Time) State {
	switch {
	case latest != nil && latest.Consumed:
		return Cast
	case now.Before(w.OpensAt):
		return NotEligibleYet
	case w.IsPast(now):
		return Closed
	case latest == nil:
		return EligibleUnissued
	case latest.IsExpired(now):
		return Expired
	default:
		return EligibleTokenIssued
	}
}
