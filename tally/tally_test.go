// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/secret-ballot/models"
	"github.com/danielhkuo/secret-ballot/testutil"
)

var (
	opens    = testutil.Date(2024, time.January, 1, 0)
	deadline = testutil.Date(2024, time.January, 8, 0)
)

func TestBuildYesNo(t *testing.T) {
	w := models.BallotWindow{BallotID: "b", Type: models.TypeYesNo, Options: models.YesNoOptions}

	tests := []struct {
		name       string
		counts     []int
		wantWinner int
		noMajority bool
	}{
		{"yes wins", []int{1, 0}, 0, false},
		{"no wins", []int{2, 3}, 1, false},
		{"tie", []int{2, 2}, -1, true},
		{"no votes", []int{0, 0}, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := models.AggregateResult{Counts: tt.counts, Total: tt.counts[0] + tt.counts[1]}
			res := Build(w, agg, deadline)

			if res.Outcome.NoMajority != tt.noMajority {
				t.Errorf("NoMajority = %v, want %v", res.Outcome.NoMajority, tt.noMajority)
			}
			if tt.wantWinner < 0 {
				if res.Outcome.Winner != nil {
					t.Errorf("Winner = %d, want none", *res.Outcome.Winner)
				}
				return
			}
			if res.Outcome.Winner == nil || *res.Outcome.Winner != tt.wantWinner {
				t.Fatalf("Winner = %v, want %d", res.Outcome.Winner, tt.wantWinner)
			}
			if !res.Outcome.Majority || !res.Outcome.Decided {
				t.Errorf("Outcome = %+v, want decided majority", res.Outcome)
			}
			if res.Outcome.WinnerName != models.YesNoOptions[tt.wantWinner] {
				t.Errorf("WinnerName = %q", res.Outcome.WinnerName)
			}
		})
	}
}

func TestBuildPercentages(t *testing.T) {
	w := models.BallotWindow{BallotID: "b", Type: models.TypeMultipleChoice, Options: []string{"Parks", "Roads", "Libraries"}}
	res := Build(w, models.AggregateResult{Counts: []int{2, 1, 0}, Total: 3}, deadline)

	want := []string{"66.7%", "33.3%", "0%"}
	for i, o := range res.Options {
		if o.PercentText != want[i] {
			t.Errorf("option %d PercentText = %q, want %q", i, o.PercentText, want[i])
		}
		if o.Label != w.Options[i] || o.Index != i {
			t.Errorf("option %d = %+v", i, o)
		}
	}
	if !res.ComputedAt.Equal(deadline) {
		t.Errorf("ComputedAt = %s", res.ComputedAt)
	}
}

func TestBuildMultipleChoiceOutcome(t *testing.T) {
	w := models.BallotWindow{BallotID: "b", Type: models.TypeMultipleChoice, Options: []string{"A", "B", "C"}}

	tests := []struct {
		name         string
		counts       []int
		wantWinner   int
		wantMajority bool
	}{
		{"majority", []int{3, 1, 1}, 0, true},
		{"plurality only", []int{2, 1, 1}, 0, false},
		{"exactly half", []int{1, 2, 1}, 1, false},
		{"tie on top", []int{2, 2, 1}, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := 0
			for _, c := range tt.counts {
				total += c
			}
			res := Build(w, models.AggregateResult{Counts: tt.counts, Total: total}, deadline)

			if tt.wantWinner < 0 {
				if res.Outcome.Winner != nil || !res.Outcome.NoMajority {
					t.Errorf("Outcome = %+v, want no majority", res.Outcome)
				}
				return
			}
			if res.Outcome.Winner == nil || *res.Outcome.Winner != tt.wantWinner {
				t.Fatalf("Winner = %v, want %d", res.Outcome.Winner, tt.wantWinner)
			}
			if res.Outcome.Majority != tt.wantMajority {
				t.Errorf("Majority = %v, want %v", res.Outcome.Majority, tt.wantMajority)
			}
		})
	}
}

func TestRunoff(t *testing.T) {
	const A, B, C, D = 0, 1, 2, 3

	tests := []struct {
		name       string
		n          int
		rankings   [][]int
		wantWinner int
		wantRounds int
	}{
		{
			// C has no first preferences and goes in round one; B holds 2 of 3.
			name:       "zero first preferences dropped",
			n:          3,
			rankings:   [][]int{{A, B, C}, {B, A, C}, {B, C, A}},
			wantWinner: B,
			wantRounds: 1,
		},
		{
			name: "redistribution decides",
			n:    3,
			rankings: [][]int{
				{A, B, C}, {A, B, C},
				{B, A, C}, {B, A, C},
				{C, A, B},
			},
			wantWinner: A,
			wantRounds: 2,
		},
		{
			name:       "tie between all remaining",
			n:          2,
			rankings:   [][]int{{A, B}, {B, A}},
			wantWinner: -1,
			wantRounds: 1,
		},
		{
			name: "tied lowest eliminated together",
			n:    4,
			rankings: [][]int{
				{A, B, C, D}, {A, B, C, D}, {A, B, C, D},
				{B, A, C, D}, {B, A, C, D},
				{C, B, A, D},
				{D, B, A, C},
			},
			wantWinner: B,
			wantRounds: 2,
		},
		{
			name:       "no ballots",
			n:          3,
			rankings:   nil,
			wantWinner: -1,
			wantRounds: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rounds, winner := Runoff(tt.n, tt.rankings)

			if len(rounds) != tt.wantRounds {
				t.Errorf("rounds = %d, want %d: %+v", len(rounds), tt.wantRounds, rounds)
			}
			if tt.wantWinner < 0 {
				if winner != nil {
					t.Errorf("winner = %d, want none", *winner)
				}
				return
			}
			if winner == nil || *winner != tt.wantWinner {
				t.Errorf("winner = %v, want %d", winner, tt.wantWinner)
			}
		})
	}
}

func TestRunoffScenarioRounds(t *testing.T) {
	rounds, winner := Runoff(3, [][]int{{0, 1, 2}, {1, 0, 2}, {1, 2, 0}})

	if winner == nil || *winner != 1 {
		t.Fatalf("winner = %v, want B", winner)
	}
	r := rounds[0]
	if len(r.Eliminated) != 1 || r.Eliminated[0] != 2 {
		t.Errorf("Eliminated = %v, want [C]", r.Eliminated)
	}
	if r.Counts[0] != 1 || r.Counts[1] != 2 || r.Active != 3 {
		t.Errorf("round = %+v, want A=1 B=2 of 3", r)
	}
}

type fakeTallier struct {
	calls int
	agg   models.AggregateResult
	err   error
}

func (f *fakeTallier) Tally(ctx context.Context, ballotID string) (models.AggregateResult, error) {
	f.calls++
	return f.agg, f.err
}

func TestReaderSnapshots(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	w := testutil.CreateTestBallot(t, conn, "b", models.TypeYesNo, nil, opens, deadline)
	clock := testutil.NewClock(deadline)
	fake := &fakeTallier{agg: models.AggregateResult{BallotID: "b", Type: models.TypeYesNo, Total: 1, Counts: []int{1, 0}, InputsHash: "h1"}}
	reader := NewReader(conn, fake, clock.Now)

	first, err := reader.Results(context.Background(), w)
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	if first.Total != 1 || first.Options[0].Count != 1 || first.InputsHash != "h1" {
		t.Errorf("Results() = %+v", first)
	}

	// Later reads come from the snapshot
	clock.Advance(time.Hour)
	fake.agg.Total = 99
	second, err := reader.Results(context.Background(), w)
	if err != nil {
		t.Fatalf("second Results() error = %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("tallier called %d times, want 1", fake.calls)
	}
	if second.Total != 1 || !second.ComputedAt.Equal(first.ComputedAt) {
		t.Errorf("snapshot changed: %+v", second)
	}
}

func TestReaderPropagatesTallyErrors(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	w := testutil.CreateTestBallot(t, conn, "b", models.TypeYesNo, nil, opens, deadline)
	reader := NewReader(conn, &fakeTallier{err: models.ErrBallotStillOpen}, testutil.NewClock(opens).Now)

	if _, err := reader.Results(context.Background(), w); !errors.Is(err, models.ErrBallotStillOpen) {
		t.Errorf("Results() error = %v, want ErrBallotStillOpen", err)
	}

	var n int
	conn.QueryRow(`SELECT COUNT(*) FROM result_snapshots`).Scan(&n)
	if n != 0 {
		t.Error("failed tally must not leave a snapshot")
	}
}
