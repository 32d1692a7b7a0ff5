// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/secret-ballot/models"
)

// Build turns a raw aggregate into the published result: per-option counts
// and percentages, plus the outcome under the ballot type's rule.
func Build(w models.BallotWindow, agg models.AggregateResult, computedAt time.Time) models.Results {
	res := models.Results{
		BallotID:   w.BallotID,
		Type:       w.Type,
		Total:      agg.Total,
		Options:    make([]models.OptionResult, len(w.Options)),
		RankCounts: agg.RankCounts,
		InputsHash: agg.InputsHash,
		ComputedAt: computedAt.UTC(),
	}

	for i, label := range w.Options {
		count := 0
		if i < len(agg.Counts) {
			count = agg.Counts[i]
		}
		pct := percent(count, agg.Total)
		res.Options[i] = models.OptionResult{
			Index:       i,
			Label:       label,
			Count:       count,
			Percent:     pct,
			PercentText: humanize.FtoaWithDigits(math.Round(pct*10)/10, 1) + "%",
		}
	}

	switch w.Type {
	case models.TypeYesNo, models.TypeMultipleChoice:
		res.Outcome = plurality(agg.Counts, agg.Total)
	case models.TypeRanked:
		var winner *int
		res.Rounds, winner = Runoff(len(w.Options), agg.Rankings)
		if winner != nil {
			res.Outcome = models.Outcome{Decided: true, Winner: winner, Majority: true}
		} else {
			res.Outcome = models.Outcome{NoMajority: true}
		}
	}

	if res.Outcome.Winner != nil {
		res.Outcome.WinnerName = w.Options[*res.Outcome.Winner]
	}

	return res
}

// plurality picks the option with the unique highest count. A shared top
// count is reported as no majority, never broken arbitrarily. For yes/no
// ballots this is a strict majority of the votes cast.
func plurality(counts []int, total int) models.Outcome {
	if total == 0 {
		return models.Outcome{NoMajority: true}
	}

	best, bestCount, tied := -1, -1, false
	for i, c := range counts {
		switch {
		case c > bestCount:
			best, bestCount, tied = i, c, false
		case c == bestCount:
			tied = true
		}
	}
	if tied {
		return models.Outcome{NoMajority: true}
	}

	return models.Outcome{
		Decided:  true,
		Winner:   &best,
		Majority: 2*bestCount > total,
	}
}

// Runoff runs instant-runoff over complete rankings of n options.
//
// Each round counts every ballot for its highest-ranked remaining option.
// Options with no first preferences are dropped, then an option holding a
// strict majority of the counted ballots wins. Otherwise every option tied
// for the lowest count is eliminated together. When the lowest group is all
// that remains the round ends with no majority.
func Runoff(n int, rankings [][]int) ([]models.RunoffRound, *int) {
	active := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		active[i] = true
	}

	var rounds []models.RunoffRound
	for round := 1; len(active) > 0; round++ {
		counts := make(map[int]int, len(active))
		for opt := range active {
			counts[opt] = 0
		}

		counted := 0
		for _, r := range rankings {
			for _, opt := range r {
				if active[opt] {
					counts[opt]++
					counted++
					break
				}
			}
		}

		rr := models.RunoffRound{Round: round, Counts: counts, Active: counted}

		if counted == 0 {
			rounds = append(rounds, rr)
			return rounds, nil
		}

		var zero []int
		for opt, c := range counts {
			if c == 0 {
				zero = append(zero, opt)
			}
		}
		sort.Ints(zero)
		for _, opt := range zero {
			delete(active, opt)
		}
		rr.Eliminated = zero

		best, bestCount := -1, -1
		for opt := range active {
			c := counts[opt]
			if c > bestCount || (c == bestCount && opt < best) {
				best, bestCount = opt, c
			}
		}
		if 2*bestCount > counted {
			rounds = append(rounds, rr)
			return rounds, &best
		}

		lowest := -1
		for opt := range active {
			if lowest < 0 || counts[opt] < lowest {
				lowest = counts[opt]
			}
		}
		var group []int
		for opt := range active {
			if counts[opt] == lowest {
				group = append(group, opt)
			}
		}
		if len(group) == len(active) {
			rounds = append(rounds, rr)
			return rounds, nil
		}

		sort.Ints(group)
		for _, opt := range group {
			delete(active, opt)
		}
		rr.Eliminated = append(rr.Eliminated, group...)
		rounds = append(rounds, rr)
	}

	return rounds, nil
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) * 100 / float64(total)
}
