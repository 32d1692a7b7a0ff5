// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballots

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/danielhkuo/secret-ballot/models"
)

// ValidateChoice checks a raw vote payload against the ballot's type and
// options and returns its canonical encoding, which is what gets sealed.
func ValidateChoice(w models.BallotWindow, raw json.RawMessage) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: choice is required", models.ErrInvalidChoice)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var c models.Choice
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidChoice, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after choice", models.ErrInvalidChoice)
	}

	set := 0
	if c.Approve != nil {
		set++
	}
	if c.Option != nil {
		set++
	}
	if c.Ranking != nil {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of approve, option or ranking must be set", models.ErrInvalidChoice)
	}

	if err := checkChoice(w, c); err != nil {
		return nil, err
	}

	return json.Marshal(c)
}

func checkChoice(w models.BallotWindow, c models.Choice) error {
	switch w.Type {
	case models.TypeYesNo:
		if c.Approve == nil {
			return fmt.Errorf("%w: yes/no ballots take {\"approve\": true|false}", models.ErrInvalidChoice)
		}

	case models.TypeMultipleChoice:
		if c.Option == nil {
			return fmt.Errorf("%w: multiple choice ballots take {\"option\": n}", models.ErrInvalidChoice)
		}
		if *c.Option < 0 || *c.Option >= len(w.Options) {
			return fmt.Errorf("%w: option %d out of range", models.ErrInvalidChoice, *c.Option)
		}

	case models.TypeRanked:
		if c.Ranking == nil {
			return fmt.Errorf("%w: ranked ballots take {\"ranking\": [...]}", models.ErrInvalidChoice)
		}
		if len(c.Ranking) != len(w.Options) {
			return fmt.Errorf("%w: ranking must order all %d options", models.ErrInvalidChoice, len(w.Options))
		}
		seen := make([]bool, len(w.Options))
		for _, idx := range c.Ranking {
			if idx < 0 || idx >= len(w.Options) {
				return fmt.Errorf("%w: option %d out of range", models.ErrInvalidChoice, idx)
			}
			if seen[idx] {
				return fmt.Errorf("%w: option %d ranked twice", models.ErrInvalidChoice, idx)
			}
			seen[idx] = true
		}

	default:
		return fmt.Errorf("%w: unknown ballot type %q", models.ErrInvalidChoice, w.Type)
	}

	return nil
}

// decodeChoice reads back a canonical payload that was opened from storage.
func decodeChoice(w models.BallotWindow, payload []byte) (models.Choice, error) {
	var c models.Choice
	if err := json.Unmarshal(payload, &c); err != nil {
		return models.Choice{}, err
	}
	if err := checkChoice(w, c); err != nil {
		return models.Choice{}, err
	}
	return c, nil
}
