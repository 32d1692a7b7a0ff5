// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dbType string) error {
	var stmt string
	switch dbType {
	case SQLite:
		stmt = sqliteSchema
	case Postgres:
		stmt = postgresSchema
	default:
		return fmt.Errorf("unsupported database type %q", dbType)
	}

	_, err := db.Exec(stmt)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// cast_ballots has no column and no foreign key that reaches a voter.
// The only link out of it is ballot_id. On sqlite it is a WITHOUT ROWID
// table, so rows sit in random record id order rather than the order votes
// arrived in, which would otherwise line up with voting_tokens.consumed_at.

const sqliteSchema = `
-- Ballot definitions (owned by the topic layer)
CREATE TABLE IF NOT EXISTS ballot_definitions (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL CHECK (type IN ('yes_no', 'multiple_choice', 'ranked')),
    options TEXT NOT NULL,
    opens_at TIMESTAMP NOT NULL,
    deadline_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

-- Voting tokens: who was entitled to vote
CREATE TABLE IF NOT EXISTS voting_tokens (
    token_id TEXT PRIMARY KEY,
    ballot_id TEXT NOT NULL REFERENCES ballot_definitions(id),
    voter_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    consumed BOOLEAN NOT NULL DEFAULT FALSE,
    consumed_at TIMESTAMP,
    expires_at TIMESTAMP NOT NULL,
    issued_at TIMESTAMP NOT NULL,
    UNIQUE (ballot_id, voter_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_voting_tokens_pair ON voting_tokens(ballot_id, voter_id);

CREATE TRIGGER IF NOT EXISTS voting_tokens_retained
BEFORE DELETE ON voting_tokens
BEGIN
    SELECT RAISE(ABORT, 'voting tokens are retained');
END;

CREATE TRIGGER IF NOT EXISTS voting_tokens_consume_once
BEFORE UPDATE ON voting_tokens
WHEN OLD.consumed OR NEW.token_id IS NOT OLD.token_id OR NEW.ballot_id IS NOT OLD.ballot_id
    OR NEW.voter_id IS NOT OLD.voter_id OR NEW.seq IS NOT OLD.seq
BEGIN
    SELECT RAISE(ABORT, 'voting token can only be consumed once');
END;

-- Cast ballots: what was voted, never by whom
CREATE TABLE IF NOT EXISTS cast_ballots (
    ballot_record_id TEXT PRIMARY KEY,
    ballot_id TEXT NOT NULL REFERENCES ballot_definitions(id),
    encrypted_choice TEXT NOT NULL,
    key_id TEXT NOT NULL,
    uniqueness_hash TEXT NOT NULL UNIQUE,
    confirmation_code TEXT NOT NULL,
    cast_at TIMESTAMP NOT NULL
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_cast_ballots_ballot ON cast_ballots(ballot_id);
CREATE INDEX IF NOT EXISTS idx_cast_ballots_code ON cast_ballots(ballot_id, confirmation_code);

CREATE TRIGGER IF NOT EXISTS cast_ballots_no_update
BEFORE UPDATE ON cast_ballots
BEGIN
    SELECT RAISE(ABORT, 'cast_ballots is append-only');
END;

CREATE TRIGGER IF NOT EXISTS cast_ballots_no_delete
BEFORE DELETE ON cast_ballots
BEGIN
    SELECT RAISE(ABORT, 'cast_ballots is append-only');
END;

-- Result snapshots, written once after the deadline
CREATE TABLE IF NOT EXISTS result_snapshots (
    ballot_id TEXT PRIMARY KEY REFERENCES ballot_definitions(id),
    computed_at TIMESTAMP NOT NULL,
    inputs_hash TEXT NOT NULL,
    payload TEXT NOT NULL
);
`

const postgresSchema = `
-- Ballot definitions (owned by the topic layer)
CREATE TABLE IF NOT EXISTS ballot_definitions (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL CHECK (type IN ('yes_no', 'multiple_choice', 'ranked')),
    options JSONB NOT NULL,
    opens_at TIMESTAMPTZ NOT NULL,
    deadline_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Voting tokens: who was entitled to vote
CREATE TABLE IF NOT EXISTS voting_tokens (
    token_id TEXT PRIMARY KEY,
    ballot_id TEXT NOT NULL REFERENCES ballot_definitions(id),
    voter_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    consumed BOOLEAN NOT NULL DEFAULT FALSE,
    consumed_at TIMESTAMPTZ,
    expires_at TIMESTAMPTZ NOT NULL,
    issued_at TIMESTAMPTZ NOT NULL,
    UNIQUE (ballot_id, voter_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_voting_tokens_pair ON voting_tokens(ballot_id, voter_id);

CREATE OR REPLACE FUNCTION guard_voting_token() RETURNS trigger AS $$
BEGIN
    IF TG_OP = 'DELETE' THEN
        RAISE EXCEPTION 'voting tokens are retained';
    END IF;
    IF OLD.consumed OR NEW.token_id <> OLD.token_id OR NEW.ballot_id <> OLD.ballot_id
        OR NEW.voter_id <> OLD.voter_id OR NEW.seq <> OLD.seq THEN
        RAISE EXCEPTION 'voting token can only be consumed once';
    END IF;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS voting_tokens_guard ON voting_tokens;
CREATE TRIGGER voting_tokens_guard
BEFORE UPDATE OR DELETE ON voting_tokens
FOR EACH ROW EXECUTE FUNCTION guard_voting_token();

-- Cast ballots: what was voted, never by whom
CREATE TABLE IF NOT EXISTS cast_ballots (
    ballot_record_id TEXT PRIMARY KEY,
    ballot_id TEXT NOT NULL REFERENCES ballot_definitions(id),
    encrypted_choice TEXT NOT NULL,
    key_id TEXT NOT NULL,
    uniqueness_hash TEXT NOT NULL UNIQUE,
    confirmation_code TEXT NOT NULL,
    cast_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cast_ballots_ballot ON cast_ballots(ballot_id);
CREATE INDEX IF NOT EXISTS idx_cast_ballots_code ON cast_ballots(ballot_id, confirmation_code);

CREATE OR REPLACE FUNCTION reject_cast_ballot_change() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'cast_ballots is append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS cast_ballots_append_only ON cast_ballots;
CREATE TRIGGER cast_ballots_append_only
BEFORE UPDATE OR DELETE ON cast_ballots
FOR EACH ROW EXECUTE FUNCTION reject_cast_ballot_change();

-- Result snapshots, written once after the deadline
CREATE TABLE IF NOT EXISTS result_snapshots (
    ballot_id TEXT PRIMARY KEY REFERENCES ballot_definitions(id),
    computed_at TIMESTAMPTZ NOT NULL,
    inputs_hash TEXT NOT NULL,
    payload JSONB NOT NULL
);
`
