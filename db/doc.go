// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database, creates the schema and stores ballot
definitions.

# Connections

Open supports sqlite (modernc.org/sqlite, pure Go) and PostgreSQL
(lib/pq). Queries use $N placeholders on both.

	conn, err := db.Open(db.SQLite, "ballots.db")

sqlite connections are limited to one, so writers queue instead of
failing with SQLITE_BUSY.

# Schema Creation

	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables, indexes
and triggers.

# Tables

  - ballot_definitions: Ballot type, options and voting window
  - voting_tokens: Who was entitled to vote and whether they did
  - cast_ballots: Sealed choices, with no column that reaches a voter
  - result_snapshots: Results published on the first read after close

Triggers refuse deletes on voting_tokens and any update to a consumed
token. cast_ballots is append-only.

# Directory

Directory is the read side of ballot definitions plus registration:

	dir := db.NewDirectory(conn)
	w, err := dir.Window(ctx, "ballot-id")

IsUniqueViolation recognises constraint failures from either driver.
*/
package db
