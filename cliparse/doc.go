// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadEnvFile reads a dotenv file (github.com/joho/godotenv) without
overriding variables that are already set. ParseFlags then returns a
Config:

	if err := cliparse.LoadEnvFile(".env"); err != nil {
		log.Fatal(err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p                 Server port
	-d                 Database URL
	-t                 Database type (sqlite or postgres)
	--admin-salt       Admin key salt
	--ballot-key       Base64 ballot sealing key
	--ballot-key-id    Active ballot key id
	--retired-keys     Retired keys as id:base64,...
	--jwt-secret       Voter JWT secret
	--token-ttl        Voting token lifetime
	--cast-granularity Truncation applied to stored cast times

# Environment Variables

Flags fall back to environment variables:

	PORT                  → -p
	DATABASE_URL          → -d
	DATABASE_TYPE         → -t
	ADMIN_KEY_SALT        → --admin-salt
	BALLOT_KEY            → --ballot-key
	BALLOT_KEY_ID         → --ballot-key-id
	BALLOT_RETIRED_KEYS   → --retired-keys
	VOTER_JWT_SECRET      → --jwt-secret
	VOTING_TOKEN_TTL      → --token-ttl
	CAST_TIME_GRANULARITY → --cast-granularity

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if DATABASE_URL, ADMIN_KEY_SALT, BALLOT_KEY
or VOTER_JWT_SECRET is missing, or if a duration is malformed.
*/
package cliparse
