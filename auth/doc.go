// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifiers, credentials and short codes.

# Voting Tokens

Voting tokens are random 32-byte (256-bit) secrets:

	token, err := auth.GenerateVotingToken()

Tokens are URL-safe base64 without padding. ValidateTokenFormat rejects
anything that could not have been minted here.

# Admin Keys

Ballot registration is authorised with HMAC-SHA256 admin keys:

	adminKey := auth.GenerateAdminKey(ballotID, salt)
	err := auth.ValidateAdminKey(ballotID, adminKey, salt)

The topic layer shares the salt and derives the same key, so nothing is
stored.

# Voter Bearer Tokens

Voters are authenticated upstream. The platform hands us an HS256 JWT whose
subject is the voter ID:

	voterID, err := auth.ParseVoterJWT(bearer, secret)

# Confirmation Codes

Receipts carry a base62 code derived from a ballot's uniqueness hash:

	code := auth.ConfirmationCode(hash)
*/
package auth
