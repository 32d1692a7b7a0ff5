// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid token format")
)

// VotingTokenBytes is the entropy of a voting token: 32 bytes = 256 bits
const VotingTokenBytes = 32

// GenerateAdminKey creates an HMAC-based admin key for a ballot.
// The topic layer holds the same salt and derives the key on its side.
func GenerateAdminKey(ballotID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ballotID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the ballot
func ValidateAdminKey(ballotID, adminKey, salt string) error {
	expected := GenerateAdminKey(ballotID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// GenerateVotingToken creates an unguessable single-use voting token
func GenerateVotingToken() (string, error) {
	b := make([]byte, VotingTokenBytes)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate voting token: %w", err)
	}
	// URL-safe base64 without padding
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateTokenFormat rejects strings that cannot be a voting token before
// they reach the database.
func ValidateTokenFormat(tokenID string) error {
	b, err := base64.RawURLEncoding.DecodeString(tokenID)
	if err != nil || len(b) != VotingTokenBytes {
		return ErrInvalidToken
	}
	return nil
}

// ConfirmationCode renders a short, client-displayable code from a ballot's
// uniqueness hash. Uses the first 8 bytes, base62 encoded.
func ConfirmationCode(uniquenessHash []byte) string {
	if len(uniquenessHash) < 8 {
		return ""
	}
	return base62Encode(uniquenessHash[:8])
}

// base62Encode converts bytes to base62 (0-9, a-z, A-Z)
func base62Encode(data []byte) string {
	const base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Convert bytes to a big integer
	var num uint64
	for i := 0; i < len(data) && i < 8; i++ {
		num = num<<8 | uint64(data[i])
	}

	if num == 0 {
		return "0"
	}

	result := make([]byte, 0, 11) // max length for uint64
	for num > 0 {
		result = append(result, base62Chars[num%62])
		num /= 62
	}

	// Reverse the string
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}
