// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidVoter = errors.New("invalid voter credentials")

// VoterClaims is the bearer token minted by the platform's login layer.
// Subject carries the voter ID.
type VoterClaims struct {
	jwt.RegisteredClaims
}

// SignVoterJWT mints a voter bearer token. The platform normally does this;
// it is here for tooling and tests.
func SignVoterJWT(voterID, secret string, now time.Time, ttl time.Duration) (string, error) {
	if voterID == "" {
		return "", ErrInvalidVoter
	}
	claims := VoterClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   voterID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign voter token: %w", err)
	}
	return signed, nil
}

// ParseVoterJWT validates a bearer token and returns the voter ID
func ParseVoterJWT(tokenString, secret string) (string, error) {
	t, err := jwt.ParseWithClaims(tokenString, &VoterClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidVoter, err)
	}
	c, ok := t.Claims.(*VoterClaims)
	if !ok || !t.Valid || c.Subject == "" {
		return "", ErrInvalidVoter
	}
	return c.Subject, nil
}
