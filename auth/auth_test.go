// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"
)

func TestGenerateAdminKey(t *testing.T) {
	tests := []struct {
		name   string
		ballotID string
		salt   string
	}{
		{"standard", "ballot123", "secret-salt"},
		{"empty ballot id", "", "salt"},
		{"empty salt", "ballot456", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := GenerateAdminKey(tt.ballotID, tt.salt)

			// Should not be empty
			if key == "" {
				t.Error("GenerateAdminKey() returned empty string")
			}

			// Should be deterministic
			key2 := GenerateAdminKey(tt.ballotID, tt.salt)
			if key != key2 {
				t.Error("GenerateAdminKey() is not deterministic")
			}

			// Different inputs should produce different keys
			if tt.ballotID != "" && tt.salt != "" {
				differentKey := GenerateAdminKey(tt.ballotID+"x", tt.salt)
				if key == differentKey {
					t.Error("GenerateAdminKey() produced same key for different ballot IDs")
				}
			}

			// Should be URL-safe (no padding)
			if strings.Contains(key, "=") {
				t.Error("GenerateAdminKey() contains padding characters")
			}
		})
	}
}

func TestValidateAdminKey(t *testing.T) {
	ballotID := "test-ballot-123"
	salt := "test-salt"
	validKey := GenerateAdminKey(ballotID, salt)

	tests := []struct {
		name     string
		ballotID   string
		adminKey string
		salt     string
		wantErr  bool
	}{
		{"valid key", ballotID, validKey, salt, false},
		{"wrong key", ballotID, "wrong-key", salt, true},
		{"wrong ballot id", "different-ballot", validKey, salt, true},
		{"wrong salt", ballotID, validKey, "different-salt", true},
		{"empty key", ballotID, "", salt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.ballotID, tt.adminKey, tt.salt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrInvalidAdminKey {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, ErrInvalidAdminKey)
			}
		})
	}
}

func TestGenerateVotingToken(t *testing.T) {
	token, err := GenerateVotingToken()
	if err != nil {
		t.Fatalf("GenerateVotingToken() error = %v", err)
	}

	// Should be URL-safe (no padding)
	if strings.ContainsAny(token, "=+/") {
		t.Errorf("GenerateVotingToken() is not URL-safe: %s", token)
	}

	// 32 bytes, raw base64 = 43 chars
	if len(token) != 43 {
		t.Errorf("GenerateVotingToken() length = %d, want 43", len(token))
	}

	if err := ValidateTokenFormat(token); err != nil {
		t.Errorf("ValidateTokenFormat() rejected a fresh token: %v", err)
	}

	// Test randomness - should not produce duplicates
	tokens := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateVotingToken()
		if err != nil {
			t.Fatalf("GenerateVotingToken() error on iteration %d: %v", i, err)
		}
		if tokens[token] {
			t.Errorf("GenerateVotingToken() produced duplicate token: %s", token)
		}
		tokens[token] = true
	}
}

func TestValidateTokenFormat(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"empty", "", true},
		{"not base64", "!!!not-a-token!!!", true},
		{"too short", "AAAA", true},
		{"padded", strings.Repeat("A", 43) + "=", true},
		{"valid length", strings.Repeat("A", 43), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenFormat(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTokenFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfirmationCode(t *testing.T) {
	hash := []byte{42, 123, 200, 17, 9, 8, 7, 6, 5, 4, 3, 2}

	code := ConfirmationCode(hash)
	if code == "" {
		t.Fatal("ConfirmationCode() returned empty string")
	}
	if code != ConfirmationCode(hash) {
		t.Error("ConfirmationCode() is not deterministic")
	}
	if len(code) > 11 {
		t.Errorf("ConfirmationCode() too long: %d chars", len(code))
	}

	// Only the first 8 bytes matter
	other := append([]byte{}, hash[:8]...)
	other = append(other, 0xff, 0xff)
	if ConfirmationCode(other) != code {
		t.Error("ConfirmationCode() should only depend on the first 8 bytes")
	}

	if ConfirmationCode([]byte{1, 2, 3}) != "" {
		t.Error("ConfirmationCode() should reject short hashes")
	}
}

func TestBase62Encode(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"zero bytes", []byte{0, 0, 0, 0}},
		{"small value", []byte{0, 0, 0, 1}},
		{"large value", []byte{255, 255, 255, 255, 255, 255, 255, 255}},
		{"mixed value", []byte{42, 123, 200, 17}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := base62Encode(tt.input)

			// Should not be empty (except for all zeros -> "0")
			if result == "" {
				t.Error("base62Encode() returned empty string")
			}

			// Should only contain base62 characters
			for _, c := range result {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
					t.Errorf("base62Encode() contains invalid char: %c", c)
				}
			}

			// Should be deterministic
			result2 := base62Encode(tt.input)
			if result != result2 {
				t.Error("base62Encode() is not deterministic")
			}
		})
	}

	// Different inputs should produce different outputs
	out1 := base62Encode([]byte{1, 2, 3, 4})
	out2 := base62Encode([]byte{5, 6, 7, 8})
	if out1 == out2 {
		t.Error("base62Encode() produced same output for different inputs")
	}
}

// Benchmark tests
func BenchmarkGenerateAdminKey(b *testing.B) {
	ballotID := "test-ballot-123"
	salt := "test-salt"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GenerateAdminKey(ballotID, salt)
	}
}

func BenchmarkGenerateVotingToken(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateVotingToken()
	}
}
