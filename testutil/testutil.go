// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/secret-ballot/auth"
	"github.com/danielhkuo/secret-ballot/cliparse"
	"github.com/danielhkuo/secret-ballot/db"
	"github.com/danielhkuo/secret-ballot/models"
	"github.com/danielhkuo/secret-ballot/seal"
)

// TestBallotKey is a fixed 32-byte sealing key for tests
var TestBallotKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

// SetupTestDB creates a fresh sqlite database with the full schema.
// Each test gets its own file, so no cleanup between tests is needed.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ballots.db")
	conn, err := db.Open(db.SQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseURL:     "file:test.db",
		DatabaseType:    db.SQLite,
		AdminKeySalt:    "test-admin-salt",
		BallotKey:       TestBallotKey,
		BallotKeyID:     "test-k1",
		JWTSecret:       "test-jwt-secret",
		TokenTTL:        30 * time.Minute,
		CastGranularity: time.Hour,
	}
}

// TestKeyring builds the sealing keyring from the test config
func TestKeyring(t *testing.T) *seal.Keyring {
	t.Helper()

	cfg := GetTestConfig()
	k, err := seal.FromConfig(cfg.BallotKeyID, cfg.BallotKey, cfg.RetiredKeys)
	if err != nil {
		t.Fatalf("Failed to build keyring: %v", err)
	}
	return k
}

// CaptureLogs sends the default slog logger to a buffer for the rest of
// the test
func CaptureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	return &buf
}

// Clock is a settable time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Date is shorthand for a UTC timestamp
func Date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

// CreateTestBallot registers a ballot definition and returns the stored window
func CreateTestBallot(t *testing.T, conn *sql.DB, ballotID, ballotType string, options []string, opensAt, deadlineAt time.Time) models.BallotWindow {
	t.Helper()

	w, err := db.NewDirectory(conn).Register(context.Background(), models.BallotWindow{
		BallotID:   ballotID,
		Type:       ballotType,
		Options:    options,
		OpensAt:    opensAt,
		DeadlineAt: deadlineAt,
	}, opensAt)
	if err != nil {
		t.Fatalf("Failed to create test ballot: %v", err)
	}

	return w
}

// VoterHeaders returns an Authorization header for the voter
func VoterHeaders(t *testing.T, cfg cliparse.Config, voterID string) map[string]string {
	t.Helper()

	token, err := auth.SignVoterJWT(voterID, cfg.JWTSecret, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign voter token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
