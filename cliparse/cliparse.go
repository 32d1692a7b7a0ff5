// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort            = 3318
	DefaultTokenTTL        = 30 * time.Minute
	DefaultCastGranularity = time.Hour
	DefaultBallotKeyID     = "k1"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	AdminKeySalt string

	// Ballot payload sealing. Key management itself lives outside the service;
	// we only receive the material.
	BallotKey   string
	BallotKeyID string
	RetiredKeys string

	JWTSecret string

	TokenTTL        time.Duration
	CastGranularity time.Duration
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// A missing file is not an error; existing variables are never overwritten.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseFlags validates flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("secret-ballot", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.BallotKey, "ballot-key", "", "Base64 32-byte ballot sealing key (prefer env)")
	fs.StringVar(&cfg.BallotKeyID, "ballot-key-id", "", "Identifier of the active ballot key")
	fs.StringVar(&cfg.RetiredKeys, "retired-keys", "", "Retired keys as id:base64,... (prefer env)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Voter JWT secret (prefer env)")

	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 0, "Voting token lifetime")
	fs.DurationVar(&cfg.CastGranularity, "cast-granularity", 0, "Truncation applied to stored cast times")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	var err error
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL, err = durationEnv("VOTING_TOKEN_TTL", DefaultTokenTTL)
		if err != nil {
			return Config{}, err
		}
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("token TTL must be positive")
	}

	if cfg.CastGranularity == 0 {
		cfg.CastGranularity, err = durationEnv("CAST_TIME_GRANULARITY", DefaultCastGranularity)
		if err != nil {
			return Config{}, err
		}
	}
	if cfg.CastGranularity < 0 {
		return Config{}, errors.New("cast granularity cannot be negative")
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.BallotKey == "" {
		cfg.BallotKey = os.Getenv("BALLOT_KEY")
	}
	if cfg.BallotKey == "" {
		return Config{}, errors.New("BALLOT_KEY required")
	}
	if cfg.BallotKeyID == "" {
		cfg.BallotKeyID = os.Getenv("BALLOT_KEY_ID")
		if cfg.BallotKeyID == "" {
			cfg.BallotKeyID = DefaultBallotKeyID
		}
	}
	if cfg.RetiredKeys == "" {
		cfg.RetiredKeys = os.Getenv("BALLOT_RETIRED_KEYS")
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("VOTER_JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("VOTER_JWT_SECRET required")
	}

	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return d, nil
}
