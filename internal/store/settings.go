package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/najdeno/internal/db"
)

const sessionSecretKey = "session_secret"

// Settings is a small key/value table for values the server owns.
type Settings struct {
	db *db.DB
}

// NewSettings returns a settings store backed by database.
func NewSettings(database *db.DB) *Settings {
	return &Settings{db: database}
}

// SessionSecret returns the persisted session signing secret, generating
// and storing one on first use. Concurrent first calls agree on one value.
func (s *Settings) SessionSecret(ctx context.Context) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	query, args, err := s.db.Builder().
		Insert("settings").
		Columns("key", "value").
		Values(sessionSecretKey, candidate).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("storing session secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	query, args, err = s.db.Builder().
		Select("value").
		From("settings").
		Where(sq.Eq{"key": sessionSecretKey}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var secret string
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&secret); err != nil {
		return "", fmt.Errorf("querying session secret: %w", err)
	}
	return secret, nil
}
