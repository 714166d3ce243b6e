package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/najdeno/internal/db"
)

// Tokens keeps the list of revoked session tokens.
type Tokens struct {
	db *db.DB
}

// NewTokens returns a revocation list backed by database.
func NewTokens(database *db.DB) *Tokens {
	return &Tokens{db: database}
}

// RevokeToken adds a token's JTI to the revocation list.
func (s *Tokens) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	query, args, err := s.db.Builder().
		Insert("revoked_tokens").
		Columns("jti", "expires_at").
		Values(jti, expiresAt.UTC()).
		Suffix("ON CONFLICT (jti) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	// Opportunistically clean up expired revocations.
	query, args, err = s.db.Builder().
		Delete("revoked_tokens").
		Where(sq.Lt{"expires_at": time.Now().UTC()}).
		ToSql()
	if err == nil {
		_, _ = s.db.ExecContext(ctx, query, args...)
	}

	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func (s *Tokens) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	query, args, err := s.db.Builder().
		Select("COUNT(*)").
		From("revoked_tokens").
		Where(sq.Eq{"jti": jti}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var count int
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}
