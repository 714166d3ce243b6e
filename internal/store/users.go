package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

// Users is the identity store: user records and their credential hashes.
type Users struct {
	db *db.DB
}

// NewUsers returns a user store backed by database.
func NewUsers(database *db.DB) *Users {
	return &Users{db: database}
}

var userColumns = []string{"id", "username", "email", "password_hash", "created_at"}

// CreateUser creates a new user. A taken username or email yields
// model.ErrDuplicateIdentity.
func (s *Users) CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	query, args, err := s.db.Builder().
		Insert("users").
		Columns("username", "email", "password_hash", "created_at").
		Values(username, email, passwordHash, time.Now().UTC().Truncate(time.Microsecond)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var id int64
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return s.GetUser(ctx, id)
}

// GetUser returns a user by ID.
func (s *Users) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.getUserWhere(ctx, sq.Eq{"id": id})
}

// GetUserByEmail returns a user by email.
func (s *Users) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUserWhere(ctx, sq.Eq{"email": email})
}

// IdentityTaken reports whether the username or the email is already registered.
func (s *Users) IdentityTaken(ctx context.Context, username, email string) (bool, error) {
	query, args, err := s.db.Builder().
		Select("COUNT(*)").
		From("users").
		Where(sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("checking identity: %w", err)
	}
	return count > 0, nil
}

func (s *Users) getUserWhere(ctx context.Context, pred sq.Eq) (*model.User, error) {
	query, args, err := s.db.Builder().
		Select(userColumns...).
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	u := &model.User{}
	err = s.db.GetContext(ctx, u, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}
