package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/logger"
	"github.com/erazemk/najdeno/internal/model"
)

// Registration is a sign-up form.
type Registration struct {
	Username        string `json:"username" validate:"required,min=2,max=20"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"omitempty,eqfield=Password"`
}

// Credentials is a sign-in form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
	Next     string `json:"next"`
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	User      *model.User
	ExpiresAt time.Time
	// Next is where the client should go after signing in.
	Next string
}

// SessionConfig sets session lifetimes.
type SessionConfig struct {
	Duration         time.Duration
	RememberDuration time.Duration
}

// Accounts registers users and manages their sessions.
type Accounts struct {
	users    UserRepository
	revoked  TokenRevoker
	tokens   *auth.Tokens
	cfg      SessionConfig
	validate *validator.Validate

	// dummyHash is compared against when the email is unknown so that both
	// failure paths cost the same.
	dummyHash []byte
}

// NewAccounts returns the accounts service.
func NewAccounts(users UserRepository, revoked TokenRevoker, tokens *auth.Tokens, cfg SessionConfig) *Accounts {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

	return &Accounts{
		users:     users,
		revoked:   revoked,
		tokens:    tokens,
		cfg:       cfg,
		validate:  newValidator(),
		dummyHash: dummy,
	}
}

// Register creates a user. A taken username or email fails with
// model.ErrDuplicateIdentity.
func (s *Accounts) Register(ctx context.Context, reg Registration) (*model.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)

	if err := validateStruct(s.validate, reg); err != nil {
		return nil, err
	}

	taken, err := s.users.IdentityTaken(ctx, reg.Username, reg.Email)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}
	if taken {
		return nil, model.ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, reg.Username, reg.Email, string(hash))
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered")

	return user, nil
}

// Verify checks an email and password. Every failure is reported as
// model.ErrInvalidCredentials.
func (s *Accounts) Verify(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, model.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("verifying credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// Login verifies credentials and issues a session token. Remember selects
// the long session lifetime.
func (s *Accounts) Login(ctx context.Context, creds Credentials) (*Session, error) {
	user, err := s.Verify(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, err
	}

	ttl := s.cfg.Duration
	if creds.Remember {
		ttl = s.cfg.RememberDuration
	}

	token, claims, err := s.tokens.Generate(user, ttl)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Int64("user_id", user.ID).
		Bool("remember", creds.Remember).
		Msg("user logged in")

	return &Session{
		Token:     token,
		User:      user,
		ExpiresAt: claims.ExpiresAt.Time,
		Next:      SafeNext(creds.Next),
	}, nil
}

// Authenticate resolves a session token to its actor. Invalid, expired,
// revoked tokens and tokens of unknown users fail with
// model.ErrUnauthenticated.
func (s *Accounts) Authenticate(ctx context.Context, token string) (*model.Actor, *auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.revoked.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("checking session: %w", err)
	}
	if revoked {
		return nil, nil, fmt.Errorf("%w: session revoked", model.ErrUnauthenticated)
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: unknown user", model.ErrUnauthenticated)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("checking session: %w", err)
	}

	return &model.Actor{UserID: user.ID, Username: user.Username}, claims, nil
}

// CurrentUser returns the account of a signed-in actor.
func (s *Accounts) CurrentUser(ctx context.Context, actor *model.Actor) (*model.User, error) {
	if err := auth.RequireActor(actor); err != nil {
		return nil, err
	}
	return s.users.GetUser(ctx, actor.UserID)
}

// Logout revokes the session so its token is no longer accepted.
func (s *Accounts) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return model.ErrUnauthenticated
	}

	expires := time.Now().Add(s.cfg.RememberDuration)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	if err := s.revoked.RevokeToken(ctx, claims.ID, expires); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	logger.FromContext(ctx).Info().Int64("user_id", claims.UserID).Msg("user logged out")
	return nil
}

// SafeNext returns next when it is a local absolute path, and "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
