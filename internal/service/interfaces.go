package service

import (
	"context"
	"io"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// ItemRepository persists item records.
type ItemRepository interface {
	CreateItem(ctx context.Context, item model.Item) (*model.Item, error)
	GetItem(ctx context.Context, id int64) (*model.Item, error)
	UpdateItem(ctx context.Context, id int64, upd model.ItemUpdate) (*model.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

// AssetStore keeps uploaded images.
type AssetStore interface {
	Validate(originalName string) (string, error)
	Save(ctx context.Context, r io.Reader, originalName string) (string, error)
	Delete(ctx context.Context, key string) error
}

// UserRepository persists user records.
type UserRepository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	IdentityTaken(ctx context.Context, username, email string) (bool, error)
}

// TokenRevoker remembers session tokens that were logged out.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}
