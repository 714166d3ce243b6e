// Package api is the HTTP transport: JSON endpoints for accounts and items,
// session handling and uploaded image serving.
package api

import (
	"context"

	"github.com/erazemk/najdeno/internal/logger"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/service"
)

// ItemFinder answers read-only item queries. Reads skip the lifecycle
// service and go straight to the repository.
type ItemFinder interface {
	GetItem(ctx context.Context, id int64) (*model.Item, error)
	SearchItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error)
}

// AssetReader returns stored images.
type AssetReader interface {
	Read(ctx context.Context, key string) ([]byte, string, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Items    *service.Items
	Accounts *service.Accounts
	Finder   ItemFinder
	Assets   AssetReader
	DB       Pinger
	Logger   *logger.Logger

	// MaxBodySize caps every request body in bytes.
	MaxBodySize int64
}

// Handler serves the HTTP API.
type Handler struct {
	items    *service.Items
	accounts *service.Accounts
	finder   ItemFinder
	assets   AssetReader
	db       Pinger
	logger   *logger.Logger
	maxBody  int64
}

// NewHandler returns a handler using deps.
func NewHandler(deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	maxBody := deps.MaxBodySize
	if maxBody <= 0 {
		maxBody = 16 << 20
	}

	return &Handler{
		items:    deps.Items,
		accounts: deps.Accounts,
		finder:   deps.Finder,
		assets:   deps.Assets,
		db:       deps.DB,
		logger:   log,
		maxBody:  maxBody,
	}
}
