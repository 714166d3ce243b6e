package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

// Items is the item repository.
type Items struct {
	db  *db.DB
	now func() time.Time
}

// NewItems returns an item repository backed by database.
func NewItems(database *db.DB) *Items {
	return &Items{
		db: database,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

var itemColumns = []string{
	"i.id", "i.name", "i.description", "i.status", "i.image", "i.claimed",
	"i.date_posted", "i.owner_id", "i.version", "u.username AS owner_username",
}

func selectItems(b sq.StatementBuilderType) sq.SelectBuilder {
	return b.Select(itemColumns...).
		From("items i").
		Join("users u ON u.id = i.owner_id")
}

// CreateItem inserts item, assigning its ID, posting date and initial version.
// Only Name, Description, Status, Image, Claimed and OwnerID are read.
func (s *Items) CreateItem(ctx context.Context, item model.Item) (*model.Item, error) {
	if !item.Status.Valid() {
		return nil, fmt.Errorf("%w: status must be Lost or Found", model.ErrInvalidInput)
	}

	query, args, err := s.db.Builder().
		Insert("items").
		Columns("name", "description", "status", "image", "claimed", "date_posted", "owner_id", "version").
		Values(item.Name, item.Description, string(item.Status), item.Image, item.Claimed, s.now(), item.OwnerID, 1).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var id int64
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("owner: %w", model.ErrNotFound)
		}
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return s.GetItem(ctx, id)
}

// GetItem returns an item by ID.
func (s *Items) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	query, args, err := selectItems(s.db.Builder()).
		Where(sq.Eq{"i.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	item := &model.Item{}
	err = s.db.GetContext(ctx, item, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// UpdateItem applies a partial update and returns the stored result.
// Every applied update bumps the item's version. With upd.IfVersion set the
// update only happens when the stored version matches, otherwise
// model.ErrVersionConflict is returned.
func (s *Items) UpdateItem(ctx context.Context, id int64, upd model.ItemUpdate) (*model.Item, error) {
	if upd.Empty() {
		return s.GetItem(ctx, id)
	}

	set := sq.Eq{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%w: status must be Lost or Found", model.ErrInvalidInput)
		}
		set["status"] = string(*upd.Status)
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}
	if upd.Claimed != nil {
		set["claimed"] = *upd.Claimed
	}

	where := sq.Eq{"id": id}
	if upd.IfVersion != nil {
		where["version"] = *upd.IfVersion
	}

	query, args, err := s.db.Builder().
		Update("items").
		SetMap(set).
		Set("version", sq.Expr("version + 1")).
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	if n == 0 {
		// Tell a missing item apart from a lost compare-and-swap.
		if _, err := s.GetItem(ctx, id); err != nil {
			return nil, err
		}
		return nil, model.ErrVersionConflict
	}

	return s.GetItem(ctx, id)
}

// DeleteItem removes an item record.
func (s *Items) DeleteItem(ctx context.Context, id int64) error {
	query, args, err := s.db.Builder().
		Delete("items").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// SearchItems returns the items matching f, newest first with ties broken by
// descending ID. The whole filter runs as a single statement.
func (s *Items) SearchItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error) {
	query, args, err := searchQuery(s.db.Builder(), f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	items := []model.Item{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("%w: searching items: %w", ErrExecutingQuery, err)
	}
	return items, nil
}

// searchQuery translates a filter into one SELECT.
func searchQuery(b sq.StatementBuilderType, f model.ItemFilter) sq.SelectBuilder {
	q := selectItems(b)

	if f.Query != "" {
		pattern := "%" + escapeLike(f.Query) + "%"
		q = q.Where(sq.Or{
			sq.Expr(`LOWER(i.name) LIKE LOWER(?) ESCAPE '\'`, pattern),
			sq.Expr(`LOWER(i.description) LIKE LOWER(?) ESCAPE '\'`, pattern),
		})
	}

	if f.Status != "" {
		q = q.Where(sq.Eq{"i.status": string(f.Status)})
	}

	switch f.Claim {
	case model.ClaimClaimed:
		q = q.Where(sq.Eq{"i.claimed": true})
	case model.ClaimUnclaimed:
		q = q.Where(sq.Eq{"i.claimed": false})
	}

	return q.OrderBy("i.date_posted DESC", "i.id DESC")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
