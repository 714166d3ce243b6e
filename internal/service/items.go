// Package service holds the operations that mutate state: the item
// lifecycle and user accounts.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/logger"
	"github.com/erazemk/najdeno/internal/model"
)

// Upload is an image submitted with an item form.
type Upload struct {
	Filename string
	Content  io.Reader
}

// EditRequest carries an edit of an item.
type EditRequest struct {
	Fields model.ItemFields
	Image  *Upload

	// Version, when set, rejects the edit if the item changed since it was read.
	Version *int64
}

// Items is the item lifecycle service. It keeps item records and their
// image assets consistent: a record never references a missing asset.
type Items struct {
	repo     ItemRepository
	assets   AssetStore
	validate *validator.Validate
}

// NewItems returns the lifecycle service.
func NewItems(repo ItemRepository, assets AssetStore) *Items {
	return &Items{repo: repo, assets: assets, validate: newValidator()}
}

// Create posts a new item owned by actor. The image, if any, is stored
// before the record and removed again if the record cannot be created.
func (s *Items) Create(ctx context.Context, actor *model.Actor, fields model.ItemFields, image *Upload) (*model.Item, error) {
	if err := auth.RequireActor(actor); err != nil {
		return nil, err
	}

	fields = normalizeFields(fields)
	if err := validateStruct(s.validate, fields); err != nil {
		return nil, err
	}

	var key *string
	if image != nil {
		k, err := s.storeImage(ctx, image)
		if err != nil {
			return nil, err
		}
		key = &k
	}

	item, err := s.repo.CreateItem(ctx, model.Item{
		Name:        fields.Name,
		Description: fields.Description,
		Status:      fields.Status,
		Image:       key,
		OwnerID:     actor.UserID,
	})
	if err != nil {
		if key != nil {
			s.discard(ctx, *key, "residual orphan asset after failed item create")
		}
		return nil, fmt.Errorf("creating item: %w", err)
	}

	logger.FromContext(ctx).Info().
		Int64("item_id", item.ID).
		Int64("owner_id", actor.UserID).
		Msg("item created")

	return item, nil
}

// Edit replaces an item's fields and optionally its image. The new image is
// stored first, the record is switched to it, and only then is the old
// image removed.
func (s *Items) Edit(ctx context.Context, actor *model.Actor, id int64, req EditRequest) (*model.Item, error) {
	item, err := s.authorize(ctx, actor, id, auth.ActionEdit)
	if err != nil {
		return nil, err
	}

	fields := normalizeFields(req.Fields)
	if err := validateStruct(s.validate, fields); err != nil {
		return nil, err
	}

	upd := model.ItemUpdate{
		Name:        &fields.Name,
		Description: &fields.Description,
		Status:      &fields.Status,
		IfVersion:   req.Version,
	}

	var newKey string
	if req.Image != nil {
		newKey, err = s.storeImage(ctx, req.Image)
		if err != nil {
			return nil, err
		}
		upd.Image = &newKey
	}

	updated, err := s.repo.UpdateItem(ctx, id, upd)
	if err != nil {
		if newKey != "" {
			s.discard(ctx, newKey, "residual orphan asset after failed item edit")
		}
		return nil, fmt.Errorf("updating item: %w", err)
	}

	if oldKey := item.ImageKey(); newKey != "" && oldKey != "" && oldKey != newKey {
		s.discard(ctx, oldKey, "leaked replaced asset")
	}

	logger.FromContext(ctx).Info().
		Int64("item_id", id).
		Bool("image_replaced", newKey != "").
		Msg("item edited")

	return updated, nil
}

// Delete removes an item and then its image. A failure to remove the image
// is logged, not returned: the record is already gone.
func (s *Items) Delete(ctx context.Context, actor *model.Actor, id int64) error {
	item, err := s.authorize(ctx, actor, id, auth.ActionDelete)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	if key := item.ImageKey(); key != "" {
		s.discard(ctx, key, "leaked asset of deleted item")
	}

	logger.FromContext(ctx).Info().Int64("item_id", id).Msg("item deleted")
	return nil
}

// Claim marks an item as claimed. Claiming a claimed item is a no-op.
func (s *Items) Claim(ctx context.Context, actor *model.Actor, id int64) (*model.Item, error) {
	return s.setClaimed(ctx, actor, id, true)
}

// Unclaim marks an item as unclaimed. Unclaiming an unclaimed item is a no-op.
func (s *Items) Unclaim(ctx context.Context, actor *model.Actor, id int64) (*model.Item, error) {
	return s.setClaimed(ctx, actor, id, false)
}

func (s *Items) setClaimed(ctx context.Context, actor *model.Actor, id int64, claimed bool) (*model.Item, error) {
	action := auth.ActionUnclaim
	if claimed {
		action = auth.ActionClaim
	}

	item, err := s.authorize(ctx, actor, id, action)
	if err != nil {
		return nil, err
	}
	if item.Claimed == claimed {
		return item, nil
	}

	updated, err := s.repo.UpdateItem(ctx, id, model.ItemUpdate{Claimed: &claimed})
	if err != nil {
		return nil, fmt.Errorf("%s item: %w", action, err)
	}

	logger.FromContext(ctx).Info().
		Int64("item_id", id).
		Bool("claimed", claimed).
		Msg("item claim changed")

	return updated, nil
}

// authorize checks, in order, that the actor is signed in, that the item
// exists and that the actor owns it.
func (s *Items) authorize(ctx context.Context, actor *model.Actor, id int64, action auth.Action) (*model.Item, error) {
	if err := auth.RequireActor(actor); err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := auth.Authorize(actor, item, action); err != nil {
		logger.FromContext(ctx).Warn().
			Int64("item_id", id).
			Int64("actor_id", actor.UserID).
			Str("action", string(action)).
			Msg("ownership check failed")
		return nil, err
	}

	return item, nil
}

// storeImage validates the upload's type before touching storage.
func (s *Items) storeImage(ctx context.Context, image *Upload) (string, error) {
	if _, err := s.assets.Validate(image.Filename); err != nil {
		return "", err
	}

	key, err := s.assets.Save(ctx, image.Content, image.Filename)
	if err != nil {
		return "", err
	}
	return key, nil
}

// discard deletes an asset that is no longer referenced, logging failures.
func (s *Items) discard(ctx context.Context, key, reason string) {
	if err := s.assets.Delete(ctx, key); err != nil {
		logger.FromContext(ctx).Error().
			Err(err).
			Str("asset_key", key).
			Msg(reason)
	}
}

func normalizeFields(f model.ItemFields) model.ItemFields {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Status = model.Status(strings.TrimSpace(string(f.Status)))
	return f
}
