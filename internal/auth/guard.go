package auth

import (
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// Action is an item mutation that requires ownership.
type Action string

// Guarded actions.
const (
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionClaim   Action = "claim"
	ActionUnclaim Action = "unclaim"
)

// RequireActor fails with model.ErrUnauthenticated unless actor is a
// recognized identity.
func RequireActor(actor *model.Actor) error {
	if !actor.IsAuthenticated() {
		return model.ErrUnauthenticated
	}
	return nil
}

// Authorize allows action on item only for the item's owner. The same rule
// holds for every action and every item state.
func Authorize(actor *model.Actor, item *model.Item, action Action) error {
	if err := RequireActor(actor); err != nil {
		return err
	}
	if item == nil || actor.UserID != item.OwnerID {
		return fmt.Errorf("%s item: %w", action, model.ErrForbidden)
	}
	return nil
}
