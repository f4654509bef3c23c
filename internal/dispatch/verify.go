// ABOUTME: Ownership verification for top-level records and two-hop subitem chains
// ABOUTME: Single choke point every read, write, and delete routes through before touching data

package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/nestbox/internal/registry"
	"github.com/2389/nestbox/internal/store"
)

// verifyOwnership fetches a record and checks it is owned by ownerID.
// Returns ErrNotFound if the record does not exist and ErrForbidden if it
// exists but belongs to someone else. IDs are canonical UUID strings and
// compared exactly.
func (d *Dispatcher) verifyOwnership(ctx context.Context, rs store.ResourceStore, kind registry.Kind, id, ownerID string) (store.Resource, error) {
	item, err := rs.Get(ctx, kind, id)
	if errors.Is(err, store.ErrNotFound) {
		d.logger.Warn("resource not found", "type", kind.Name(), "id", id)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s: %w", kind.Name(), id, err)
	}

	if item.Owner() != ownerID {
		d.logger.Warn("ownership denied", "user_id", ownerID, "type", kind.Name(), "id", id)
		return nil, ErrForbidden
	}

	return item, nil
}

// verifySubitemAccess checks the two-hop chain parent -> child. The parent's
// ownership is verified before the child is even fetched, so a non-owner
// cannot probe the existence of another user's children. A child that exists
// but hangs off a different parent fails with ErrSubitemMismatch, distinct
// from ErrNotFound.
func (d *Dispatcher) verifySubitemAccess(ctx context.Context, rs store.ResourceStore, parent, child registry.Kind, parentID, childID, ownerID string) (store.Resource, error) {
	if _, err := d.verifyOwnership(ctx, rs, parent, parentID, ownerID); err != nil {
		return nil, err
	}

	if childID == "" {
		return nil, ErrMissingSubitemID
	}

	item, err := rs.Get(ctx, child, childID)
	if errors.Is(err, store.ErrNotFound) {
		d.logger.Warn("subitem not found", "type", child.Name(), "id", childID)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s: %w", child.Name(), childID, err)
	}

	if item.Ref(parent.ForeignKeyField()) != parentID {
		d.logger.Warn("subitem mismatch",
			"type", child.Name(), "id", childID, "parent_type", parent.Name(), "parent_id", parentID)
		return nil, ErrSubitemMismatch
	}

	return item, nil
}
