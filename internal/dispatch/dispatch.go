// ABOUTME: Generic resource dispatcher serving every registered kind and one nesting level
// ABOUTME: Routes list/get/create/update/delete through ownership verification and cascade deletion

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/nestbox/internal/registry"
	"github.com/2389/nestbox/internal/store"
)

// Dispatch errors. ErrNotFound is the store's sentinel so callers can use a
// single errors.Is check across layers.
var (
	ErrNotFound         = store.ErrNotFound
	ErrForbidden        = errors.New("forbidden: not owner")
	ErrSubitemMismatch  = errors.New("subitem does not belong to this parent")
	ErrMissingSubitemID = errors.New("missing subitem ID")
	ErrMissingID        = errors.New("missing resource ID")
	ErrMissingField     = errors.New("missing required field")
)

// Path describes one resource request: the claimed owner, the resource type,
// and optionally a record ID, a nested subtype, and a nested record ID.
type Path struct {
	OwnerID string
	Type    string
	ID      string
	Subtype string
	SubID   string
}

// Dispatcher executes resource operations against the store. It is stateless
// per request; each operation runs inside one store transaction so the
// ownership check and the mutation are observed as a single unit.
type Dispatcher struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a Dispatcher backed by the given store.
func New(st store.Store) *Dispatcher {
	return &Dispatcher{
		store:  st,
		logger: slog.Default().With("component", "dispatch"),
	}
}

// resolve maps the path's type names to kinds. Unknown names fail with
// registry.ErrUnknownKind; nested-only kinds never resolve at the top level.
func resolve(p Path) (kind, sub registry.Kind, hasSub bool, err error) {
	kind, err = registry.Resolve(p.Type)
	if err != nil {
		return 0, 0, false, err
	}
	if p.Subtype == "" {
		return kind, 0, false, nil
	}
	sub, err = registry.ResolveChild(kind, p.Subtype)
	if err != nil {
		return 0, 0, false, err
	}
	return kind, sub, true, nil
}

// List returns all records of the path's type owned by the path's owner, or,
// with a subtype, all children of the identified parent record.
func (d *Dispatcher) List(ctx context.Context, p Path) ([]store.Resource, error) {
	kind, sub, hasSub, err := resolve(p)
	if err != nil {
		return nil, err
	}

	var out []store.Resource
	err = d.store.Tx(ctx, func(rs store.ResourceStore) error {
		if !hasSub {
			out, err = rs.List(ctx, kind, "userId", p.OwnerID)
			return err
		}
		if p.ID == "" {
			return ErrMissingID
		}
		if _, err := d.verifyOwnership(ctx, rs, kind, p.ID, p.OwnerID); err != nil {
			return err
		}
		out, err = rs.List(ctx, sub, kind.ForeignKeyField(), p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	d.logger.Info("listed resources", "user_id", p.OwnerID, "type", kind.Name(), "subtype", p.Subtype)
	return out, nil
}

// Get returns a single record after verifying the caller owns it.
func (d *Dispatcher) Get(ctx context.Context, p Path) (store.Resource, error) {
	kind, _, _, err := resolve(p)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, ErrMissingID
	}

	var item store.Resource
	err = d.store.Tx(ctx, func(rs store.ResourceStore) error {
		item, err = d.verifyOwnership(ctx, rs, kind, p.ID, p.OwnerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Create creates a record of the path's type stamped with the path's owner,
// or, with a subtype, a child of the identified parent record. Client-supplied
// owner-shaped fields are discarded: top-level records get the authenticated
// owner, nested records get only their parent link (ownership of a child is
// transitive through the parent, never a field of its own).
func (d *Dispatcher) Create(ctx context.Context, p Path, fields map[string]any) (store.Resource, error) {
	kind, sub, hasSub, err := resolve(p)
	if err != nil {
		return nil, err
	}

	var item store.Resource
	err = d.store.Tx(ctx, func(rs store.ResourceStore) error {
		if !hasSub {
			stamped := filterFields(kind, fields)
			if err := requireFields(kind, stamped); err != nil {
				return err
			}
			stamped["userId"] = p.OwnerID
			item, err = rs.Create(ctx, kind, stamped)
			return err
		}

		if p.ID == "" {
			return ErrMissingID
		}
		if _, err := d.verifyOwnership(ctx, rs, kind, p.ID, p.OwnerID); err != nil {
			return err
		}
		stamped := filterFields(sub, fields)
		if err := requireFields(sub, stamped); err != nil {
			return err
		}
		stamped[kind.ForeignKeyField()] = p.ID
		item, err = rs.Create(ctx, sub, stamped)
		return err
	})
	if err != nil {
		return nil, err
	}

	d.logger.Info("created resource",
		"user_id", p.OwnerID, "type", p.Type, "subtype", p.Subtype, "id", item.ID())
	return item, nil
}

// Update merge-applies fields onto an existing record after verifying the
// ownership chain. Unspecified fields retain their prior values.
func (d *Dispatcher) Update(ctx context.Context, p Path, fields map[string]any) (store.Resource, error) {
	kind, sub, hasSub, err := resolve(p)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, ErrMissingID
	}

	var item store.Resource
	err = d.store.Tx(ctx, func(rs store.ResourceStore) error {
		if !hasSub {
			if _, err := d.verifyOwnership(ctx, rs, kind, p.ID, p.OwnerID); err != nil {
				return err
			}
			item, err = rs.Update(ctx, kind, p.ID, filterFields(kind, fields))
			return err
		}

		child, err := d.verifySubitemAccess(ctx, rs, kind, sub, p.ID, p.SubID, p.OwnerID)
		if err != nil {
			return err
		}
		item, err = rs.Update(ctx, sub, child.ID(), filterFields(sub, fields))
		return err
	})
	if err != nil {
		return nil, err
	}

	d.logger.Info("updated resource",
		"user_id", p.OwnerID, "type", p.Type, "subtype", p.Subtype, "id", item.ID())
	return item, nil
}

// Delete removes a record after verifying the ownership chain. Deleting a
// top-level record cascades through its declared children first; if any child
// deletion fails the whole transaction aborts and the parent survives.
func (d *Dispatcher) Delete(ctx context.Context, p Path) error {
	kind, sub, hasSub, err := resolve(p)
	if err != nil {
		return err
	}
	if p.ID == "" {
		return ErrMissingID
	}

	err = d.store.Tx(ctx, func(rs store.ResourceStore) error {
		if !hasSub {
			if _, err := d.verifyOwnership(ctx, rs, kind, p.ID, p.OwnerID); err != nil {
				return err
			}
			if err := d.cascadeDelete(ctx, rs, kind, p.ID); err != nil {
				return err
			}
			return rs.Delete(ctx, kind, p.ID)
		}

		child, err := d.verifySubitemAccess(ctx, rs, kind, sub, p.ID, p.SubID, p.OwnerID)
		if err != nil {
			return err
		}
		// Declared children only go one level deep, so no further cascade here.
		return rs.Delete(ctx, sub, child.ID())
	})
	if err != nil {
		return err
	}

	d.logger.Info("deleted resource",
		"user_id", p.OwnerID, "type", p.Type, "subtype", p.Subtype, "id", p.ID, "sub_id", p.SubID)
	return nil
}

// cascadeDelete removes all declared child records of the given record, one
// at a time so each deletion is observable in the log. Runs inside the
// parent's transaction: a partial cascade never commits.
func (d *Dispatcher) cascadeDelete(ctx context.Context, rs store.ResourceStore, kind registry.Kind, id string) error {
	for _, childKind := range kind.Children() {
		children, err := rs.List(ctx, childKind, kind.ForeignKeyField(), id)
		if err != nil {
			return fmt.Errorf("listing %s for cascade: %w", childKind.Name(), err)
		}
		for _, child := range children {
			if err := rs.Delete(ctx, childKind, child.ID()); err != nil {
				return fmt.Errorf("cascade deleting %s %s: %w", childKind.Name(), child.ID(), err)
			}
			d.logger.Info("cascade deleted resource",
				"type", childKind.Name(), "id", child.ID(), "parent_type", kind.Name(), "parent_id", id)
		}
	}
	return nil
}

// filterFields keeps only the kind's declared writable fields, dropping IDs,
// link fields, and anything else a client may have sent.
func filterFields(kind registry.Kind, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range kind.Fields() {
		if v, ok := fields[f]; ok {
			out[f] = v
		}
	}
	return out
}

// requireFields rejects a create that omits a required field, so the failure
// is a client error instead of a storage constraint violation.
func requireFields(kind registry.Kind, fields map[string]any) error {
	for _, f := range kind.Required() {
		if _, ok := fields[f]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingField, f)
		}
	}
	return nil
}
