// ABOUTME: Store interface and data types for nestbox persistence
// ABOUTME: Defines User/Credential structs, the generic Resource view, and the Store interface

package store

import (
	"context"
	"errors"
	"time"

	"github.com/2389/nestbox/internal/registry"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrEmailInUse is returned when registration reuses an existing email
var ErrEmailInUse = errors.New("email already in use")

// ErrWebsiteInUse is returned when registration reuses an existing website
var ErrWebsiteInUse = errors.New("website already in use")

// User represents a registered account. Identifiers are opaque UUID strings.
type User struct {
	ID          string
	UserName    string
	Email       string
	PhoneNumber string
	Website     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Resource is a generic view of a stored record, keyed by JSON field names
// ("id", "userId", "postId", "title", ...). The dispatcher operates on this
// shape so one set of handlers can serve every registered kind.
type Resource map[string]any

// ID returns the record's identifier.
func (r Resource) ID() string {
	s, _ := r["id"].(string)
	return s
}

// Owner returns the owning user ID, or "" for kinds owned transitively
// through a parent record.
func (r Resource) Owner() string {
	s, _ := r["userId"].(string)
	return s
}

// Ref returns the named reference field as a string ("" if absent).
func (r Resource) Ref(field string) string {
	s, _ := r[field].(string)
	return s
}

// ResourceStore is the generic CRUD-with-filter surface the dispatcher
// consumes. Field names are JSON names; kinds come from the registry.
type ResourceStore interface {
	// List returns all records of kind whose field equals value.
	List(ctx context.Context, kind registry.Kind, field, value string) ([]Resource, error)

	// ListAll returns every record of kind, for unscoped public views.
	ListAll(ctx context.Context, kind registry.Kind) ([]Resource, error)

	// Get fetches a record by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, kind registry.Kind, id string) (Resource, error)

	// Create inserts a new record with the given fields and returns it.
	// The ID and timestamps are assigned by the store.
	Create(ctx context.Context, kind registry.Kind, fields map[string]any) (Resource, error)

	// Update merge-applies fields onto an existing record and returns the
	// result. Fields not present keep their prior values.
	Update(ctx context.Context, kind registry.Kind, id string, fields map[string]any) (Resource, error)

	// Delete removes a record by ID. Returns ErrNotFound if absent.
	Delete(ctx context.Context, kind registry.Kind, id string) error
}

// Store defines the full persistence interface.
type Store interface {
	ResourceStore

	// CreateUser creates a user and its credential atomically. No partial
	// user/credential pair may survive a unique-constraint failure.
	CreateUser(ctx context.Context, user *User, passwordHash string) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByWebsite(ctx context.Context, website string) (*User, error)

	// GetCredential returns the password hash for a user. The hash never
	// leaves the auth layer.
	GetCredential(ctx context.Context, userID string) (string, error)

	// Tx runs fn against a transactional ResourceStore. The ownership check,
	// cascade, and mutation of one dispatch operation are observed as a
	// single unit by concurrent readers.
	Tx(ctx context.Context, fn func(ResourceStore) error) error

	// Close releases any resources held by the store
	Close() error
}
