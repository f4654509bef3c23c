// ABOUTME: Entity registry mapping resource type names to storage metadata
// ABOUTME: Closed Kind enum with ownership columns, nesting rules, and cascade children

package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when a request names a resource type that does
// not exist. This is a client input error, never a server fault.
var ErrUnknownKind = errors.New("unknown resource type")

// Kind identifies one of the resource types the store can hold. The set is
// closed at compile time; request-supplied strings are mapped through Resolve.
type Kind int

const (
	KindPosts Kind = iota
	KindTodos
	KindComments
)

// meta describes the storage shape of a Kind.
type meta struct {
	name         string   // canonical lowercase type name, as it appears in URLs
	table        string   // SQLite table
	ownerColumn  string   // column holding the owning user ID ("" for nested kinds)
	parentColumn string   // column holding the parent record ID ("" for top-level kinds)
	fields       []string // client-writable JSON field names
	required     []string // fields a create must supply (no column default)
	topLevel     bool     // may appear directly under /users/{ownerId}/
	children     []Kind   // kinds cascade-deleted with this one
}

var kinds = map[Kind]meta{
	KindPosts: {
		name:        "posts",
		table:       "posts",
		ownerColumn: "user_id",
		fields:      []string{"title", "body"},
		required:    []string{"title", "body"},
		topLevel:    true,
		children:    []Kind{KindComments},
	},
	KindTodos: {
		name:        "todos",
		table:       "todos",
		ownerColumn: "user_id",
		fields:      []string{"title", "completed"},
		required:    []string{"title"}, // completed defaults to false
		topLevel:    true,
	},
	KindComments: {
		name:         "comments",
		table:        "comments",
		parentColumn: "post_id",
		fields:       []string{"name", "email", "body"},
		required:     []string{"name", "email", "body"},
	},
}

// byName is the lookup table for request-supplied type names.
var byName = func() map[string]Kind {
	m := make(map[string]Kind, len(kinds))
	for k, info := range kinds {
		m[info.name] = k
	}
	return m
}()

// Resolve maps a case-insensitive type name from a request path to its Kind.
// Only top-level kinds resolve here; nested-only kinds (comments) must be
// reached through ResolveChild so they never appear directly under a user.
func Resolve(name string) (Kind, error) {
	k, ok := byName[strings.ToLower(name)]
	if !ok || !kinds[k].topLevel {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// ResolveChild maps a subtype name to a Kind, requiring that it is a declared
// child of parent. A real kind nested under the wrong parent is still unknown
// from the caller's point of view.
func ResolveChild(parent Kind, name string) (Kind, error) {
	k, ok := byName[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	for _, c := range kinds[parent].children {
		if c == k {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q is not nested under %q", ErrUnknownKind, name, kinds[parent].name)
}

// Name returns the canonical lowercase type name.
func (k Kind) Name() string { return kinds[k].name }

// Table returns the SQLite table backing this kind.
func (k Kind) Table() string { return kinds[k].table }

// OwnerColumn returns the column holding the owning user ID, or "" for kinds
// owned transitively through a parent.
func (k Kind) OwnerColumn() string { return kinds[k].ownerColumn }

// ParentColumn returns the column holding the parent record ID, or "" for
// top-level kinds.
func (k Kind) ParentColumn() string { return kinds[k].parentColumn }

// Fields returns the client-writable JSON field names for this kind.
func (k Kind) Fields() []string { return kinds[k].fields }

// Required returns the fields a create must supply for this kind.
func (k Kind) Required() []string { return kinds[k].required }

// Children returns the kinds that must be cascade-deleted with this one.
func (k Kind) Children() []Kind { return kinds[k].children }

// ForeignKeyField returns the JSON field name linking a child to this kind,
// derived from the singularized type name ("posts" -> "postId").
func (k Kind) ForeignKeyField() string {
	return strings.TrimSuffix(kinds[k].name, "s") + "Id"
}
