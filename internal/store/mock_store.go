// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/nestbox/internal/registry"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	users       map[string]*User   // keyed by user ID
	credentials map[string]string  // keyed by user ID -> password hash
	records     map[registry.Kind]map[string]Resource
	order       map[registry.Kind][]string // insertion order per kind
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:       make(map[string]*User),
		credentials: make(map[string]string),
		records:     make(map[registry.Kind]map[string]Resource),
		order:       make(map[registry.Kind][]string),
	}
}

var _ Store = (*MockStore)(nil)

// CreateUser stores a user and credential together.
func (m *MockStore) CreateUser(ctx context.Context, user *User, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailInUse
		}
		if u.Website == user.Website {
			return ErrWebsiteInUse
		}
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	u := *user
	m.users[u.ID] = &u
	m.credentials[u.ID] = passwordHash
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

// GetUserByEmail retrieves a user by email.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// GetUserByWebsite retrieves a user by website.
func (m *MockStore) GetUserByWebsite(ctx context.Context, website string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Website == website {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// GetCredential returns the stored password hash for a user.
func (m *MockStore) GetCredential(ctx context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hash, ok := m.credentials[userID]
	if !ok {
		return "", ErrNotFound
	}
	return hash, nil
}

// List returns all records of kind whose field equals value, in insertion order.
func (m *MockStore) List(ctx context.Context, kind registry.Kind, field, value string) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Resource
	for _, id := range m.order[kind] {
		rec := m.records[kind][id]
		if rec.Ref(field) == value {
			out = append(out, maps.Clone(rec))
		}
	}
	return out, nil
}

// ListAll returns every record of kind in insertion order.
func (m *MockStore) ListAll(ctx context.Context, kind registry.Kind) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Resource
	for _, id := range m.order[kind] {
		out = append(out, maps.Clone(m.records[kind][id]))
	}
	return out, nil
}

// Get fetches a record by ID.
func (m *MockStore) Get(ctx context.Context, kind registry.Kind, id string) (Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(rec), nil
}

// Create stores a new record with assigned ID and timestamps.
func (m *MockStore) Create(ctx context.Context, kind registry.Kind, fields map[string]any) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	rec := Resource{"id": uuid.New().String(), "createdAt": now, "updatedAt": now}
	for _, f := range writableFields(kind) {
		if v, ok := fields[f]; ok {
			rec[f] = v
		}
	}

	if m.records[kind] == nil {
		m.records[kind] = make(map[string]Resource)
	}
	m.records[kind][rec.ID()] = rec
	m.order[kind] = append(m.order[kind], rec.ID())
	return maps.Clone(rec), nil
}

// Update merge-applies fields onto an existing record.
func (m *MockStore) Update(ctx context.Context, kind registry.Kind, id string, fields map[string]any) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	for _, f := range kind.Fields() {
		if v, ok := fields[f]; ok {
			rec[f] = v
		}
	}
	rec["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	return maps.Clone(rec), nil
}

// Delete removes a record by ID.
func (m *MockStore) Delete(ctx context.Context, kind registry.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[kind][id]; !ok {
		return ErrNotFound
	}
	delete(m.records[kind], id)
	for i, oid := range m.order[kind] {
		if oid == id {
			m.order[kind] = append(m.order[kind][:i], m.order[kind][i+1:]...)
			break
		}
	}
	return nil
}

// Tx runs fn against the mock directly. The mock does not simulate rollback;
// tests that need transactional failure behavior use the SQLite store.
func (m *MockStore) Tx(ctx context.Context, fn func(ResourceStore) error) error {
	return fn(m)
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error {
	return nil
}
