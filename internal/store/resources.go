// ABOUTME: Generic SQL CRUD over registry kinds, shared by SQLiteStore and its transactions
// ABOUTME: Maps JSON field names to columns and builds Resource views from rows

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/nestbox/internal/registry"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// resources implements ResourceStore against a querier. SQLiteStore embeds it
// bound to the database; Tx rebinds it to the transaction so one dispatch
// operation is a single unit of work.
type resources struct {
	q querier
}

var _ ResourceStore = resources{}

// columns returns the full column list for a kind, in select order.
func columns(kind registry.Kind) []string {
	cols := []string{"id"}
	if c := kind.OwnerColumn(); c != "" {
		cols = append(cols, c)
	}
	if c := kind.ParentColumn(); c != "" {
		cols = append(cols, c)
	}
	for _, f := range kind.Fields() {
		cols = append(cols, camelToSnake(f))
	}
	return append(cols, "created_at", "updated_at")
}

// List returns all records of kind whose field equals value. Only the owner
// and parent link fields are valid filters; anything else is a programming
// error in the caller, not client input.
func (r resources) List(ctx context.Context, kind registry.Kind, field, value string) ([]Resource, error) {
	col := camelToSnake(field)
	if col != kind.OwnerColumn() && col != kind.ParentColumn() {
		return nil, fmt.Errorf("kind %s has no filter field %q", kind.Name(), field)
	}

	cols := columns(kind)
	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = ? ORDER BY created_at`,
		strings.Join(cols, ", "), kind.Table(), col), value)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind.Name(), err)
	}
	defer func() { _ = rows.Close() }()

	var out []Resource
	for rows.Next() {
		res, err := scanResource(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListAll returns every record of kind in creation order.
func (r resources) ListAll(ctx context.Context, kind registry.Kind) ([]Resource, error) {
	cols := columns(kind)
	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY created_at`,
		strings.Join(cols, ", "), kind.Table()))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind.Name(), err)
	}
	defer func() { _ = rows.Close() }()

	var out []Resource
	for rows.Next() {
		res, err := scanResource(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Get fetches a record by ID.
func (r resources) Get(ctx context.Context, kind registry.Kind, id string) (Resource, error) {
	cols := columns(kind)
	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = ?`,
		strings.Join(cols, ", "), kind.Table()), id)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", kind.Name(), err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanResource(rows, cols)
}

// Create inserts a new record. Only declared writable fields and the owner or
// parent link are accepted; anything else in fields is ignored.
func (r resources) Create(ctx context.Context, kind registry.Kind, fields map[string]any) (Resource, error) {
	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	cols := []string{"id"}
	args := []any{id}
	for _, f := range writableFields(kind) {
		v, ok := fields[f]
		if !ok {
			continue
		}
		cols = append(cols, camelToSnake(f))
		args = append(args, toDB(f, v))
	}
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	_, err := r.q.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		kind.Table(), strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", kind.Name(), err)
	}

	return r.Get(ctx, kind, id)
}

// Update merge-applies fields onto an existing record: unspecified fields
// retain their prior values. Link fields are not updatable.
func (r resources) Update(ctx context.Context, kind registry.Kind, id string, fields map[string]any) (Resource, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}
	for _, f := range kind.Fields() {
		v, ok := fields[f]
		if !ok {
			continue
		}
		sets = append(sets, camelToSnake(f)+" = ?")
		args = append(args, toDB(f, v))
	}
	args = append(args, id)

	result, err := r.q.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = ?`,
		kind.Table(), strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", kind.Name(), err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return r.Get(ctx, kind, id)
}

// Delete removes a record by ID.
func (r resources) Delete(ctx context.Context, kind registry.Kind, id string) error {
	result, err := r.q.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id = ?`, kind.Table()), id)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", kind.Name(), err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// writableFields returns the JSON field names Create accepts: declared fields
// plus the owner or parent link.
func writableFields(kind registry.Kind) []string {
	fields := kind.Fields()
	if c := kind.OwnerColumn(); c != "" {
		fields = append([]string{snakeToCamel(c)}, fields...)
	}
	if c := kind.ParentColumn(); c != "" {
		fields = append([]string{snakeToCamel(c)}, fields...)
	}
	return fields
}

// scanResource reads the current row into a Resource keyed by JSON names.
func scanResource(rows *sql.Rows, cols []string) (Resource, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}

	res := make(Resource, len(cols))
	for i, col := range cols {
		res[snakeToCamel(col)] = fromDB(col, vals[i])
	}
	return res, nil
}

// toDB converts a JSON value to its stored representation.
func toDB(field string, v any) any {
	if field == "completed" {
		// SQLite has no boolean type
		if b, ok := v.(bool); ok {
			if b {
				return 1
			}
			return 0
		}
	}
	return v
}

// fromDB converts a stored value back to its JSON representation.
func fromDB(col string, v any) any {
	if col == "completed" {
		switch n := v.(type) {
		case int64:
			return n != 0
		case bool:
			return n
		}
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// camelToSnake converts a JSON field name to its column name ("postId" -> "post_id").
func camelToSnake(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// snakeToCamel converts a column name to its JSON field name ("post_id" -> "postId").
func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
