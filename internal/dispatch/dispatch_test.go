// ABOUTME: Tests for the resource dispatcher: ownership, nesting, and cascade deletion
// ABOUTME: Exercises the error taxonomy (NotFound vs Forbidden vs SubitemMismatch)

package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/nestbox/internal/registry"
	"github.com/2389/nestbox/internal/store"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
)

func newTestDispatcher() (*Dispatcher, *store.MockStore) {
	mock := store.NewMockStore()
	return New(mock), mock
}

func createPost(t *testing.T, d *Dispatcher, owner, title string) store.Resource {
	t.Helper()
	post, err := d.Create(context.Background(), Path{OwnerID: owner, Type: "posts"}, map[string]any{
		"title": title, "body": "body of " + title,
	})
	require.NoError(t, err)
	return post
}

func createComment(t *testing.T, d *Dispatcher, owner, postID, body string) store.Resource {
	t.Helper()
	comment, err := d.Create(context.Background(),
		Path{OwnerID: owner, Type: "posts", ID: postID, Subtype: "comments"},
		map[string]any{"name": "Carol", "email": "carol@example.com", "body": body})
	require.NoError(t, err)
	return comment
}

func TestCreateAndGet(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()

	post := createPost(t, d, alice, "hello")
	assert.Equal(t, alice, post.Owner())

	got, err := d.Get(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID()})
	require.NoError(t, err)
	assert.Equal(t, "hello", got["title"])
}

func TestCreate_StripsClientOwner(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()

	// A client claiming someone else's userId gets stamped with its own
	post, err := d.Create(ctx, Path{OwnerID: alice, Type: "posts"}, map[string]any{
		"title": "t", "body": "b", "userId": bob, "id": "chosen",
	})
	require.NoError(t, err)
	assert.Equal(t, alice, post.Owner())
	assert.NotEqual(t, "chosen", post.ID())
}

func TestCreate_UnknownType(t *testing.T) {
	d, _ := newTestDispatcher()

	_, err := d.Create(context.Background(), Path{OwnerID: alice, Type: "widgets"}, map[string]any{})
	assert.ErrorIs(t, err, registry.ErrUnknownKind)
}

func TestGet_ErrorTaxonomy(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()
	post := createPost(t, d, alice, "mine")

	t.Run("nonexistent id is not found", func(t *testing.T) {
		_, err := d.Get(ctx, Path{OwnerID: alice, Type: "posts", ID: "no-such-id"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("someone else's record is forbidden, not hidden", func(t *testing.T) {
		_, err := d.Get(ctx, Path{OwnerID: bob, Type: "posts", ID: post.ID()})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := d.Get(ctx, Path{OwnerID: alice, Type: "posts"})
		assert.ErrorIs(t, err, ErrMissingID)
	})
}

func TestList_ScopedToOwner(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()

	createPost(t, d, alice, "a1")
	createPost(t, d, alice, "a2")
	createPost(t, d, bob, "b1")

	posts, err := d.List(ctx, Path{OwnerID: alice, Type: "posts"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.Equal(t, alice, p.Owner())
	}
}

func TestList_CommentsRequireParentOwnership(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()

	post := createPost(t, d, alice, "p")
	createComment(t, d, alice, post.ID(), "first")
	createComment(t, d, alice, post.ID(), "second")

	comments, err := d.List(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID(), Subtype: "comments"})
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	_, err = d.List(ctx, Path{OwnerID: bob, Type: "posts", ID: post.ID(), Subtype: "comments"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreate_UnderUnownedParent(t *testing.T) {
	d, mock := newTestDispatcher()
	ctx := context.Background()
	post := createPost(t, d, alice, "p")

	_, err := d.Create(ctx,
		Path{OwnerID: bob, Type: "posts", ID: post.ID(), Subtype: "comments"},
		map[string]any{"name": "Mallory", "email": "m@example.com", "body": "spam"})
	assert.ErrorIs(t, err, ErrForbidden)

	comments, err := mock.List(ctx, registry.KindComments, "postId", post.ID())
	require.NoError(t, err)
	assert.Empty(t, comments, "denied create must leave no child behind")
}

func TestCreate_CommentsNotTopLevel(t *testing.T) {
	d, _ := newTestDispatcher()

	_, err := d.Create(context.Background(), Path{OwnerID: alice, Type: "comments"}, map[string]any{
		"name": "n", "email": "e", "body": "b",
	})
	assert.ErrorIs(t, err, registry.ErrUnknownKind)
}

func TestCreate_MissingRequiredFields(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()

	_, err := d.Create(ctx, Path{OwnerID: alice, Type: "posts"}, map[string]any{"title": "no body"})
	assert.ErrorIs(t, err, ErrMissingField)

	// completed has a default; title does not
	_, err = d.Create(ctx, Path{OwnerID: alice, Type: "todos"}, map[string]any{"title": "t"})
	assert.NoError(t, err)
	_, err = d.Create(ctx, Path{OwnerID: alice, Type: "todos"}, map[string]any{"completed": true})
	assert.ErrorIs(t, err, ErrMissingField)

	post := createPost(t, d, alice, "p")
	_, err = d.Create(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID(), Subtype: "comments"},
		map[string]any{"name": "Carol", "body": "no email"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestUpdate_Merge(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()

	todo, err := d.Create(ctx, Path{OwnerID: alice, Type: "todos"}, map[string]any{
		"title": "buy milk", "completed": false,
	})
	require.NoError(t, err)

	updated, err := d.Update(ctx, Path{OwnerID: alice, Type: "todos", ID: todo.ID()}, map[string]any{
		"completed": true,
	})
	require.NoError(t, err)
	assert.Equal(t, true, updated["completed"])
	assert.Equal(t, "buy milk", updated["title"])
}

func TestUpdate_ForeignRecordForbidden(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()
	post := createPost(t, d, alice, "original")

	_, err := d.Update(ctx, Path{OwnerID: bob, Type: "posts", ID: post.ID()}, map[string]any{
		"title": "hijacked",
	})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := d.Get(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID()})
	require.NoError(t, err)
	assert.Equal(t, "original", got["title"])
}

func TestSubitem_ErrorTaxonomy(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()

	postA := createPost(t, d, alice, "a")
	postB := createPost(t, d, alice, "b")
	comment := createComment(t, d, alice, postA.ID(), "on a")

	t.Run("child of a different parent is a mismatch, not not-found", func(t *testing.T) {
		_, err := d.Update(ctx,
			Path{OwnerID: alice, Type: "posts", ID: postB.ID(), Subtype: "comments", SubID: comment.ID()},
			map[string]any{"body": "moved?"})
		assert.ErrorIs(t, err, ErrSubitemMismatch)
	})

	t.Run("nonexistent child is not found", func(t *testing.T) {
		_, err := d.Update(ctx,
			Path{OwnerID: alice, Type: "posts", ID: postA.ID(), Subtype: "comments", SubID: "no-such"},
			map[string]any{"body": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing subitem id", func(t *testing.T) {
		err := d.Delete(ctx, Path{OwnerID: alice, Type: "posts", ID: postA.ID(), Subtype: "comments"})
		assert.ErrorIs(t, err, ErrMissingSubitemID)
	})

	t.Run("parent ownership checked before child existence", func(t *testing.T) {
		// Bob probing a nonexistent child under Alice's post learns nothing
		// beyond forbidden
		_, err := d.Update(ctx,
			Path{OwnerID: bob, Type: "posts", ID: postA.ID(), Subtype: "comments", SubID: "no-such"},
			map[string]any{"body": "x"})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("absent parent reported before missing subitem id", func(t *testing.T) {
		err := d.Delete(ctx, Path{OwnerID: alice, Type: "posts", ID: "no-such", Subtype: "comments"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown subtype", func(t *testing.T) {
		_, err := d.List(ctx, Path{OwnerID: alice, Type: "posts", ID: postA.ID(), Subtype: "todos"})
		assert.ErrorIs(t, err, registry.ErrUnknownKind)
	})
}

func TestDelete_Subitem(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()

	post := createPost(t, d, alice, "p")
	comment := createComment(t, d, alice, post.ID(), "bye")

	err := d.Delete(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID(), Subtype: "comments", SubID: comment.ID()})
	require.NoError(t, err)

	comments, err := d.List(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID(), Subtype: "comments"})
	require.NoError(t, err)
	assert.Empty(t, comments)

	// The parent survives its child's deletion
	_, err = d.Get(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID()})
	assert.NoError(t, err)
}

func TestDelete_CascadesToChildren(t *testing.T) {
	d, mock := newTestDispatcher()
	ctx := context.Background()

	post := createPost(t, d, alice, "p")
	other := createPost(t, d, alice, "other")
	c1 := createComment(t, d, alice, post.ID(), "one")
	c2 := createComment(t, d, alice, post.ID(), "two")
	keep := createComment(t, d, alice, other.ID(), "keep")

	require.NoError(t, d.Delete(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID()}))

	for _, id := range []string{c1.ID(), c2.ID()} {
		_, err := mock.Get(ctx, registry.KindComments, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
	_, err := mock.Get(ctx, registry.KindComments, keep.ID())
	assert.NoError(t, err, "cascade must not touch another parent's children")

	_, err = d.Get(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID()})
	assert.ErrorIs(t, err, ErrNotFound)
}

// childDeleteFailStore wraps MockStore so every comment deletion fails,
// simulating a storage fault mid-cascade.
type childDeleteFailStore struct {
	*store.MockStore
}

func (s *childDeleteFailStore) Delete(ctx context.Context, kind registry.Kind, id string) error {
	if kind == registry.KindComments {
		return errors.New("storage fault")
	}
	return s.MockStore.Delete(ctx, kind, id)
}

func (s *childDeleteFailStore) Tx(ctx context.Context, fn func(store.ResourceStore) error) error {
	return fn(s)
}

func TestDelete_ChildFailureAbortsParent(t *testing.T) {
	st := &childDeleteFailStore{MockStore: store.NewMockStore()}
	d := New(st)
	ctx := context.Background()

	post := createPost(t, d, alice, "p")
	comment := createComment(t, d, alice, post.ID(), "stuck")

	err := d.Delete(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID()})
	require.Error(t, err)

	// A failed cascade leaves both the parent and its children in place
	_, err = st.MockStore.Get(ctx, registry.KindPosts, post.ID())
	assert.NoError(t, err)
	_, err = st.MockStore.Get(ctx, registry.KindComments, comment.ID())
	assert.NoError(t, err)
}

func TestDelete_ForeignRecordForbidden(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()
	post := createPost(t, d, alice, "p")

	err := d.Delete(ctx, Path{OwnerID: bob, Type: "posts", ID: post.ID()})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = d.Get(ctx, Path{OwnerID: alice, Type: "posts", ID: post.ID()})
	assert.NoError(t, err)
}

func TestFilterFields(t *testing.T) {
	got := filterFields(registry.KindTodos, map[string]any{
		"title":     "t",
		"completed": true,
		"userId":    "sneaky",
		"id":        "sneaky",
		"createdAt": "sneaky",
	})
	assert.Equal(t, map[string]any{"title": "t", "completed": true}, got)
}
