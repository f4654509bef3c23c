// ABOUTME: Tests for resource type resolution and kind metadata
// ABOUTME: Covers case-insensitive names, unknown types, and nesting rules

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_KnownTypes(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"posts", KindPosts},
		{"todos", KindTodos},
		{"Posts", KindPosts},
		{"TODOS", KindTodos},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := Resolve(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k)
		})
	}
}

func TestResolve_UnknownType(t *testing.T) {
	_, err := Resolve("gadgets")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestResolve_NestedOnlyKindIsNotTopLevel(t *testing.T) {
	// Comments only exist under posts; a direct /users/{id}/comments route
	// must look like an unknown type to the caller.
	_, err := Resolve("comments")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestResolveChild(t *testing.T) {
	k, err := ResolveChild(KindPosts, "comments")
	require.NoError(t, err)
	assert.Equal(t, KindComments, k)

	k, err = ResolveChild(KindPosts, "Comments")
	require.NoError(t, err)
	assert.Equal(t, KindComments, k)
}

func TestResolveChild_NotAChild(t *testing.T) {
	// todos is a real kind, but not nested under posts
	_, err := ResolveChild(KindPosts, "todos")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = ResolveChild(KindTodos, "comments")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestForeignKeyField(t *testing.T) {
	assert.Equal(t, "postId", KindPosts.ForeignKeyField())
	assert.Equal(t, "todoId", KindTodos.ForeignKeyField())
}

func TestKindMetadata(t *testing.T) {
	assert.Equal(t, "user_id", KindPosts.OwnerColumn())
	assert.Equal(t, "", KindPosts.ParentColumn())
	assert.Equal(t, []Kind{KindComments}, KindPosts.Children())

	assert.Equal(t, "", KindComments.OwnerColumn())
	assert.Equal(t, "post_id", KindComments.ParentColumn())
	assert.Empty(t, KindComments.Children())

	assert.Empty(t, KindTodos.Children())

	assert.Equal(t, []string{"title", "body"}, KindPosts.Required())
	assert.Equal(t, []string{"title"}, KindTodos.Required())
	assert.Equal(t, []string{"name", "email", "body"}, KindComments.Required())
}
