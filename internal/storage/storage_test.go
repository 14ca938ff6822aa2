package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutRemove(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root, "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "posts/steps/a.jpg", "image/jpeg", []byte("jpeg")))
	data, err := os.ReadFile(filepath.Join(root, "posts", "steps", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, "/media/posts/steps/a.jpg", l.URL("posts/steps/a.jpg"))

	require.NoError(t, l.Remove(ctx, "posts/steps/a.jpg"))
	_, err = os.Stat(filepath.Join(root, "posts", "steps", "a.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, l.Remove(ctx, "posts/steps/a.jpg"), "removing a missing object is not an error")
}

func TestLocal_RejectsTraversal(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)
	for _, key := range []string{"../escape.jpg", "a/../../escape.jpg", ""} {
		assert.ErrorIs(t, l.Put(context.Background(), key, "image/jpeg", nil), ErrInvalidKey, key)
	}
}

func TestNewKey(t *testing.T) {
	a := NewKey("avatars", ".webp")
	b := NewKey("avatars", ".webp")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "avatars/"))
	assert.True(t, strings.HasSuffix(a, ".webp"))
}
