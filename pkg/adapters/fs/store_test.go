package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/docket/pkg/adapters/fs"
	"github.com/aretw0/docket/pkg/core"
)

// setupStore creates an initialized store rooted in a temporary directory.
func setupStore(t *testing.T, opts ...func(*fs.Config)) (*fs.Store, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "data")
	cfg := fs.Config{Path: root}
	for _, opt := range opts {
		opt(&cfg)
	}

	store, err := fs.NewStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return store, root
}

func TestInitialize(t *testing.T) {
	t.Run("Creates Directory if Missing", func(t *testing.T) {
		_, root := setupStore(t)

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("Fails if MustExist and Missing", func(t *testing.T) {
		store, err := fs.NewStore(fs.Config{Path: filepath.Join(t.TempDir(), "missing"), MustExist: true})
		require.NoError(t, err)

		assert.Error(t, store.Initialize(context.Background()))
	})

	t.Run("Rejects Unknown Format", func(t *testing.T) {
		_, err := fs.NewStore(fs.Config{Path: t.TempDir(), Format: "toml"})
		assert.Error(t, err)
	})

	t.Run("Rejects Invalid Ignore Pattern", func(t *testing.T) {
		_, err := fs.NewStore(fs.Config{Path: t.TempDir(), Ignore: []string{"[unclosed"}})
		assert.Error(t, err)
	})
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	store, root := setupStore(t)
	users := store.Collection("users")

	t.Run("Set Creates File", func(t *testing.T) {
		require.NoError(t, users.Doc("alice").Set(ctx, core.Fields{"name": "Alice", "age": 30}))

		_, err := os.Stat(filepath.Join(root, "users", "alice.json"))
		assert.NoError(t, err)
	})

	t.Run("Get Reads Fields", func(t *testing.T) {
		snap, err := users.Doc("alice").Get(ctx)
		require.NoError(t, err)

		assert.True(t, snap.Exists)
		assert.Equal(t, "alice", snap.ID)
		assert.Equal(t, "Alice", snap.Fields["name"])
		assert.Equal(t, int64(30), snap.Fields["age"])
		assert.False(t, snap.UpdateTime.IsZero())
	})

	t.Run("Get Missing Reports Not Exists", func(t *testing.T) {
		snap, err := users.Doc("nobody").Get(ctx)
		require.NoError(t, err)
		assert.False(t, snap.Exists)
		assert.Equal(t, "nobody", snap.ID)
	})

	t.Run("Update Merges Fields", func(t *testing.T) {
		require.NoError(t, users.Doc("alice").Update(ctx, core.Fields{"age": 31, "address.city": "Lisbon"}))

		snap, err := users.Doc("alice").Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Alice", snap.Fields["name"])
		assert.Equal(t, int64(31), snap.Fields["age"])
		assert.Equal(t, map[string]any{"city": "Lisbon"}, snap.Fields["address"])
	})

	t.Run("Update Missing Fails", func(t *testing.T) {
		err := users.Doc("nobody").Update(ctx, core.Fields{"age": 1})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("Set Replaces Document", func(t *testing.T) {
		require.NoError(t, users.Doc("alice").Set(ctx, core.Fields{"name": "Alicia"}))

		snap, err := users.Doc("alice").Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Fields{"name": "Alicia"}, snap.Fields)
	})

	t.Run("Delete Removes File", func(t *testing.T) {
		require.NoError(t, users.Doc("alice").Delete(ctx))

		_, err := os.Stat(filepath.Join(root, "users", "alice.json"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Delete Missing Is Noop", func(t *testing.T) {
		assert.NoError(t, users.Doc("alice").Delete(ctx))
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)
	col := store.Collection("events")

	first, err := col.Add(ctx, core.Fields{"n": 1})
	require.NoError(t, err)
	second, err := col.Add(ctx, core.Fields{"n": 2})
	require.NoError(t, err)

	assert.Len(t, first, 20)
	assert.NotEqual(t, first, second)

	docs, err := col.Documents(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSubcollections(t *testing.T) {
	ctx := context.Background()
	store, root := setupStore(t)

	notes := store.Collection("users/alice/notes")
	require.NoError(t, notes.Doc("n1").Set(ctx, core.Fields{"text": "hi"}))

	_, err := os.Stat(filepath.Join(root, "users", "alice", "notes", "n1.json"))
	assert.NoError(t, err)

	// The parent collection does not see nested directories as documents.
	docs, err := store.Collection("users").Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestInvalidPaths(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	cases := []string{"", "users/alice", "users/../etc", "users//notes", ".hidden"}
	for _, path := range cases {
		t.Run(path, func(t *testing.T) {
			_, err := store.Collection(path).Documents(ctx)
			assert.ErrorIs(t, err, core.ErrInvalidPath)
		})
	}

	t.Run("Bad Document ID", func(t *testing.T) {
		err := store.Collection("users").Doc("a/b").Set(ctx, core.Fields{})
		assert.ErrorIs(t, err, core.ErrInvalidPath)
	})
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	_, root := setupStore(t)

	ro, err := fs.NewStore(fs.Config{Path: root, ReadOnly: true})
	require.NoError(t, err)
	require.NoError(t, ro.Initialize(ctx))

	col := ro.Collection("users")
	assert.ErrorIs(t, col.Doc("a").Set(ctx, core.Fields{}), core.ErrReadOnly)
	assert.ErrorIs(t, col.Doc("a").Update(ctx, core.Fields{}), core.ErrReadOnly)
	assert.ErrorIs(t, col.Doc("a").Delete(ctx), core.ErrReadOnly)
	_, err = col.Add(ctx, core.Fields{})
	assert.ErrorIs(t, err, core.ErrReadOnly)

	_, err = col.Documents(ctx)
	assert.NoError(t, err)
}

func TestIgnoredFiles(t *testing.T) {
	ctx := context.Background()
	store, root := setupStore(t, func(c *fs.Config) {
		c.Ignore = []string{"draft-*"}
	})

	dir := filepath.Join(root, "posts")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.json"), []byte(`{"title":"one"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".p2.json"), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "draft-p3.json"), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fs.TempFilePrefix+"p4.json"), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`text`), 0644))

	docs, err := store.Collection("posts").Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p1", docs[0].ID)
}

func TestYAMLFormat(t *testing.T) {
	ctx := context.Background()
	store, root := setupStore(t, func(c *fs.Config) {
		c.Format = "yaml"
	})

	col := store.Collection("users")
	require.NoError(t, col.Doc("bob").Set(ctx, core.Fields{"name": "Bob", "tags": []string{"a", "b"}}))

	raw, err := os.ReadFile(filepath.Join(root, "users", "bob.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "name: Bob")

	snap, err := col.Doc("bob").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, snap.Fields["tags"])
}

func TestState(t *testing.T) {
	store, root := setupStore(t)

	state, ok := store.State().(fs.StoreState)
	require.True(t, ok)
	assert.Equal(t, root, state.Path)
	assert.Equal(t, ".json", state.Format)
	assert.Equal(t, 0, state.Listeners)
	assert.Contains(t, state.Ignore, ".*")
	assert.Equal(t, "store", store.ComponentType())
}
