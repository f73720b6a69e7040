package typed_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/docket/pkg/adapters/fs"
	"github.com/aretw0/docket/pkg/core"
	"github.com/aretw0/docket/pkg/typed"
)

type UserProfile struct {
	core.Base
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Age     int      `json:"age,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Address *Address `json:"address,omitempty"`
}

type Address struct {
	City string `json:"city,omitempty"`
}

type Message struct {
	core.Base
	Text      string `json:"text"`
	TimeStamp int64  `json:"timeStamp"`
}

const waitTimeout = 5 * time.Second

func setupFactory(t *testing.T) (*typed.Factory, string) {
	t.Helper()

	root := t.TempDir()
	store, err := fs.NewStore(fs.Config{Path: root, Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))

	factory := typed.NewFactory(store, nil)
	t.Cleanup(func() { _ = factory.Close() })
	return factory, root
}

// receive reads the next value of a stream or fails the test.
func receive[V any](t *testing.T, s *typed.Stream[V]) V {
	t.Helper()
	select {
	case v, ok := <-s.C():
		require.True(t, ok, "stream closed: %v", s.Err())
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for stream value")
		var zero V
		return zero
	}
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	factory, root := setupFactory(t)
	users := typed.Create[UserProfile](factory, "users")

	t.Run("Generated ID", func(t *testing.T) {
		input := &UserProfile{Name: "Alice"}
		added, err := users.Add(ctx, input)
		require.NoError(t, err)

		assert.NotEmpty(t, added.ID)
		assert.Equal(t, "Alice", added.Name)
		assert.Empty(t, input.ID, "input is not modified")

		exists, err := users.Exists(ctx, added.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Explicit ID Overwrites", func(t *testing.T) {
		_, err := users.Add(ctx, &UserProfile{Name: "Bob", Age: 40}, "bob")
		require.NoError(t, err)

		added, err := users.Add(ctx, &UserProfile{Name: "Robert"}, "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", added.ID)

		found, err := users.Find(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "Robert", found.Name)
		assert.Zero(t, found.Age)
	})

	t.Run("ID Is Not A Field", func(t *testing.T) {
		_, err := users.Add(ctx, &UserProfile{Base: core.Base{ID: "ignored"}, Name: "Carol"}, "carol")
		require.NoError(t, err)

		raw, err := os.ReadFile(filepath.Join(root, "users", "carol.json"))
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "ignored")
	})

	t.Run("Nil Item", func(t *testing.T) {
		_, err := users.Add(ctx, nil)
		assert.Error(t, err)
	})
}

func TestExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	factory, _ := setupFactory(t)
	users := typed.Create[UserProfile](factory, "users")

	exists, err := users.Exists(ctx, "never")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = users.Add(ctx, &UserProfile{Name: "Dan"}, "dan")
	require.NoError(t, err)
	require.NoError(t, users.Delete(ctx, "dan"))

	exists, err = users.Exists(ctx, "dan")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, users.Delete(ctx, "dan"), "deleting a missing document is not an error")
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	factory, _ := setupFactory(t)
	users := typed.Create[UserProfile](factory, "users")

	_, err := users.Add(ctx, &UserProfile{Name: "Eve", Email: "eve@example.com", Age: 20}, "eve")
	require.NoError(t, err)

	t.Run("Merges Supplied Fields", func(t *testing.T) {
		update := &UserProfile{Age: 21, Address: &Address{City: "Porto"}}
		update.SetID("eve")
		require.NoError(t, users.Update(ctx, update))

		found, err := users.Find(ctx, "eve")
		require.NoError(t, err)
		assert.Equal(t, "Eve", found.Name)
		assert.Equal(t, "eve@example.com", found.Email)
		assert.Equal(t, 21, found.Age)
		assert.Equal(t, &Address{City: "Porto"}, found.Address)
	})

	t.Run("Update Fields With Dotted Keys", func(t *testing.T) {
		require.NoError(t, users.UpdateFields(ctx, "eve", core.Fields{"address.city": "Braga", "age": 0}))

		found, err := users.Find(ctx, "eve")
		require.NoError(t, err)
		assert.Equal(t, "Braga", found.Address.City)
		assert.Zero(t, found.Age)
	})

	t.Run("Missing ID", func(t *testing.T) {
		assert.ErrorIs(t, users.Update(ctx, &UserProfile{Name: "x"}), core.ErrMissingID)
	})

	t.Run("Missing Document", func(t *testing.T) {
		update := &UserProfile{Name: "ghost"}
		update.SetID("ghost")
		assert.ErrorIs(t, users.Update(ctx, update), core.ErrNotFound)
	})
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	factory, _ := setupFactory(t)
	users := typed.Create[UserProfile](factory, "users")

	found, err := users.Find(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = users.Add(ctx, &UserProfile{Name: "Fay", Tags: []string{"a", "b"}}, "fay")
	require.NoError(t, err)

	found, err = users.Find(ctx, "fay")
	require.NoError(t, err)
	assert.Equal(t, "fay", found.ID)
	assert.Equal(t, []string{"a", "b"}, found.Tags)
}

func seedMessages(t *testing.T, repo *typed.Repository[Message, *Message]) {
	t.Helper()
	ctx := context.Background()
	for _, ts := range []int64{12347, 12345, 12348, 12346} {
		_, err := repo.Add(ctx, &Message{Text: "msg", TimeStamp: ts})
		require.NoError(t, err)
	}
}

func timeStamps(msgs []*Message) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.TimeStamp)
	}
	return out
}

func TestList(t *testing.T) {
	ctx := context.Background()
	factory, _ := setupFactory(t)
	messages := typed.Create[Message](factory, "rooms/general/messages")
	seedMessages(t, messages)

	t.Run("Start After", func(t *testing.T) {
		got, err := messages.List(ctx, &core.FetchOptions{
			OrderBy:    []core.Sort{core.OrderAsc("timeStamp")},
			StartAfter: []any{12345},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{12346, 12347, 12348}, timeStamps(got))
		for _, m := range got {
			assert.NotEmpty(t, m.ID)
		}
	})

	t.Run("Cursor Without Sort Is Ignored", func(t *testing.T) {
		got, err := messages.List(ctx, &core.FetchOptions{StartAfter: []any{12345}})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("No Options", func(t *testing.T) {
		got, err := messages.List(ctx, nil)
		require.NoError(t, err)
		stamps := timeStamps(got)
		sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })
		assert.Equal(t, []int64{12345, 12346, 12347, 12348}, stamps)
	})

	t.Run("Filters Are Conjunctive", func(t *testing.T) {
		got, err := messages.List(ctx, &core.FetchOptions{
			Where: []core.Filter{
				core.Where("timeStamp", core.OpGreater, 12345),
				core.Where("timeStamp", core.OpLess, 12348),
			},
			OrderBy: []core.Sort{core.OrderDesc("timeStamp")},
			Limit:   1,
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{12347}, timeStamps(got))
	})

	t.Run("Start And End Cursors", func(t *testing.T) {
		got, err := messages.List(ctx, &core.FetchOptions{
			OrderBy: []core.Sort{core.OrderAsc("timeStamp")},
			StartAt: []any{12346},
			EndAt:   []any{12347},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{12346, 12347}, timeStamps(got))
	})

	t.Run("Sort Keys Apply In Order", func(t *testing.T) {
		threads := typed.Create[Message](factory, "threads")
		for i, text := range []string{"b", "a", "b", "a"} {
			_, err := threads.Add(ctx, &Message{Text: text, TimeStamp: int64(i + 1)})
			require.NoError(t, err)
		}

		got, err := threads.List(ctx, &core.FetchOptions{
			OrderBy: []core.Sort{core.OrderAsc("text"), core.OrderDesc("timeStamp")},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 2, 3, 1}, timeStamps(got))
	})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	factory, _ := setupFactory(t)
	messages := typed.Create[Message](factory, "messages")
	seedMessages(t, messages)

	stream := messages.Fetch(ctx, &core.FetchOptions{
		OrderBy:    []core.Sort{core.OrderAsc("timeStamp")},
		StartAfter: []any{12345},
	})
	defer stream.Close()

	assert.Equal(t, []int64{12346, 12347, 12348}, timeStamps(receive(t, stream)))

	_, err := messages.Add(ctx, &Message{Text: "late", TimeStamp: 12349})
	require.NoError(t, err)
	assert.Equal(t, []int64{12346, 12347, 12348, 12349}, timeStamps(receive(t, stream)))

	stream.Close()
	_, open := <-stream.C()
	assert.False(t, open)
	assert.NoError(t, stream.Err())
}

func TestFetchSnapshots(t *testing.T) {
	ctx := context.Background()
	factory, _ := setupFactory(t)
	messages := typed.Create[Message](factory, "messages")

	_, err := messages.Add(ctx, &Message{Text: "first", TimeStamp: 1}, "m1")
	require.NoError(t, err)

	t.Run("All Kinds", func(t *testing.T) {
		stream := messages.FetchSnapshots(ctx, nil)
		defer stream.Close()

		initial := receive(t, stream)
		require.Len(t, initial, 1)
		assert.Equal(t, core.ChangeAdded, initial[0].Type)
		assert.Equal(t, "m1", initial[0].ID)
		assert.Equal(t, "first", initial[0].Data.Text)
		assert.Equal(t, "m1", initial[0].Data.ID)

		require.NoError(t, messages.UpdateFields(ctx, "m1", core.Fields{"text": "edited"}))
		changes := receive(t, stream)
		require.Len(t, changes, 1)
		assert.Equal(t, core.ChangeModified, changes[0].Type)
		assert.Equal(t, "edited", changes[0].Data.Text)
	})

	t.Run("Filtered Kinds", func(t *testing.T) {
		stream := messages.FetchSnapshots(ctx, nil, core.ChangeRemoved)
		defer stream.Close()

		// The initial batch only holds additions and is skipped.
		require.NoError(t, messages.Delete(ctx, "m1"))

		changes := receive(t, stream)
		require.Len(t, changes, 1)
		assert.Equal(t, core.ChangeRemoved, changes[0].Type)
		assert.Equal(t, "m1", changes[0].ID)
		assert.Equal(t, -1, changes[0].NewIndex)
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	factory, _ := setupFactory(t)
	users := typed.Create[UserProfile](factory, "users")

	stream := users.Get(ctx, "gus")
	defer stream.Close()

	assert.Nil(t, receive(t, stream), "missing document")

	_, err := users.Add(ctx, &UserProfile{Name: "Gus"}, "gus")
	require.NoError(t, err)
	got := receive(t, stream)
	require.NotNil(t, got)
	assert.Equal(t, "gus", got.ID)
	assert.Equal(t, "Gus", got.Name)
}

func TestGetSnapshot(t *testing.T) {
	ctx := context.Background()
	factory, _ := setupFactory(t)
	users := typed.Create[UserProfile](factory, "users")

	_, err := users.Add(ctx, &UserProfile{Name: "Hal"}, "hal")
	require.NoError(t, err)

	stream := users.GetSnapshot(ctx, "hal")
	defer stream.Close()

	first := receive(t, stream)
	assert.Equal(t, core.ChangeAdded, first.Type)
	assert.Equal(t, "Hal", first.Data.Name)
	assert.Equal(t, -1, first.OldIndex)
	assert.Equal(t, 0, first.NewIndex)

	require.NoError(t, users.UpdateFields(ctx, "hal", core.Fields{"age": 50}))
	second := receive(t, stream)
	assert.Equal(t, core.ChangeModified, second.Type)
	assert.Equal(t, 50, second.Data.Age)
	assert.Equal(t, 0, second.OldIndex)
	assert.Equal(t, 0, second.NewIndex)

	require.NoError(t, users.Delete(ctx, "hal"))
	third := receive(t, stream)
	assert.Equal(t, core.ChangeRemoved, third.Type)
	assert.Nil(t, third.Data)
	assert.Equal(t, 0, third.OldIndex)
	assert.Equal(t, -1, third.NewIndex)
	assert.Equal(t, "removed hal", third.String())
}

func TestStreamContextCancel(t *testing.T) {
	factory, _ := setupFactory(t)
	users := typed.Create[UserProfile](factory, "users")

	ctx, cancel := context.WithCancel(context.Background())
	stream := users.Fetch(ctx, nil)
	receive(t, stream)

	cancel()
	select {
	case <-stream.Done():
	case <-time.After(waitTimeout):
		t.Fatal("stream did not end after cancel")
	}
	assert.NoError(t, stream.Err())
}

func TestStreamStoreError(t *testing.T) {
	factory, _ := setupFactory(t)
	bad := typed.Create[UserProfile](factory, "users/alice")

	stream := bad.Fetch(context.Background(), nil)
	select {
	case <-stream.Done():
	case <-time.After(waitTimeout):
		t.Fatal("stream did not fail")
	}
	assert.ErrorIs(t, stream.Err(), core.ErrInvalidPath)
}

func TestDocument(t *testing.T) {
	ctx := context.Background()
	factory, _ := setupFactory(t)
	docs := typed.Create[typed.Document](factory, "things")

	added, err := docs.Add(ctx, &typed.Document{Fields: core.Fields{"count": 3, "label": "x"}})
	require.NoError(t, err)

	found, err := docs.Find(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, found.ID)
	assert.Equal(t, core.Fields{"count": int64(3), "label": "x"}, found.Fields)
}

func TestRepositoryPath(t *testing.T) {
	factory, _ := setupFactory(t)
	notes := typed.Create[Message](factory, "users/alice/notes")

	assert.Equal(t, "users/alice/notes", notes.Path())
	assert.Equal(t, "users/alice/notes", notes.Ref().Path())
}

func TestFactoryState(t *testing.T) {
	factory, root := setupFactory(t)

	assert.Equal(t, "factory", factory.ComponentType())
	state := factory.State().(typed.FactoryState)
	assert.Equal(t, "store", state.ClientType)
	require.IsType(t, fs.StoreState{}, state.ClientState)
	assert.Equal(t, root, state.ClientState.(fs.StoreState).Path)
}
