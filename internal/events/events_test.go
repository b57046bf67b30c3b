package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vupar/vp-cache/internal/cache"
)

func TestRegisterAndFire(t *testing.T) {
	bus := NewBus()
	var got []string
	require.NoError(t, bus.Register(PostSaved, "first", func(ctx context.Context, ev Event, p Payload) error {
		got = append(got, "first:"+p.ID)
		return nil
	}))
	require.NoError(t, bus.Register(PostSaved, "second", func(ctx context.Context, ev Event, p Payload) error {
		got = append(got, "second:"+string(ev))
		return nil
	}))

	require.NoError(t, bus.Fire(context.Background(), PostSaved, Payload{ID: "42"}))
	assert.Equal(t, []string{"first:42", "second:post.saved"}, got)
	assert.Equal(t, []string{"first", "second"}, bus.Handlers(PostSaved))
}

func TestRegisterDuplicate(t *testing.T) {
	bus := NewBus()
	noop := func(context.Context, Event, Payload) error { return nil }
	require.NoError(t, bus.Register(MenuUpdated, "dup", noop))
	assert.ErrorIs(t, bus.Register(MenuUpdated, " DUP ", noop), ErrDuplicateHandler)
	assert.Error(t, bus.Register(MenuUpdated, "", noop))
	assert.Error(t, bus.Register(MenuUpdated, "nil", nil))
}

func TestFireContinuesAfterFailure(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	called := false
	bus.MustRegister(TermEdited, "fails", func(context.Context, Event, Payload) error { return boom })
	bus.MustRegister(TermEdited, "after", func(context.Context, Event, Payload) error {
		called = true
		return nil
	})

	err := bus.Fire(context.Background(), TermEdited, Payload{})
	assert.ErrorIs(t, err, boom)
	assert.True(t, called)
}

func TestSnapshotAndStatus(t *testing.T) {
	bus := NewBus()
	bus.MustRegister(PostDeleted, "a", func(context.Context, Event, Payload) error { return nil })

	snap := bus.Snapshot([]Event{PostDeleted, MenuCreated})
	assert.Equal(t, "registered", snap["post.deleted"])
	assert.Equal(t, "missing", snap["menu.created"])
	assert.Equal(t, []Event{PostDeleted}, bus.Events())
}

func TestParse(t *testing.T) {
	ev, err := Parse(" Menu.Deleted ")
	require.NoError(t, err)
	assert.Equal(t, MenuDeleted, ev)

	_, err = Parse("comment.posted")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestWireInvalidationClearsTypedEntries(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	bus := NewBus()
	require.NoError(t, WireInvalidation(bus, store, nil))

	for _, ev := range ContentEvents() {
		require.True(t, store.Set("", "styles.manifest", []byte("root")))
		require.True(t, store.Set("part", "k", []byte("x")))
		require.True(t, store.Set("menu", "m", []byte("y")))

		require.NoError(t, bus.Fire(context.Background(), ev, Payload{ID: "1"}))

		stat := store.Stat()
		assert.Zero(t, stat.Typed, "event %s", ev)
		assert.Equal(t, 1, stat.Root, "event %s", ev)
	}

	assert.ErrorIs(t, WireInvalidation(bus, store, nil), ErrDuplicateHandler)
}
