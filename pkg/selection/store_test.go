package selection

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestStoreRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	token := NewToken()

	sel := &Selection{PlanID: 3}
	sel.Set(10, 2)
	sel.Set(11, 1)
	sel.Set(11, 0)
	require.NoError(t, store.Save(ctx, token, sel))

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), got.PlanID)
	assert.Equal(t, map[uint]int{10: 2}, got.Items)
	assert.False(t, got.UpdatedAt.IsZero())

	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+token))

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	token := NewToken()

	require.NoError(t, store.Save(ctx, token, &Selection{PlanID: 1}))
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRejectsForgedToken(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "../../etc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Save(ctx, "x", &Selection{}), ErrInvalidToken)
}

func TestForRules(t *testing.T) {
	sel := &Selection{}
	sel.Set(2, 1)
	sel.Set(1, 3)
	sel.Set(99, 1)

	categories := map[uint]string{1: "normal", 2: "exotic"}
	items := sel.ForRules(func(id uint) (string, bool) {
		c, ok := categories[id]
		return c, ok
	})

	require.Len(t, items, 2)
	assert.Equal(t, uint(1), items[0].ProductID)
	assert.Equal(t, "normal", items[0].Category)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "exotic", items[1].Category)
}
