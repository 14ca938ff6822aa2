package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestViewDeduper_FirstView(t *testing.T) {
	mr, rdb := newTestRedis(t)
	d := NewViewDeduper(rdb)
	ctx := context.Background()

	first, err := d.FirstView(ctx, 1, "u:7", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.FirstView(ctx, 1, "u:7", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := d.FirstView(ctx, 2, "u:7", time.Hour)
	require.NoError(t, err)
	assert.True(t, other, "a different post is a different key")

	mr.FastForward(2 * time.Hour)
	expired, err := d.FirstView(ctx, 1, "u:7", time.Hour)
	require.NoError(t, err)
	assert.True(t, expired, "a view after the window counts again")
}

func TestViewDeduper_ConcurrentFirstView(t *testing.T) {
	_, rdb := newTestRedis(t)
	d := NewViewDeduper(rdb)

	var (
		wg     sync.WaitGroup
		firsts atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := d.FirstView(context.Background(), 3, "a:deadbeef", time.Hour)
			assert.NoError(t, err)
			if first {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), firsts.Load())
}

func TestViewDeduper_NoClient(t *testing.T) {
	_, err := NewViewDeduper(nil).FirstView(context.Background(), 1, "x", time.Hour)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAside(t *testing.T) {
	_, rdb := newTestRedis(t)
	SetClient(rdb)
	t.Cleanup(func() { SetClient(nil) })
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]string) func() error {
		return func() error {
			calls++
			*dest = []string{"basil", "thyme"}
			return nil
		}
	}

	var first []string
	require.NoError(t, Aside(ctx, TagListKey, &first, time.Minute, fetch(&first)))
	var second []string
	require.NoError(t, Aside(ctx, TagListKey, &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"basil", "thyme"}, second)

	InvalidateTags(ctx)
	var third []string
	require.NoError(t, Aside(ctx, TagListKey, &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsReturned(t *testing.T) {
	SetClient(nil)
	var dest []string
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")
}
