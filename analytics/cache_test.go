package analytics

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReader struct {
	nilReader
	calls atomic.Int32
	total int
}

func (r *countingReader) TotalVisitors(context.Context) (int, error) {
	r.calls.Add(1)
	return r.total, nil
}

func (r *countingReader) PageViews(context.Context) ([]PageCount, error) {
	r.calls.Add(1)
	return []PageCount{{PageURL: "/", Count: r.total}}, nil
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 20*time.Millisecond))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	time.Sleep(40 * time.Millisecond)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedReaderServesFromCache(t *testing.T) {
	next := &countingReader{total: 7}
	r := NewCachedReader(next, NewMemoryCache(), time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := r.TotalVisitors(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	pages, err := r.PageViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PageCount{{PageURL: "/", Count: 7}}, pages)
	pages, err = r.PageViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PageCount{{PageURL: "/", Count: 7}}, pages)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedReaderSurvivesCacheOutage(t *testing.T) {
	// nothing listens on port 1
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	next := &countingReader{total: 4}
	r := NewCachedReader(next, NewRedisCacheFromClient(client), time.Minute, nil)

	n, err := r.TotalVisitors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int32(1), next.calls.Load())
}
