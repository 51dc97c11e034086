package dataloader_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/pkg/dataloader"
)

func countingBatch(calls *int32, batches *[][]string) dataloader.BatchFunc[string, int] {
	return func(ctx context.Context, keys []string) (map[string]int, error) {
		atomic.AddInt32(calls, 1)
		if batches != nil {
			*batches = append(*batches, keys)
		}
		out := make(map[string]int, len(keys))
		for _, k := range keys {
			out[k] = len(k)
		}
		return out, nil
	}
}

func TestLoadBatchesPendingKeys(t *testing.T) {
	var calls int32
	var batches [][]string
	l := dataloader.New(countingBatch(&calls, &batches))

	ctx := context.Background()
	keys := []string{"a", "bb", "ccc", "bb", "dddd"}
	thunks := make([]dataloader.Thunk[int], 0, len(keys))
	for _, k := range keys {
		thunks = append(thunks, l.Load(ctx, k))
	}

	for i, thunk := range thunks {
		v, err := thunk()
		require.NoError(t, err)
		assert.Equal(t, len(keys[i]), v)
	}

	assert.Equal(t, int32(1), calls, "all pending keys must flush as one batch")
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "bb", "ccc", "dddd"}, batches[0], "keys deduplicated in first-seen order")
}

func TestLoadCachesResolvedKeys(t *testing.T) {
	var calls int32
	l := dataloader.New(countingBatch(&calls, nil))
	ctx := context.Background()

	first, err := l.Load(ctx, "robert")()
	require.NoError(t, err)

	second, err := l.Load(ctx, "robert")()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls, "a cached key must not re-enter a batch")
}

func TestMissingKeyResolvesToZero(t *testing.T) {
	l := dataloader.New(func(ctx context.Context, keys []string) (map[string]int, error) {
		return map[string]int{}, nil
	})

	v, err := l.Load(context.Background(), "nobody")()
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestBatchErrorRejectsEveryThunk(t *testing.T) {
	batchErr := errors.New("aggregate query failed")
	l := dataloader.New(func(ctx context.Context, keys []string) (map[string]int, error) {
		return nil, batchErr
	})
	ctx := context.Background()

	t1 := l.Load(ctx, "a")
	t2 := l.Load(ctx, "b")

	_, err1 := t1()
	_, err2 := t2()

	assert.ErrorIs(t, err1, batchErr)
	assert.ErrorIs(t, err2, batchErr)
	assert.Equal(t, err1, err2, "all keys of a failed batch share the identical error")
}

func TestPreloadJoinsTheNextBatch(t *testing.T) {
	var calls int32
	var batches [][]string
	l := dataloader.New(countingBatch(&calls, &batches))
	ctx := context.Background()

	l.Preload("a", "b", "c")

	v, err := l.Load(ctx, "b")()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	assert.Equal(t, int32(1), calls)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "b", "c"}, batches[0])
}

func TestLoadersAreIsolated(t *testing.T) {
	var callsA, callsB int32
	a := dataloader.New(countingBatch(&callsA, nil))
	b := dataloader.New(countingBatch(&callsB, nil))
	ctx := context.Background()

	_, err := a.Load(ctx, "x")()
	require.NoError(t, err)
	assert.Equal(t, int32(1), callsA)
	assert.Equal(t, int32(0), callsB, "a loader never serves another loader's cache")

	_, err = b.Load(ctx, "x")()
	require.NoError(t, err)
	assert.Equal(t, int32(1), callsB)
}

func TestConcurrentLoadsHitEachKeyOnce(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	l := dataloader.New(func(ctx context.Context, keys []string) (map[string]int, error) {
		mu.Lock()
		for _, k := range keys {
			seen[k]++
		}
		mu.Unlock()
		out := make(map[string]int, len(keys))
		for _, k := range keys {
			out[k] = len(k)
		}
		return out, nil
	})

	ctx := context.Background()
	keys := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for _, k := range keys {
			wg.Add(1)
			go func(k string) {
				defer wg.Done()
				v, err := l.Load(ctx, k)()
				assert.NoError(t, err)
				assert.Equal(t, len(k), v)
			}(k)
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for k, n := range seen {
		assert.Equal(t, 1, n, "key %q must be fetched exactly once", k)
	}
}
