package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageRepository_GetBeforeIncrementIsZero(t *testing.T) {
	repo := NewUsageRepository(testutil.SetupDB(t))
	n, err := repo.Get(context.Background(), 42, "2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUsageRepository_SequentialIncrements(t *testing.T) {
	ctx := context.Background()
	repo := NewUsageRepository(testutil.SetupDB(t))
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Increment(ctx, 1, "2025-05-01", now))
	}
	n, err := repo.Get(ctx, 1, "2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// other keys are untouched
	n, err = repo.Get(ctx, 1, "2025-05-02")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = repo.Get(ctx, 2, "2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUsageRepository_ConcurrentIncrementsLoseNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewUsageRepository(testutil.SetupDB(t))
	const k = 40

	var wg sync.WaitGroup
	errs := make(chan error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Increment(ctx, 7, "2025-05-01", time.Now())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	n, err := repo.Get(ctx, 7, "2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, k, n)
}

func TestUsageRepository_IncrementUpdatesLastAttempt(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	repo := NewUsageRepository(db)

	first := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	require.NoError(t, repo.Increment(ctx, 3, "2025-05-01", first))
	require.NoError(t, repo.Increment(ctx, 3, "2025-05-01", second))

	list, err := repo.ListForDate(ctx, "2025-05-01")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Count)
	assert.True(t, list[0].LastAttemptAt.Equal(second), "got %v", list[0].LastAttemptAt)
}

func TestUsageRepository_TotalForDate(t *testing.T) {
	ctx := context.Background()
	repo := NewUsageRepository(testutil.SetupDB(t))

	total, err := repo.TotalForDate(ctx, "2025-05-01")
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	now := time.Now()
	require.NoError(t, repo.Increment(ctx, 1, "2025-05-01", now))
	require.NoError(t, repo.Increment(ctx, 1, "2025-05-01", now))
	require.NoError(t, repo.Increment(ctx, 2, "2025-05-01", now))
	require.NoError(t, repo.Increment(ctx, 2, "2025-05-02", now))

	total, err = repo.TotalForDate(ctx, "2025-05-01")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	list, err := repo.ListForDate(ctx, "2025-05-01")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint(1), list[0].UserID)
}
