package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test connection
	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	// Clear test DB
	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = client.FlushDB(ctx).Err()
	_ = client.Close()
}

func TestStore_EnabledDefaultsTrue(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	enabled, err := store.Enabled(ctx, RankingJob)
	assert.NoError(t, err)
	assert.True(t, enabled, "jobs with no stored switch should run")
}

func TestStore_SetEnabled(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	state, err := store.SetEnabled(ctx, RankingJob, false)
	assert.NoError(t, err)
	assert.NotNil(t, state)
	assert.Equal(t, RankingJob, state.Name)
	assert.False(t, state.Enabled)
	assert.NotZero(t, state.UpdatedAt)

	enabled, err := store.Enabled(ctx, RankingJob)
	assert.NoError(t, err)
	assert.False(t, enabled)

	// Flip it back on
	_, err = store.SetEnabled(ctx, RankingJob, true)
	assert.NoError(t, err)

	enabled, err = store.Enabled(ctx, RankingJob)
	assert.NoError(t, err)
	assert.True(t, enabled)
}

func TestStore_RecordAndLastRun(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	// No runs yet
	lastRun, err := store.LastRun(ctx, RankingJob)
	assert.Error(t, err)
	assert.Equal(t, ErrNotFound, err)
	assert.Nil(t, lastRun)

	started := time.Now().UTC().Truncate(time.Millisecond)
	status := models.RunStatus{
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Records:    42,
	}
	err = store.RecordRun(ctx, RankingJob, status)
	assert.NoError(t, err)

	lastRun, err = store.LastRun(ctx, RankingJob)
	assert.NoError(t, err)
	require.NotNil(t, lastRun)
	assert.Equal(t, 42, lastRun.Records)
	assert.Empty(t, lastRun.Error)
	assert.True(t, lastRun.StartedAt.Equal(status.StartedAt))

	// A failed run replaces the previous record
	failed := models.RunStatus{
		StartedAt:  started.Add(10 * time.Minute),
		FinishedAt: started.Add(10*time.Minute + time.Second),
		Error:      "price feed unavailable",
	}
	err = store.RecordRun(ctx, RankingJob, failed)
	assert.NoError(t, err)

	lastRun, err = store.LastRun(ctx, RankingJob)
	assert.NoError(t, err)
	require.NotNil(t, lastRun)
	assert.Equal(t, "price feed unavailable", lastRun.Error)
	assert.Zero(t, lastRun.Records)
}

func TestStore_JobState(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	// Fresh job: enabled, never run
	state, err := store.JobState(ctx, RefillJob)
	assert.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.Enabled)
	assert.Nil(t, state.LastRun)

	_, err = store.SetEnabled(ctx, RefillJob, false)
	require.NoError(t, err)

	status := models.RunStatus{
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
		Records:    7,
	}
	require.NoError(t, store.RecordRun(ctx, RefillJob, status))

	state, err = store.JobState(ctx, RefillJob)
	assert.NoError(t, err)
	require.NotNil(t, state)
	assert.False(t, state.Enabled)
	require.NotNil(t, state.LastRun)
	assert.Equal(t, 7, state.LastRun.Records)
}

func TestStore_InvalidNames(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	invalidNames := []string{
		"",
		" ",
		"job with spaces",
		"job:with:colons",
		"job\twith\ttabs",
	}

	for _, name := range invalidNames {
		_, err := store.SetEnabled(ctx, name, true)
		assert.Error(t, err, "Name %q should be invalid", name)

		_, err = store.Enabled(ctx, name)
		assert.Error(t, err, "Name %q should be invalid", name)
	}

	validNames := []string{RankingJob, RefillJob, "job.v2", "job-2"}
	for _, name := range validNames {
		_, err := store.SetEnabled(ctx, name, true)
		assert.NoError(t, err, "Name %q should be valid", name)
	}
}
