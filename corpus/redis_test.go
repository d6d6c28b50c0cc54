package corpus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisSource creates a miniredis instance and returns a connected source.
func setupRedisSource(t *testing.T) (*RedisSource, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	src, err := NewRedisSource(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = src.Close()
		mr.Close()
	})

	return src, mr
}

func TestNewRedisSource(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		src, _ := setupRedisSource(t)
		require.NotNil(t, src)
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisSource(RedisOptions{URL: "not a url"})
		assert.Error(t, err)
	})
}

func TestRedisSource_PublishFetch(t *testing.T) {
	src, _ := setupRedisSource(t)
	ctx := context.Background()

	want := testFindings()
	require.NoError(t, src.Publish(ctx, want))

	got, err := src.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	assert.Equal(t, want[0].ID, got[0].ID)
	assert.Equal(t, want[0].Severity, got[0].Severity)
	assert.Equal(t, want[0].Tags, got[0].Tags)
}

func TestRedisSource_FetchMissingKey(t *testing.T) {
	src, _ := setupRedisSource(t)

	got, err := src.Fetch(context.Background())
	require.NoError(t, err, "a missing snapshot key is an empty corpus, not an error")
	assert.Empty(t, got)
}

func TestRedisSource_FetchCorruptSnapshot(t *testing.T) {
	src, mr := setupRedisSource(t)
	require.NoError(t, mr.Set(DefaultSnapshotKey, "{not json"))

	_, err := src.Fetch(context.Background())
	assert.Error(t, err)
}

func TestRedisSource_PublishReplaces(t *testing.T) {
	src, _ := setupRedisSource(t)
	ctx := context.Background()

	require.NoError(t, src.Publish(ctx, testFindings()))
	require.NoError(t, src.Publish(ctx, []finding.Finding{
		{ID: "solo", Title: "Only finding", Severity: finding.SeverityGas},
	}))

	got, err := src.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "solo", got[0].ID)
}
