package auditcache

import (
	"context"
	"testing"
	"time"

	"territory_backend/internal/territory/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Hour), mr
}

func TestLatestWithoutReport(t *testing.T) {
	cache, _ := newTestCache(t)
	_, ok, err := cache.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveAndLatest(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	report := domain.AuditReport{
		Trigger:     "scheduled",
		GeneratedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Checks: []domain.CheckResult{
			{Name: "owner_without_assignment", Count: 2, Sample: []string{"a", "b"}},
		},
	}

	require.NoError(t, cache.Save(ctx, report))
	assert.Equal(t, time.Hour, mr.TTL(latestKey))

	got, ok, err := cache.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report, got)

	mr.FastForward(2 * time.Hour)
	_, ok, err = cache.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestRejectsGarbage(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set(latestKey, "not json"))
	_, _, err := cache.Latest(context.Background())
	assert.Error(t, err)
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open("://nope", false, 0)
	assert.Error(t, err)
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, defaultTTL, New(nil, 0).ttl)
}
