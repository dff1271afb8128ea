package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/pkg/cache"
	"github.com/naperu/leadlens/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedStore(t *testing.T, store Store) (*CachedStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return NewCachedStore(store, c, time.Minute, logger.NewNop()), mr
}

func TestCachedStore_ServesReferenceDataFromCache(t *testing.T) {
	store := newFakeStore()
	code := "bio"
	store.sources = []*domain.LeadSource{{ID: uuid.New(), Name: "Bio link", Code: &code, Tag: &domain.SourceTag{Name: "social", Color: "#f00"}}}
	cs, _ := newCachedStore(t, store)
	ctx := context.Background()
	account := uuid.New()

	first, err := cs.ListSources(ctx, account)
	require.NoError(t, err)
	second, err := cs.ListSources(ctx, account)
	require.NoError(t, err)

	assert.Equal(t, 1, store.sourceHit)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "social", second[0].Tag.Name)
}

func TestCachedStore_KeysArePerAccount(t *testing.T) {
	store := newFakeStore()
	store.agents = []*domain.Agent{{ID: uuid.New(), Name: "Ana"}}
	cs, mr := newCachedStore(t, store)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	_, err := cs.ListAgents(ctx, a, nil)
	require.NoError(t, err)
	_, err = cs.ListAgents(ctx, b, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, store.agentHit)
	assert.True(t, mr.Exists("leadlens:"+a.String()+":agents"))
}

func TestCachedStore_Expiry(t *testing.T) {
	store := newFakeStore()
	cs, mr := newCachedStore(t, store)
	ctx := context.Background()
	account := uuid.New()

	_, err := cs.ListTrackableLinks(ctx, account)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = cs.ListTrackableLinks(ctx, account)
	require.NoError(t, err)

	assert.Equal(t, 2, store.linkHit)
}

func TestCachedStore_FallsBackWhenRedisIsDown(t *testing.T) {
	store := newFakeStore()
	cs, mr := newCachedStore(t, store)
	mr.Close()

	_, err := cs.ListSources(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, store.sourceHit)
}

func TestCachedStore_Invalidate(t *testing.T) {
	store := newFakeStore()
	cs, _ := newCachedStore(t, store)
	ctx := context.Background()
	account := uuid.New()

	_, _ = cs.ListSources(ctx, account)
	require.NoError(t, cs.Invalidate(ctx, account))
	_, _ = cs.ListSources(ctx, account)

	assert.Equal(t, 2, store.sourceHit)
}

func TestCachedStore_NilCachePassesThrough(t *testing.T) {
	store := newFakeStore()
	cs := NewCachedStore(store, nil, time.Minute, nil)

	_, _ = cs.ListSources(context.Background(), uuid.New())
	_, _ = cs.ListSources(context.Background(), uuid.New())
	assert.Equal(t, 2, store.sourceHit)
	assert.NoError(t, cs.Invalidate(context.Background(), uuid.New()))
}
