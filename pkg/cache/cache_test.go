package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCache_GetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	data, err := c.Get(context.Background(), c.Key("missing"))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCache_SetGetTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := c.Key("acc", "sources")

	require.NoError(t, c.Set(ctx, key, []byte("x"), time.Minute))
	data, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	mr.FastForward(2 * time.Minute)
	data, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCache_DelPattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, c.Key("a", "sources"), []byte("1"), 0))
	require.NoError(t, c.Set(ctx, c.Key("a", "agents"), []byte("2"), 0))
	require.NoError(t, c.Set(ctx, c.Key("b", "agents"), []byte("3"), 0))

	require.NoError(t, c.DelPattern(ctx, c.Key("a", "*")))
	assert.False(t, mr.Exists("leadlens:a:sources"))
	assert.False(t, mr.Exists("leadlens:a:agents"))
	assert.True(t, mr.Exists("leadlens:b:agents"))
}

func TestJSONHelpers(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type item struct {
		Name string `json:"name"`
	}
	var got []item
	ok, err := GetJSON(ctx, c, c.Key("items"), &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, c, c.Key("items"), []item{{Name: "bio"}}, time.Minute))
	ok, err = GetJSON(ctx, c, c.Key("items"), &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []item{{Name: "bio"}}, got)
}

func TestNew_BadURL(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)
}
