package lru

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/jsonline/require"
)

func TestPutGet(t *testing.T) {
	c, err := New[int, string](2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Capacity())
	assert.Equal(t, 0, c.Len())

	c.Put(1, "one")
	c.Put(2, "two")
	assert.True(t, c.Contains(1))
	assert.True(t, c.Contains(2))
	assert.Equal(t, "one", c.Get(1, ""))
	assert.Equal(t, "none", c.Get(3, "none"))

	// overwrite doesn't grow the cache
	c.Put(2, "deux")
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "deux", c.Get(2, ""))
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New[int, string](2)
	require.NoError(t, err)
	c.Put(1, "one")
	c.Put(2, "two")
	// 1 becomes most recently used so 2 is evicted next
	c.Get(1, "")
	c.Put(3, "three")
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains(1))
	assert.False(t, c.Contains(2))
	assert.True(t, c.Contains(3))
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestContainsDoesNotTouch(t *testing.T) {
	c, err := New[int, int](2)
	require.NoError(t, err)
	c.Put(1, 10)
	c.Put(2, 20)
	assert.True(t, c.Contains(1))
	c.Put(3, 30)
	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(2))
}

func TestGetOrError(t *testing.T) {
	c, err := New[string, int](1)
	require.NoError(t, err)
	c.Put("a", 1)
	v, err := c.GetOrError("a")
	assert.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = c.GetOrError("b")
	assert.True(t, errors.Is(err, ErrNotFound))
	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
}

func TestPopAndClear(t *testing.T) {
	c, err := New[int, int](3)
	require.NoError(t, err)
	c.Put(1, 1)
	c.Put(2, 2)
	c.Pop(1)
	c.Pop(42)
	assert.False(t, c.Contains(1))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestZeroCapacity(t *testing.T) {
	c, err := New[int, int](0)
	require.NoError(t, err)
	c.Put(1, 1)
	assert.False(t, c.Contains(1))
	assert.Equal(t, -1, c.Get(1, -1))
	c.Pop(1)
	c.Clear()

	_, err = New[int, int](-1)
	assert.Error(t, err)
}
