package chargecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRemove(t *testing.T) {
	c := New(time.Hour, 10)

	_, ok := c.Get("s1")
	assert.False(t, ok)

	c.Put("s1", 42.5)
	got, ok := c.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 42.5, got)

	c.Put("s1", 55)
	got, ok = c.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 55.0, got)

	c.Remove("s1")
	_, ok = c.Get("s1")
	assert.False(t, ok)
}

func TestEntriesExpire(t *testing.T) {
	c := New(40*time.Millisecond, 10)
	c.Put("s1", 30)

	_, ok := c.Get("s1")
	require.True(t, ok)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("s1")
	assert.False(t, ok)
}

func TestBoundEvictsOldestWrite(t *testing.T) {
	c := New(time.Hour, 3)

	c.Put("a", 1)
	time.Sleep(2 * time.Millisecond)
	c.Put("b", 2)
	time.Sleep(2 * time.Millisecond)
	c.Put("c", 3)
	time.Sleep(2 * time.Millisecond)
	c.Put("d", 4)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest write should have been evicted")
	for _, key := range []string{"b", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %s should survive", key)
	}
}

func TestRewriteRestartsTTLOrdering(t *testing.T) {
	c := New(time.Hour, 2)

	c.Put("a", 1)
	time.Sleep(2 * time.Millisecond)
	c.Put("b", 2)
	time.Sleep(2 * time.Millisecond)
	// Refreshing "a" makes "b" the oldest write.
	c.Put("a", 10)
	time.Sleep(2 * time.Millisecond)
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10.0, got)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Hour, 100)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			key := string(rune('a' + n))
			for j := 0; j < 200; j++ {
				c.Put(key, float64(j))
				c.Get(key)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
