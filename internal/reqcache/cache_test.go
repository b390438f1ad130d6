package reqcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupAndUses(t *testing.T) {
	c := New[int](10, time.Minute)
	_, ok := c.TryLookup("{ a }")
	assert.False(t, ok)

	c.Add("{ a }", 1)
	v, ok := c.TryLookup("{ a }")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, _ = c.TryLookup("{ a }")
	assert.EqualValues(t, 2, c.Uses("{ a }"))

	// keyed by exact text
	_, ok = c.TryLookup("{a}")
	assert.False(t, ok)
	assert.Equal(t, Stats{Hits: 2, Misses: 2, Entries: 1}, c.Stats())
}

func TestSizeRotationPromotesUsedEntries(t *testing.T) {
	c := New[string](2, 0)
	c.Add("a", "A")
	c.Add("b", "B")
	c.Add("c", "C") // rotates: a, b move to the previous generation

	v, ok := c.TryLookup("a") // promoted into the current generation
	require.True(t, ok)
	assert.Equal(t, "A", v)

	c.Add("d", "D") // rotates again: b is dropped
	_, ok = c.TryLookup("b")
	assert.False(t, ok)
	_, ok = c.TryLookup("a")
	assert.True(t, ok)
	assert.EqualValues(t, 2, c.Stats().Rotations)
}

func TestPromotionKeepsUses(t *testing.T) {
	c := New[string](1, 0)
	c.Add("a", "A")
	_, _ = c.TryLookup("a")
	c.Add("b", "B") // rotates: a moves to the previous generation

	_, ok := c.TryLookup("a")
	require.True(t, ok)
	assert.EqualValues(t, 2, c.Uses("a"))

	c.Add("c", "C") // rotates: the promoted a survives with its count
	_, _ = c.TryLookup("a")
	assert.EqualValues(t, 3, c.Uses("a"))
}

func TestAgeEviction(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[int](100, time.Minute)
	c.now = func() time.Time { return now }
	c.current.Store(&generation[int]{created: now})
	c.Add("q", 1)

	now = now.Add(2 * time.Minute)
	_, ok := c.TryLookup("q") // hit, then the expired generation is rotated out
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	c.Add("other", 2) // rotates again, dropping q
	_, ok = c.TryLookup("q")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](16, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("q%d", j%32)
				if _, ok := c.TryLookup(key); !ok {
					c.Add(key, j)
				}
			}
		}(i)
	}
	wg.Wait()
	s := c.Stats()
	assert.EqualValues(t, 8*200, s.Hits+s.Misses)
}
