package containers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type testHandle uint64

func TestRingSlotSequence(t *testing.T) {
	r := NewRing([]string{"a", "b"})
	var got []string
	for n := uint64(0); n < 5; n++ {
		got = append(got, r.At(n))
	}
	require.Equal(t, []string{"a", "b", "a", "b", "a"}, got)
	require.Equal(t, 1, r.Index(7))
	require.Equal(t, 2, r.Len())
}

func TestRingRequiresSlots(t *testing.T) {
	require.Panics(t, func() { NewRing[int](nil) })
}

func TestHandleTableNeverReusesTokens(t *testing.T) {
	table := NewHandleTable[testHandle, string](8)
	a := table.Insert("a")
	b := table.Insert("b")
	require.NotEqual(t, testHandle(InvalidHandle), a)
	require.NotEqual(t, a, b)

	v, ok := table.Remove(a)
	require.True(t, ok)
	require.Equal(t, "a", v)

	_, ok = table.Get(a)
	require.False(t, ok)
	require.False(t, table.Set(a, "stale"))

	c := table.Insert("c")
	require.NotEqual(t, a, c)
	require.Equal(t, 2, table.Len())

	require.True(t, table.Set(b, "b2"))
	v, _ = table.Get(b)
	require.Equal(t, "b2", v)
}

func TestHandleTableEachAndConcurrentInsert(t *testing.T) {
	table := NewHandleTable[testHandle, int](4)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			table.Insert(i)
		}(i)
	}
	wg.Wait()

	seen := map[testHandle]bool{}
	sum := 0
	table.Each(func(h testHandle, v int) {
		seen[h] = true
		sum += v
	})
	require.Len(t, seen, 16)
	require.Equal(t, 120, sum)
}
