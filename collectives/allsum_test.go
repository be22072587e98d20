package collectives_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rendezvous-collectives/collectives"
)

func TestAllSum_ReducesAcrossGroup(t *testing.T) {
	world := newWorld(5)
	values := []int64{1, 2, 3, 4, 5}

	results := make([]int64, len(world))
	var wg sync.WaitGroup
	for i, c := range world {
		wg.Add(1)
		go func(i int, c *collectives.Collectives) {
			defer wg.Done()
			total, err := c.AllSum("s5", values[i], time.Second)
			require.NoError(t, err)
			results[i] = total
		}(i, c)
	}
	wg.Wait()

	for rank, total := range results {
		require.Equalf(t, int64(15), total, "rank %d", rank)
	}
}

func TestAllSum_DistinctPrefixesAreIndependentAndRepeatable(t *testing.T) {
	world := newWorld(2)

	run := func(prefix string) (int64, int64) {
		var a, b int64
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			v, err := world[0].AllSum(prefix, 4, time.Second)
			require.NoError(t, err)
			a = v
		}()
		go func() {
			defer wg.Done()
			v, err := world[1].AllSum(prefix, 6, time.Second)
			require.NoError(t, err)
			b = v
		}()
		wg.Wait()
		return a, b
	}

	a1, b1 := run("sum-x")
	a2, b2 := run("sum-y")
	require.Equal(t, int64(10), a1)
	require.Equal(t, a1, b1)
	require.Equal(t, a1, a2)
	require.Equal(t, a2, b2)
}

func TestAllSum_WorldSizeOneReturnsInput(t *testing.T) {
	world := newWorld(1)
	total, err := world[0].AllSum("solo", 42, time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(42), total)
}
