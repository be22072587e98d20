package collectives_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rendezvous-collectives/collectives"
)

func TestBarrier_AllRanksReleased(t *testing.T) {
	world := newWorld(3)

	var wg sync.WaitGroup
	errs := make([]error, len(world))
	for i, c := range world {
		wg.Add(1)
		go func(i int, c *collectives.Collectives) {
			defer wg.Done()
			errs[i] = c.Barrier("s6-ok", time.Second, true)
		}(i, c)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoErrorf(t, err, "rank %d", i)
	}
}

func TestBarrier_NonBlockingReturnsImmediately(t *testing.T) {
	world := newWorld(3)

	err := world[0].Barrier("nb", 200*time.Millisecond, false)
	require.NoError(t, err)
}

func TestBarrier_MissingRankDiagnostic(t *testing.T) {
	world := newWorld(3)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = world[i].Barrier("s6", 150*time.Millisecond, true)
		}(i)
	}
	// rank 2 never calls Barrier.
	wg.Wait()

	for i, err := range errs {
		require.Errorf(t, err, "rank %d", i)
		assert.Contains(t, err.Error(), "missing ranks: 2,")
		assert.Contains(t, err.Error(), "barrier failed")
	}
}

func TestBarrier_WorldSizeOneCompletesLocally(t *testing.T) {
	world := newWorld(1)
	err := world[0].Barrier("solo", time.Second, true)
	require.NoError(t, err)
}
