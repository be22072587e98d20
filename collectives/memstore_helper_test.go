package collectives_test

import (
	"time"

	"rendezvous-collectives/collectives"
	"rendezvous-collectives/internal/memstore"
)

// newWorld builds worldSize Collectives instances, ranks 0..worldSize-1,
// all sharing one in-process store.
func newWorld(worldSize int) []*collectives.Collectives {
	store := memstore.New(2 * time.Second)
	world := make([]*collectives.Collectives, worldSize)
	for i := range world {
		c, err := collectives.New(store, i, worldSize)
		if err != nil {
			panic(err)
		}
		world[i] = c
	}
	return world
}
