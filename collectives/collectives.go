package collectives

import "fmt"

// Collectives is an immutable (store, rank, worldSize) triple. It carries
// no mutable state between calls — every primitive below takes the full
// call context (prefix, timeout, data) as arguments and leaves nothing
// behind in the receiver. Multiple Collectives instances may share one
// Store; thread-safety of concurrent calls reduces entirely to the
// Store's own thread-safety.
type Collectives struct {
	store     Store
	rank      int
	worldSize int
}

// New creates a Collectives instance bound to store for the given rank in
// [0, worldSize). worldSize must be at least 1.
func New(store Store, rank, worldSize int) (*Collectives, error) {
	if worldSize < 1 {
		return nil, fmt.Errorf("collectives: world_size must be >= 1, got %d", worldSize)
	}
	if rank < 0 || rank >= worldSize {
		return nil, fmt.Errorf("collectives: rank %d out of range [0, %d)", rank, worldSize)
	}
	return &Collectives{store: store, rank: rank, worldSize: worldSize}, nil
}

// Rank returns the instance's rank.
func (c *Collectives) Rank() int { return c.rank }

// WorldSize returns the instance's world size.
func (c *Collectives) WorldSize() int { return c.worldSize }

// missingRanks enumerates every peer rank whose presence marker P/<i> is
// currently absent. Used to build the diagnostic for Barrier, GatherRecv,
// and AllGather.
func (c *Collectives) missingRanks(prefix string) []int {
	var missing []int
	for i := 0; i < c.worldSize; i++ {
		if i == c.rank {
			continue
		}
		ok, err := c.store.Check([]string{rankKey(prefix, i)})
		if err != nil || !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

func (c *Collectives) missingRanksError(op, prefix string, cause error) error {
	return &MissingRanksError{Op: op, Missing: c.missingRanks(prefix), Err: cause}
}
