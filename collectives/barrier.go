package collectives

import "time"

// Barrier completes successfully only when every rank in [0, worldSize)
// has entered the same barrier under prefix within timeout.
//
// The last rank to join — the one whose increment of P/num_members
// observes world_size — releases every other rank by writing
// P/last_members. Everyone else blocks on Wait(P/last_members) unless
// blocking is false, in which case Barrier records presence and returns
// immediately ("best-effort join"): it never leaves the counter in an
// inconsistent state, since the increment and presence write already
// happened.
func (c *Collectives) Barrier(prefix string, timeout time.Duration, blocking bool) error {
	ts := newTimeoutScope(c.store, timeout)
	defer ts.Close()

	idx, err := c.store.Add(numMembersKey(prefix), 1)
	if err != nil {
		return &StoreError{Op: "barrier", Err: err}
	}

	if err := c.store.Set(rankKey(prefix, c.rank), []byte("joined")); err != nil {
		return &StoreError{Op: "barrier", Err: err}
	}

	if idx == int64(c.worldSize) {
		return c.store.Set(lastMembersKey(prefix), []byte("released"))
	}

	if !blocking {
		return nil
	}

	if err := c.store.Wait([]string{lastMembersKey(prefix)}); err != nil {
		return c.missingRanksError("barrier", prefix, err)
	}
	return nil
}
