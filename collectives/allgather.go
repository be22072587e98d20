package collectives

import "time"

// AllGather writes data to this rank's slot under prefix, then multiGets
// every rank's slot (including its own) in one store call and returns the
// world_size-length result ordered by rank.
func (c *Collectives) AllGather(prefix string, data []byte, timeout time.Duration) ([][]byte, error) {
	ts := newTimeoutScope(c.store, timeout)
	defer ts.Close()

	if err := c.store.Set(rankKey(prefix, c.rank), data); err != nil {
		return nil, &StoreError{Op: "all_gather", Err: err}
	}

	keys := allKeys(prefix, c.worldSize)
	results, err := c.store.MultiGet(keys)
	if err != nil {
		// Own key is definitionally present, so the diagnostic only
		// needs to check peers.
		return nil, c.missingRanksError("all_gather", prefix, err)
	}
	return results, nil
}
