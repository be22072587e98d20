package collectives

import "time"

// GatherSend writes data to this rank's slot under prefix. All ranks but
// the one calling GatherRecv should call GatherSend.
func (c *Collectives) GatherSend(prefix string, data []byte, timeout time.Duration) error {
	ts := newTimeoutScope(c.store, timeout)
	defer ts.Close()

	if err := c.store.Set(rankKey(prefix, c.rank), data); err != nil {
		return &StoreError{Op: "gather_send", Err: err}
	}
	return nil
}

// GatherRecv collects every peer's contribution under prefix via a single
// multiGet, inserts this rank's own data at position rank, and returns the
// full world_size-length vector ordered by rank. Exactly one rank in the
// group should call GatherRecv; every other rank calls GatherSend.
func (c *Collectives) GatherRecv(prefix string, data []byte, timeout time.Duration) ([][]byte, error) {
	ts := newTimeoutScope(c.store, timeout)
	defer ts.Close()

	keys := peerKeys(prefix, c.rank, c.worldSize)
	peerValues, err := c.store.MultiGet(keys)
	if err != nil {
		return nil, c.missingRanksError("gather", prefix, err)
	}

	result := make([][]byte, 0, c.worldSize)
	result = append(result, peerValues[:c.rank]...)
	result = append(result, data)
	result = append(result, peerValues[c.rank:]...)
	return result, nil
}
