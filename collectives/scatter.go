package collectives

import "time"

// ScatterSend distributes data, a vector of exactly world_size byte
// strings, one per rank: data[i] is written to rank i's slot for every
// i != rank, via a single multiSet, and data[rank] is returned directly
// (the sender's own slice never goes through the store).
func (c *Collectives) ScatterSend(prefix string, data [][]byte, timeout time.Duration) ([]byte, error) {
	if len(data) != c.worldSize {
		return nil, ErrPreconditionViolation
	}

	ts := newTimeoutScope(c.store, timeout)
	defer ts.Close()

	local := data[c.rank]

	keys := make([]string, 0, c.worldSize-1)
	values := make([][]byte, 0, c.worldSize-1)
	for i, v := range data {
		if i == c.rank {
			continue
		}
		keys = append(keys, rankKey(prefix, i))
		values = append(values, v)
	}

	if err := c.store.MultiSet(keys, values); err != nil {
		return nil, &StoreError{Op: "scatter_send", Err: err}
	}
	return local, nil
}

// ScatterRecv returns this rank's slice as written by the ScatterSend
// caller, blocking up to timeout for it to appear.
func (c *Collectives) ScatterRecv(prefix string, timeout time.Duration) ([]byte, error) {
	ts := newTimeoutScope(c.store, timeout)
	defer ts.Close()

	data, err := c.store.Get(rankKey(prefix, c.rank))
	if err != nil {
		return nil, &StoreError{Op: "scatter_recv", Err: err}
	}
	return data, nil
}
