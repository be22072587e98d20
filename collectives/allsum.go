package collectives

import "time"

// AllSum reduces a 64-bit signed integer across the group by summation:
// every rank atomically adds its value into the counter at prefix, a
// barrier ensures every rank has added before any rank reads, and the
// final total is read back by adding zero — reusing the counter's
// linearizable add instead of introducing a separate read path.
//
// prefix doubles as both the counter key and the barrier's own prefix;
// the barrier's keys (P/num_members, P/last_members, P/<i>) never
// collide with the counter P itself because they have distinct suffixes.
func (c *Collectives) AllSum(prefix string, value int64, timeout time.Duration) (int64, error) {
	ts := newTimeoutScope(c.store, timeout)
	defer ts.Close()

	if _, err := c.store.Add(prefix, value); err != nil {
		return 0, &StoreError{Op: "all_sum", Err: err}
	}

	if err := c.Barrier(prefix, timeout, true); err != nil {
		return 0, err
	}

	total, err := c.store.Add(prefix, 0)
	if err != nil {
		return 0, &StoreError{Op: "all_sum", Err: err}
	}
	return total, nil
}
