package collectives

import "time"

// BroadcastSend writes data to prefix. Exactly one rank in the group
// should call BroadcastSend; every other rank calls BroadcastRecv.
func (c *Collectives) BroadcastSend(prefix string, data []byte, timeout time.Duration) error {
	ts := newTimeoutScope(c.store, timeout)
	defer ts.Close()

	if err := c.store.Set(prefix, data); err != nil {
		return &StoreError{Op: "broadcast_send", Err: err}
	}
	return nil
}

// BroadcastRecv returns the value written to prefix by BroadcastSend,
// blocking up to timeout for it to appear.
func (c *Collectives) BroadcastRecv(prefix string, timeout time.Duration) ([]byte, error) {
	ts := newTimeoutScope(c.store, timeout)
	defer ts.Close()

	data, err := c.store.Get(prefix)
	if err != nil {
		return nil, &StoreError{Op: "broadcast_recv", Err: err}
	}
	return data, nil
}
