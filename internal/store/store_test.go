package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rendezvous-collectives/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), "node-a")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newStore(t)

	v, err := s.Put("k", "v", nil)
	require.NoError(t, err)
	require.Equal(t, "v", v.Data)

	got, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got.Data)
}

func TestDeleteHidesKeyFromGet(t *testing.T) {
	s := newStore(t)
	_, err := s.Put("k", "v", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete("k"))

	_, ok := s.Get("k")
	require.False(t, ok)

	raw, ok := s.GetRaw("k")
	require.True(t, ok)
	require.True(t, raw.Tombstone)
}

func TestAddAccumulatesFromZero(t *testing.T) {
	s := newStore(t)

	total, err := s.Add("counter", 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	total, err = s.Add("counter", -1)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
}

func TestCheckDoesNotBlock(t *testing.T) {
	s := newStore(t)
	require.False(t, s.Check([]string{"missing"}))

	_, err := s.Put("present", "x", nil)
	require.NoError(t, err)
	require.True(t, s.Check([]string{"present"}))
}

func TestBlockingGetUnblocksOnWrite(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan store.Value, 1)
	go func() {
		v, err := s.BlockingGet(ctx, "later")
		require.NoError(t, err)
		done <- v
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := s.Put("later", "arrived", nil)
	require.NoError(t, err)

	select {
	case v := <-done:
		require.Equal(t, "arrived", v.Data)
	case <-time.After(time.Second):
		t.Fatal("BlockingGet never unblocked")
	}
}

func TestBlockingGetRespectsContextDeadline(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := s.BlockingGet(ctx, "never")
	require.Error(t, err)
}

func TestWaitForKeysBlocksUntilAllPresent(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.WaitForKeys(ctx, []string{"a", "b"})
	}()

	_, err := s.Put("a", "1", nil)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	select {
	case <-done:
		t.Fatal("WaitForKeys returned before all keys were present")
	default:
	}

	_, err = s.Put("b", "2", nil)
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForKeys never unblocked")
	}
}

func TestSnapshotAndReplayRestoreState(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(dir, "node-a")
	require.NoError(t, err)

	_, err = s.Put("k1", "v1", nil)
	require.NoError(t, err)
	_, err = s.Add("c1", 5)
	require.NoError(t, err)
	require.NoError(t, s.Snapshot())
	_, err = s.Put("k2", "v2", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := store.New(dir, "node-a")
	require.NoError(t, err)
	defer reopened.Close()

	v1, ok := reopened.Get("k1")
	require.True(t, ok)
	require.Equal(t, "v1", v1.Data)

	v2, ok := reopened.Get("k2")
	require.True(t, ok)
	require.Equal(t, "v2", v2.Data)

	c1, ok := reopened.GetRaw("c1")
	require.True(t, ok)
	require.Equal(t, int64(5), c1.Counter)
}

func TestApplyRemoteDiscardsOlderClock(t *testing.T) {
	s := newStore(t)

	local, err := s.Put("k", "local", nil)
	require.NoError(t, err)

	stale := local
	stale.Clock = store.VectorClock{} // empty clock is strictly older
	stale.Data = "stale"

	applied, err := s.ApplyRemote("k", stale)
	require.NoError(t, err)
	require.False(t, applied)

	got, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, "local", got.Data)
}
