// Package memstore is an in-process, no-network, no-durability
// implementation of collectives.Store. It is the store collectives' own
// unit tests run against, and is suitable for embedding multiple
// simulated ranks inside one process (each rank holds the same *Store
// pointer; thread-safety comes entirely from the mutex below, matching
// the concurrency model §5 of the spec describes).
//
// The concurrency pattern — a single mutex guarding a plain map — follows
// internal/store.Store, though this store uses a plain sync.Mutex where
// internal/store uses a sync.RWMutex; what's new here is the
// blocking Wait/Get, done with one-shot notification channels closed on
// the next write to a key, since the teacher's store never needed to
// block at all.
package memstore

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Store is a goroutine-safe, in-memory key-value store satisfying
// collectives.Store.
type Store struct {
	mu      sync.Mutex
	data    map[string][]byte
	waiters map[string][]chan struct{}
	timeout time.Duration
}

// New creates an empty Store with the given default operation timeout.
// If timeout is zero, collectives.DefaultTimeout applies at call sites.
func New(timeout time.Duration) *Store {
	return &Store{
		data:    make(map[string][]byte),
		waiters: make(map[string][]chan struct{}),
		timeout: timeout,
	}
}

func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	cp := append([]byte(nil), value...)
	s.data[key] = cp
	s.notifyLocked(key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(key string) ([]byte, error) {
	deadline := time.Now().Add(s.activeTimeout())
	for {
		s.mu.Lock()
		if v, ok := s.data[key]; ok {
			s.mu.Unlock()
			return append([]byte(nil), v...), nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.mu.Unlock()
			return nil, fmt.Errorf("<store: get %q timed out>", key)
		}
		ch := s.subscribeLocked(key)
		s.mu.Unlock()

		select {
		case <-ch:
		case <-time.After(remaining):
			return nil, fmt.Errorf("<store: get %q timed out>", key)
		}
	}
}

func (s *Store) Add(key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if v, ok := s.data[key]; ok && len(v) > 0 {
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("<store: corrupt counter %q>", key)
		}
		current = parsed
	}
	current += delta
	s.data[key] = []byte(strconv.FormatInt(current, 10))
	s.notifyLocked(key)
	return current, nil
}

func (s *Store) Check(keys []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if _, ok := s.data[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *Store) Wait(keys []string) error {
	deadline := time.Now().Add(s.activeTimeout())
	for {
		s.mu.Lock()
		missing := firstMissing(s.data, keys)
		if missing == "" {
			s.mu.Unlock()
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.mu.Unlock()
			return errors.New("<store: wait timed out>")
		}
		ch := s.subscribeLocked(missing)
		s.mu.Unlock()

		select {
		case <-ch:
		case <-time.After(remaining):
			return errors.New("<store: wait timed out>")
		}
	}
}

func (s *Store) MultiGet(keys []string) ([][]byte, error) {
	results := make([][]byte, len(keys))
	for i, k := range keys {
		v, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	return results, nil
}

func (s *Store) MultiSet(keys []string, values [][]byte) error {
	if len(keys) != len(values) {
		return fmt.Errorf("<store: multiSet key/value length mismatch: %d keys, %d values>", len(keys), len(values))
	}
	for i, k := range keys {
		if err := s.Set(k, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

func (s *Store) SetTimeout(timeout time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior := s.timeout
	s.timeout = timeout
	return prior
}

func (s *Store) activeTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// notifyLocked closes and clears every waiter subscribed to key. Callers
// must hold s.mu.
func (s *Store) notifyLocked(key string) {
	for _, ch := range s.waiters[key] {
		close(ch)
	}
	delete(s.waiters, key)
}

// subscribeLocked registers a one-shot channel that closes the next time
// key is written. Callers must hold s.mu.
func (s *Store) subscribeLocked(key string) chan struct{} {
	ch := make(chan struct{})
	s.waiters[key] = append(s.waiters[key], ch)
	return ch
}

func firstMissing(data map[string][]byte, keys []string) string {
	for _, k := range keys {
		if _, ok := data[k]; !ok {
			return k
		}
	}
	return ""
}
