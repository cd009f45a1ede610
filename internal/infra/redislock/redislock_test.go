package redislock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value

	return true, nil
}

func (m *memStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)

	return true, nil
}

func TestLock_ExclusiveAndReleased(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	l := newLocker(store, time.Second, time.Second)

	unlock, err := l.Lock(t.Context(), "priest:1")
	require.NoError(t, err)
	require.Contains(t, store.values, keyPrefix+"priest:1")

	require.NoError(t, unlock(t.Context()))
	require.NoError(t, unlock(t.Context()))
	require.Empty(t, store.values)
}

func TestLock_TimesOutWhileHeld(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.values[keyPrefix+"priest:2"] = "someone-else"

	l := newLocker(store, time.Second, 80*time.Millisecond)

	_, err := l.Lock(t.Context(), "priest:2")
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, "someone-else", store.values[keyPrefix+"priest:2"])
}

func TestLock_ReleaseKeepsForeignOwner(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	l := newLocker(store, time.Second, time.Second)

	unlock, err := l.Lock(t.Context(), "priest:3")
	require.NoError(t, err)

	// TTL expired and another replica took the key.
	store.values[keyPrefix+"priest:3"] = "replica-b"

	require.NoError(t, unlock(t.Context()))
	require.Equal(t, "replica-b", store.values[keyPrefix+"priest:3"])
}

func TestLock_SerializesHolders(t *testing.T) {
	t.Parallel()

	l := newLocker(newMemStore(), time.Second, 2*time.Second)

	var (
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := l.Lock(context.Background(), "priest:4")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}

			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(10 * time.Millisecond)
			inside.Add(-1)

			_ = unlock(context.Background())
		}()
	}
	wg.Wait()

	require.False(t, overlap.Load())
}

func TestLock_StoreError(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.err = errors.New("connection refused")

	_, err := newLocker(store, time.Second, time.Second).Lock(t.Context(), "priest:5")
	require.ErrorContains(t, err, "connection refused")
}

func TestNoop(t *testing.T) {
	t.Parallel()

	unlock, err := Noop{}.Lock(t.Context(), "anything")
	require.NoError(t, err)
	require.NoError(t, unlock(t.Context()))
}

func TestNew_RequiresClient(t *testing.T) {
	t.Parallel()

	_, err := New(nil, 0, 0)
	require.Error(t, err)
}
