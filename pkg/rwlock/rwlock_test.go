package rwlock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRWLock_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	l := New()
	const readers = 5

	var wg sync.WaitGroup
	var holding atomic.Int32
	var maxHolding atomic.Int32
	release := make(chan struct{})

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RLock()
			n := holding.Add(1)
			for {
				cur := maxHolding.Load()
				if n <= cur || maxHolding.CompareAndSwap(cur, n) {
					break
				}
			}
			<-release
			holding.Add(-1)
			l.RUnlock()
		}()
	}

	require.Eventually(t, func() bool {
		return l.Stats().ActiveReaders == readers
	}, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(readers), maxHolding.Load())
	assert.Equal(t, 0, l.Stats().ActiveReaders)
}

func TestRWLock_WriterExcludesReaders(t *testing.T) {
	t.Parallel()

	l := New()
	l.Lock()

	acquired := make(chan struct{})
	go func() {
		l.RLock()
		close(acquired)
		l.RUnlock()
	}()

	select {
	case <-acquired:
		t.Fatal("reader acquired lock while writer active")
	case <-time.After(50 * time.Millisecond):
	}

	l.Unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("reader never acquired lock after writer released")
	}
	assert.False(t, l.Stats().PreferWriter)
}

func TestRWLock_WriterWaitsForReaders(t *testing.T) {
	t.Parallel()

	l := New()
	l.RLock()

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
		l.Unlock()
	}()

	require.Eventually(t, func() bool {
		return l.Stats().WaitingWriters == 1
	}, time.Second, 5*time.Millisecond)

	select {
	case <-acquired:
		t.Fatal("writer acquired lock while reader active")
	default:
	}

	l.RUnlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired lock")
	}
}

func TestRWLock_NoWriterStarvation(t *testing.T) {
	t.Parallel()

	l := New()
	stop := make(chan struct{})
	var wg sync.WaitGroup

	// 持续的读负载
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				l.RLock()
				time.Sleep(time.Millisecond)
				l.RUnlock()
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
		l.Unlock()
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("writer starved under continuous read load")
	}

	close(stop)
	wg.Wait()
}

func TestRWLock_PreferenceFlips(t *testing.T) {
	t.Parallel()

	l := New()
	l.RLock()
	l.RUnlock()
	assert.True(t, l.Stats().PreferWriter)

	l.Lock()
	l.Unlock()
	assert.False(t, l.Stats().PreferWriter)
}

func TestRWLock_UnlockPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { New().Unlock() })
	assert.Panics(t, func() { New().RUnlock() })
}

func TestSet(t *testing.T) {
	t.Parallel()

	t.Run("entry removed after last release", func(t *testing.T) {
		t.Parallel()

		s := NewSet()
		unlockA := s.RLock("a")
		unlockA2 := s.RLock("a")
		unlockB := s.Lock("b")
		assert.Equal(t, 2, s.Len())

		unlockA()
		assert.Equal(t, 2, s.Len())
		unlockA2()
		unlockB()
		assert.Equal(t, 0, s.Len())
	})

	t.Run("same key excludes writers", func(t *testing.T) {
		t.Parallel()

		s := NewSet()
		unlock := s.Lock("a")

		acquired := make(chan struct{})
		go func() {
			release := s.Lock("a")
			close(acquired)
			release()
		}()

		select {
		case <-acquired:
			t.Fatal("second writer acquired a held key")
		case <-time.After(50 * time.Millisecond):
		}

		unlock()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("second writer never acquired the key")
		}
		require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		t.Parallel()

		s := NewSet()
		unlockA := s.Lock("a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			s.Lock("b")()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock on b blocked by a")
		}
	})

	t.Run("release of unknown key panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { NewSet().release("missing") })
	})
}
