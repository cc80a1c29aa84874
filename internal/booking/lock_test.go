package booking

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLockManagerAcquireAndDeny(t *testing.T) {
	m := NewLockManager(NewIndex(), time.Minute, nil)
	lock, err := m.Acquire(1, Interval{100, 160}, 10)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if lock.Token == "" {
		t.Fatal("empty lock token")
	}

	// overlapping interval on the same seat is denied
	if _, err := m.Acquire(1, Interval{130, 190}, 11); !errors.Is(err, ErrDenied) {
		t.Fatalf("overlapping acquire = %v, want ErrDenied", err)
	}
	// adjacent interval on the same seat is fine
	if _, err := m.Acquire(1, Interval{160, 220}, 11); err != nil {
		t.Fatalf("adjacent acquire: %v", err)
	}
	// same interval on a different seat is fine
	if _, err := m.Acquire(2, Interval{100, 160}, 11); err != nil {
		t.Fatalf("different seat acquire: %v", err)
	}
}

func TestLockManagerDeniesConfirmedOccupancy(t *testing.T) {
	idx := NewIndex()
	if err := idx.Commit(5, Interval{100, 160}, "o1"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	m := NewLockManager(idx, time.Minute, nil)
	if _, err := m.Acquire(5, Interval{120, 180}, 10); !errors.Is(err, ErrDenied) {
		t.Fatalf("acquire over confirmed occupancy = %v, want ErrDenied", err)
	}
	if _, err := m.Acquire(5, Interval{160, 220}, 10); err != nil {
		t.Fatalf("acquire after confirmed occupancy: %v", err)
	}
}

func TestLockManagerExpiry(t *testing.T) {
	m := NewLockManager(NewIndex(), 30*time.Millisecond, nil)
	lock, err := m.Acquire(1, Interval{100, 160}, 10)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	// the expired lock no longer blocks a different holder
	if _, err := m.Acquire(1, Interval{100, 160}, 11); err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	if _, err := m.Get(lock.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get expired token = %v, want ErrNotFound", err)
	}
	if _, err := m.Extend(lock.Token, time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Extend expired token = %v, want ErrNotFound", err)
	}
}

func TestLockManagerReleaseIdempotent(t *testing.T) {
	m := NewLockManager(NewIndex(), time.Minute, nil)
	lock, err := m.Acquire(1, Interval{100, 160}, 10)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.Release(lock.Token)
	m.Release(lock.Token) // second release is a no-op
	m.Release("no-such-token")
	if _, err := m.Acquire(1, Interval{100, 160}, 11); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestLockManagerExtend(t *testing.T) {
	m := NewLockManager(NewIndex(), 80*time.Millisecond, nil)
	lock, err := m.Acquire(1, Interval{100, 160}, 10)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	extended, err := m.Extend(lock.Token, time.Minute)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !extended.ExpiresAt.After(lock.ExpiresAt) {
		t.Fatalf("extend did not push expiry: %v -> %v", lock.ExpiresAt, extended.ExpiresAt)
	}
	if _, err := m.Extend("unknown", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("extend unknown token = %v, want ErrNotFound", err)
	}
}

// TestLockManagerConcurrentAcquire verifies the core serialization
// property: of N concurrent acquires for overlapping intervals on the
// same seat, exactly one wins.
func TestLockManagerConcurrentAcquire(t *testing.T) {
	m := NewLockManager(NewIndex(), time.Minute, nil)
	const workers = 64
	var granted, denied atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(holder uint64) {
			defer wg.Done()
			<-start
			_, err := m.Acquire(42, Interval{100, 160}, holder)
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, ErrDenied):
				denied.Add(1)
			default:
				t.Errorf("holder %d: unexpected error %v", holder, err)
			}
		}(uint64(w + 1))
	}
	close(start)
	wg.Wait()
	if granted.Load() != 1 {
		t.Fatalf("granted = %d, want exactly 1", granted.Load())
	}
	if denied.Load() != workers-1 {
		t.Fatalf("denied = %d, want %d", denied.Load(), workers-1)
	}
}

func TestLockManagerSweep(t *testing.T) {
	m := NewLockManager(NewIndex(), 20*time.Millisecond, nil)
	for s := uint64(1); s <= 10; s++ {
		if _, err := m.Acquire(s, Interval{100, 160}, s); err != nil {
			t.Fatalf("acquire seat %d: %v", s, err)
		}
	}
	time.Sleep(40 * time.Millisecond)
	if removed := m.Sweep(time.Now().UTC()); removed != 10 {
		t.Fatalf("sweep removed %d locks, want 10", removed)
	}
	if removed := m.Sweep(time.Now().UTC()); removed != 0 {
		t.Fatalf("second sweep removed %d locks, want 0", removed)
	}
}
