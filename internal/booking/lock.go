package booking

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/yihan-study/seat-booking/internal/obs"
)

// lockShardCount fixes the number of independent critical sections in
// the lock manager.  Seats hash onto shards by identity, so two
// concurrent acquires on the same seat serialize while unrelated seats
// proceed in parallel.
const lockShardCount = 64

// DefaultLockTTL is the checkout lock lifetime when the caller does
// not override it.
const DefaultLockTTL = 300 * time.Second

// Lock is a short-lived exclusive hold on a (seat, interval) pair
// granted during checkout, before payment.  The token is the only
// handle callers receive; it is opaque and unguessable.
type Lock struct {
	Token     string    `json:"token"`
	SeatID    uint64    `json:"seat_id"`
	Interval  Interval  `json:"interval"`
	HolderID  uint64    `json:"holder_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type lockShard struct {
	mu    sync.Mutex
	seats map[uint64][]*Lock // active locks per seat
}

// LockManager grants exclusive holds on (seat, interval) pairs so two
// concurrent checkouts can never both proceed for overlapping time on
// the same seat.  Expiry is enforced lazily on every acquire and by
// the periodic Sweep; losers are denied, never queued.
//
// Locks live only in memory.  They are five-minute leases guarding the
// gap between checkout and payment; after a crash the durable interval
// index is the truth and abandoned checkouts simply start over.
type LockManager struct {
	ttl     time.Duration
	index   *Index
	shards  [lockShardCount]lockShard
	tokens  sync.Map // token string -> *Lock
	metrics *obs.Metrics
	held    int64 // maintained under shard mutexes, read by Sweep
	heldMu  sync.Mutex
}

// NewLockManager builds a manager that consults idx for confirmed
// occupancy before granting a lock.  ttl <= 0 selects DefaultLockTTL.
// metrics may be nil.
func NewLockManager(idx *Index, ttl time.Duration, metrics *obs.Metrics) *LockManager {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	m := &LockManager{ttl: ttl, index: idx, metrics: metrics}
	for i := range m.shards {
		m.shards[i].seats = make(map[uint64][]*Lock)
	}
	return m
}

// TTL returns the configured lock lifetime.
func (m *LockManager) TTL() time.Duration { return m.ttl }

func (m *LockManager) shard(seatID uint64) *lockShard {
	return &m.shards[seatID%lockShardCount]
}

func (m *LockManager) addHeld(delta int) {
	m.heldMu.Lock()
	m.held += int64(delta)
	n := m.held
	m.heldMu.Unlock()
	m.metrics.SetLocksHeld(int(n))
}

// newToken returns a 64-character hex token from crypto/rand.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// pruneLocked drops expired locks for one seat.  Caller holds sh.mu.
func (m *LockManager) pruneLocked(sh *lockShard, seatID uint64, now time.Time) {
	locks := sh.seats[seatID]
	kept := locks[:0]
	expired := 0
	for _, l := range locks {
		if l.ExpiresAt.After(now) {
			kept = append(kept, l)
		} else {
			m.tokens.Delete(l.Token)
			expired++
		}
	}
	if expired > 0 {
		m.metrics.AddExpired(expired)
		m.addHeld(-expired)
	}
	if len(kept) == 0 {
		delete(sh.seats, seatID)
	} else {
		sh.seats[seatID] = kept
	}
}

// Acquire grants an exclusive hold on (seatID, iv) to holderID.  It
// succeeds only when no active lock on the seat overlaps iv and the
// interval index records no confirmed overlap; otherwise it returns
// ErrDenied.  The decision is made under the seat's critical section,
// so of two concurrent overlapping acquires exactly one wins.
func (m *LockManager) Acquire(seatID uint64, iv Interval, holderID uint64) (*Lock, error) {
	if !iv.Valid() {
		return nil, ErrInvalidInterval
	}
	now := time.Now().UTC()
	sh := m.shard(seatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	m.pruneLocked(sh, seatID, now)
	for _, l := range sh.seats[seatID] {
		if l.Interval.Overlaps(iv) {
			m.metrics.IncAcquire("denied")
			return nil, ErrDenied
		}
	}
	if m.index != nil && m.index.HasOverlap(seatID, iv) {
		m.metrics.IncAcquire("denied")
		return nil, ErrDenied
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	lock := &Lock{
		Token:     token,
		SeatID:    seatID,
		Interval:  iv,
		HolderID:  holderID,
		ExpiresAt: now.Add(m.ttl),
	}
	sh.seats[seatID] = append(sh.seats[seatID], lock)
	m.tokens.Store(token, lock)
	m.metrics.IncAcquire("granted")
	m.addHeld(1)
	return lock, nil
}

// Get returns the active lock for token, or ErrNotFound when the
// token is unknown or the lock has expired.  The returned value is a
// snapshot; mutations go through the manager.
func (m *LockManager) Get(token string) (Lock, error) {
	v, ok := m.tokens.Load(token)
	if !ok {
		return Lock{}, ErrNotFound
	}
	l := v.(*Lock)
	sh := m.shard(l.SeatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if !l.ExpiresAt.After(time.Now().UTC()) {
		return Lock{}, ErrNotFound
	}
	return *l, nil
}

// Release removes the lock identified by token.  It is idempotent:
// releasing an unknown, already released or expired token is a no-op.
func (m *LockManager) Release(token string) {
	v, ok := m.tokens.Load(token)
	if !ok {
		return
	}
	l := v.(*Lock)
	sh := m.shard(l.SeatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	locks := sh.seats[l.SeatID]
	for i, cur := range locks {
		if cur.Token == token {
			sh.seats[l.SeatID] = append(locks[:i], locks[i+1:]...)
			m.tokens.Delete(token)
			m.addHeld(-1)
			break
		}
	}
	if len(sh.seats[l.SeatID]) == 0 {
		delete(sh.seats, l.SeatID)
	}
}

// Extend resets the lock's expiry to now + ttl (the manager's TTL when
// ttl <= 0).  It returns ErrNotFound when the token is unknown or the
// lock has already expired; expired locks are never resurrected.
func (m *LockManager) Extend(token string, ttl time.Duration) (Lock, error) {
	if ttl <= 0 {
		ttl = m.ttl
	}
	v, ok := m.tokens.Load(token)
	if !ok {
		return Lock{}, ErrNotFound
	}
	l := v.(*Lock)
	sh := m.shard(l.SeatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	now := time.Now().UTC()
	if !l.ExpiresAt.After(now) {
		return Lock{}, ErrNotFound
	}
	l.ExpiresAt = now.Add(ttl)
	return *l, nil
}

// HasOverlapLock reports whether any active lock on the seat overlaps
// iv.  Used by availability checks so a seat mid-checkout reads as
// unavailable even before anything is committed to the index.
func (m *LockManager) HasOverlapLock(seatID uint64, iv Interval) bool {
	now := time.Now().UTC()
	sh := m.shard(seatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	m.pruneLocked(sh, seatID, now)
	for _, l := range sh.seats[seatID] {
		if l.Interval.Overlaps(iv) {
			return true
		}
	}
	return false
}

// Sweep removes every expired lock and returns how many were dropped.
// Lazy pruning already bounds staleness on hot seats; the sweep bounds
// it on seats nobody touches.
func (m *LockManager) Sweep(now time.Time) int {
	removed := 0
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		for seatID := range sh.seats {
			before := len(sh.seats[seatID])
			m.pruneLocked(sh, seatID, now)
			removed += before - len(sh.seats[seatID])
		}
		sh.mu.Unlock()
	}
	return removed
}

