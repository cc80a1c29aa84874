package booking

import (
	"fmt"
	"sort"
	"sync"
)

// indexShardCount fixes the number of independent locking domains in
// the index.  Seats hash onto shards by identity, so operations on
// unrelated seats almost never contend and there is no global lock.
const indexShardCount = 64

// Occupancy is one confirmed interval held by an order.  Entries for
// the same seat are pairwise non-overlapping at all times; that is the
// index's core invariant.
type Occupancy struct {
	SeatID   uint64
	Interval Interval
	OrderNo  string
}

type indexShard struct {
	mu    sync.RWMutex
	seats map[uint64][]Occupancy // per seat, sorted by Interval.Start, disjoint
}

// Index is the authoritative in-memory record of confirmed occupancy
// per seat.  It mirrors the seat_occupancy table: the coordinator
// writes the durable row first and updates the index only after the
// transaction commits, and Hydrate rebuilds the index from the table
// at startup.  All operations are non-blocking with respect to I/O.
type Index struct {
	shards [indexShardCount]indexShard
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	idx := &Index{}
	for i := range idx.shards {
		idx.shards[i].seats = make(map[uint64][]Occupancy)
	}
	return idx
}

func (idx *Index) shard(seatID uint64) *indexShard {
	return &idx.shards[seatID%indexShardCount]
}

// searchFrom returns the position of the first entry whose interval
// could overlap iv, exploiting that entries are sorted and disjoint.
func searchFrom(entries []Occupancy, iv Interval) int {
	return sort.Search(len(entries), func(i int) bool {
		return entries[i].Interval.End > iv.Start
	})
}

// QueryOverlap returns all confirmed intervals on the seat that
// overlap iv.  The returned slice is a copy; callers may retain it.
func (idx *Index) QueryOverlap(seatID uint64, iv Interval) []Occupancy {
	sh := idx.shard(seatID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	entries := sh.seats[seatID]
	var out []Occupancy
	for i := searchFrom(entries, iv); i < len(entries) && entries[i].Interval.Start < iv.End; i++ {
		out = append(out, entries[i])
	}
	return out
}

// HasOverlap reports whether any confirmed interval on the seat
// overlaps iv.  Cheaper than QueryOverlap when only the answer
// matters, e.g. inside the lock manager's acquire path.
func (idx *Index) HasOverlap(seatID uint64, iv Interval) bool {
	sh := idx.shard(seatID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	entries := sh.seats[seatID]
	i := searchFrom(entries, iv)
	return i < len(entries) && entries[i].Interval.Start < iv.End
}

// Commit inserts a confirmed interval for the given order.  It fails
// with ErrConflict when the interval overlaps an existing entry; the
// check is defensive and should be unreachable when locking worked.
func (idx *Index) Commit(seatID uint64, iv Interval, orderNo string) error {
	if !iv.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, iv)
	}
	sh := idx.shard(seatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	entries := sh.seats[seatID]
	i := searchFrom(entries, iv)
	if i < len(entries) && entries[i].Interval.Start < iv.End {
		return fmt.Errorf("%w: seat %d %s overlaps %s (order %s)",
			ErrConflict, seatID, iv, entries[i].Interval, entries[i].OrderNo)
	}
	entry := Occupancy{SeatID: seatID, Interval: iv, OrderNo: orderNo}
	entries = append(entries, Occupancy{})
	copy(entries[i+1:], entries[i:])
	entries[i] = entry
	sh.seats[seatID] = entries
	return nil
}

// Release removes the interval committed for the given order.  It is
// idempotent: releasing an absent entry is a no-op.
func (idx *Index) Release(seatID uint64, iv Interval, orderNo string) {
	sh := idx.shard(seatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	entries := sh.seats[seatID]
	for i := searchFrom(entries, iv); i < len(entries) && entries[i].Interval.Start < iv.End; i++ {
		if entries[i].OrderNo == orderNo && entries[i].Interval == iv {
			sh.seats[seatID] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Hydrate loads occupancy rows into the index, replacing nothing:
// it is intended for startup, before the index is shared.  Entries
// that overlap an already-loaded interval on the same seat are
// rejected so a corrupted table cannot smuggle in a double booking.
func (idx *Index) Hydrate(entries []Occupancy) error {
	for _, e := range entries {
		if err := idx.Commit(e.SeatID, e.Interval, e.OrderNo); err != nil {
			return err
		}
	}
	return nil
}
