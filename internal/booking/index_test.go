package booking

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestIndexCommitAndQuery(t *testing.T) {
	idx := NewIndex()
	if err := idx.Commit(1, Interval{100, 160}, "o1"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := idx.Commit(1, Interval{160, 220}, "o2"); err != nil {
		t.Fatalf("commit adjacent: %v", err)
	}
	if err := idx.Commit(1, Interval{40, 100}, "o3"); err != nil {
		t.Fatalf("commit before: %v", err)
	}

	got := idx.QueryOverlap(1, Interval{90, 170})
	if len(got) != 3 {
		t.Fatalf("QueryOverlap returned %d entries, want 3", len(got))
	}
	// entries come back ordered by start
	for i := 1; i < len(got); i++ {
		if got[i-1].Interval.Start > got[i].Interval.Start {
			t.Fatalf("entries out of order: %v", got)
		}
	}
	if idx.HasOverlap(2, Interval{100, 160}) {
		t.Fatal("unrelated seat reported occupied")
	}
}

func TestIndexCommitConflict(t *testing.T) {
	idx := NewIndex()
	if err := idx.Commit(7, Interval{100, 160}, "o1"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	err := idx.Commit(7, Interval{150, 210}, "o2")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("overlapping commit = %v, want ErrConflict", err)
	}
	// the failed commit must not have altered the index
	if got := idx.QueryOverlap(7, Interval{0, 1000}); len(got) != 1 {
		t.Fatalf("index holds %d entries after failed commit, want 1", len(got))
	}
}

func TestIndexReleaseIdempotent(t *testing.T) {
	idx := NewIndex()
	iv := Interval{100, 160}
	if err := idx.Commit(3, iv, "o1"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	idx.Release(3, iv, "o1")
	if idx.HasOverlap(3, iv) {
		t.Fatal("interval still present after release")
	}
	// second release of the same entry is a no-op
	idx.Release(3, iv, "o1")
	// releasing with a wrong order number is a no-op too
	if err := idx.Commit(3, iv, "o2"); err != nil {
		t.Fatalf("recommit: %v", err)
	}
	idx.Release(3, iv, "o1")
	if !idx.HasOverlap(3, iv) {
		t.Fatal("release with mismatched order removed the entry")
	}
}

func TestIndexHydrateRejectsOverlap(t *testing.T) {
	idx := NewIndex()
	err := idx.Hydrate([]Occupancy{
		{SeatID: 1, Interval: Interval{100, 160}, OrderNo: "o1"},
		{SeatID: 1, Interval: Interval{120, 180}, OrderNo: "o2"},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Hydrate = %v, want ErrConflict", err)
	}
}

func TestIndexConcurrentSeatsDisjoint(t *testing.T) {
	idx := NewIndex()
	const seats = 128
	var wg sync.WaitGroup
	for s := uint64(1); s <= seats; s++ {
		wg.Add(1)
		go func(seat uint64) {
			defer wg.Done()
			for k := int64(0); k < 10; k++ {
				iv := Interval{Start: k * 60, End: (k + 1) * 60}
				if err := idx.Commit(seat, iv, fmt.Sprintf("o-%d-%d", seat, k)); err != nil {
					t.Errorf("seat %d commit %d: %v", seat, k, err)
					return
				}
			}
		}(s)
	}
	wg.Wait()
	for s := uint64(1); s <= seats; s++ {
		if got := idx.QueryOverlap(s, Interval{0, 600}); len(got) != 10 {
			t.Fatalf("seat %d holds %d entries, want 10", s, len(got))
		}
	}
}
