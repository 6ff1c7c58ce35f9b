package storage

import "testing"

func TestLRUKReplacerScenario(t *testing.T) {
	r := NewLRUKReplacer(7, 2)

	// Frames 1-6 each get one access; frame 6 stays non-evictable.
	for fid := FrameID(1); fid <= 6; fid++ {
		r.RecordAccess(fid, AccessLookup)
	}
	r.SetEvictable(1, true)
	r.SetEvictable(2, true)
	r.SetEvictable(3, true)
	r.SetEvictable(4, true)
	r.SetEvictable(5, true)
	r.SetEvictable(6, false)

	if got := r.Size(); got != 5 {
		t.Fatalf("expected size 5, got %d", got)
	}

	// Frame 1 now has two accesses, moving it out of the infinite tier.
	// Eviction order among the remaining infinite-tier frames is oldest first.
	r.RecordAccess(1, AccessLookup)

	if fid, ok := r.Evict(); !ok || fid != 2 {
		t.Fatalf("expected to evict frame 2, got %d (ok=%v)", fid, ok)
	}
	if fid, ok := r.Evict(); !ok || fid != 3 {
		t.Fatalf("expected to evict frame 3, got %d (ok=%v)", fid, ok)
	}
	if fid, ok := r.Evict(); !ok || fid != 4 {
		t.Fatalf("expected to evict frame 4, got %d (ok=%v)", fid, ok)
	}
	if got := r.Size(); got != 2 {
		t.Fatalf("expected size 2, got %d", got)
	}

	// Remaining frames: [5, 1]. Bring in 3 and 4 again, touch 5.
	r.RecordAccess(3, AccessLookup)
	r.RecordAccess(4, AccessLookup)
	r.RecordAccess(5, AccessLookup)
	r.RecordAccess(4, AccessLookup)
	r.SetEvictable(3, true)
	r.SetEvictable(4, true)

	if got := r.Size(); got != 4 {
		t.Fatalf("expected size 4, got %d", got)
	}

	if fid, ok := r.Evict(); !ok || fid != 3 {
		t.Fatalf("expected to evict frame 3, got %d (ok=%v)", fid, ok)
	}
	if got := r.Size(); got != 3 {
		t.Fatalf("expected size 3, got %d", got)
	}

	r.SetEvictable(6, true)
	if got := r.Size(); got != 4 {
		t.Fatalf("expected size 4, got %d", got)
	}
	if fid, ok := r.Evict(); !ok || fid != 6 {
		t.Fatalf("expected to evict frame 6, got %d (ok=%v)", fid, ok)
	}
	if got := r.Size(); got != 3 {
		t.Fatalf("expected size 3, got %d", got)
	}

	r.SetEvictable(1, false)
	if got := r.Size(); got != 2 {
		t.Fatalf("expected size 2, got %d", got)
	}
	fid, ok := r.Evict()
	if !ok || fid != 5 {
		t.Fatalf("expected to evict frame 5, got %d (ok=%v)", fid, ok)
	}
	if got := r.Size(); got != 1 {
		t.Fatalf("expected size 1, got %d", got)
	}

	r.RecordAccess(1, AccessLookup)
	r.RecordAccess(1, AccessLookup)
	r.SetEvictable(1, true)
	if got := r.Size(); got != 2 {
		t.Fatalf("expected size 2, got %d", got)
	}
	fid, ok = r.Evict()
	if !ok || fid != 4 {
		t.Fatalf("expected to evict frame 4, got %d (ok=%v)", fid, ok)
	}
	if got := r.Size(); got != 1 {
		t.Fatalf("expected size 1, got %d", got)
	}

	fid, ok = r.Evict()
	if !ok || fid != 1 {
		t.Fatalf("expected to evict frame 1, got %d (ok=%v)", fid, ok)
	}
	if got := r.Size(); got != 0 {
		t.Fatalf("expected size 0, got %d", got)
	}

	if _, ok := r.Evict(); ok {
		t.Fatal("expected no victim once replacer is empty")
	}
	r.Remove(1)
	if got := r.Size(); got != 0 {
		t.Fatalf("expected size to stay 0, got %d", got)
	}
}

func TestLRUKReplacerRecordAccessPanicsOnOutOfRangeFrame(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range frame id")
		}
	}()
	r := NewLRUKReplacer(2, 2)
	r.RecordAccess(5, AccessLookup)
}

func TestLRUKReplacerRemovePanicsOnNonEvictableFrame(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when removing a non-evictable frame")
		}
	}()
	r := NewLRUKReplacer(2, 2)
	r.RecordAccess(0, AccessLookup)
	r.Remove(0)
}

func TestLRUKReplacerSetEvictableNoopForUnknownFrame(t *testing.T) {
	r := NewLRUKReplacer(2, 2)
	r.SetEvictable(1, true)
	if got := r.Size(); got != 0 {
		t.Fatalf("expected size 0 for an unknown frame, got %d", got)
	}
}
