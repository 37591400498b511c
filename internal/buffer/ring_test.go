package buffer

import "testing"

func pushSeq(t *testing.T, pool *FramePool, ring *RingBuffer, seq uint64) {
	t.Helper()
	pf, ok := pool.Acquire()
	if !ok {
		t.Fatalf("pool exhausted pushing seq %d", seq)
	}
	pf.Frame.Seq = seq
	ring.Push(pf)
}

func TestRingBufferSizeCapsAtCapacity(t *testing.T) {
	pool := NewFramePool(20, 8, 8)
	ring := NewRingBuffer(5)

	for i := uint64(1); i <= 8; i++ {
		pushSeq(t, pool, ring, i)
	}
	if ring.Size() != 5 {
		t.Fatalf("size = %d, want 5", ring.Size())
	}
}

func TestRingBufferSnapshotOrderingStrictlyIncreasing(t *testing.T) {
	pool := NewFramePool(20, 8, 8)
	ring := NewRingBuffer(5)

	for i := uint64(1); i <= 8; i++ {
		pushSeq(t, pool, ring, i)
	}

	snap := ring.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("snapshot length = %d, want 5", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].Seq <= snap[i-1].Seq {
			t.Fatalf("snapshot not strictly increasing at %d: %d <= %d", i, snap[i].Seq, snap[i-1].Seq)
		}
	}
	if snap[len(snap)-1].Seq != 8 {
		t.Fatalf("last snapshot seq = %d, want 8", snap[len(snap)-1].Seq)
	}
}

func TestRingBufferLatest(t *testing.T) {
	pool := NewFramePool(20, 8, 8)
	ring := NewRingBuffer(3)

	if ring.Latest() != nil {
		t.Fatal("latest on empty ring should be nil")
	}
	for i := uint64(1); i <= 3; i++ {
		pushSeq(t, pool, ring, i)
	}
	if got := ring.Latest(); got == nil || got.Seq != 3 {
		t.Fatalf("latest = %v, want seq 3", got)
	}
}

func TestRingBufferPushEvictsAndReleasesOldest(t *testing.T) {
	pool := NewFramePool(3, 8, 8)
	ring := NewRingBuffer(3)

	for i := uint64(1); i <= 3; i++ {
		pushSeq(t, pool, ring, i)
	}
	if pool.Available() != 0 {
		t.Fatalf("pool available = %d, want 0 once ring is full", pool.Available())
	}

	pushSeq(t, pool, ring, 4)
	if pool.Available() != 0 {
		t.Fatalf("pool available = %d, want 0 (evicted frame recycled immediately into the new acquire)", pool.Available())
	}

	snap := ring.Snapshot()
	if snap[0].Seq != 2 {
		t.Fatalf("oldest retained seq = %d, want 2 (seq 1 evicted)", snap[0].Seq)
	}
}

func TestDeepCopyIsIndependentOfPool(t *testing.T) {
	pool := NewFramePool(5, 4, 4)
	ring := NewRingBuffer(5)
	pushSeq(t, pool, ring, 1)

	snap := ring.Snapshot()
	copies := DeepCopy(snap)
	copies[0].Pixels[0] = 0xFF

	live := ring.Latest()
	if live.Pixels[0] == 0xFF {
		t.Fatal("deep copy mutation leaked back into pooled frame")
	}
}
