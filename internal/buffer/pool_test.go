package buffer

import "testing"

func TestPoolAvailableInUseInvariant(t *testing.T) {
	pool := NewFramePool(10, 64, 48)
	if got := pool.Available() + pool.InUse(); got != pool.Capacity() {
		t.Fatalf("available+in_use = %d, want capacity %d", got, pool.Capacity())
	}

	held := make([]*PooledFrame, 0, 4)
	for i := 0; i < 4; i++ {
		pf, ok := pool.Acquire()
		if !ok {
			t.Fatalf("acquire %d failed unexpectedly", i)
		}
		held = append(held, pf)
	}
	if got := pool.Available() + pool.InUse(); got != pool.Capacity() {
		t.Fatalf("available+in_use = %d, want capacity %d", got, pool.Capacity())
	}
	if pool.InUse() != 4 {
		t.Fatalf("in_use = %d, want 4", pool.InUse())
	}

	before := pool.Available()
	for _, pf := range held {
		pf.Release()
	}
	if pool.Available() != before+4 {
		t.Fatalf("available after release = %d, want %d", pool.Available(), before+4)
	}
}

func TestPoolExhaustionNeverBlocks(t *testing.T) {
	pool := NewFramePool(2, 8, 8)
	if _, ok := pool.Acquire(); !ok {
		t.Fatal("first acquire should succeed")
	}
	if _, ok := pool.Acquire(); !ok {
		t.Fatal("second acquire should succeed")
	}
	pf, ok := pool.Acquire()
	if ok || pf != nil {
		t.Fatal("acquire on exhausted pool must fail immediately, not block")
	}
}

func TestPoolRecycleZeroesSequence(t *testing.T) {
	pool := NewFramePool(1, 4, 4)
	pf, _ := pool.Acquire()
	pf.Frame.Seq = 42
	pf.Release()

	pf2, ok := pool.Acquire()
	if !ok {
		t.Fatal("acquire after release should succeed")
	}
	if pf2.Frame.Seq != 0 {
		t.Fatalf("recycled frame seq = %d, want 0", pf2.Frame.Seq)
	}
}
