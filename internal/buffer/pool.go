// Package buffer implements the frame pool and per-camera ring buffer that
// sit between Capture and everything that reads decoded video.
package buffer

import (
	"sync"

	"sentrycore/internal/model"
)

// PooledFrame is a borrowed handle to a *model.Frame drawn from a FramePool.
// The holder has exclusive mutation rights while held; Release returns it to
// the pool's free list. A PooledFrame must never be retained past Release,
// and must never outlive its pool.
type PooledFrame struct {
	pool  *FramePool
	index int
	Frame *model.Frame
}

// Release returns the frame to its pool's free list. A second call on the
// same handle is a no-op, because the first call clears the handle's pool.
func (p *PooledFrame) Release() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.release(p.index)
	p.pool = nil
}

// FramePool is a bounded, lock-protected free list of preallocated frames.
// Acquire never blocks: an exhausted pool reports failure immediately so the
// capture thread is never stalled waiting for a frame to be released.
type FramePool struct {
	mu       sync.Mutex
	arena    []*model.Frame
	free     []int // indices into arena currently available
	width    int
	height   int
}

// NewFramePool preallocates capacity frames sized width x height BGR24.
// Per §4.1, capacity should be the owning ring buffer's capacity plus a
// headroom (>= 30) to cover frames pinned by event tasks and encoders.
func NewFramePool(capacity, width, height int) *FramePool {
	p := &FramePool{
		arena:  make([]*model.Frame, capacity),
		free:   make([]int, capacity),
		width:  width,
		height: height,
	}
	for i := 0; i < capacity; i++ {
		p.arena[i] = model.NewFrame(width, height)
		p.free[i] = i
	}
	return p
}

// Acquire returns a handle to a free frame, or (nil, false) if the pool is
// exhausted. Never blocks.
func (p *FramePool) Acquire() (*PooledFrame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return nil, false
	}
	idx := p.free[n-1]
	p.free = p.free[:n-1]
	frame := p.arena[idx]
	frame.Seq = 0
	if frame.Width != p.width || frame.Height != p.height {
		frame.Resize(p.width, p.height)
	}
	return &PooledFrame{pool: p, index: idx, Frame: frame}, true
}

func (p *FramePool) release(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.arena[idx].Seq = 0
	p.free = append(p.free, idx)
}

// Resize changes the dimensions frames are (lazily) resized to on next
// acquire, mirroring Capture's "reinitialize a scaler if resolution differs"
// behaviour without reallocating the whole pool immediately.
func (p *FramePool) Resize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = width
	p.height = height
}

// Capacity is the fixed number of frames the pool manages.
func (p *FramePool) Capacity() int {
	return len(p.arena)
}

// Available is the current number of free frames.
func (p *FramePool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// InUse is capacity - available.
func (p *FramePool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.arena) - len(p.free)
}
