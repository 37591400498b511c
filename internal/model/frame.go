package model

import "time"

// Frame holds one decoded video frame as interleaved 24-bit colour in B, G, R
// channel order. Pixels is reused across recycles; callers that need to keep
// a Frame past the next capture interval must deep-copy it (see buffer.DeepCopy).
type Frame struct {
	Width     int
	Height    int
	Stride    int
	Seq       uint64
	CapturedAt time.Time
	Pixels    []byte
}

// NewFrame allocates a Frame sized for width x height BGR24 pixels.
func NewFrame(width, height int) *Frame {
	stride := width * 3
	return &Frame{
		Width:  width,
		Height: height,
		Stride: stride,
		Pixels: make([]byte, stride*height),
	}
}

// Resize grows or shrinks the backing buffer to match a new resolution. It is
// a no-op when the dimensions already match.
func (f *Frame) Resize(width, height int) {
	stride := width * 3
	if f.Width == width && f.Height == height && len(f.Pixels) == stride*height {
		return
	}
	f.Width = width
	f.Height = height
	f.Stride = stride
	needed := stride * height
	if cap(f.Pixels) < needed {
		f.Pixels = make([]byte, needed)
	} else {
		f.Pixels = f.Pixels[:needed]
	}
}

// Clone returns an owned deep copy, independent of any pool.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Width:      f.Width,
		Height:     f.Height,
		Stride:     f.Stride,
		Seq:        f.Seq,
		CapturedAt: f.CapturedAt,
		Pixels:     make([]byte, len(f.Pixels)),
	}
	copy(c.Pixels, f.Pixels)
	return c
}
