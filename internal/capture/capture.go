// Package capture implements the per-camera ingest pipeline: open a
// streaming source, decode, colour-convert into a pooled frame, stamp, and
// push into the camera's ring buffer, with resilient reconnection.
package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"sentrycore/internal/buffer"
	"sentrycore/internal/logger"
	"sentrycore/internal/model"

	"gocv.io/x/gocv"
)

const (
	connectTimeout   = 5 * time.Second
	initialBackoff   = 5 * time.Second
	maxBackoff       = 60 * time.Second
	interruptPollDur = 200 * time.Millisecond
)

// Stats holds the observable capture counters, all updated atomically so
// they can be read from the health handler without locking.
type Stats struct {
	FramesCaptured      uint64
	ReconnectCount      uint64
	ConsecutiveFailures uint64
	Connected           int32 // 0/1, read via atomic
	LastFrameUnixNano   int64
	Width               int32
	Height              int32
}

// Capture owns one camera's live ingest goroutine.
type Capture struct {
	cameraID string
	url      string
	pool     *buffer.FramePool
	ring     *buffer.RingBuffer
	log      *logger.Logger

	stop chan struct{}
	wg   sync.WaitGroup

	stats Stats
	seq   uint64
}

// New builds a Capture for one camera. Start must be called to begin
// ingest.
func New(cameraID, url string, pool *buffer.FramePool, ring *buffer.RingBuffer, log *logger.Logger) *Capture {
	return &Capture{
		cameraID: cameraID,
		url:      url,
		pool:     pool,
		ring:     ring,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Start launches the capture goroutine.
func (c *Capture) Start() {
	c.wg.Add(1)
	go c.run()
}

// Stop signals the capture goroutine to exit and waits for it. A back-off
// sleep notices the signal within the interrupt poll interval; an open in
// progress (up to connectTimeout) or a blocking frame read is not
// interrupted and finishes first.
func (c *Capture) Stop() {
	close(c.stop)
	c.wg.Wait()
}

// Stats returns a point-in-time snapshot of the observable counters.
func (c *Capture) Stats() Stats {
	return Stats{
		FramesCaptured:      atomic.LoadUint64(&c.stats.FramesCaptured),
		ReconnectCount:      atomic.LoadUint64(&c.stats.ReconnectCount),
		ConsecutiveFailures: atomic.LoadUint64(&c.stats.ConsecutiveFailures),
		Connected:           atomic.LoadInt32(&c.stats.Connected),
		LastFrameUnixNano:   atomic.LoadInt64(&c.stats.LastFrameUnixNano),
		Width:               atomic.LoadInt32(&c.stats.Width),
		Height:              atomic.LoadInt32(&c.stats.Height),
	}
}

func (c *Capture) run() {
	defer c.wg.Done()
	backoff := initialBackoff

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		vc, err := c.open()
		if err != nil {
			c.log.Warning("capture[%s]: open failed: %v", c.cameraID, err)
			atomic.StoreInt32(&c.stats.Connected, 0)
			atomic.AddUint64(&c.stats.ConsecutiveFailures, 1)
			if c.sleepInterruptible(backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		atomic.StoreInt32(&c.stats.Connected, 1)
		atomic.StoreUint64(&c.stats.ConsecutiveFailures, 0)
		backoff = initialBackoff

		aborted := c.decodeLoop(vc)
		vc.Close()
		atomic.StoreInt32(&c.stats.Connected, 0)
		if aborted {
			return
		}
		atomic.AddUint64(&c.stats.ReconnectCount, 1)
	}
}

func (c *Capture) open() (*gocv.VideoCapture, error) {
	type result struct {
		vc  *gocv.VideoCapture
		err error
	}
	done := make(chan result, 1)
	go func() {
		vc, err := gocv.OpenVideoCapture(c.url)
		done <- result{vc, err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.vc != nil {
			r.vc.Set(gocv.VideoCaptureBufferSize, 1) // disable buffering where the backend supports it
		}
		return r.vc, r.err
	case <-time.After(connectTimeout):
		go func() {
			if r := <-done; r.vc != nil {
				r.vc.Close()
			}
		}()
		return nil, errConnectTimeout{camera: c.cameraID}
	}
}

// decodeLoop reads frames until the source errors/EOFs or a stop is
// requested. Returns true if it returned because of an explicit Stop.
func (c *Capture) decodeLoop(vc *gocv.VideoCapture) bool {
	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-c.stop:
			return true
		default:
		}

		if ok := vc.Read(&mat); !ok || mat.Empty() {
			return false
		}

		width, height := mat.Cols(), mat.Rows()
		if int(atomic.LoadInt32(&c.stats.Width)) != width || int(atomic.LoadInt32(&c.stats.Height)) != height {
			c.pool.Resize(width, height)
			atomic.StoreInt32(&c.stats.Width, int32(width))
			atomic.StoreInt32(&c.stats.Height, int32(height))
		}

		pf, ok := c.pool.Acquire()
		if !ok {
			c.log.Warning("capture[%s]: pool exhausted, dropping frame", c.cameraID)
			continue
		}

		if !copyMatInto(mat, pf.Frame) {
			c.log.Warning("capture[%s]: frame copy failed, dropping frame", c.cameraID)
			pf.Release()
			continue
		}

		c.seq++
		pf.Frame.Seq = c.seq
		pf.Frame.CapturedAt = time.Now()
		atomic.StoreInt64(&c.stats.LastFrameUnixNano, pf.Frame.CapturedAt.UnixNano())
		atomic.AddUint64(&c.stats.FramesCaptured, 1)

		c.ring.Push(pf)
	}
}

// copyMatInto copies a BGR24 gocv.Mat's bytes into frame's pixel buffer,
// resizing frame first if dimensions changed.
func copyMatInto(mat gocv.Mat, frame *model.Frame) bool {
	width, height := mat.Cols(), mat.Rows()
	frame.Resize(width, height)

	raw, err := mat.DataPtrUint8()
	if err != nil {
		return false
	}
	if len(raw) != len(frame.Pixels) {
		return false
	}
	copy(frame.Pixels, raw)
	return true
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// sleepInterruptible sleeps for d, checking the stop channel at
// interruptPollDur granularity so shutdown is prompt. Returns true if
// interrupted by Stop.
func (c *Capture) sleepInterruptible(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		select {
		case <-c.stop:
			return true
		case <-time.After(interruptPollDur):
		}
	}
	return false
}

type errConnectTimeout struct{ camera string }

func (e errConnectTimeout) Error() string {
	return "connect timeout for camera " + e.camera
}
