// Package recorder writes pre-roll plus live frames to one MP4 file per
// event through gocv.VideoWriter (fourcc avc1). Only fourcc, fps and frame
// size are set; encoder preset, quality, keyframe interval and the position
// of the container metadata are left to the OpenCV backend's defaults, so
// the file is not guaranteed to be playable before it is fully downloaded.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sentrycore/internal/model"

	"gocv.io/x/gocv"
)

// MaxDurationSeconds is the hard-coded recording cap carried over from the
// source implementation (see design notes on Open Question c).
const MaxDurationSeconds = 30

// Recorder accepts a pre-roll vector plus live frames for one event and
// produces a single MP4 file. Not safe for concurrent use by more than one
// event task — an event owns exactly one Recorder for its lifetime.
type Recorder struct {
	mu sync.Mutex

	writer   *gocv.VideoWriter
	filePath string
	cameraID string
	width    int
	height   int
	fps      int
	startedAt time.Time

	framesWritten int
	pts           int64

	stopRequested     bool
	stopRequestedAt   time.Time
	postRollSeconds   int
	recording         bool
}

// New constructs an unstarted Recorder.
func New() *Recorder {
	return &Recorder{}
}

// Start opens `dir/{cameraID}_{YYYYMMDD_HHMMSS}.mp4`, initializes the
// encoder, and writes every pre-roll frame in order.
func (r *Recorder) Start(cameraID string, preroll []*model.Frame, width, height, fps int, dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("recorder: create dir: %w", err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%s_%s.mp4", cameraID, now.Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	writer, err := gocv.VideoWriterFile(path, "avc1", float64(fps), width, height, true)
	if err != nil {
		return fmt.Errorf("recorder: open writer: %w", err)
	}

	r.writer = writer
	r.filePath = path
	r.cameraID = cameraID
	r.width = width
	r.height = height
	r.fps = fps
	r.startedAt = now
	r.recording = true
	r.framesWritten = 0
	r.pts = 0
	r.stopRequested = false

	for _, f := range preroll {
		if err := r.writeLocked(f); err != nil {
			return err
		}
	}
	return nil
}

// Write encodes and muxes one frame. Refuses further writes once
// MaxDurationSeconds has elapsed since Start.
func (r *Recorder) Write(frame *model.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return fmt.Errorf("recorder: not recording")
	}
	if time.Since(r.startedAt) >= MaxDurationSeconds*time.Second {
		return fmt.Errorf("recorder: max duration reached")
	}
	return r.writeLocked(frame)
}

func (r *Recorder) writeLocked(frame *model.Frame) error {
	if frame.Width != r.width || frame.Height != r.height {
		return fmt.Errorf("recorder: frame dimensions %dx%d do not match recorder %dx%d",
			frame.Width, frame.Height, r.width, r.height)
	}
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pixels)
	if err != nil {
		return fmt.Errorf("recorder: build mat: %w", err)
	}
	defer mat.Close()

	if err := r.writer.Write(mat); err != nil {
		return fmt.Errorf("recorder: write frame: %w", err)
	}
	r.framesWritten++
	r.pts++
	return nil
}

// RequestStop marks the recorder's stop time and required post-roll
// duration. Idempotent — the first call wins.
func (r *Recorder) RequestStop(postRollSeconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopRequested {
		return
	}
	r.stopRequested = true
	r.stopRequestedAt = time.Now()
	r.postRollSeconds = postRollSeconds
}

// PostRollComplete reports whether wall-clock time since RequestStop has
// reached the requested post-roll duration.
func (r *Recorder) PostRollComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopRequested {
		return false
	}
	return time.Since(r.stopRequestedAt) >= time.Duration(r.postRollSeconds)*time.Second
}

// MaxDurationReached reports whether the hard recording cap has elapsed.
func (r *Recorder) MaxDurationReached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return false
	}
	return time.Since(r.startedAt) >= MaxDurationSeconds*time.Second
}

// Finalize flushes and closes the encoder. Safe to call more than once.
func (r *Recorder) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil
	}
	r.recording = false
	if r.writer == nil {
		return nil
	}
	return r.writer.Close()
}

// FilePath is the recording's path (Start's dir joined with the file name),
// valid after Start.
func (r *Recorder) FilePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filePath
}

// FileName is FilePath without the directory component.
func (r *Recorder) FileName() string {
	return filepath.Base(r.FilePath())
}

// FramesWritten is the number of frames written so far.
func (r *Recorder) FramesWritten() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.framesWritten
}
