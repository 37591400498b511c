package handler

import (
	"net/http"

	"sentrycore/internal/buffer"
	"sentrycore/internal/logger"
	"sentrycore/internal/model"

	"gocv.io/x/gocv"
)

// LiveSnapshotHandler encodes RingBuffer.Latest() as a JPEG on demand for
// GET /api/cameras/{id}/snapshot.
func LiveSnapshotHandler(rings map[string]*buffer.RingBuffer, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		ring, ok := rings[id]
		if !ok {
			http.NotFound(w, r)
			return
		}

		frame := ring.Latest()
		if frame == nil {
			http.Error(w, "no frame available yet", http.StatusServiceUnavailable)
			return
		}

		jpegBytes, err := encodeJPEG(frame)
		if err != nil {
			log.Error("snapshot handler[%s]: encode failed: %v", id, err)
			http.Error(w, "encode failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(jpegBytes)
	}
}

func encodeJPEG(frame *model.Frame) ([]byte, error) {
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pixels)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
