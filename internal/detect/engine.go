// Package detect implements the shared object-detection engine: letterbox
// preprocessing, a gocv DNN forward pass, and per-class-suppressed
// postprocessing.
package detect

import (
	"fmt"
	"image"
	"os"
	"sync"

	"sentrycore/internal/logger"
	"sentrycore/internal/model"

	"gocv.io/x/gocv"
)

const inputSize = 640

// Engine is the shared, thread-safe inference runtime. After construction
// its state is effectively read-only except for the net's own internal
// scratch space during Forward, which is why forward passes are serialized
// while preprocessing and postprocessing are not.
type Engine struct {
	log    *logger.Logger
	net    gocv.Net
	loaded bool
	fwdMu  sync.Mutex
}

// NewEngine loads the model at modelPath/configPath. A missing or invalid
// model is not fatal: the engine is returned in the "not loaded" state and
// Detect refuses inference until a working model is supplied.
func NewEngine(modelPath, configPath string, log *logger.Logger) *Engine {
	e := &Engine{log: log}

	if _, err := os.Stat(modelPath); err != nil {
		log.Warning("detection model not found at %s, engine not loaded: %v", modelPath, err)
		return e
	}

	var net gocv.Net
	if configPath != "" {
		net = gocv.ReadNet(modelPath, configPath)
	} else {
		net = gocv.ReadNet(modelPath, "")
	}
	if net.Empty() {
		log.Warning("failed to load detection network from %s", modelPath)
		return e
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		log.Warning("failed to set detection backend: %v", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		log.Warning("failed to set detection target: %v", err)
	}

	e.net = net
	e.loaded = true
	log.Info("detection engine loaded model %s", modelPath)
	return e
}

// Loaded reports whether a usable model backs this engine.
func (e *Engine) Loaded() bool {
	return e.loaded
}

// Detect runs the full preprocess -> forward -> postprocess pipeline over
// one frame. Safe to call concurrently from multiple event tasks; only the
// forward pass itself is serialized.
func (e *Engine) Detect(frame *model.Frame, opts PostprocessOptions) ([]model.Detection, error) {
	if !e.loaded {
		return nil, fmt.Errorf("detect: engine not loaded")
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pixels)
	if err != nil {
		return nil, fmt.Errorf("detect: build mat: %w", err)
	}
	defer mat.Close()

	padded, info := Letterbox(mat, inputSize)
	defer padded.Close()

	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(inputSize, inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.fwdMu.Lock()
	e.net.SetInput(blob, "")
	output := e.net.Forward("")
	e.fwdMu.Unlock()
	defer output.Close()

	candidates := decodeOutput(output)
	return Postprocess(candidates, info, opts), nil
}

// decodeOutput reshapes a [1, 4+K, A] or [4+K, A] output tensor into
// per-anchor candidates. Rank may be 2 or 3; the candidate count is the
// tensor's last dimension.
func decodeOutput(output gocv.Mat) []rawCandidate {
	sizes := output.Size()
	last := sizes[len(sizes)-1]
	channels := sizes[len(sizes)-2]
	numClasses := channels - 4

	flat := output.Reshape(1, channels)

	candidates := make([]rawCandidate, last)
	for a := 0; a < last; a++ {
		c := rawCandidate{
			CX:          flat.GetFloatAt(0, a),
			CY:          flat.GetFloatAt(1, a),
			W:           flat.GetFloatAt(2, a),
			H:           flat.GetFloatAt(3, a),
			ClassScores: make([]float32, numClasses),
		}
		for k := 0; k < numClasses; k++ {
			c.ClassScores[k] = flat.GetFloatAt(4+k, a)
		}
		candidates[a] = c
	}
	return candidates
}
