// Package orchestrator implements the event state machine that ties a
// motion trigger to pre-roll drain, recording, detection sampling, early
// and final notification, snapshot writing, vision-language context, and
// publish/persist — the hardest and largest component of the core.
package orchestrator

import (
	"encoding/json"
	"sync"
	"time"

	"sentrycore/internal/bus"
	"sentrycore/internal/buffer"
	"sentrycore/internal/detect"
	"sentrycore/internal/logger"
	"sentrycore/internal/model"
	"sentrycore/internal/repository"
	"sentrycore/internal/vision"
)

const defaultPostRollSeconds = 5

// Camera bundles one camera's runtime collaborators and static config for
// the orchestrator's use.
type Camera struct {
	Config model.CameraConfig
	Pool   *buffer.FramePool
	Ring   *buffer.RingBuffer
}

// Config configures the orchestrator's shared collaborators and tunables.
type Config struct {
	RecordingsDir  string
	SnapshotsDir   string
	FPS            int
	DetectEveryNth int // sample cadence during the live phase, N=3 per §4.7 step 6
	VisionModel    string

	// PublicBaseURL is prefixed onto recording/snapshot filenames to form
	// the absolute URLs published in result/context payloads.
	PublicBaseURL string
}

// activeEvent is the orchestrator's per-camera "Running" handle.
type activeEvent struct {
	stopRequested chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
}

// Orchestrator is the state machine driven by motion triggers.
type Orchestrator struct {
	cfg      Config
	bus      *bus.Bus
	store    repository.EventStore
	engine   *detect.Engine
	vision   *vision.Client
	log      *logger.Logger

	camerasMu sync.RWMutex
	cameras   map[string]*Camera

	eventsMu sync.Mutex
	active   map[string]*activeEvent // camera id -> running event

	orphansMu sync.Mutex
	orphans   []chan struct{}
}

// New builds an Orchestrator over the given shared collaborators.
func New(cfg Config, b *bus.Bus, store repository.EventStore, engine *detect.Engine, vc *vision.Client, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		bus:     b,
		store:   store,
		engine:  engine,
		vision:  vc,
		log:     log,
		cameras: make(map[string]*Camera),
		active:  make(map[string]*activeEvent),
	}
}

// RegisterCamera makes a camera known to the orchestrator. Must be called
// before Start for every configured camera.
func (o *Orchestrator) RegisterCamera(cam *Camera) {
	o.camerasMu.Lock()
	defer o.camerasMu.Unlock()
	o.cameras[cam.Config.ID] = cam
}

func (o *Orchestrator) camera(id string) (*Camera, bool) {
	o.camerasMu.RLock()
	defer o.camerasMu.RUnlock()
	c, ok := o.cameras[id]
	return c, ok
}

// Start subscribes to the motion trigger topics.
func (o *Orchestrator) Start() error {
	if err := o.bus.Subscribe(bus.TopicMotionStart, bus.QoSEventStream, o.onMotionStart); err != nil {
		return err
	}
	return o.bus.Subscribe(bus.TopicMotionStop, bus.QoSEventStream, o.onMotionStop)
}

// Stop signals every active event to abort and waits (bounded by each
// external call's own timeout) for them to finish.
func (o *Orchestrator) Stop() {
	o.eventsMu.Lock()
	for _, ev := range o.active {
		ev.stopOnce.Do(func() { close(ev.stopRequested) })
	}
	dones := make([]chan struct{}, 0, len(o.active))
	for _, ev := range o.active {
		dones = append(dones, ev.done)
	}
	o.eventsMu.Unlock()

	for _, d := range dones {
		<-d
	}
}

// ActiveEventCount reports the number of in-flight events, for
// observability.
func (o *Orchestrator) ActiveEventCount() int {
	o.eventsMu.Lock()
	defer o.eventsMu.Unlock()
	return len(o.active)
}

func (o *Orchestrator) onMotionStart(_ string, payload []byte) {
	var msg bus.MotionStartPayload
	if err := json.Unmarshal(payload, &msg); err != nil || msg.CameraID == "" {
		o.log.Warning("orchestrator: malformed motion-start payload: %v", err)
		return
	}

	cam, ok := o.camera(msg.CameraID)
	if !ok {
		o.log.Warning("orchestrator: unknown camera id %q on motion-start", msg.CameraID)
		return
	}

	postRoll := defaultPostRollSeconds
	if msg.PostRollSeconds != nil {
		postRoll = *msg.PostRollSeconds
	}

	ev, claimed := o.tryClaim(cam.Config.ID)
	if !claimed {
		o.log.Info("orchestrator: ignoring concurrent motion-start for camera %q, already recording", cam.Config.ID)
		return
	}

	go o.runEventTask(cam, postRoll, ev)
}

// tryClaim is the "ignore concurrent start" decision from the state table
// in §4.7, isolated from goroutine spawning so it is directly testable: a
// camera already in Recording/PostRoll (i.e. present in the active map)
// yields claimed=false and no new activeEvent is registered.
func (o *Orchestrator) tryClaim(cameraID string) (*activeEvent, bool) {
	o.eventsMu.Lock()
	defer o.eventsMu.Unlock()
	if _, running := o.active[cameraID]; running {
		return nil, false
	}
	ev := &activeEvent{stopRequested: make(chan struct{}), done: make(chan struct{})}
	o.active[cameraID] = ev
	return ev, true
}

func (o *Orchestrator) onMotionStop(_ string, payload []byte) {
	var msg bus.MotionStopPayload
	if err := json.Unmarshal(payload, &msg); err != nil || msg.CameraID == "" {
		o.log.Warning("orchestrator: malformed motion-stop payload: %v", err)
		return
	}

	o.eventsMu.Lock()
	ev, running := o.active[msg.CameraID]
	o.eventsMu.Unlock()
	if !running {
		return
	}
	ev.stopOnce.Do(func() { close(ev.stopRequested) })
}

func (o *Orchestrator) removeActive(cameraID string, ev *activeEvent) {
	o.eventsMu.Lock()
	if cur, ok := o.active[cameraID]; ok && cur == ev {
		delete(o.active, cameraID)
	}
	o.eventsMu.Unlock()
	close(ev.done)
}

func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}
