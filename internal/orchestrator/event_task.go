package orchestrator

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"sentrycore/internal/bus"
	"sentrycore/internal/detect"
	"sentrycore/internal/model"
	"sentrycore/internal/recorder"
	"sentrycore/internal/repository"
	"sentrycore/internal/snapshot"
	"sentrycore/internal/vision"
)

// visionOutcome pairs a vision analysis result with the prompt string that
// should be recorded in the ai_context row. For the parallel path this is
// always "" (Open Question b): the child goroutine sends prompt "" and does
// not pass on the res.PromptUsed built inside Analyze.
type visionOutcome struct {
	res    vision.Result
	prompt string
}

// eventTask carries one event's mutable working state through the
// algorithm in §4.7. One eventTask exists per in-flight event.
type eventTask struct {
	o   *Orchestrator
	cam *Camera
	ev  *model.Event

	rec              *recorder.Recorder
	earlySnapshotSaved bool
	earlySnapshotPath  string
	firstDetectionSeen bool
	framesProcessed    int

	visionResult chan visionOutcome
}

// runEventTask is the entry point spawned by onMotionStart. It always
// completes its bookkeeping (remove from active map) even when a stage
// fails.
func (o *Orchestrator) runEventTask(cam *Camera, postRollSeconds int, active *activeEvent) {
	now := time.Now()
	task := &eventTask{
		o:   o,
		cam: cam,
		ev: &model.Event{
			ID:              model.NewEventID(now),
			CameraID:        cam.Config.ID,
			State:           model.StateRecording,
			StartedAt:       now,
			PostRollSeconds: postRollSeconds,
		},
		rec: recorder.New(),
	}
	defer o.removeActive(cam.Config.ID, active)

	task.run(active.stopRequested)
}

func (t *eventTask) run(stopRequested <-chan struct{}) {
	o := t.o

	// Step 1: emit "started".
	o.publishDetectionStatus(t.cam.Config.ID, "started")

	// Step 2 done implicitly: t.cam carries the ring buffer + o.engine is shared.

	// Step 3: pre-roll drain — deep-copy immediately, drop the snapshot.
	preRoll := drainPreRoll(t.cam.Ring)

	// Step 4: determine dimensions.
	width, height, ok := firstFrameDimensions(preRoll, t.cam.Ring)
	if !ok {
		o.log.Warning("orchestrator[%s]: no frames available, aborting event %s", t.cam.Config.ID, t.ev.ID)
		return
	}

	// Step 5: start the recorder.
	fps := o.cfg.FPS
	if fps <= 0 {
		fps = 10
	}
	if err := t.rec.Start(t.cam.Config.ID, preRoll, width, height, fps, o.cfg.RecordingsDir); err != nil {
		o.log.Error("orchestrator[%s]: recorder start failed: %v", t.cam.Config.ID, err)
		return
	}
	t.ev.RecordingPath = t.rec.FilePath()

	frameInterval := time.Second / time.Duration(fps)
	everyN := o.cfg.DetectEveryNth
	if everyN <= 0 {
		everyN = 3
	}

	// Step 6: live phase.
	frameCounter := 0
	for !stopped(stopRequested) && !t.rec.MaxDurationReached() {
		frame := t.cam.Ring.Latest()
		if frame == nil {
			time.Sleep(frameInterval)
			continue
		}
		if frame.Width != width || frame.Height != height {
			time.Sleep(frameInterval)
			continue
		}
		if err := t.rec.Write(frame); err != nil {
			break
		}
		t.framesProcessed++
		frameCounter++

		if frameCounter%everyN == 0 {
			t.sampleDetections(frame)
		}

		time.Sleep(frameInterval)
	}

	// Step 7: post-roll.
	t.rec.RequestStop(t.ev.PostRollSeconds)
	for !t.rec.PostRollComplete() && !t.rec.MaxDurationReached() {
		frame := t.cam.Ring.Latest()
		if frame != nil && frame.Width == width && frame.Height == height {
			if err := t.rec.Write(frame); err == nil {
				t.framesProcessed++
				frameCounter++
				if frameCounter%everyN == 0 {
					t.sampleDetections(frame)
				}
			}
		}
		time.Sleep(frameInterval)
	}

	// Step 8: finalize.
	if err := t.rec.Finalize(); err != nil {
		o.log.Error("orchestrator[%s]: recorder finalize failed: %v", t.cam.Config.ID, err)
	}

	// Step 9: final snapshot if no early snapshot was saved.
	if !t.earlySnapshotSaved && t.ev.BestFrame != nil {
		path, err := snapshot.Write(t.ev.BestFrame, t.ev.Detections, t.cam.Config.ID, o.cfg.SnapshotsDir)
		if err != nil {
			o.log.Error("orchestrator[%s]: final snapshot failed: %v", t.cam.Config.ID, err)
		} else {
			t.ev.SnapshotPath = path
		}
	}

	// Step 10: dedup + counts + message.
	deduped := DeduplicateByClass(t.ev.Detections)
	counts := ClassCounts(t.ev.Detections)
	message := BuildDetectionMessage(deduped)
	duration := time.Since(t.ev.StartedAt).Seconds()

	// Step 11: publish final result + completed status.
	o.publishResult(t.cam.Config.ID, deduped, counts, len(t.ev.Detections), message, t.framesProcessed, duration,
		o.snapshotURL(t.ev.SnapshotPath), o.recordingURL(t.ev.RecordingPath), t.rec.FileName(), bus.PhaseFinal)
	o.publishDetectionStatus(t.cam.Config.ID, "completed")
	o.publishDetectedState(t.cam.Config.ID, bus.DetectedOff)

	// Step 12: persist.
	o.persistEvent(t.ev, deduped, t.framesProcessed, duration)

	// Step 13: vision integration.
	t.joinOrRunVision(deduped)
}

func stopped(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func drainPreRoll(ring interface{ Snapshot() []*model.Frame }) []*model.Frame {
	snap := ring.Snapshot()
	copies := make([]*model.Frame, len(snap))
	for i, f := range snap {
		copies[i] = f.Clone()
	}
	return copies
}

func firstFrameDimensions(preRoll []*model.Frame, ring interface{ Latest() *model.Frame }) (int, int, bool) {
	if len(preRoll) > 0 {
		return preRoll[0].Width, preRoll[0].Height, true
	}
	if f := ring.Latest(); f != nil {
		return f.Width, f.Height, true
	}
	return 0, 0, false
}

func (t *eventTask) sampleDetections(frame *model.Frame) {
	if !t.o.engine.Loaded() {
		return
	}
	opts := detect.PostprocessOptions{
		ConfThreshold: t.cam.Config.ConfidenceThreshold,
		IoUThreshold:  0.45,
		AllowList:     allowListSet(t.cam.Config.EnabledClasses),
	}
	dets, err := t.o.engine.Detect(frame, opts)
	if err != nil {
		t.o.log.Error("orchestrator[%s]: detection failed: %v", t.cam.Config.ID, err)
		return
	}
	t.ev.Detections = append(t.ev.Detections, dets...)

	for _, d := range dets {
		if d.Confidence > t.ev.BestConfidence {
			t.ev.BestConfidence = d.Confidence
			t.ev.BestFrame = frame.Clone()
		}
	}

	if !t.firstDetectionSeen && len(dets) > 0 {
		t.firstDetectionSeen = true
		t.onFirstDetection(frame, dets)
	}
}

// onFirstDetection is the one-shot early-notification latch: emits an
// early result + detected=ON, saves the early snapshot, and optionally
// spawns the parallel vision task.
func (t *eventTask) onFirstDetection(frame *model.Frame, dets []model.Detection) {
	o := t.o

	deduped := DeduplicateByClass(t.ev.Detections)
	counts := ClassCounts(t.ev.Detections)
	message := BuildDetectionMessage(deduped)

	path, err := snapshot.Write(frame, dets, t.cam.Config.ID, o.cfg.SnapshotsDir)
	if err != nil {
		o.log.Error("orchestrator[%s]: early snapshot failed: %v", t.cam.Config.ID, err)
	} else {
		t.earlySnapshotSaved = true
		t.earlySnapshotPath = path
		t.ev.SnapshotPath = path
	}

	o.publishResult(t.cam.Config.ID, deduped, counts, len(t.ev.Detections), message, t.framesProcessed,
		time.Since(t.ev.StartedAt).Seconds(), o.snapshotURL(path), o.recordingURL(t.rec.FilePath()), t.rec.FileName(), bus.PhaseEarly)
	o.publishDetectedState(t.cam.Config.ID, bus.DetectedOn)

	if t.cam.Config.VisionEnabled && t.earlySnapshotSaved && t.ev.BestConfidence >= t.cam.Config.EarlyNotifyGate {
		t.visionResult = make(chan visionOutcome, 1)
		classes := classNames(deduped)
		snapshotPath := t.earlySnapshotPath
		go func() {
			res := o.vision.Analyze(context.Background(), snapshotPath, t.cam.Config.ID, classes)
			t.visionResult <- visionOutcome{res: res, prompt: ""}
		}()
	}
}

func (t *eventTask) joinOrRunVision(deduped []model.Detection) {
	o := t.o

	if t.visionResult != nil {
		select {
		case wrapped := <-t.visionResult:
			if wrapped.res.IsValid {
				o.publishAndPersistVisionContext(t.ev, wrapped.res, wrapped.prompt)
			}
		}
		return
	}

	if !t.cam.Config.VisionEnabled || t.ev.BestConfidence < t.cam.Config.EarlyNotifyGate {
		return
	}
	classes := classNames(deduped)
	snapshotPath := t.ev.SnapshotPath
	if snapshotPath == "" {
		return
	}
	res := o.vision.Analyze(context.Background(), snapshotPath, t.cam.Config.ID, classes)
	if res.IsValid {
		o.publishAndPersistVisionContext(t.ev, res, res.PromptUsed)
	}
}

func classNames(dets []model.Detection) []string {
	names := make([]string, len(dets))
	for i, d := range dets {
		names[i] = d.ClassName
	}
	return names
}

func allowListSet(classes []string) map[string]struct{} {
	if len(classes) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		set[c] = struct{}{}
	}
	return set
}

func (o *Orchestrator) publishDetectionStatus(cameraID, status string) {
	payload, err := json.Marshal(bus.DetectionStatusPayload{
		Status: status, Timestamp: nowISO8601(), CameraID: cameraID,
	})
	if err != nil {
		o.log.Error("orchestrator[%s]: marshal detection status: %v", cameraID, err)
		return
	}
	if err := o.bus.Publish(o.bus.DetectionTopic(cameraID), payload, bus.QoSEventStream, false); err != nil {
		o.log.Error("orchestrator[%s]: publish detection status: %v", cameraID, err)
	}
}

func (o *Orchestrator) publishDetectedState(cameraID, state string) {
	if err := o.bus.PublishString(o.bus.DetectedTopic(cameraID), state, bus.QoSEventStream, false); err != nil {
		o.log.Error("orchestrator[%s]: publish detected state: %v", cameraID, err)
	}
}

// snapshotURL and recordingURL turn a locally stored file path into an
// absolute URL under the configured public base, mirroring the original's
// base_url + "/snapshots/" and base_url + "/events/" construction. An empty
// local path (no snapshot/recording produced) yields an empty URL.
func (o *Orchestrator) snapshotURL(localPath string) string {
	if localPath == "" {
		return ""
	}
	return o.cfg.PublicBaseURL + "/snapshots/" + filepath.Base(localPath)
}

func (o *Orchestrator) recordingURL(localPath string) string {
	if localPath == "" {
		return ""
	}
	return o.cfg.PublicBaseURL + "/events/" + filepath.Base(localPath)
}

func (o *Orchestrator) publishResult(cameraID string, deduped []model.Detection, counts map[string]int, rawDetectionCount int,
	message string, framesProcessed int, durationSeconds float64, snapshotPath, recordingPath, recordingFilename, phase string) {

	summaries := make([]bus.DetectionSummary, len(deduped))
	for i, d := range deduped {
		summaries[i] = bus.DetectionSummary{
			Class: d.ClassName, ClassID: d.ClassID,
			Confidence: roundTo(float64(d.Confidence), 3),
			X1: int(d.X1), Y1: int(d.Y1), X2: int(d.X2), Y2: int(d.Y2),
		}
	}

	payload, err := json.Marshal(bus.ResultPayload{
		CameraID: cameraID, Timestamp: nowISO8601(),
		Detections: summaries, DetectionCount: rawDetectionCount, UniqueClasses: classNames(deduped),
		ClassCounts: counts, DetectionMessage: message, FramesProcessed: framesProcessed,
		ProcessingTimeSeconds: roundTo(durationSeconds, 2),
		SnapshotURL:           snapshotPath, RecordingURL: recordingPath,
		RecordingFilename: recordingFilename, Phase: phase,
	})
	if err != nil {
		o.log.Error("orchestrator[%s]: marshal result: %v", cameraID, err)
		return
	}
	if err := o.bus.Publish(o.bus.ResultTopic(cameraID), payload, bus.QoSEventStream, false); err != nil {
		o.log.Error("orchestrator[%s]: publish result: %v", cameraID, err)
	}
}

func (o *Orchestrator) persistEvent(ev *model.Event, deduped []model.Detection, framesProcessed int, durationSeconds float64) {
	if err := o.store.CreateEvent(ev.ID, ev.CameraID, ev.RecordingPath, ev.SnapshotPath, ev.StartedAt); err != nil {
		o.log.Error("orchestrator[%s]: create_event failed: %v", ev.CameraID, err)
	}

	records := make([]repository.DetectionRecord, len(deduped))
	for i, d := range deduped {
		records[i] = repository.DetectionRecord{
			ClassName: d.ClassName, Confidence: d.Confidence,
			X1: int(d.X1), Y1: int(d.Y1), X2: int(d.X2), Y2: int(d.Y2),
		}
	}
	if err := o.store.LogDetections(ev.ID, records); err != nil {
		o.log.Error("orchestrator[%s]: log_detections failed: %v", ev.CameraID, err)
	}

	if err := o.store.CompleteEvent(ev.ID, durationSeconds, framesProcessed, len(deduped)); err != nil {
		o.log.Error("orchestrator[%s]: complete_event failed: %v", ev.CameraID, err)
	}
}

func (o *Orchestrator) publishAndPersistVisionContext(ev *model.Event, res vision.Result, promptUsed string) {
	payload, err := json.Marshal(bus.ContextPayload{
		CameraID: ev.CameraID, Timestamp: nowISO8601(), Context: res.Context,
		RecordingURL: o.recordingURL(ev.RecordingPath), RecordingFilename: filepath.Base(ev.RecordingPath),
		SnapshotURL: o.snapshotURL(ev.SnapshotPath), Source: bus.VisionSourceLLaVA,
	})
	if err != nil {
		o.log.Error("orchestrator[%s]: marshal context: %v", ev.CameraID, err)
	} else if err := o.bus.Publish(o.bus.ContextTopic(ev.CameraID), payload, bus.QoSEventStream, false); err != nil {
		o.log.Error("orchestrator[%s]: publish context: %v", ev.CameraID, err)
	}

	classes := make([]string, 0, len(ev.Detections))
	seen := map[string]struct{}{}
	for _, d := range ev.Detections {
		if _, ok := seen[d.ClassName]; !ok {
			seen[d.ClassName] = struct{}{}
			classes = append(classes, d.ClassName)
		}
	}

	record := repository.AIVisionRecord{
		ContextText: res.Context, DetectedClasses: classes,
		SourceModel: o.cfg.VisionModel, PromptUsed: promptUsed,
		ResponseTimeSeconds: res.ResponseTimeSeconds, IsValid: res.IsValid,
	}
	if err := o.store.LogAIContext(ev.ID, ev.CameraID, record); err != nil {
		o.log.Error("orchestrator[%s]: log_ai_context failed: %v", ev.CameraID, err)
	}
}

func roundTo(v float64, decimals int) float64 {
	mult := 1.0
	for i := 0; i < decimals; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}
