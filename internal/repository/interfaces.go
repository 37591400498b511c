// Package repository defines the persistent-store contract the event
// orchestrator depends on: create/complete an event row, bulk-insert its
// detections, and log a vision-language context row.
package repository

import "time"

// DetectionRecord is one persisted detection row, keyed to an event.
type DetectionRecord struct {
	ClassName  string
	Confidence float32
	X1, Y1     int
	X2, Y2     int
}

// AIVisionRecord is one persisted vision-language context row.
type AIVisionRecord struct {
	ContextText          string
	DetectedClasses      []string
	SourceModel          string
	PromptUsed           string
	ResponseTimeSeconds  float64
	IsValid              bool
}

// EventStore is the four insert/update operations named in the external
// interfaces contract. All calls are bounded by a 10s acquire timeout
// (enforced via context by the implementation) and must never propagate
// into the orchestrator's event loop — callers wrap every call and log on
// failure instead of returning it up the stack.
type EventStore interface {
	CreateEvent(eventID, cameraID, recordingFilename, snapshotFilename string, startedAt time.Time) error
	LogDetections(eventID string, detections []DetectionRecord) error
	CompleteEvent(eventID string, durationSeconds float64, framesProcessed, detectionsCount int) error
	LogAIContext(eventID, cameraID string, record AIVisionRecord) error
	Close() error
}
