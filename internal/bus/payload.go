package bus

// MotionStartPayload is the subscribed payload on camera/event/motion/start.
type MotionStartPayload struct {
	CameraID        string `json:"camera_id"`
	PostRollSeconds *int   `json:"post_roll_seconds,omitempty"`
}

// MotionStopPayload is the subscribed payload on camera/event/motion/stop.
type MotionStopPayload struct {
	CameraID string `json:"camera_id"`
}

// DetectionStatusPayload is published on {prefix}/{camera_id}/detection.
type DetectionStatusPayload struct {
	Status    string `json:"status"` // "started" | "completed"
	Timestamp string `json:"timestamp"`
	CameraID  string `json:"camera_id"`
}

// DetectionSummary is one deduplicated, per-class detection in a result
// payload.
type DetectionSummary struct {
	Class      string  `json:"class"`
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
}

// ResultPayload is published on {prefix}/{camera_id}/result.
type ResultPayload struct {
	CameraID              string             `json:"camera_id"`
	Timestamp             string             `json:"timestamp"`
	Detections            []DetectionSummary `json:"detections"`
	DetectionCount        int                `json:"detection_count"` // raw, non-deduplicated total
	UniqueClasses         []string           `json:"unique_classes"`  // distinct class names seen
	ClassCounts           map[string]int     `json:"class_counts"`
	DetectionMessage      string             `json:"detection_message"`
	FramesProcessed       int                `json:"frames_processed"`
	ProcessingTimeSeconds float64            `json:"processing_time_seconds"`
	SnapshotURL           string             `json:"snapshot_url"`
	RecordingURL          string             `json:"recording_url"`
	RecordingFilename     string             `json:"recording_filename"`
	Phase                 string             `json:"phase"` // "early" | "final"
}

// ContextPayload is published on {prefix}/{camera_id}/context.
type ContextPayload struct {
	CameraID          string `json:"camera_id"`
	Timestamp         string `json:"timestamp"`
	Context           string `json:"context"`
	RecordingURL      string `json:"recording_url"`
	RecordingFilename string `json:"recording_filename"`
	SnapshotURL       string `json:"snapshot_url"`
	Source            string `json:"source"`
}

const (
	// TopicMotionStart is the fixed subscription topic for motion-start
	// triggers, not prefixed by the configured per-instance status prefix.
	TopicMotionStart = "camera/event/motion/start"
	// TopicMotionStop is the fixed subscription topic for motion-stop
	// triggers.
	TopicMotionStop = "camera/event/motion/stop"

	// DetectedOn / DetectedOff are the binary-state payloads published on
	// {prefix}/{camera_id}/detected.
	DetectedOn  = "ON"
	DetectedOff = "OFF"

	// StatusOnline / StatusOffline are the retained payloads on
	// {prefix}/status.
	StatusOnline  = "online"
	StatusOffline = "offline"

	// VisionSourceLLaVA is the fixed "source" field value for context
	// payloads, matching the source implementation's model choice.
	VisionSourceLLaVA = "llava"

	PhaseEarly = "early"
	PhaseFinal = "final"
)
