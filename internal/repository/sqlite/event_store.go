package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sentrycore/internal/repository"
)

// acquireTimeout is the 10s DB-acquire budget, applied as the context
// deadline of each database operation. The deadline starts before the
// write lock is taken, but waiting on that lock is not itself interrupted.
const acquireTimeout = 10 * time.Second

// EventStore implements repository.EventStore for SQLite.
type EventStore struct {
	db *DB
}

// NewEventStore creates a SQLite-backed EventStore.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// CreateEvent inserts a row with state "recording".
func (s *EventStore) CreateEvent(eventID, cameraID, recordingFilename, snapshotFilename string, startedAt time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	s.db.Lock()
	defer s.db.Unlock()

	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO events (event_id, camera_id, state, recording_filename, snapshot_filename, started_at)
		VALUES (?, ?, 'recording', ?, ?, ?)
	`, eventID, cameraID, recordingFilename, snapshotFilename, startedAt)
	if err != nil {
		return fmt.Errorf("create_event: %w", err)
	}
	return nil
}

// LogDetections bulk-inserts one row per deduplicated detection.
func (s *EventStore) LogDetections(eventID string, detections []repository.DetectionRecord) error {
	if len(detections) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	s.db.Lock()
	defer s.db.Unlock()

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("log_detections: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO event_detections (event_id, class_name, confidence, x1, y1, x2, y2)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("log_detections: prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range detections {
		if _, err := stmt.ExecContext(ctx, eventID, d.ClassName, d.Confidence, d.X1, d.Y1, d.X2, d.Y2); err != nil {
			return fmt.Errorf("log_detections: insert: %w", err)
		}
	}
	return tx.Commit()
}

// CompleteEvent updates the row with final stats and sets ended_at/state.
func (s *EventStore) CompleteEvent(eventID string, durationSeconds float64, framesProcessed, detectionsCount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	s.db.Lock()
	defer s.db.Unlock()

	_, err := s.db.Conn().ExecContext(ctx, `
		UPDATE events
		SET state = 'completed', ended_at = ?, duration_seconds = ?, frames_processed = ?, detections_count = ?
		WHERE event_id = ?
	`, time.Now(), durationSeconds, framesProcessed, detectionsCount, eventID)
	if err != nil {
		return fmt.Errorf("complete_event: %w", err)
	}
	return nil
}

// LogAIContext inserts one vision-language context row. detected_classes is
// stored as a JSON array.
func (s *EventStore) LogAIContext(eventID, cameraID string, record repository.AIVisionRecord) error {
	classesJSON, err := json.Marshal(record.DetectedClasses)
	if err != nil {
		return fmt.Errorf("log_ai_context: marshal classes: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()

	s.db.Lock()
	defer s.db.Unlock()

	_, err = s.db.Conn().ExecContext(ctx, `
		INSERT INTO ai_context (event_id, camera_id, context_text, detected_classes, source_model, prompt_used, response_time_seconds, is_valid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, eventID, cameraID, record.ContextText, string(classesJSON), record.SourceModel, record.PromptUsed, record.ResponseTimeSeconds, record.IsValid)
	if err != nil {
		return fmt.Errorf("log_ai_context: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}
