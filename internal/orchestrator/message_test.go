package orchestrator

import (
	"testing"

	"sentrycore/internal/model"
)

func TestDeduplicateByClassKeepsHighestConfidence(t *testing.T) {
	dets := []model.Detection{
		{ClassName: "person", Confidence: 0.5},
		{ClassName: "person", Confidence: 0.9},
		{ClassName: "car", Confidence: 0.7},
	}
	deduped := DeduplicateByClass(dets)
	if len(deduped) != 2 {
		t.Fatalf("len = %d, want 2", len(deduped))
	}
	for _, d := range deduped {
		if d.ClassName == "person" && d.Confidence != 0.9 {
			t.Fatalf("person confidence = %v, want 0.9", d.Confidence)
		}
	}
}

func TestBuildDetectionMessageArticles(t *testing.T) {
	dets := []model.Detection{{ClassName: "elephant"}, {ClassName: "dog"}}
	got := BuildDetectionMessage(dets)
	want := "Detected an elephant and a dog"
	if got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}

func TestBuildDetectionMessageSingle(t *testing.T) {
	got := BuildDetectionMessage([]model.Detection{{ClassName: "cat"}})
	if got != "Detected a cat" {
		t.Fatalf("message = %q, want %q", got, "Detected a cat")
	}
}

func TestBuildDetectionMessageCapsAtFive(t *testing.T) {
	dets := []model.Detection{
		{ClassName: "person"}, {ClassName: "dog"}, {ClassName: "cat"},
		{ClassName: "car"}, {ClassName: "bicycle"}, {ClassName: "bird"},
	}
	got := BuildDetectionMessage(dets)
	if got == "" {
		t.Fatal("expected non-empty message")
	}
	// exactly 5 classes joined, the 6th (bird) never mentioned
	if want := "bird"; contains(got, want) {
		t.Fatalf("message %q should not mention the 6th class", got)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
