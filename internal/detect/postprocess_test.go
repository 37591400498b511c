package detect

import (
	"testing"

	"sentrycore/internal/model"
)

func identityInfo() LetterboxInfo {
	return LetterboxInfo{Scale: 1, PadX: 0, PadY: 0, OrigW: 1000, OrigH: 1000, Target: 640}
}

func TestIoUProperties(t *testing.T) {
	a := model.Detection{X1: 0, Y1: 0, X2: 100, Y2: 100}
	if got := IoU(a, a); got != 1.0 {
		t.Fatalf("iou(a,a) = %v, want 1.0", got)
	}

	disjoint := model.Detection{X1: 200, Y1: 200, X2: 300, Y2: 300}
	if got := IoU(a, disjoint); got != 0 {
		t.Fatalf("iou(disjoint) = %v, want 0", got)
	}

	b := model.Detection{X1: 50, Y1: 50, X2: 150, Y2: 150}
	iAB := IoU(a, b)
	iBA := IoU(b, a)
	if iAB != iBA {
		t.Fatalf("iou not symmetric: %v vs %v", iAB, iBA)
	}
	if iAB < 0 || iAB > 1 {
		t.Fatalf("iou out of range: %v", iAB)
	}
}

func TestSuppressionSameClassCollapses(t *testing.T) {
	dets := []model.Detection{
		{ClassID: 0, Confidence: 0.7, X1: 0, Y1: 0, X2: 100, Y2: 100},
		{ClassID: 0, Confidence: 0.95, X1: 0, Y1: 0, X2: 100, Y2: 100},
	}
	kept := nmsPerClass(dets, 0.5)
	if len(kept) != 1 {
		t.Fatalf("kept = %d, want 1", len(kept))
	}
	if kept[0].Confidence != 0.95 {
		t.Fatalf("kept confidence = %v, want 0.95 (highest)", kept[0].Confidence)
	}
}

func TestSuppressionAcrossClassesBothSurvive(t *testing.T) {
	candidates := []rawCandidate{
		{CX: 50, CY: 50, W: 100, H: 100, ClassScores: scoreFor(0, 0.90, 80)},
		{CX: 50, CY: 50, W: 100, H: 100, ClassScores: scoreFor(1, 0.85, 80)},
	}
	kept := Postprocess(candidates, identityInfo(), PostprocessOptions{ConfThreshold: 0.5, IoUThreshold: 0.5})
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2 (different classes never suppress)", len(kept))
	}
}

func TestSuppressionNonOverlappingAllSurvive(t *testing.T) {
	dets := []model.Detection{
		{ClassID: 0, Confidence: 0.7, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassID: 0, Confidence: 0.6, X1: 500, Y1: 500, X2: 510, Y2: 510},
	}
	kept := nmsPerClass(dets, 0.5)
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
}

func TestPostprocessAllowListExcludesAboveThreshold(t *testing.T) {
	// class 2 = "car" scores highest but is not allow-listed.
	scores := make([]float32, 80)
	scores[2] = 0.99
	candidates := []rawCandidate{{CX: 50, CY: 50, W: 20, H: 20, ClassScores: scores}}

	opts := PostprocessOptions{
		ConfThreshold: 0.5,
		IoUThreshold:  0.5,
		AllowList:     map[string]struct{}{"person": {}},
	}
	kept := Postprocess(candidates, identityInfo(), opts)
	if len(kept) != 0 {
		t.Fatalf("kept = %d, want 0 (car excluded by allow-list)", len(kept))
	}
}

func TestPostprocessDiscardsBelowConfidence(t *testing.T) {
	scores := make([]float32, 80)
	scores[0] = 0.2
	candidates := []rawCandidate{{CX: 50, CY: 50, W: 20, H: 20, ClassScores: scores}}
	kept := Postprocess(candidates, identityInfo(), PostprocessOptions{ConfThreshold: 0.5, IoUThreshold: 0.5})
	if len(kept) != 0 {
		t.Fatalf("kept = %d, want 0", len(kept))
	}
}

func TestPostprocessSortedByConfidenceDescending(t *testing.T) {
	low := make([]float32, 80)
	low[0] = 0.6
	high := make([]float32, 80)
	high[1] = 0.9

	candidates := []rawCandidate{
		{CX: 50, CY: 50, W: 20, H: 20, ClassScores: low},
		{CX: 200, CY: 200, W: 20, H: 20, ClassScores: high},
	}
	kept := Postprocess(candidates, identityInfo(), PostprocessOptions{ConfThreshold: 0.5, IoUThreshold: 0.5})
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
	if kept[0].Confidence < kept[1].Confidence {
		t.Fatalf("not sorted descending: %v before %v", kept[0].Confidence, kept[1].Confidence)
	}
}

func TestClassTable(t *testing.T) {
	if len(model.COCOClasses) != 80 {
		t.Fatalf("class table size = %d, want 80", len(model.COCOClasses))
	}
	if model.COCOClasses[0] != "person" {
		t.Fatalf("class 0 = %q, want person", model.COCOClasses[0])
	}
	if model.COCOClasses[2] != "car" {
		t.Fatalf("class 2 = %q, want car", model.COCOClasses[2])
	}
	if model.COCOClasses[79] != "toothbrush" {
		t.Fatalf("class 79 = %q, want toothbrush", model.COCOClasses[79])
	}
}

func scoreFor(classID int, score float32, numClasses int) []float32 {
	s := make([]float32, numClasses)
	s[classID] = score
	return s
}
