package detect

import (
	"sort"

	"sentrycore/internal/model"
)

// rawCandidate is one anchor's decoded output before class-confidence
// filtering: centre-size box in the padded target square's coordinate
// space, plus per-class scores.
type rawCandidate struct {
	CX, CY, W, H float32
	ClassScores  []float32
}

// PostprocessOptions bounds what Postprocess keeps.
type PostprocessOptions struct {
	ConfThreshold float32
	IoUThreshold  float32
	AllowList     map[string]struct{} // empty/nil = accept all
}

// Postprocess turns raw model candidates into clipped, per-class-suppressed
// Detections in the original frame's coordinate space, sorted by confidence
// descending. See §4.4.
func Postprocess(candidates []rawCandidate, info LetterboxInfo, opts PostprocessOptions) []model.Detection {
	byClass := make(map[int][]model.Detection)

	for _, c := range candidates {
		classID, score := argmax(c.ClassScores)
		if score < opts.ConfThreshold {
			continue
		}
		name := className(classID)
		if len(opts.AllowList) > 0 {
			if _, ok := opts.AllowList[name]; !ok {
				continue
			}
		}

		x1 := c.CX - c.W/2
		y1 := c.CY - c.H/2
		x2 := c.CX + c.W/2
		y2 := c.CY + c.H/2
		rx1, ry1, rx2, ry2 := ReverseLetterbox(x1, y1, x2, y2, info)
		if rx2-rx1 < 1 || ry2-ry1 < 1 {
			continue
		}

		byClass[classID] = append(byClass[classID], model.Detection{
			ClassID:    classID,
			ClassName:  name,
			Confidence: score,
			X1:         rx1, Y1: ry1, X2: rx2, Y2: ry2,
		})
	}

	var kept []model.Detection
	for _, dets := range byClass {
		kept = append(kept, nmsPerClass(dets, opts.IoUThreshold)...)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Confidence > kept[j].Confidence })
	return kept
}

func argmax(scores []float32) (int, float32) {
	best := 0
	bestScore := float32(-1)
	for i, s := range scores {
		if s > bestScore {
			bestScore = s
			best = i
		}
	}
	return best, bestScore
}

func className(classID int) string {
	if classID < 0 || classID >= len(model.COCOClasses) {
		return ""
	}
	return model.COCOClasses[classID]
}

// nmsPerClass greedily keeps the highest-confidence box and discards later
// boxes of the SAME class whose IoU exceeds threshold. Boxes are assumed to
// already be of one class; callers partition by class before calling this.
func nmsPerClass(dets []model.Detection, iouThreshold float32) []model.Detection {
	sort.Slice(dets, func(i, j int) bool { return dets[i].Confidence > dets[j].Confidence })

	kept := make([]model.Detection, 0, len(dets))
	suppressed := make([]bool, len(dets))
	for i := range dets {
		if suppressed[i] {
			continue
		}
		kept = append(kept, dets[i])
		for j := i + 1; j < len(dets); j++ {
			if suppressed[j] {
				continue
			}
			if IoU(dets[i], dets[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// IoU computes axis-aligned intersection-over-union; 0 on non-overlap or a
// degenerate union.
func IoU(a, b model.Detection) float32 {
	ix1 := maxF(a.X1, b.X1)
	iy1 := maxF(a.Y1, b.Y1)
	ix2 := minF(a.X2, b.X2)
	iy2 := minF(a.Y2, b.Y2)

	iw := maxF(0, ix2-ix1)
	ih := maxF(0, iy2-iy1)
	intersection := iw * ih

	areaA := maxF(0, a.X2-a.X1) * maxF(0, a.Y2-a.Y1)
	areaB := maxF(0, b.X2-b.X1) * maxF(0, b.Y2-b.Y1)
	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
