package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"sentrycore/internal/model"

	"github.com/samber/lo"
)

var vowelInitial = map[byte]struct{}{'a': {}, 'e': {}, 'i': {}, 'o': {}, 'u': {}}

const maxMessageClasses = 5

// DeduplicateByClass keeps the highest-confidence Detection per class name,
// per §4.7 step 10.
func DeduplicateByClass(detections []model.Detection) []model.Detection {
	byClass := lo.GroupBy(detections, func(d model.Detection) string { return d.ClassName })
	best := lo.MapValues(byClass, func(group []model.Detection, _ string) model.Detection {
		return lo.MaxBy(group, func(a, b model.Detection) bool { return a.Confidence > b.Confidence })
	})

	result := lo.Values(best)
	sort.Slice(result, func(i, j int) bool { return result[i].Confidence > result[j].Confidence })
	return result
}

// ClassCounts builds a per-class occurrence count across the raw
// (non-deduplicated) detection list.
func ClassCounts(detections []model.Detection) map[string]int {
	byClass := lo.GroupBy(detections, func(d model.Detection) string { return d.ClassName })
	return lo.MapValues(byClass, func(group []model.Detection, _ string) int { return len(group) })
}

// BuildDetectionMessage renders "Detected a X, a Y and a Z" (up to
// maxMessageClasses classes), choosing "an" for vowel-initial class names.
func BuildDetectionMessage(deduped []model.Detection) string {
	if len(deduped) == 0 {
		return "No objects detected"
	}

	names := lo.Map(deduped, func(d model.Detection, _ int) string { return d.ClassName })
	if len(names) > maxMessageClasses {
		names = names[:maxMessageClasses]
	}

	phrases := lo.Map(names, func(name string, _ int) string { return article(name) + " " + name })

	switch len(phrases) {
	case 1:
		return "Detected " + phrases[0]
	default:
		head := strings.Join(phrases[:len(phrases)-1], ", ")
		return fmt.Sprintf("Detected %s and %s", head, phrases[len(phrases)-1])
	}
}

func article(className string) string {
	if len(className) == 0 {
		return "a"
	}
	if _, ok := vowelInitial[strings.ToLower(className)[0]]; ok {
		return "an"
	}
	return "a"
}
