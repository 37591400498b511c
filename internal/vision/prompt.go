package vision

import (
	"strconv"
	"strings"
)

// primaryClassPriority is the fixed priority order the source
// implementation walks when several classes were detected in one event.
var primaryClassPriority = []string{"person", "dog", "cat", "package", "car"}

// SelectPrimaryClass returns the first of the priority classes present in
// classes; failing that, the first element of classes; failing that,
// "object".
func SelectPrimaryClass(classes []string) string {
	present := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		present[c] = struct{}{}
	}
	for _, candidate := range primaryClassPriority {
		if _, ok := present[candidate]; ok {
			return candidate
		}
	}
	if len(classes) > 0 {
		return classes[0]
	}
	return "object"
}

// PromptTemplates maps a camera id (or "default") to its prompt template.
type PromptTemplates map[string]string

// BuildPrompt looks up cameraID in templates, falling back to "default",
// then to fallback, and substitutes {class} and {max_words}.
func BuildPrompt(templates PromptTemplates, cameraID, fallback string, class string, maxWords int) string {
	template, ok := templates[cameraID]
	if !ok {
		template, ok = templates["default"]
	}
	if !ok {
		template = fallback
	}

	prompt := strings.ReplaceAll(template, "{class}", class)
	prompt = strings.ReplaceAll(prompt, "{max_words}", strconv.Itoa(maxWords))
	return prompt
}
