package vision

import "testing"

func TestBuildPromptScenario(t *testing.T) {
	templates := PromptTemplates{
		"patio": "Look at the {class} on the patio in {max_words} words.",
	}
	got := BuildPrompt(templates, "patio", "describe the {class}", "person", 15)
	want := "Look at the person on the patio in 15 words."
	if got != want {
		t.Fatalf("BuildPrompt = %q, want %q", got, want)
	}
}

func TestBuildPromptFallsBackToDefaultThenFallback(t *testing.T) {
	templates := PromptTemplates{"default": "Default: {class}."}
	if got := BuildPrompt(templates, "unknown-camera", "fallback: {class}.", "dog", 10); got != "Default: dog." {
		t.Fatalf("BuildPrompt = %q, want default template applied", got)
	}

	empty := PromptTemplates{}
	if got := BuildPrompt(empty, "unknown-camera", "fallback: {class}.", "dog", 10); got != "fallback: dog." {
		t.Fatalf("BuildPrompt = %q, want fallback template applied", got)
	}
}

func TestSelectPrimaryClassPriority(t *testing.T) {
	cases := []struct {
		classes []string
		want    string
	}{
		{[]string{"car", "person"}, "person"},
		{[]string{"cat", "dog"}, "dog"},
		{[]string{"car", "package"}, "package"},
		{[]string{"bicycle"}, "bicycle"},
		{nil, "object"},
	}
	for _, c := range cases {
		if got := SelectPrimaryClass(c.classes); got != c.want {
			t.Errorf("SelectPrimaryClass(%v) = %q, want %q", c.classes, got, c.want)
		}
	}
}
