package generator

import (
	"strings"
	"testing"
)

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt()

	required := []string{"4 options", "ONE option is correct", "1-based", "JSON", "LaTeX"}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("system prompt missing keyword %q", keyword)
		}
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := BuildUserPrompt(DraftRequest{
		ClassLevel: "Class 9",
		Subject:    "Mathematics",
		Chapter:    "Polynomials",
		Topic:      "Zeroes of a polynomial",
		Count:      6,
	})

	required := []string{"exactly 6", "Class level: Class 9", "Subject: Mathematics", "Chapter: Polynomials", "Topic: Zeroes of a polynomial", `"correctAnswer"`}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("user prompt missing %q", keyword)
		}
	}
}

func TestBuildUserPrompt_TopicFallsBackToChapter(t *testing.T) {
	prompt := BuildUserPrompt(DraftRequest{Chapter: "Light"})
	if !strings.Contains(prompt, "Topic: Light") {
		t.Error("topic should default to the chapter title")
	}
}

func TestDraftRequest_CountBounds(t *testing.T) {
	tests := []struct {
		count, want int
	}{
		{0, DefaultDraftCount},
		{-3, DefaultDraftCount},
		{7, 7},
		{500, MaxDraftCount},
	}
	for _, tt := range tests {
		if got := (DraftRequest{Count: tt.count}).withDefaults().Count; got != tt.want {
			t.Errorf("count %d -> %d, want %d", tt.count, got, tt.want)
		}
	}
}
