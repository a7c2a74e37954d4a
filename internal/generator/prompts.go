package generator

import (
	"fmt"
	"strings"
)

const (
	DefaultDraftCount = 5
	MaxDraftCount     = 20
)

// DraftRequest names the content the drafts are written for. Titles, not
// ids: the model only ever sees human-readable names.
type DraftRequest struct {
	ClassLevel string
	Subject    string
	Chapter    string
	Topic      string
	Count      int
}

func (r DraftRequest) withDefaults() DraftRequest {
	if r.Count <= 0 {
		r.Count = DefaultDraftCount
	}
	if r.Count > MaxDraftCount {
		r.Count = MaxDraftCount
	}
	return r
}

// DraftResult is a parsed batch plus scoring and token usage.
type DraftResult struct {
	Drafts       []Draft
	Scores       []float64
	Model        string
	PromptTokens int
	OutputTokens int
	Warnings     []string
}

func SystemPrompt() string {
	return `You are an experienced school teacher who writes multiple-choice practice questions for students.

QUESTION TEXT:
- One clear question per item, answerable from the chapter material alone
- Match the vocabulary and difficulty to the class level given in the user prompt
- Mathematical notation uses LaTeX between $ delimiters, e.g. $x^{2} + 1$
- Never reference the answer options by letter inside the question

OPTIONS:
- Exactly 4 options per question
- Exactly ONE option is correct
- Wrong options must be plausible mistakes a student at this level would make
- Options must be distinct from one another
- Keep options short: a word, a number, or one sentence

CORRECT ANSWER:
- "correctAnswer" is the 1-based position of the correct option (1 = first option)
- Spread the correct position across 1-4 over the batch

EXPLANATION:
- 1-3 sentences explaining why the correct option is right
- Mention the most tempting wrong option and why it fails

You must respond with valid JSON only. No markdown, no explanation outside the JSON.`
}

func BuildUserPrompt(req DraftRequest) string {
	req = req.withDefaults()

	topic := req.Topic
	if topic == "" {
		topic = req.Chapter
	}

	var scope strings.Builder
	fmt.Fprintf(&scope, "Class level: %s\n", req.ClassLevel)
	fmt.Fprintf(&scope, "Subject: %s\n", req.Subject)
	fmt.Fprintf(&scope, "Chapter: %s\n", req.Chapter)
	fmt.Fprintf(&scope, "Topic: %s\n", topic)

	return fmt.Sprintf(`Write exactly %d multiple-choice questions.

%s
Respond with this exact JSON structure:
{
  "questions": [
    {
      "question": "...",
      "options": ["...", "...", "...", "..."],
      "correctAnswer": 2,
      "explanation": "..."
    }
  ]
}

Requirements:
- Each question must test a DIFFERENT idea from the topic
- Vary the position of the correct option across the batch
- Do not repeat an option within a question`, req.Count, scope.String())
}
