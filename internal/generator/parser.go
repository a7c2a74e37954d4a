package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcq-practice/backend/internal/models"
)

const (
	minOptions = 2
	maxOptions = 6
)

type DraftBatch struct {
	Questions []Draft  `json:"questions"`
	Warnings  []string `json:"-"`
}

// Draft is one generated question in upload form. CorrectAnswer is 1-based.
type Draft struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Upload converts the draft to a bulk upload item.
func (d Draft) Upload() models.UploadQuestion {
	return models.UploadQuestion{
		Question:      d.Question,
		Options:       d.Options,
		CorrectAnswer: d.CorrectAnswer,
		Explanation:   d.Explanation,
	}
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func ParseResponse(responseBody string) (*DraftBatch, error) {
	cleaned := stripCodeFences(responseBody)

	var batch DraftBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateBatch(&batch); err != nil {
		return nil, err
	}
	batch.Warnings = checkTopicDiversity(batch.Questions)

	return &batch, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func validateBatch(batch *DraftBatch) error {
	if len(batch.Questions) == 0 {
		return &ValidationError{Errors: []string{"no questions in batch"}}
	}

	var errs []string
	for i, q := range batch.Questions {
		n := i + 1

		if strings.TrimSpace(q.Question) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty question text", n))
		}

		if len(q.Options) < minOptions || len(q.Options) > maxOptions {
			errs = append(errs, fmt.Sprintf("question %d: expected %d-%d options, got %d", n, minOptions, maxOptions, len(q.Options)))
			continue
		}

		seen := make(map[string]bool, len(q.Options))
		for j, opt := range q.Options {
			key := strings.ToLower(strings.TrimSpace(opt))
			if key == "" {
				errs = append(errs, fmt.Sprintf("question %d: option %d is empty", n, j+1))
				continue
			}
			if seen[key] {
				errs = append(errs, fmt.Sprintf("question %d: option %d repeats an earlier option", n, j+1))
			}
			seen[key] = true
		}

		if q.CorrectAnswer < 1 || q.CorrectAnswer > len(q.Options) {
			errs = append(errs, fmt.Sprintf("question %d: correctAnswer %d outside 1-%d", n, q.CorrectAnswer, len(q.Options)))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// checkTopicDiversity warns when two questions share more than 60% of
// their keywords.
func checkTopicDiversity(questions []Draft) []string {
	if len(questions) < 2 {
		return nil
	}

	tokenSets := make([]map[string]bool, len(questions))
	for i, q := range questions {
		tokenSets[i] = tokenize(q.Question)
	}

	var warnings []string
	for i := 0; i < len(questions); i++ {
		for j := i + 1; j < len(questions); j++ {
			overlap := jaccardSimilarity(tokenSets[i], tokenSets[j])
			if overlap > 0.60 {
				warnings = append(warnings, fmt.Sprintf("questions %d and %d have %.0f%% keyword overlap", i+1, j+1, overlap*100))
			}
		}
	}
	return warnings
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		if len(word) > 3 {
			tokens[word] = true
		}
	}
	return tokens
}

func jaccardSimilarity(a, b map[string]bool) float64 {
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
