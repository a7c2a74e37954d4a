package quiz

import (
	"fmt"

	"github.com/mcq-practice/backend/internal/models"
)

// Percentage returns round(100*score/total), halves rounded up. An empty
// session scores 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}

// FormatElapsed renders seconds as mm:ss. Minutes are not wrapped at 60.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// IsCorrect bridges the 0-based selection to the 1-based stored answer.
func IsCorrect(selected, correctAnswer int) bool {
	return selected+1 == correctAnswer
}

// Review expands answer records into per-option marks. IsCorrect and
// IsSelected are independent of each other.
func Review(answers []models.AnswerRecord) []models.ReviewItem {
	items := make([]models.ReviewItem, len(answers))
	for i, a := range answers {
		opts := make([]models.ReviewOption, len(a.Options))
		for j, text := range a.Options {
			opts[j] = models.ReviewOption{
				Text:       text,
				IsCorrect:  j == a.CorrectAnswer-1,
				IsSelected: j == a.SelectedOption,
			}
		}
		items[i] = models.ReviewItem{
			QuestionID:  a.QuestionID,
			Question:    a.Question,
			IsCorrect:   a.IsCorrect,
			Options:     opts,
			Explanation: a.Explanation,
		}
	}
	return items
}
