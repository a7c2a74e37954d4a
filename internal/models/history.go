package models

import "fmt"

// ── Per-user Records ─────────────────────────────────────

// Attempt is the latest answer outcome of one user for one question.
// Each new attempt replaces the previous one.
type Attempt struct {
	ID         string `bson:"_id,omitempty" json:"-"`
	UserID     string `bson:"userId" json:"user_id"`
	QuestionID string `bson:"questionId" json:"question_id"`
	ChapterID  string `bson:"chapterId" json:"chapter_id"`
	SubjectID  string `bson:"subjectId" json:"subject_id"`
	IsCorrect  bool   `bson:"isCorrect" json:"is_correct"`
	Timestamp  int64  `bson:"timestamp" json:"timestamp"`
}

// Bookmark flags a question for revision. Its presence is the signal.
type Bookmark struct {
	ID         string `bson:"_id,omitempty" json:"-"`
	UserID     string `bson:"userId" json:"user_id"`
	QuestionID string `bson:"questionId" json:"question_id"`
	ChapterID  string `bson:"chapterId" json:"chapter_id"`
	SubjectID  string `bson:"subjectId" json:"subject_id"`
	Timestamp  int64  `bson:"timestamp" json:"timestamp"`
}

// RecordKey is the document id of a per-user, per-question record.
func RecordKey(userID, questionID string) string {
	return fmt.Sprintf("%s:%s", userID, questionID)
}

// ── Response Types ────────────────────────────────────────

type BookmarkListResponse struct {
	Bookmarks []Bookmark `json:"bookmarks"`
	Total     int        `json:"total"`
}

type ProgressStat struct {
	TotalQuestions int `json:"total_questions"`
	Attempted      int `json:"attempted"`
	Correct        int `json:"correct"`
	Incorrect      int `json:"incorrect"`
	Coverage       int `json:"coverage"`
}

// Add counts one attempt.
func (p *ProgressStat) Add(correct bool) {
	p.Attempted++
	if correct {
		p.Correct++
	} else {
		p.Incorrect++
	}
}

type ChapterProgress struct {
	ChapterID string `json:"chapter_id"`
	Title     string `json:"title"`
	ProgressStat
}

type SubjectProgress struct {
	SubjectID string            `json:"subject_id"`
	Title     string            `json:"title"`
	Chapters  []ChapterProgress `json:"chapters"`
	ProgressStat
}

type ProgressReport struct {
	ClassLevel              string            `json:"class_level"`
	TotalAttempts           int               `json:"total_attempts"`
	TotalCorrect            int               `json:"total_correct"`
	TotalQuestionsAvailable int               `json:"total_questions_available"`
	Accuracy                int               `json:"accuracy"`
	Subjects                []SubjectProgress `json:"subjects"`
}
