package models

// ── Content Documents ────────────────────────────────────
//
// bson field names follow the document layout of the content store
// (camelCase keys); json names follow the API convention (snake_case).

const (
	CollectionSubjects  = "subjects"
	CollectionChapters  = "chapters"
	CollectionTopics    = "topics"
	CollectionQuestions = "questions"
	CollectionFormulas  = "formulas"
	CollectionAttempts  = "attempts"
	CollectionBookmarks = "bookmarks"
)

// ClassLevels lists the class levels content can be filed under.
var ClassLevels = []string{"Class 6", "Class 7", "Class 8", "Class 9", "Class 10", "Class 11", "Class 12"}

const DefaultClassLevel = "Class 8"

// ValidClassLevel reports whether level is one of ClassLevels.
func ValidClassLevel(level string) bool {
	for _, l := range ClassLevels {
		if l == level {
			return true
		}
	}
	return false
}

type Subject struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	Title        string `bson:"title" json:"title"`
	ClassLevel   string `bson:"classLevel" json:"class_level"`
	ChapterCount int    `bson:"chapterCount" json:"chapter_count"`
	Progress     int    `bson:"progress" json:"progress"`
}

type Chapter struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	Title     string `bson:"title" json:"title"`
	SubjectID string `bson:"subjectId" json:"subject_id"`
	IsLocked  bool   `bson:"isLocked" json:"is_locked"`
	Duration  string `bson:"duration" json:"duration"`
}

type Topic struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	Title     string `bson:"title" json:"title"`
	ChapterID string `bson:"chapterId" json:"chapter_id"`
	SubjectID string `bson:"subjectId" json:"subject_id"`
}

// Question is a multiple-choice question. CorrectAnswer is 1-based:
// 1 is the first option.
type Question struct {
	ID            string   `bson:"_id,omitempty" json:"id"`
	ChapterID     string   `bson:"chapterId" json:"chapter_id"`
	TopicID       *string  `bson:"topicId" json:"topic_id,omitempty"`
	Question      string   `bson:"question" json:"question"`
	Options       []string `bson:"options" json:"options"`
	CorrectAnswer int      `bson:"correctAnswer" json:"correct_answer"`
	Explanation   string   `bson:"explanation" json:"explanation,omitempty"`
}

// HasTopic reports whether the question is filed under topicID.
func (q Question) HasTopic(topicID string) bool {
	return q.TopicID != nil && *q.TopicID == topicID
}

// ValidAnswer reports whether CorrectAnswer points inside Options.
func (q Question) ValidAnswer() bool {
	return q.CorrectAnswer >= 1 && q.CorrectAnswer <= len(q.Options)
}

type Formula struct {
	ID         string `bson:"_id,omitempty" json:"id"`
	ClassLevel string `bson:"classLevel" json:"class_level"`
	SubjectID  string `bson:"subjectId" json:"subject_id"`
	ChapterID  string `bson:"chapterId" json:"chapter_id"`
	Title      string `bson:"title" json:"title"`
	Content    string `bson:"content" json:"content"`
	CreatedAt  int64  `bson:"createdAt" json:"created_at"`
}

// ── Request Types ─────────────────────────────────────

type CreateSubjectRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	ClassLevel string `json:"class_level" validate:"required"`
}

type CreateChapterRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	SubjectID string `json:"subject_id" validate:"required"`
}

type CreateTopicRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	SubjectID string `json:"subject_id" validate:"required"`
	ChapterID string `json:"chapter_id" validate:"required"`
}

type FormulaRequest struct {
	ClassLevel string `json:"class_level"`
	SubjectID  string `json:"subject_id" validate:"required"`
	ChapterID  string `json:"chapter_id" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

// UploadQuestion is one item of a bulk upload payload.
type UploadQuestion struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswer int      `json:"correctAnswer" validate:"required,min=1"`
	Explanation   string   `json:"explanation,omitempty"`
}

type BulkUploadRequest struct {
	SubjectID string           `json:"subject_id" validate:"required"`
	ChapterID string           `json:"chapter_id" validate:"required"`
	TopicID   string           `json:"topic_id,omitempty"`
	Questions []UploadQuestion `json:"questions" validate:"required,min=1,dive"`
}

type LatexCheckRequest struct {
	Content string `json:"content"`
}

type GenerateDraftsRequest struct {
	ChapterID string `json:"chapter_id" validate:"required"`
	TopicID   string `json:"topic_id,omitempty"`
	Count     int    `json:"count"`
}

// ── Response Types ────────────────────────────────────

type BulkUploadResponse struct {
	Message     string   `json:"message"`
	Uploaded    int      `json:"uploaded"`
	QuestionIDs []string `json:"question_ids"`
}

type FormulaResponse struct {
	Formula Formula `json:"formula"`
	Warning string  `json:"warning,omitempty"`
}

type LatexCheckResponse struct {
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

type GenerateDraftsResponse struct {
	Drafts       []UploadQuestion `json:"drafts"`
	Scores       []float64        `json:"scores"`
	Model        string           `json:"model"`
	PromptTokens int              `json:"prompt_tokens"`
	OutputTokens int              `json:"output_tokens"`
	Warnings     []string         `json:"warnings,omitempty"`
}
