package models

// ── Practice Session Types ───────────────────────────────

type SessionPhase string

const (
	PhaseLoading           SessionPhase = "loading"
	PhaseEmpty             SessionPhase = "empty"
	PhaseNoMatch           SessionPhase = "no_match"
	PhaseAwaitingSelection SessionPhase = "awaiting_selection"
	PhaseChecked           SessionPhase = "checked"
	PhaseComplete          SessionPhase = "complete"
)

// AnswerRecord is one answered question of a session, kept for the review.
// CorrectAnswer is 1-based, SelectedOption is 0-based.
type AnswerRecord struct {
	QuestionID     string   `json:"question_id"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswer  int      `json:"correct_answer"`
	SelectedOption int      `json:"selected_option"`
	IsCorrect      bool     `json:"is_correct"`
	Explanation    string   `json:"explanation,omitempty"`
}

// ── Request Types ────────────────────────────────────────

type StartSessionRequest struct {
	ChapterID string `json:"chapter_id" validate:"required"`
	Revision  bool   `json:"revision"`
}

type FilterRequest struct {
	TopicID *string `json:"topic_id"`
	Count   int     `json:"count"`
}

type SelectOptionRequest struct {
	Option *int `json:"option" validate:"required"`
}

type ToggleBookmarkRequest struct {
	QuestionID string `json:"question_id,omitempty"`
}

// ── Response Types ───────────────────────────────────────

type PracticeQuestion struct {
	ID          string   `json:"id"`
	TopicID     *string  `json:"topic_id,omitempty"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Bookmarked  bool     `json:"bookmarked"`
	Explanation string   `json:"explanation,omitempty"`
	// Revealed only after the answer has been checked.
	CorrectAnswer *int `json:"correct_answer,omitempty"`
}

type SessionView struct {
	SessionID      string            `json:"session_id"`
	ChapterID      string            `json:"chapter_id"`
	Revision       bool              `json:"revision"`
	Phase          SessionPhase      `json:"phase"`
	TopicID        *string           `json:"topic_id,omitempty"`
	Count          int               `json:"count"`
	Topics         []Topic           `json:"topics"`
	PoolSize       int               `json:"pool_size"`
	Index          int               `json:"index"`
	Total          int               `json:"total"`
	Score          int               `json:"score"`
	Elapsed        string            `json:"elapsed"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	Selected       *int              `json:"selected,omitempty"`
	LastCorrect    *bool             `json:"last_correct,omitempty"`
	Question       *PracticeQuestion `json:"question,omitempty"`
	Notifications  []string          `json:"notifications,omitempty"`
}

type SessionSummary struct {
	Score          int            `json:"score"`
	Total          int            `json:"total"`
	Percentage     int            `json:"percentage"`
	Elapsed        string         `json:"elapsed"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	Answers        []AnswerRecord `json:"answers"`
}

type ReviewOption struct {
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
	IsSelected bool   `json:"is_selected"`
}

type ReviewItem struct {
	QuestionID  string         `json:"question_id"`
	Question    string         `json:"question"`
	IsCorrect   bool           `json:"is_correct"`
	Options     []ReviewOption `json:"options"`
	Explanation string         `json:"explanation,omitempty"`
}

// FilterOptions pre-fills the filter form for a topic.
type FilterOptions struct {
	TopicID      *string `json:"topic_id,omitempty"`
	MaxAvailable int     `json:"max_available"`
	Count        int     `json:"count"`
	Topics       []Topic `json:"topics"`
}

type ToggleBookmarkResponse struct {
	QuestionID string `json:"question_id"`
	Bookmarked bool   `json:"bookmarked"`
}
