package content

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mcq-practice/backend/internal/events"
	"github.com/mcq-practice/backend/internal/generator"
	"github.com/mcq-practice/backend/internal/logger"
	"github.com/mcq-practice/backend/internal/models"
)

var (
	ErrDuplicate         = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidClassLevel = errors.New("invalid class level")
	ErrInvalidStatus     = errors.New("status must be all, started or new")
	ErrGeneratorDisabled = errors.New("question drafting is not configured")
)

const defaultChapterDuration = "45 min"

// DuplicateError carries the user-facing message for a rejected add.
type DuplicateError struct {
	Message string
}

func (e *DuplicateError) Error() string        { return e.Message }
func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// InputError lists every problem found in a request.
type InputError struct {
	Message string
	Details []string
}

func (e *InputError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(msg string, details ...string) error {
	return &InputError{Message: msg, Details: details}
}

// Status filters for ListSubjects.
const (
	StatusAll     = "all"
	StatusStarted = "started"
	StatusNew     = "new"
)

// Invalidator drops cached chapter pools after a content write.
type Invalidator interface {
	Invalidate(ctx context.Context, chapterID string) error
}

// Drafter produces question drafts for admins to review before upload.
type Drafter interface {
	Draft(ctx context.Context, req generator.DraftRequest) (*generator.DraftResult, error)
}

type Service struct {
	store    *Store
	cache    Invalidator
	events   events.Publisher
	drafter  Drafter
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds the content service. cache and drafter may be nil.
func NewService(store *Store, cache Invalidator, pub events.Publisher, drafter Drafter) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		store:    store,
		cache:    cache,
		events:   pub,
		drafter:  drafter,
		validate: newValidator(),
		now:      time.Now,
	}
}

// newValidator reports field errors by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) check(req interface{}) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid(err.Error())
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldMessage(fe))
	}
	return invalid("Invalid request", details...)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func (s *Service) invalidate(ctx context.Context, chapterID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, chapterID); err != nil {
		logger.Errorf("[content] invalidate pool cache for chapter %s: %v", chapterID, err)
	}
}

func (s *Service) publish(eventType string, payload interface{}) {
	if err := s.events.Publish(eventType, payload); err != nil {
		logger.Errorf("[content] publish %s failed: %v", eventType, err)
	}
}

func (s *Service) changed(action, kind, id string) {
	s.publish(events.ContentChanged, map[string]string{"action": action, "kind": kind, "id": id})
}

// ── Browsing ─────────────────────────────────────────────

// ListSubjects returns the subjects of a class level. Chapter counts are
// recomputed from the chapters collection; the stored count is used when
// counting fails. search matches titles case-insensitively.
func (s *Service) ListSubjects(ctx context.Context, classLevel, search, status string) ([]models.Subject, error) {
	if !models.ValidClassLevel(classLevel) {
		return nil, ErrInvalidClassLevel
	}
	if status == "" {
		status = StatusAll
	}
	if status != StatusAll && status != StatusStarted && status != StatusNew {
		return nil, ErrInvalidStatus
	}

	subjects, err := s.store.SubjectsByClass(ctx, classLevel)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(search)
	out := make([]models.Subject, 0, len(subjects))
	for _, sub := range subjects {
		if !strings.Contains(strings.ToLower(sub.Title), needle) {
			continue
		}
		if status == StatusStarted && sub.Progress <= 0 {
			continue
		}
		if status == StatusNew && sub.Progress != 0 {
			continue
		}

		n, err := s.store.CountChapters(ctx, sub.ID)
		if err != nil {
			logger.Warnf("[content] counting chapters of %s: %v", sub.ID, err)
		} else {
			sub.ChapterCount = n
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *Service) Chapters(ctx context.Context, subjectID string) ([]models.Chapter, error) {
	return s.store.SubjectChapters(ctx, subjectID)
}

func (s *Service) Topics(ctx context.Context, chapterID string) ([]models.Topic, error) {
	return s.store.ChapterTopics(ctx, chapterID)
}

func (s *Service) Formulas(ctx context.Context, chapterID string) ([]models.Formula, error) {
	return s.store.ChapterFormulas(ctx, chapterID)
}

// ── Subjects, Chapters, Topics ───────────────────────────

func (s *Service) AddSubject(ctx context.Context, req models.CreateSubjectRequest) (*models.Subject, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.check(req); err != nil {
		return nil, err
	}
	if !models.ValidClassLevel(req.ClassLevel) {
		return nil, ErrInvalidClassLevel
	}

	exists, err := s.store.SubjectExists(ctx, req.ClassLevel, req.Title)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &DuplicateError{Message: fmt.Sprintf("Subject %q already exists in %s!", req.Title, req.ClassLevel)}
	}

	sub, err := s.store.CreateSubject(ctx, models.Subject{
		Title:      req.Title,
		ClassLevel: req.ClassLevel,
	})
	if err != nil {
		return nil, err
	}
	s.changed("created", "subject", sub.ID)
	return sub, nil
}

// DeleteSubject removes the subject document only. Its chapters stay.
func (s *Service) DeleteSubject(ctx context.Context, id string) error {
	if err := s.store.DeleteSubject(ctx, id); err != nil {
		return err
	}
	s.changed("deleted", "subject", id)
	return nil
}

func (s *Service) AddChapter(ctx context.Context, req models.CreateChapterRequest) (*models.Chapter, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.check(req); err != nil {
		return nil, err
	}
	if _, err := s.store.Subject(ctx, req.SubjectID); err != nil {
		return nil, err
	}

	exists, err := s.store.ChapterExists(ctx, req.SubjectID, req.Title)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &DuplicateError{Message: fmt.Sprintf("Chapter %q already exists in this subject!", req.Title)}
	}

	ch, err := s.store.CreateChapter(ctx, models.Chapter{
		Title:     req.Title,
		SubjectID: req.SubjectID,
		Duration:  defaultChapterDuration,
	})
	if err != nil {
		return nil, err
	}
	s.changed("created", "chapter", ch.ID)
	return ch, nil
}

// DeleteChapter removes the chapter document only. Its topics and
// questions stay.
func (s *Service) DeleteChapter(ctx context.Context, id string) error {
	if err := s.store.DeleteChapter(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.changed("deleted", "chapter", id)
	return nil
}

func (s *Service) AddTopic(ctx context.Context, req models.CreateTopicRequest) (*models.Topic, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.check(req); err != nil {
		return nil, err
	}
	ch, err := s.store.Chapter(ctx, req.ChapterID)
	if err != nil {
		return nil, err
	}
	if ch.SubjectID != req.SubjectID {
		return nil, invalid("chapter does not belong to subject")
	}

	exists, err := s.store.TopicExists(ctx, req.ChapterID, req.Title)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &DuplicateError{Message: "Topic already exists in this chapter."}
	}

	t, err := s.store.CreateTopic(ctx, models.Topic{
		Title:     req.Title,
		ChapterID: req.ChapterID,
		SubjectID: req.SubjectID,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, t.ChapterID)
	s.changed("created", "topic", t.ID)
	return t, nil
}

// DeleteTopic removes a topic. Questions filed under it keep their topic id.
func (s *Service) DeleteTopic(ctx context.Context, id string) error {
	t, err := s.store.Topic(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.store.DeleteTopic(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, t.ChapterID)
	s.changed("deleted", "topic", id)
	return nil
}

// ── Formulas ─────────────────────────────────────────────

// CheckLatex runs the formula editor's live check.
func CheckLatex(latex string) models.LatexCheckResponse {
	warning, err := ValidateLatex(latex)
	if err != nil {
		return models.LatexCheckResponse{Error: "Error: " + capitalize(err.Error())}
	}
	if warning != "" {
		return models.LatexCheckResponse{Valid: true, Warning: "Warning: " + warning}
	}
	return models.LatexCheckResponse{Valid: true}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func latexInput(content string) (string, error) {
	warning, err := ValidateLatex(content)
	if err != nil {
		return "", invalid("Invalid LaTeX", capitalize(err.Error()))
	}
	return warning, nil
}

func (s *Service) CreateFormula(ctx context.Context, req models.FormulaRequest) (*models.FormulaResponse, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	warning, err := latexInput(req.Content)
	if err != nil {
		return nil, err
	}

	if req.ClassLevel == "" {
		sub, err := s.store.Subject(ctx, req.SubjectID)
		if err != nil {
			return nil, err
		}
		req.ClassLevel = sub.ClassLevel
	}
	if !models.ValidClassLevel(req.ClassLevel) {
		return nil, ErrInvalidClassLevel
	}

	f, err := s.store.CreateFormula(ctx, models.Formula{
		ClassLevel: req.ClassLevel,
		SubjectID:  req.SubjectID,
		ChapterID:  req.ChapterID,
		Title:      req.Title,
		Content:    req.Content,
		CreatedAt:  s.now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}
	s.changed("created", "formula", f.ID)
	return &models.FormulaResponse{Formula: *f, Warning: warning}, nil
}

// UpdateFormula changes title and content. Placement fields are ignored.
func (s *Service) UpdateFormula(ctx context.Context, id string, req models.FormulaRequest) (*models.FormulaResponse, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return nil, invalid("Invalid request", "title is required", "content is required")
	}
	warning, err := latexInput(req.Content)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateFormula(ctx, id, req.Title, req.Content); err != nil {
		return nil, err
	}
	f, err := s.store.Formula(ctx, id)
	if err != nil {
		return nil, err
	}
	s.changed("updated", "formula", id)
	return &models.FormulaResponse{Formula: *f, Warning: warning}, nil
}

func (s *Service) DeleteFormula(ctx context.Context, id string) error {
	if err := s.store.DeleteFormula(ctx, id); err != nil {
		return err
	}
	s.changed("deleted", "formula", id)
	return nil
}

// ── Questions ────────────────────────────────────────────

// BulkUpload validates every item, then writes the whole batch at once.
// A single bad item rejects the upload.
func (s *Service) BulkUpload(ctx context.Context, req models.BulkUploadRequest) (*models.BulkUploadResponse, error) {
	var details []string
	if err := s.check(req); err != nil {
		var ie *InputError
		if !errors.As(err, &ie) {
			return nil, err
		}
		details = ie.Details
	}
	for i, q := range req.Questions {
		if q.CorrectAnswer >= 1 && len(q.Options) > 0 && q.CorrectAnswer > len(q.Options) {
			details = append(details, fmt.Sprintf("questions[%d].correctAnswer %d is outside 1-%d", i, q.CorrectAnswer, len(q.Options)))
		}
	}
	if len(details) > 0 {
		return nil, invalid("Invalid questions", details...)
	}

	ch, err := s.store.Chapter(ctx, req.ChapterID)
	if err != nil {
		return nil, err
	}
	if ch.SubjectID != req.SubjectID {
		return nil, invalid("chapter does not belong to subject")
	}

	var topicID *string
	if req.TopicID != "" {
		t, err := s.store.Topic(ctx, req.TopicID)
		if err != nil {
			return nil, err
		}
		if t.ChapterID != req.ChapterID {
			return nil, invalid("topic does not belong to chapter")
		}
		topicID = &t.ID
	}

	questions := make([]models.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = models.Question{
			ChapterID:     req.ChapterID,
			TopicID:       topicID,
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
	}

	ids, err := s.store.InsertQuestions(ctx, questions)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.ChapterID)
	s.publish(events.QuestionsUploaded, map[string]interface{}{
		"chapter_id":   req.ChapterID,
		"topic_id":     req.TopicID,
		"question_ids": ids,
	})

	return &models.BulkUploadResponse{
		Message:     fmt.Sprintf("%d Questions uploaded successfully!", len(ids)),
		Uploaded:    len(ids),
		QuestionIDs: ids,
	}, nil
}

// GenerateDrafts asks the drafter for upload-ready questions. Nothing is
// written; the admin reviews the drafts and submits them through
// BulkUpload.
func (s *Service) GenerateDrafts(ctx context.Context, req models.GenerateDraftsRequest) (*models.GenerateDraftsResponse, error) {
	if s.drafter == nil {
		return nil, ErrGeneratorDisabled
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	ch, err := s.store.Chapter(ctx, req.ChapterID)
	if err != nil {
		return nil, err
	}
	dreq := generator.DraftRequest{Chapter: ch.Title, Count: req.Count}

	if sub, err := s.store.Subject(ctx, ch.SubjectID); err == nil {
		dreq.Subject = sub.Title
		dreq.ClassLevel = sub.ClassLevel
	} else {
		logger.Warnf("[content] subject %s of chapter %s: %v", ch.SubjectID, ch.ID, err)
	}

	if req.TopicID != "" {
		t, err := s.store.Topic(ctx, req.TopicID)
		if err != nil {
			return nil, err
		}
		if t.ChapterID != ch.ID {
			return nil, invalid("topic does not belong to chapter")
		}
		dreq.Topic = t.Title
	}

	res, err := s.drafter.Draft(ctx, dreq)
	if err != nil {
		return nil, err
	}

	drafts := make([]models.UploadQuestion, len(res.Drafts))
	for i, d := range res.Drafts {
		drafts[i] = d.Upload()
	}
	log.Printf("[content] drafted %d questions for chapter %s with %s", len(drafts), ch.ID, res.Model)

	return &models.GenerateDraftsResponse{
		Drafts:       drafts,
		Scores:       res.Scores,
		Model:        res.Model,
		PromptTokens: res.PromptTokens,
		OutputTokens: res.OutputTokens,
		Warnings:     res.Warnings,
	}, nil
}
