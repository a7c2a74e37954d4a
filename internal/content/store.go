package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcq-practice/backend/internal/docstore"
	"github.com/mcq-practice/backend/internal/models"
)

// ErrNotFound is returned when a content document does not exist.
var ErrNotFound = errors.New("content not found")

type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

func (s *Store) get(ctx context.Context, collection, id string, out interface{}) error {
	err := s.docs.Get(ctx, collection, id, out)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s %s: %w", collection, id, err)
	}
	return nil
}

// ── Subjects ─────────────────────────────────────────────

func (s *Store) Subject(ctx context.Context, id string) (*models.Subject, error) {
	var sub models.Subject
	if err := s.get(ctx, models.CollectionSubjects, id, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) SubjectsByClass(ctx context.Context, classLevel string) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := s.docs.Find(ctx, models.CollectionSubjects, docstore.Filter{"classLevel": classLevel}, &subjects); err != nil {
		return nil, fmt.Errorf("find subjects: %w", err)
	}
	return subjects, nil
}

// SubjectExists reports whether a subject with this exact title is filed
// under classLevel.
func (s *Store) SubjectExists(ctx context.Context, classLevel, title string) (bool, error) {
	n, err := s.docs.Count(ctx, models.CollectionSubjects, docstore.Filter{"classLevel": classLevel, "title": title})
	if err != nil {
		return false, fmt.Errorf("count subjects: %w", err)
	}
	return n > 0, nil
}

func (s *Store) CreateSubject(ctx context.Context, sub models.Subject) (*models.Subject, error) {
	sub.ID = docstore.NewID()
	if err := s.docs.Put(ctx, models.CollectionSubjects, sub.ID, sub); err != nil {
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	return &sub, nil
}

func (s *Store) DeleteSubject(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, models.CollectionSubjects, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// ── Chapters ─────────────────────────────────────────────

func (s *Store) Chapter(ctx context.Context, id string) (*models.Chapter, error) {
	var ch models.Chapter
	if err := s.get(ctx, models.CollectionChapters, id, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *Store) SubjectChapters(ctx context.Context, subjectID string) ([]models.Chapter, error) {
	var chapters []models.Chapter
	if err := s.docs.Find(ctx, models.CollectionChapters, docstore.Filter{"subjectId": subjectID}, &chapters); err != nil {
		return nil, fmt.Errorf("find chapters: %w", err)
	}
	return chapters, nil
}

func (s *Store) CountChapters(ctx context.Context, subjectID string) (int, error) {
	n, err := s.docs.Count(ctx, models.CollectionChapters, docstore.Filter{"subjectId": subjectID})
	if err != nil {
		return 0, fmt.Errorf("count chapters: %w", err)
	}
	return int(n), nil
}

func (s *Store) ChapterExists(ctx context.Context, subjectID, title string) (bool, error) {
	n, err := s.docs.Count(ctx, models.CollectionChapters, docstore.Filter{"subjectId": subjectID, "title": title})
	if err != nil {
		return false, fmt.Errorf("count chapters: %w", err)
	}
	return n > 0, nil
}

func (s *Store) CreateChapter(ctx context.Context, ch models.Chapter) (*models.Chapter, error) {
	ch.ID = docstore.NewID()
	if err := s.docs.Put(ctx, models.CollectionChapters, ch.ID, ch); err != nil {
		return nil, fmt.Errorf("insert chapter: %w", err)
	}
	return &ch, nil
}

func (s *Store) DeleteChapter(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, models.CollectionChapters, id); err != nil {
		return fmt.Errorf("delete chapter: %w", err)
	}
	return nil
}

// ── Topics ───────────────────────────────────────────────

func (s *Store) Topic(ctx context.Context, id string) (*models.Topic, error) {
	var t models.Topic
	if err := s.get(ctx, models.CollectionTopics, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ChapterTopics(ctx context.Context, chapterID string) ([]models.Topic, error) {
	var topics []models.Topic
	if err := s.docs.Find(ctx, models.CollectionTopics, docstore.Filter{"chapterId": chapterID}, &topics); err != nil {
		return nil, fmt.Errorf("find topics: %w", err)
	}
	return topics, nil
}

func (s *Store) TopicExists(ctx context.Context, chapterID, title string) (bool, error) {
	n, err := s.docs.Count(ctx, models.CollectionTopics, docstore.Filter{"chapterId": chapterID, "title": title})
	if err != nil {
		return false, fmt.Errorf("count topics: %w", err)
	}
	return n > 0, nil
}

func (s *Store) CreateTopic(ctx context.Context, t models.Topic) (*models.Topic, error) {
	t.ID = docstore.NewID()
	if err := s.docs.Put(ctx, models.CollectionTopics, t.ID, t); err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	return &t, nil
}

func (s *Store) DeleteTopic(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, models.CollectionTopics, id); err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	return nil
}

// ── Questions ────────────────────────────────────────────

func (s *Store) ChapterQuestions(ctx context.Context, chapterID string) ([]models.Question, error) {
	var questions []models.Question
	if err := s.docs.Find(ctx, models.CollectionQuestions, docstore.Filter{"chapterId": chapterID}, &questions); err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	return questions, nil
}

// InsertQuestions writes the batch in one call and returns the new ids in
// input order.
func (s *Store) InsertQuestions(ctx context.Context, questions []models.Question) ([]string, error) {
	ids := make([]string, len(questions))
	docs := make([]interface{}, len(questions))
	for i, q := range questions {
		q.ID = ""
		ids[i] = docstore.NewID()
		docs[i] = q
	}
	if err := s.docs.PutMany(ctx, models.CollectionQuestions, ids, docs); err != nil {
		return nil, fmt.Errorf("insert questions: %w", err)
	}
	return ids, nil
}

// ── Formulas ─────────────────────────────────────────────

func (s *Store) Formula(ctx context.Context, id string) (*models.Formula, error) {
	var f models.Formula
	if err := s.get(ctx, models.CollectionFormulas, id, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) ChapterFormulas(ctx context.Context, chapterID string) ([]models.Formula, error) {
	var formulas []models.Formula
	if err := s.docs.Find(ctx, models.CollectionFormulas, docstore.Filter{"chapterId": chapterID}, &formulas); err != nil {
		return nil, fmt.Errorf("find formulas: %w", err)
	}
	return formulas, nil
}

func (s *Store) CreateFormula(ctx context.Context, f models.Formula) (*models.Formula, error) {
	f.ID = docstore.NewID()
	if err := s.docs.Put(ctx, models.CollectionFormulas, f.ID, f); err != nil {
		return nil, fmt.Errorf("insert formula: %w", err)
	}
	return &f, nil
}

// UpdateFormula changes only the title and content of a formula.
func (s *Store) UpdateFormula(ctx context.Context, id, title, body string) error {
	err := s.docs.Update(ctx, models.CollectionFormulas, id, docstore.Fields{"title": title, "content": body})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update formula: %w", err)
	}
	return nil
}

func (s *Store) DeleteFormula(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, models.CollectionFormulas, id); err != nil {
		return fmt.Errorf("delete formula: %w", err)
	}
	return nil
}
