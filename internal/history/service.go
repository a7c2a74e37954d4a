package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcq-practice/backend/internal/docstore"
	"github.com/mcq-practice/backend/internal/events"
	"github.com/mcq-practice/backend/internal/logger"
	"github.com/mcq-practice/backend/internal/models"
	"github.com/mcq-practice/backend/internal/quiz"
)

var ErrQuestionNotFound = errors.New("question not found")

type Service struct {
	store  *Store
	docs   docstore.Store
	events events.Publisher
	now    func() time.Time
}

func NewService(store *Store, docs docstore.Store, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{store: store, docs: docs, events: pub, now: time.Now}
}

// ── Record Writes ────────────────────────────────────────

func (s *Service) RecordAttempt(ctx context.Context, a models.Attempt) error {
	if err := s.store.RecordAttempt(ctx, a); err != nil {
		return err
	}
	s.publish(events.AttemptRecorded, a)
	return nil
}

func (s *Service) SetBookmark(ctx context.Context, b models.Bookmark) error {
	if err := s.store.SetBookmark(ctx, b); err != nil {
		return err
	}
	s.publish(events.BookmarkAdded, b)
	return nil
}

func (s *Service) ClearBookmark(ctx context.Context, userID, questionID string) error {
	if err := s.store.ClearBookmark(ctx, userID, questionID); err != nil {
		return err
	}
	s.publish(events.BookmarkRemoved, map[string]string{"user_id": userID, "question_id": questionID})
	return nil
}

func (s *Service) publish(eventType string, payload interface{}) {
	if err := s.events.Publish(eventType, payload); err != nil {
		logger.Errorf("[history] publish %s failed: %v", eventType, err)
	}
}

// ── Bookmarks ────────────────────────────────────────────

func (s *Service) BookmarkIDs(ctx context.Context, userID string) (map[string]bool, error) {
	return s.store.BookmarkIDs(ctx, userID)
}

func (s *Service) ListBookmarks(ctx context.Context, userID string) (*models.BookmarkListResponse, error) {
	bookmarks, err := s.store.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bookmarks == nil {
		bookmarks = []models.Bookmark{}
	}
	return &models.BookmarkListResponse{Bookmarks: bookmarks, Total: len(bookmarks)}, nil
}

// AddBookmark bookmarks a question outside of a practice session. The
// chapter and subject are resolved from the question itself.
func (s *Service) AddBookmark(ctx context.Context, userID, questionID string) (*models.Bookmark, error) {
	var q models.Question
	if err := s.docs.Get(ctx, models.CollectionQuestions, questionID, &q); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question %s: %w", questionID, err)
	}

	var subjectID string
	var ch models.Chapter
	if err := s.docs.Get(ctx, models.CollectionChapters, q.ChapterID, &ch); err != nil {
		logger.Warnf("[history] chapter %s of question %s not resolved: %v", q.ChapterID, questionID, err)
	} else {
		subjectID = ch.SubjectID
	}

	b := models.Bookmark{
		UserID:     userID,
		QuestionID: questionID,
		ChapterID:  q.ChapterID,
		SubjectID:  subjectID,
		Timestamp:  s.now().UnixMilli(),
	}
	if err := s.SetBookmark(ctx, b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Service) RemoveBookmark(ctx context.Context, userID, questionID string) error {
	return s.ClearBookmark(ctx, userID, questionID)
}

// ── Progress ─────────────────────────────────────────────

// ProgressReport aggregates the user's attempts over the subjects of one
// class level. Attempts on subjects outside the class level are ignored.
func (s *Service) ProgressReport(ctx context.Context, userID, classLevel string) (*models.ProgressReport, error) {
	var subjects []models.Subject
	if err := s.docs.Find(ctx, models.CollectionSubjects, docstore.Filter{"classLevel": classLevel}, &subjects); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	report := &models.ProgressReport{ClassLevel: classLevel, Subjects: []models.SubjectProgress{}}
	subjectIdx := make(map[string]int, len(subjects))
	chapterIdx := make(map[string]map[string]int, len(subjects))

	for _, sub := range subjects {
		var chapters []models.Chapter
		if err := s.docs.Find(ctx, models.CollectionChapters, docstore.Filter{"subjectId": sub.ID}, &chapters); err != nil {
			return nil, fmt.Errorf("list chapters of %s: %w", sub.ID, err)
		}

		sp := models.SubjectProgress{SubjectID: sub.ID, Title: sub.Title, Chapters: []models.ChapterProgress{}}
		chapterIdx[sub.ID] = make(map[string]int, len(chapters))
		for _, ch := range chapters {
			n, err := s.docs.Count(ctx, models.CollectionQuestions, docstore.Filter{"chapterId": ch.ID})
			if err != nil {
				return nil, fmt.Errorf("count questions of %s: %w", ch.ID, err)
			}
			cp := models.ChapterProgress{ChapterID: ch.ID, Title: ch.Title}
			cp.TotalQuestions = int(n)
			sp.TotalQuestions += int(n)
			chapterIdx[sub.ID][ch.ID] = len(sp.Chapters)
			sp.Chapters = append(sp.Chapters, cp)
		}

		report.TotalQuestionsAvailable += sp.TotalQuestions
		subjectIdx[sub.ID] = len(report.Subjects)
		report.Subjects = append(report.Subjects, sp)
	}

	attempts, err := s.store.ListAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, a := range attempts {
		si, ok := subjectIdx[a.SubjectID]
		if !ok {
			continue
		}
		sp := &report.Subjects[si]
		sp.ProgressStat.Add(a.IsCorrect)
		if ci, ok := chapterIdx[a.SubjectID][a.ChapterID]; ok {
			sp.Chapters[ci].ProgressStat.Add(a.IsCorrect)
		}
		report.TotalAttempts++
		if a.IsCorrect {
			report.TotalCorrect++
		}
	}

	for i := range report.Subjects {
		sp := &report.Subjects[i]
		sp.Coverage = quiz.Percentage(sp.Attempted, sp.TotalQuestions)
		for j := range sp.Chapters {
			cp := &sp.Chapters[j]
			cp.Coverage = quiz.Percentage(cp.Attempted, cp.TotalQuestions)
		}
	}
	report.Accuracy = quiz.Percentage(report.TotalCorrect, report.TotalAttempts)
	return report, nil
}
