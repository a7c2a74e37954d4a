// Package quiz runs practice sessions: a chapter's question pool is filtered
// into a working set which the user answers one question at a time.
package quiz

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mcq-practice/backend/internal/logger"
	"github.com/mcq-practice/backend/internal/models"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrLoading          = errors.New("session is still loading")
	ErrNoQuestions      = errors.New("no questions in session")
	ErrNoSelection      = errors.New("no option selected")
	ErrAlreadyChecked   = errors.New("answer already checked")
	ErrNotChecked       = errors.New("answer not checked yet")
	ErrSessionComplete  = errors.New("session already complete")
	ErrNotComplete      = errors.New("session not complete")
	ErrOptionOutOfRange = errors.New("option out of range")
	ErrUnknownQuestion  = errors.New("question is not part of this session")
)

const (
	msgBookmarkAdded   = "Added to bookmarks"
	msgBookmarkRemoved = "Removed from bookmarks"
	msgBookmarkFailed  = "Error updating bookmark"
	msgRestarted       = "Settings Applied & Restarted!"
)

// Sink persists per-user records. Calls run detached from the request that
// caused them.
type Sink interface {
	RecordAttempt(ctx context.Context, a models.Attempt) error
	SetBookmark(ctx context.Context, b models.Bookmark) error
	ClearBookmark(ctx context.Context, userID, questionID string) error
}

// progress is everything a filter application resets. It is always
// replaced as a whole.
type progress struct {
	index       int
	selected    *int
	checked     bool
	lastCorrect bool
	score       int
	elapsed     int
	answers     []models.AnswerRecord
	complete    bool
}

type Session struct {
	ID        string
	UserID    string
	ChapterID string
	Revision  bool

	mu        sync.Mutex
	pool      *Pool // nil while loading
	topicID   *string
	count     int
	working   []models.Question
	prog      progress
	bookmarks map[string]bool
	notes     []string
	lastSeen  time.Time

	sink   Sink
	rng    *rand.Rand
	now    func() time.Time
	writes sync.WaitGroup
	shared *sync.WaitGroup // owning manager's writes, nil when standalone
}

func newSession(id, userID, chapterID string, revision bool, sink Sink, rng *rand.Rand, now func() time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		ChapterID: chapterID,
		Revision:  revision,
		bookmarks: make(map[string]bool),
		lastSeen:  now(),
		sink:      sink,
		rng:       rng,
		now:       now,
	}
}

// Load installs the pool. Until a filter is applied the working set is the
// whole pool in store order.
func (s *Session) Load(pool *Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pool = pool
	s.bookmarks = make(map[string]bool, len(pool.Bookmarks))
	for id, ok := range pool.Bookmarks {
		if ok {
			s.bookmarks[id] = true
		}
	}
	s.topicID = nil
	s.count = len(pool.Questions)
	s.working = append([]models.Question(nil), pool.Questions...)
	s.prog = progress{}
}

func (s *Session) Phase() models.SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase()
}

func (s *Session) phase() models.SessionPhase {
	switch {
	case s.pool == nil:
		return models.PhaseLoading
	case len(s.pool.Questions) == 0:
		return models.PhaseEmpty
	case len(s.working) == 0:
		return models.PhaseNoMatch
	case s.prog.complete:
		return models.PhaseComplete
	case s.prog.checked:
		return models.PhaseChecked
	default:
		return models.PhaseAwaitingSelection
	}
}

// phaseError maps every phase except want to the error describing why the
// requested action is not allowed.
func (s *Session) phaseError(want models.SessionPhase) error {
	switch p := s.phase(); p {
	case want:
		return nil
	case models.PhaseLoading:
		return ErrLoading
	case models.PhaseEmpty, models.PhaseNoMatch:
		return ErrNoQuestions
	case models.PhaseComplete:
		return ErrSessionComplete
	case models.PhaseChecked:
		return ErrAlreadyChecked
	default:
		return ErrNotChecked
	}
}

// ── Filter ───────────────────────────────────────────────

// ApplyFilter rebuilds the working set and resets all progress.
func (s *Session) ApplyFilter(topicID *string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyFilter(topicID, count)
}

// Restart reshuffles with the current filter parameters.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyFilter(s.topicID, s.count)
}

func (s *Session) applyFilter(topicID *string, count int) error {
	if s.pool == nil {
		return ErrLoading
	}
	if len(s.pool.Questions) == 0 {
		return ErrNoQuestions
	}

	var topic *string
	if topicID != nil {
		t := *topicID
		topic = &t
	}
	s.topicID = topic
	s.count = count
	s.working = SelectWorkingSet(s.pool.Questions, topic, count, s.rng)
	s.prog = progress{}
	s.notes = append(s.notes, msgRestarted)
	return nil
}

// FilterOptions reports how many questions topicID offers and the count
// the filter form should start with.
func (s *Session) FilterOptions(topicID *string) (models.FilterOptions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return models.FilterOptions{}, ErrLoading
	}
	available := MatchingCount(s.pool.Questions, topicID)
	count := available
	if len(s.working) > 0 && len(s.working) < available {
		count = len(s.working)
	}
	topics := s.pool.Topics
	if topics == nil {
		topics = []models.Topic{}
	}
	return models.FilterOptions{TopicID: topicID, MaxAvailable: available, Count: count, Topics: topics}, nil
}

// ── Answer Tracking ──────────────────────────────────────

// Select records a 0-based option pick, replacing any earlier pick.
func (s *Session) Select(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.phaseError(models.PhaseAwaitingSelection); err != nil {
		return err
	}
	q := s.working[s.prog.index]
	if option < 0 || option >= len(q.Options) {
		return ErrOptionOutOfRange
	}
	s.prog.selected = &option
	return nil
}

// Check grades the current selection. Outside revision mode the attempt is
// persisted in the background; a failed write is only logged.
func (s *Session) Check() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.phaseError(models.PhaseAwaitingSelection); err != nil {
		return false, err
	}
	if s.prog.selected == nil {
		return false, ErrNoSelection
	}

	q := s.working[s.prog.index]
	selected := *s.prog.selected
	correct := IsCorrect(selected, q.CorrectAnswer)
	if correct {
		s.prog.score++
	}
	s.prog.checked = true
	s.prog.lastCorrect = correct
	s.prog.answers = append(s.prog.answers, models.AnswerRecord{
		QuestionID:     q.ID,
		Question:       q.Question,
		Options:        q.Options,
		CorrectAnswer:  q.CorrectAnswer,
		SelectedOption: selected,
		IsCorrect:      correct,
		Explanation:    q.Explanation,
	})

	if !s.Revision {
		attempt := models.Attempt{
			UserID:     s.UserID,
			QuestionID: q.ID,
			ChapterID:  s.ChapterID,
			SubjectID:  s.pool.SubjectID,
			IsCorrect:  correct,
			Timestamp:  s.now().UnixMilli(),
		}
		s.dispatch(func(ctx context.Context) {
			if err := s.sink.RecordAttempt(ctx, attempt); err != nil {
				logger.Errorf("[quiz] saving attempt %s for user %s failed: %v", attempt.QuestionID, attempt.UserID, err)
			}
		})
	}
	return correct, nil
}

// Next moves past a checked question, completing the session after the
// last one.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.phaseError(models.PhaseChecked); err != nil {
		return err
	}

	if s.prog.index < len(s.working)-1 {
		s.prog.index++
		s.prog.selected = nil
		s.prog.checked = false
		return nil
	}
	s.prog.complete = true
	return nil
}

// Tick adds one second of elapsed time while the session is running.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil && !s.prog.complete && len(s.working) > 0 {
		s.prog.elapsed++
	}
}

// ── Bookmarks ────────────────────────────────────────────

// ToggleBookmark flips the bookmark on questionID (the current question
// when empty) right away and writes it in the background. A failed write
// reverts the flip and queues an error notification. It returns the
// question id and its new state.
func (s *Session) ToggleBookmark(questionID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return "", false, ErrLoading
	}

	var q *models.Question
	if questionID == "" {
		if err := s.phaseError(models.PhaseAwaitingSelection); err != nil && !errors.Is(err, ErrAlreadyChecked) {
			return "", false, err
		}
		q = &s.working[s.prog.index]
	} else {
		for i := range s.pool.Questions {
			if s.pool.Questions[i].ID == questionID {
				q = &s.pool.Questions[i]
				break
			}
		}
		if q == nil {
			return "", false, ErrUnknownQuestion
		}
	}

	qid := q.ID
	was := s.bookmarks[qid]
	if was {
		delete(s.bookmarks, qid)
		s.notes = append(s.notes, msgBookmarkRemoved)
	} else {
		s.bookmarks[qid] = true
		s.notes = append(s.notes, msgBookmarkAdded)
	}

	bookmark := models.Bookmark{
		UserID:     s.UserID,
		QuestionID: qid,
		ChapterID:  q.ChapterID,
		SubjectID:  s.pool.SubjectID,
		Timestamp:  s.now().UnixMilli(),
	}
	s.dispatch(func(ctx context.Context) {
		var err error
		if was {
			err = s.sink.ClearBookmark(ctx, bookmark.UserID, qid)
		} else {
			err = s.sink.SetBookmark(ctx, bookmark)
		}
		if err == nil {
			return
		}

		logger.Errorf("[quiz] toggling bookmark %s for user %s failed: %v", qid, bookmark.UserID, err)
		s.mu.Lock()
		defer s.mu.Unlock()
		if was {
			s.bookmarks[qid] = true
		} else {
			delete(s.bookmarks, qid)
		}
		s.notes = append(s.notes, msgBookmarkFailed)
	})

	return qid, !was, nil
}

// Bookmarked reports the in-memory bookmark state of a question.
func (s *Session) Bookmarked(questionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarks[questionID]
}

// dispatch runs fn on its own goroutine with a context that outlives the
// request. Callers may hold s.mu.
func (s *Session) dispatch(fn func(ctx context.Context)) {
	s.writes.Add(1)
	if s.shared != nil {
		s.shared.Add(1)
	}
	go func() {
		defer s.writes.Done()
		if s.shared != nil {
			defer s.shared.Done()
		}
		fn(context.Background())
	}()
}

// Wait blocks until every background write has finished.
func (s *Session) Wait() {
	s.writes.Wait()
}

// ── Views ────────────────────────────────────────────────

// View snapshots the session and drains pending notifications.
func (s *Session) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := models.SessionView{
		SessionID:      s.ID,
		ChapterID:      s.ChapterID,
		Revision:       s.Revision,
		Phase:          s.phase(),
		TopicID:        s.topicID,
		Count:          s.count,
		Topics:         []models.Topic{},
		Index:          s.prog.index,
		Total:          len(s.working),
		Score:          s.prog.score,
		Elapsed:        FormatElapsed(s.prog.elapsed),
		ElapsedSeconds: s.prog.elapsed,
		Notifications:  s.notes,
	}
	s.notes = nil

	if s.pool == nil {
		return v
	}
	v.PoolSize = len(s.pool.Questions)
	if s.pool.Topics != nil {
		v.Topics = s.pool.Topics
	}

	if v.Phase != models.PhaseAwaitingSelection && v.Phase != models.PhaseChecked {
		return v
	}

	q := s.working[s.prog.index]
	pq := &models.PracticeQuestion{
		ID:         q.ID,
		TopicID:    q.TopicID,
		Question:   q.Question,
		Options:    q.Options,
		Bookmarked: s.bookmarks[q.ID],
	}
	if s.prog.selected != nil {
		sel := *s.prog.selected
		v.Selected = &sel
	}
	if s.prog.checked {
		correctAnswer := q.CorrectAnswer
		lastCorrect := s.prog.lastCorrect
		pq.CorrectAnswer = &correctAnswer
		pq.Explanation = q.Explanation
		v.LastCorrect = &lastCorrect
	}
	v.Question = pq
	return v
}

// Summary is available once the last question has been answered.
func (s *Session) Summary() (*models.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.completeError(); err != nil {
		return nil, err
	}
	total := len(s.working)
	return &models.SessionSummary{
		Score:          s.prog.score,
		Total:          total,
		Percentage:     Percentage(s.prog.score, total),
		Elapsed:        FormatElapsed(s.prog.elapsed),
		ElapsedSeconds: s.prog.elapsed,
		Answers:        append([]models.AnswerRecord(nil), s.prog.answers...),
	}, nil
}

func (s *Session) Review() ([]models.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.completeError(); err != nil {
		return nil, err
	}
	return Review(s.prog.answers), nil
}

func (s *Session) completeError() error {
	switch s.phase() {
	case models.PhaseComplete:
		return nil
	case models.PhaseLoading:
		return ErrLoading
	case models.PhaseEmpty, models.PhaseNoMatch:
		return ErrNoQuestions
	default:
		return ErrNotComplete
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
