package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/mcq-practice/backend/internal/logger"
	"github.com/mcq-practice/backend/internal/models"
)

var errStore = errors.New("store unavailable")

type fakeSink struct {
	mu          sync.Mutex
	attempts    []models.Attempt
	bookmarks   map[string]models.Bookmark
	failAttempt bool
	failToggle  bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{bookmarks: make(map[string]models.Bookmark)}
}

func (f *fakeSink) RecordAttempt(ctx context.Context, a models.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAttempt {
		return errStore
	}
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeSink) SetBookmark(ctx context.Context, b models.Bookmark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failToggle {
		return errStore
	}
	f.bookmarks[b.QuestionID] = b
	return nil
}

func (f *fakeSink) ClearBookmark(ctx context.Context, userID, questionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failToggle {
		return errStore
	}
	delete(f.bookmarks, questionID)
	return nil
}

func (f *fakeSink) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func (f *fakeSink) hasBookmark(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.bookmarks[id]
	return ok
}

type fakeContent struct {
	chapters  map[string]models.Chapter
	questions map[string][]models.Question
	topics    map[string][]models.Topic
	fail      bool
	reads     int
}

func (f *fakeContent) Chapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	if f.fail {
		return nil, errStore
	}
	ch, ok := f.chapters[chapterID]
	if !ok {
		return nil, fmt.Errorf("chapter %s: not found", chapterID)
	}
	return &ch, nil
}

func (f *fakeContent) ChapterQuestions(ctx context.Context, chapterID string) ([]models.Question, error) {
	f.reads++
	if f.fail {
		return nil, errStore
	}
	return f.questions[chapterID], nil
}

func (f *fakeContent) ChapterTopics(ctx context.Context, chapterID string) ([]models.Topic, error) {
	f.reads++
	if f.fail {
		return nil, errStore
	}
	return f.topics[chapterID], nil
}

type fakeBookmarks struct {
	ids  map[string]bool
	fail bool
}

func (f *fakeBookmarks) BookmarkIDs(ctx context.Context, userID string) (map[string]bool, error) {
	if f.fail {
		return nil, errStore
	}
	out := make(map[string]bool, len(f.ids))
	for k, v := range f.ids {
		out[k] = v
	}
	return out, nil
}

type fakeCache struct {
	questions map[string][]models.Question
	topics    map[string][]models.Topic
	fail      bool
	sets      int
}

func newFakeCache() *fakeCache {
	return &fakeCache{questions: map[string][]models.Question{}, topics: map[string][]models.Topic{}}
}

func (c *fakeCache) Questions(ctx context.Context, chapterID string) ([]models.Question, bool, error) {
	if c.fail {
		return nil, false, errStore
	}
	qs, ok := c.questions[chapterID]
	return qs, ok, nil
}

func (c *fakeCache) SetQuestions(ctx context.Context, chapterID string, qs []models.Question) error {
	if c.fail {
		return errStore
	}
	c.sets++
	c.questions[chapterID] = qs
	return nil
}

func (c *fakeCache) Topics(ctx context.Context, chapterID string) ([]models.Topic, bool, error) {
	if c.fail {
		return nil, false, errStore
	}
	ts, ok := c.topics[chapterID]
	return ts, ok, nil
}

func (c *fakeCache) SetTopics(ctx context.Context, chapterID string, ts []models.Topic) error {
	if c.fail {
		return errStore
	}
	c.sets++
	c.topics[chapterID] = ts
	return nil
}

// reports collects logger items for the duration of a test.
type reports struct {
	mu    sync.Mutex
	items []string
}

func captureReports(t *testing.T) *reports {
	t.Helper()
	r := &reports{}
	t.Cleanup(logger.SetReporter(func(level, msg string, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.items = append(r.items, level+": "+msg)
	}))
	return r
}

func (r *reports) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if len(it) > len(level) && it[:len(level)+1] == level+":" {
			n++
		}
	}
	return n
}

// ── Fixtures ─────────────────────────────────────────────

func strPtr(s string) *string { return &s }

func seededRand() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.UnixMilli(1_700_000_000_000)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// question builds a four-option question whose correct option is the
// 1-based correct.
func question(id, topic string, correct int) models.Question {
	q := models.Question{
		ID:            id,
		ChapterID:     "c1",
		Question:      "Question " + id,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: correct,
		Explanation:   "Because " + id,
	}
	if topic != "" {
		q.TopicID = strPtr(topic)
	}
	return q
}

func testPool(qs ...models.Question) *Pool {
	return &Pool{
		ChapterID: "c1",
		SubjectID: "s1",
		Questions: qs,
		Topics: []models.Topic{
			{ID: "t1", Title: "Kinematics", ChapterID: "c1", SubjectID: "s1"},
			{ID: "t2", Title: "Dynamics", ChapterID: "c1", SubjectID: "s1"},
		},
		Bookmarks: map[string]bool{},
	}
}

func loadedSession(sink Sink, revision bool, pool *Pool) *Session {
	clock := newFakeClock()
	s := newSession("s1", "u1", pool.ChapterID, revision, sink, seededRand(), clock.Now)
	s.Load(pool)
	return s
}

// answer selects option and checks it, failing the test on any error.
func answer(t *testing.T, s *Session, option int) bool {
	t.Helper()
	if err := s.Select(option); err != nil {
		t.Fatalf("Select(%d): %v", option, err)
	}
	correct, err := s.Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	return correct
}

// currentAnswer returns the 0-based correct option of the current question.
func currentAnswer(s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working[s.prog.index].CorrectAnswer - 1
}
