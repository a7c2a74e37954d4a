package quiz

import (
	"context"

	"github.com/mcq-practice/backend/internal/logger"
	"github.com/mcq-practice/backend/internal/models"
)

// ContentSource reads chapter content from the document store.
type ContentSource interface {
	Chapter(ctx context.Context, chapterID string) (*models.Chapter, error)
	ChapterQuestions(ctx context.Context, chapterID string) ([]models.Question, error)
	ChapterTopics(ctx context.Context, chapterID string) ([]models.Topic, error)
}

// BookmarkSource returns the ids of every question a user has bookmarked.
type BookmarkSource interface {
	BookmarkIDs(ctx context.Context, userID string) (map[string]bool, error)
}

// PoolCache is an optional read-through cache in front of ContentSource.
type PoolCache interface {
	Questions(ctx context.Context, chapterID string) ([]models.Question, bool, error)
	SetQuestions(ctx context.Context, chapterID string, qs []models.Question) error
	Topics(ctx context.Context, chapterID string) ([]models.Topic, bool, error)
	SetTopics(ctx context.Context, chapterID string, ts []models.Topic) error
}

// Pool is the read-only data a session is built from.
type Pool struct {
	ChapterID string
	SubjectID string
	Revision  bool
	Questions []models.Question
	Topics    []models.Topic
	Bookmarks map[string]bool
}

type Loader struct {
	content   ContentSource
	bookmarks BookmarkSource
	cache     PoolCache
}

// NewLoader builds a loader. cache may be nil.
func NewLoader(content ContentSource, bookmarks BookmarkSource, cache PoolCache) *Loader {
	return &Loader{content: content, bookmarks: bookmarks, cache: cache}
}

// LoadPool never fails: every read error is logged and the affected part of
// the pool is left empty.
func (l *Loader) LoadPool(ctx context.Context, chapterID, userID string, revision bool) *Pool {
	pool := &Pool{ChapterID: chapterID, Revision: revision}

	if ch, err := l.content.Chapter(ctx, chapterID); err != nil {
		logger.Errorf("[quiz] chapter %s lookup failed: %v", chapterID, err)
	} else {
		pool.SubjectID = ch.SubjectID
	}

	pool.Questions = l.questions(ctx, chapterID)
	if !revision {
		pool.Topics = l.topics(ctx, chapterID)
	}

	bookmarks, err := l.bookmarks.BookmarkIDs(ctx, userID)
	if err != nil {
		logger.Errorf("[quiz] bookmarks of user %s failed: %v", userID, err)
		bookmarks = nil
	}
	if bookmarks == nil {
		bookmarks = make(map[string]bool)
	}
	pool.Bookmarks = bookmarks

	if revision {
		kept := pool.Questions[:0:0]
		for _, q := range pool.Questions {
			if bookmarks[q.ID] {
				kept = append(kept, q)
			}
		}
		pool.Questions = kept
	}
	return pool
}

func (l *Loader) questions(ctx context.Context, chapterID string) []models.Question {
	if l.cache != nil {
		qs, ok, err := l.cache.Questions(ctx, chapterID)
		if err != nil {
			logger.Warnf("[quiz] pool cache read failed for %s: %v", chapterID, err)
		} else if ok {
			return qs
		}
	}

	qs, err := l.content.ChapterQuestions(ctx, chapterID)
	if err != nil {
		logger.Errorf("[quiz] questions of chapter %s failed: %v", chapterID, err)
		return nil
	}
	if l.cache != nil {
		if err := l.cache.SetQuestions(ctx, chapterID, qs); err != nil {
			logger.Warnf("[quiz] pool cache write failed for %s: %v", chapterID, err)
		}
	}
	return qs
}

func (l *Loader) topics(ctx context.Context, chapterID string) []models.Topic {
	if l.cache != nil {
		ts, ok, err := l.cache.Topics(ctx, chapterID)
		if err != nil {
			logger.Warnf("[quiz] topic cache read failed for %s: %v", chapterID, err)
		} else if ok {
			return ts
		}
	}

	ts, err := l.content.ChapterTopics(ctx, chapterID)
	if err != nil {
		logger.Errorf("[quiz] topics of chapter %s failed: %v", chapterID, err)
		return nil
	}
	if l.cache != nil {
		if err := l.cache.SetTopics(ctx, chapterID, ts); err != nil {
			logger.Warnf("[quiz] topic cache write failed for %s: %v", chapterID, err)
		}
	}
	return ts
}
