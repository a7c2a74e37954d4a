package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mcq-practice/backend/internal/docstore"
	"github.com/mcq-practice/backend/internal/models"
)

// Store reads and writes per-user attempt and bookmark records. Both are
// keyed by (user, question), so a later write replaces an earlier one.
type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

func (s *Store) RecordAttempt(ctx context.Context, a models.Attempt) error {
	a.ID = ""
	if err := s.docs.Put(ctx, models.CollectionAttempts, models.RecordKey(a.UserID, a.QuestionID), a); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

func (s *Store) SetBookmark(ctx context.Context, b models.Bookmark) error {
	b.ID = ""
	if err := s.docs.Put(ctx, models.CollectionBookmarks, models.RecordKey(b.UserID, b.QuestionID), b); err != nil {
		return fmt.Errorf("set bookmark: %w", err)
	}
	return nil
}

func (s *Store) ClearBookmark(ctx context.Context, userID, questionID string) error {
	if err := s.docs.Delete(ctx, models.CollectionBookmarks, models.RecordKey(userID, questionID)); err != nil {
		return fmt.Errorf("clear bookmark: %w", err)
	}
	return nil
}

// IsBookmarked reports whether the user has a bookmark on questionID.
func (s *Store) IsBookmarked(ctx context.Context, userID, questionID string) (bool, error) {
	var b models.Bookmark
	err := s.docs.Get(ctx, models.CollectionBookmarks, models.RecordKey(userID, questionID), &b)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get bookmark: %w", err)
	}
	return true, nil
}

// BookmarkIDs returns the set of question ids the user has bookmarked.
func (s *Store) BookmarkIDs(ctx context.Context, userID string) (map[string]bool, error) {
	bookmarks, err := s.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(bookmarks))
	for _, b := range bookmarks {
		ids[b.QuestionID] = true
	}
	return ids, nil
}

// ListBookmarks returns the user's bookmarks, newest first.
func (s *Store) ListBookmarks(ctx context.Context, userID string) ([]models.Bookmark, error) {
	var bookmarks []models.Bookmark
	if err := s.docs.Find(ctx, models.CollectionBookmarks, docstore.Filter{"userId": userID}, &bookmarks); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	sort.SliceStable(bookmarks, func(i, j int) bool {
		return bookmarks[i].Timestamp > bookmarks[j].Timestamp
	})
	return bookmarks, nil
}

func (s *Store) ListAttempts(ctx context.Context, userID string) ([]models.Attempt, error) {
	var attempts []models.Attempt
	if err := s.docs.Find(ctx, models.CollectionAttempts, docstore.Filter{"userId": userID}, &attempts); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}
