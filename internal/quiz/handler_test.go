package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcq-practice/backend/internal/models"
)

type testServer struct {
	router  *mux.Router
	manager *Manager
	sink    *fakeSink
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	sink := newFakeSink()
	m := NewManager(NewLoader(chapterContent(), &fakeBookmarks{}, nil), sink, time.Hour)
	m.newRand = func() *rand.Rand { return seededRand() }

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	NewHandler(m).RegisterRoutes(api)
	return &testServer{router: router, manager: m, sink: sink}
}

func (ts *testServer) do(t *testing.T, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != 0 {
		req = req.WithContext(context.WithValue(req.Context(), "user_id", userID))
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandler_PracticeFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/practice/sessions", 42, map[string]interface{}{"chapter_id": "c1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[models.SessionView](t, rec)
	assert.Equal(t, models.PhaseAwaitingSelection, view.Phase)
	assert.Equal(t, 4, view.Total)
	base := "/api/v1/practice/sessions/" + view.SessionID

	rec = ts.do(t, http.MethodPost, base+"/filter", 42, map[string]interface{}{"count": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[models.SessionView](t, rec)
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, []string{msgRestarted}, view.Notifications)

	for i := 0; i < 2; i++ {
		rec = ts.do(t, http.MethodPost, base+"/check", 42, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, "check without selection")

		rec = ts.do(t, http.MethodPost, base+"/select", 42, map[string]int{"option": 0})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodPost, base+"/check", 42, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		view = decode[models.SessionView](t, rec)
		assert.Equal(t, models.PhaseChecked, view.Phase)
		require.NotNil(t, view.Question.CorrectAnswer)

		rec = ts.do(t, http.MethodPost, base+"/next", 42, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = ts.do(t, http.MethodGet, base+"/summary", 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[models.SessionSummary](t, rec)
	assert.Equal(t, 2, summary.Total)
	assert.Len(t, summary.Answers, 2)

	rec = ts.do(t, http.MethodGet, base+"/review", 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	review := decode[map[string][]models.ReviewItem](t, rec)
	assert.Len(t, review["review"], 2)

	rec = ts.do(t, http.MethodDelete, base, 42, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, base, 42, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.manager.Wait()
}

func TestHandler_Errors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/practice/sessions", 0, map[string]string{"chapter_id": "c1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/practice/sessions", 42, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/practice/sessions/does-not-exist", 42, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/practice/sessions", 42, map[string]string{"chapter_id": "c1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/api/v1/practice/sessions/" + decode[models.SessionView](t, rec).SessionID

	// sessions are private to their owner
	rec = ts.do(t, http.MethodGet, base, 7, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"/select", 42, map[string]int{"option": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"/select", 42, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing option")

	rec = ts.do(t, http.MethodPost, base+"/next", 42, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"/summary", 42, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	errResp := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, ErrNotComplete.Error(), errResp.Error)
}

func TestHandler_ToggleBookmark(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/practice/sessions", 42, map[string]string{"chapter_id": "c1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/api/v1/practice/sessions/" + decode[models.SessionView](t, rec).SessionID

	rec = ts.do(t, http.MethodPost, base+"/bookmark", 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.ToggleBookmarkResponse](t, rec)
	assert.Equal(t, "q1", resp.QuestionID)
	assert.True(t, resp.Bookmarked)

	ts.manager.Wait()
	assert.True(t, ts.sink.hasBookmark("q1"))

	rec = ts.do(t, http.MethodGet, base, 42, nil)
	view := decode[models.SessionView](t, rec)
	assert.True(t, view.Question.Bookmarked)
	assert.Equal(t, []string{msgBookmarkAdded}, view.Notifications)

	rec = ts.do(t, http.MethodPost, base+"/bookmark", 42, map[string]string{"question_id": "q3"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "q3", decode[models.ToggleBookmarkResponse](t, rec).QuestionID)

	rec = ts.do(t, http.MethodPost, base+"/bookmark", 42, map[string]string{"question_id": "zzz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.manager.Wait()
}

func TestHandler_ToggleBookmarkMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/practice/sessions", 42, map[string]string{"chapter_id": "c1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/api/v1/practice/sessions/" + decode[models.SessionView](t, rec).SessionID

	req := httptest.NewRequest(http.MethodPost, base+"/bookmark", bytes.NewBufferString(`{"question_id":`))
	req = req.WithContext(context.WithValue(req.Context(), "user_id", int64(42)))
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.manager.Wait()
	assert.False(t, ts.sink.hasBookmark("q1"))

	view := decode[models.SessionView](t, ts.do(t, http.MethodGet, base, 42, nil))
	assert.False(t, view.Question.Bookmarked)
	assert.Empty(t, view.Notifications)
}

func TestHandler_FilterOptions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/practice/sessions", 42, map[string]string{"chapter_id": "c1"})
	base := "/api/v1/practice/sessions/" + decode[models.SessionView](t, rec).SessionID

	rec = ts.do(t, http.MethodGet, base+"/filter?topic_id=t2", 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	opts := decode[models.FilterOptions](t, rec)
	assert.Equal(t, 2, opts.MaxAvailable)
	assert.Len(t, opts.Topics, 2)
}
