package quiz

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/mcq-practice/backend/internal/logger"
	"github.com/mcq-practice/backend/internal/models"
)

type Handler struct {
	manager  *Manager
	validate *validator.Validate
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager, validate: validator.New()}
}

// RegisterRoutes registers practice session endpoints on the protected subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/practice/sessions", h.StartSession).Methods("POST")
	protected.HandleFunc("/practice/sessions/{id}", h.GetSession).Methods("GET")
	protected.HandleFunc("/practice/sessions/{id}", h.EndSession).Methods("DELETE")
	protected.HandleFunc("/practice/sessions/{id}/filter", h.GetFilterOptions).Methods("GET")
	protected.HandleFunc("/practice/sessions/{id}/filter", h.ApplyFilter).Methods("POST")
	protected.HandleFunc("/practice/sessions/{id}/restart", h.Restart).Methods("POST")
	protected.HandleFunc("/practice/sessions/{id}/select", h.SelectOption).Methods("POST")
	protected.HandleFunc("/practice/sessions/{id}/check", h.CheckAnswer).Methods("POST")
	protected.HandleFunc("/practice/sessions/{id}/next", h.Next).Methods("POST")
	protected.HandleFunc("/practice/sessions/{id}/bookmark", h.ToggleBookmark).Methods("POST")
	protected.HandleFunc("/practice/sessions/{id}/summary", h.GetSummary).Methods("GET")
	protected.HandleFunc("/practice/sessions/{id}/review", h.GetReview).Methods("GET")
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	if !ok {
		return "", false
	}
	return models.UserKey(uid), true
}

// session resolves the {id} route variable, writing the error response
// itself when the session cannot be used.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return nil, false
	}
	s, err := h.manager.Get(mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "chapter_id is required"})
		return
	}

	s := h.manager.Start(r.Context(), userID, req.ChapterID, req.Revision)
	writeJSON(w, http.StatusCreated, s.View())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	if err := h.manager.End(mux.Vars(r)["id"], userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session ended"})
}

func (h *Handler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var topicID *string
	if t := r.URL.Query().Get("topic_id"); t != "" {
		topicID = &t
	}
	opts, err := s.FilterOptions(topicID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (h *Handler) ApplyFilter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.TopicID != nil && *req.TopicID == "" {
		req.TopicID = nil
	}

	if err := s.ApplyFilter(req.TopicID, req.Count); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Restart(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) SelectOption(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.SelectOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "option is required"})
		return
	}

	if err := s.Select(*req.Option); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) CheckAnswer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, err := s.Check(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Next(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	// the body is optional; an empty one toggles the current question
	var req models.ToggleBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	questionID, bookmarked, err := s.ToggleBookmark(req.QuestionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ToggleBookmarkResponse{QuestionID: questionID, Bookmarked: bookmarked})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	summary, err := s.Summary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	items, err := s.Review()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"review": items})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrOptionOutOfRange), errors.Is(err, ErrUnknownQuestion):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrLoading),
		errors.Is(err, ErrNoQuestions),
		errors.Is(err, ErrNoSelection),
		errors.Is(err, ErrAlreadyChecked),
		errors.Is(err, ErrNotChecked),
		errors.Is(err, ErrSessionComplete),
		errors.Is(err, ErrNotComplete):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	default:
		logger.Errorf("[handler] practice session error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
