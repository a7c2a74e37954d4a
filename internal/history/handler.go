package history

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcq-practice/backend/internal/logger"
	"github.com/mcq-practice/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers bookmark and progress endpoints on the protected subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/bookmarks", h.GetBookmarks).Methods("GET")
	protected.HandleFunc("/bookmarks/{questionID}", h.PutBookmark).Methods("PUT")
	protected.HandleFunc("/bookmarks/{questionID}", h.DeleteBookmark).Methods("DELETE")

	protected.HandleFunc("/progress", h.GetProgress).Methods("GET")
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	if !ok {
		return "", false
	}
	return models.UserKey(uid), true
}

func (h *Handler) GetBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.ListBookmarks(r.Context(), userID)
	if err != nil {
		logger.Errorf("[handler] GetBookmarks error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get bookmarks"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) PutBookmark(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	b, err := h.service.AddBookmark(r.Context(), userID, mux.Vars(r)["questionID"])
	if errors.Is(err, ErrQuestionNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
		return
	}
	if err != nil {
		logger.Errorf("[handler] PutBookmark error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Error updating bookmark"})
		return
	}

	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	if err := h.service.RemoveBookmark(r.Context(), userID, mux.Vars(r)["questionID"]); err != nil {
		logger.Errorf("[handler] DeleteBookmark error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Error updating bookmark"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from bookmarks"})
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	classLevel := r.URL.Query().Get("class_level")
	if classLevel == "" {
		classLevel = models.DefaultClassLevel
	}
	if !models.ValidClassLevel(classLevel) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid class level"})
		return
	}

	report, err := h.service.ProgressReport(r.Context(), userID, classLevel)
	if err != nil {
		logger.Errorf("[handler] GetProgress error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to build progress report"})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
