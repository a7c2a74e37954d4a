package content

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcq-practice/backend/internal/generator"
	"github.com/mcq-practice/backend/internal/logger"
	"github.com/mcq-practice/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the browsing endpoints on the protected subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/subjects", h.ListSubjects).Methods("GET")
	protected.HandleFunc("/subjects/{id}/chapters", h.ListChapters).Methods("GET")
	protected.HandleFunc("/chapters/{id}/topics", h.ListTopics).Methods("GET")
	protected.HandleFunc("/chapters/{id}/formulas", h.ListFormulas).Methods("GET")
}

// RegisterAdminRoutes registers content management endpoints. The caller
// guards admin with the admin-only middleware.
func (h *Handler) RegisterAdminRoutes(admin *mux.Router) {
	admin.HandleFunc("/subjects", h.AddSubject).Methods("POST")
	admin.HandleFunc("/subjects/{id}", h.DeleteSubject).Methods("DELETE")
	admin.HandleFunc("/chapters", h.AddChapter).Methods("POST")
	admin.HandleFunc("/chapters/{id}", h.DeleteChapter).Methods("DELETE")
	admin.HandleFunc("/topics", h.AddTopic).Methods("POST")
	admin.HandleFunc("/topics/{id}", h.DeleteTopic).Methods("DELETE")

	admin.HandleFunc("/formulas", h.CreateFormula).Methods("POST")
	admin.HandleFunc("/formulas/check", h.CheckLatex).Methods("POST")
	admin.HandleFunc("/formulas/{id}", h.UpdateFormula).Methods("PUT")
	admin.HandleFunc("/formulas/{id}", h.DeleteFormula).Methods("DELETE")

	admin.HandleFunc("/questions/bulk", h.BulkUpload).Methods("POST")
	admin.HandleFunc("/questions/drafts", h.GenerateDrafts).Methods("POST")
}

// ── Browsing ─────────────────────────────────────────────

func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	classLevel := q.Get("class_level")
	if classLevel == "" {
		classLevel = models.DefaultClassLevel
	}

	subjects, err := h.service.ListSubjects(r.Context(), classLevel, q.Get("search"), q.Get("status"))
	if err != nil {
		writeError(w, "ListSubjects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects})
}

func (h *Handler) ListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.service.Chapters(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "ListChapters", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chapters": chapters})
}

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.service.Topics(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "ListTopics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

func (h *Handler) ListFormulas(w http.ResponseWriter, r *http.Request) {
	formulas, err := h.service.Formulas(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "ListFormulas", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"formulas": formulas})
}

// ── Admin ────────────────────────────────────────────────

func (h *Handler) AddSubject(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSubjectRequest
	if !decode(w, r, &req) {
		return
	}
	sub, err := h.service.AddSubject(r.Context(), req)
	if err != nil {
		writeError(w, "AddSubject", err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSubject(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, "DeleteSubject", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddChapter(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChapterRequest
	if !decode(w, r, &req) {
		return
	}
	ch, err := h.service.AddChapter(r.Context(), req)
	if err != nil {
		writeError(w, "AddChapter", err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *Handler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteChapter(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, "DeleteChapter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddTopic(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTopicRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.service.AddTopic(r.Context(), req)
	if err != nil {
		writeError(w, "AddTopic", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTopic(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, "DeleteTopic", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateFormula(w http.ResponseWriter, r *http.Request) {
	var req models.FormulaRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.CreateFormula(r.Context(), req)
	if err != nil {
		writeError(w, "CreateFormula", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) UpdateFormula(w http.ResponseWriter, r *http.Request) {
	var req models.FormulaRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.UpdateFormula(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, "UpdateFormula", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteFormula(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteFormula(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, "DeleteFormula", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CheckLatex(w http.ResponseWriter, r *http.Request) {
	var req models.LatexCheckRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, CheckLatex(req.Content))
}

func (h *Handler) BulkUpload(w http.ResponseWriter, r *http.Request) {
	var req models.BulkUploadRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.BulkUpload(r.Context(), req)
	if err != nil {
		writeError(w, "BulkUpload", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GenerateDrafts(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateDraftsRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.service.GenerateDrafts(r.Context(), req)
	if err != nil {
		writeError(w, "GenerateDrafts", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ──────────────────────────────────────────────

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, op string, err error) {
	var inputErr *InputError
	var draftErr *generator.ValidationError

	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: inputErr.Message, Details: inputErr.Details})
	case errors.Is(err, ErrDuplicate):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	case errors.Is(err, ErrInvalidClassLevel), errors.Is(err, ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrGeneratorDisabled):
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: err.Error()})
	case errors.As(err, &draftErr):
		logger.Errorf("[handler] %s: %v", op, err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Drafts failed validation", Details: draftErr.Errors})
	default:
		logger.Errorf("[handler] %s error: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
