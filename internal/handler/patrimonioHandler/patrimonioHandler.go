// Package patrimonioHandler exposes the patrimônio lifecycle over HTTP:
// search, detail view, the multipart manage form and the permission screens.
package patrimonioHandler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"patrimonio-service/internal/service/patrimonioService"
	"patrimonio-service/pkg/logger"
	"patrimonio-service/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// multipart submissions carry one phone photo; 32 MiB is far above any
// camera output we accept
const maxFormMemory = 32 << 20

type PatrimonioHandler struct {
	svc *patrimonioService.Service
}

func New(svc *patrimonioService.Service) *PatrimonioHandler {
	return &PatrimonioHandler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *patrimonioService.ValidationError
	var cerr *patrimonioService.CollisionError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"field": verr.Field, "message": verr.Message,
		})
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusConflict, map[string]string{
			"field": cerr.Field, "message": cerr.Error(),
		})
	case errors.Is(err, patrimonioService.ErrNotFound):
		http.Error(w, "patrimônio not found", http.StatusNotFound)
	case errors.Is(err, patrimonioService.ErrForbidden):
		http.Error(w, "not allowed", http.StatusForbidden)
	case errors.Is(err, patrimonioService.ErrUnauthenticated):
		http.Error(w, "authentication required", http.StatusUnauthorized)
	default:
		logger.GetLogger(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func recordID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// parseSaveInput reads the multipart manage form.
func parseSaveInput(r *http.Request) (patrimonioService.SaveInput, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return patrimonioService.SaveInput{}, err
	}
	in := patrimonioService.SaveInput{
		PatNum:      r.FormValue("patNum"),
		AtmNum:      r.FormValue("atmNum"),
		AtmEnabled:  r.FormValue("atmEnabled") == "true",
		Descricao:   r.FormValue("descricao"),
		Valor:       r.FormValue("valor"),
		Sala:        r.FormValue("sala"),
		Conservacao: r.FormValue("conservacao"),
		Responsavel: r.FormValue("responsavel"),
		RemoveImage: r.FormValue("removeImage") == "true",
	}

	file, _, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return patrimonioService.SaveInput{}, err
		}
		in.ImageData = data
	} else if !errors.Is(err, http.ErrMissingFile) {
		return patrimonioService.SaveInput{}, err
	}
	return in, nil
}

type saveResponse struct {
	Patrimonio interface{} `json:"patrimonio"`
	Warning    string      `json:"warning,omitempty"`
}

// Search finds records by a raw scanned payload (q), patNum, atmNum or
// sala.
// GET /api/patrimonios
func (h *PatrimonioHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := patrimonioService.SearchQuery{
		Query:  r.URL.Query().Get("q"),
		PatNum: r.URL.Query().Get("patNum"),
		AtmNum: r.URL.Query().Get("atmNum"),
		Sala:   r.URL.Query().Get("sala"),
	}
	views, err := h.svc.Search(r.Context(), middleware.UserID(r.Context()), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Get returns one record prepared for display.
// GET /api/patrimonios/{id}
func (h *PatrimonioHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	view, err := h.svc.Get(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Create registers a new record from the manage form.
// POST /api/patrimonios
func (h *PatrimonioHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := parseSaveInput(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	res, err := h.svc.Create(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saveResponse{Patrimonio: res.Patrimonio, Warning: res.Warning})
}

// Update edits an existing record from the manage form.
// PUT /api/patrimonios/{id}
func (h *PatrimonioHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	in, err := parseSaveInput(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	res, err := h.svc.Update(r.Context(), middleware.UserID(r.Context()), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Patrimonio: res.Patrimonio, Warning: res.Warning})
}

// Delete removes a record and its photo.
// DELETE /api/patrimonios/{id}
func (h *PatrimonioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.svc.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEditors renders the permissions screen for one record.
// GET /api/patrimonios/{id}/permissions
func (h *PatrimonioHandler) ListEditors(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	entries, err := h.svc.ListEditors(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// SetEditors replaces the record's specific grants with the submitted set.
// PUT /api/patrimonios/{id}/permissions
func (h *PatrimonioHandler) SetEditors(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		UserIDs []uuid.UUID `json:"user_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetEditors(r.Context(), middleware.UserID(r.Context()), id, req.UserIDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GrantWildcard lets the caller open all of their records to one user.
// POST /api/permissions/wildcard/{userID}
func (h *PatrimonioHandler) GrantWildcard(w http.ResponseWriter, r *http.Request) {
	grantee, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if err := h.svc.GrantWildcard(r.Context(), middleware.UserID(r.Context()), grantee); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeWildcard withdraws a wildcard grant.
// DELETE /api/permissions/wildcard/{userID}
func (h *PatrimonioHandler) RevokeWildcard(w http.ResponseWriter, r *http.Request) {
	grantee, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if err := h.svc.RevokeWildcard(r.Context(), middleware.UserID(r.Context()), grantee); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
