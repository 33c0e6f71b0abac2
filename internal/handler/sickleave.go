package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/krankmeldung/internal/apperror"
	"github.com/sakif/krankmeldung/internal/auth"
	"github.com/sakif/krankmeldung/internal/metrics"
	"github.com/sakif/krankmeldung/internal/model"
	"github.com/sakif/krankmeldung/internal/service"
)

// SickLeaveHandler serves the session-gated sick-leave API. Every route
// runs behind auth.RequireAuth.
type SickLeaveHandler struct {
	service *service.SickLeaveService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewSickLeaveHandler(svc *service.SickLeaveService, m *metrics.Metrics, logger *slog.Logger) *SickLeaveHandler {
	return &SickLeaveHandler{service: svc, metrics: m, logger: logger}
}

// HandleList returns the user's sick leaves of the current year as a JSON
// array, newest first.
//
// HTTP: GET /sick-leaves
func (h *SickLeaveHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	leaves, err := h.service.List(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, leaves)
}

// HandleCreate stores a sick leave and responds with {"sickLeave": ...}.
//
// HTTP: POST /sick-leaves
func (h *SickLeaveHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req sickLeaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.rejected(w, r, err)
		return
	}

	leave, err := h.service.Create(r.Context(), id, req.draft())
	if err != nil {
		h.rejected(w, r, err)
		return
	}
	h.metrics.SickLeaveCreated()

	writeJSON(w, http.StatusOK, map[string]*model.SickLeave{"sickLeave": leave})
}

// previewResponse is what the client needs to open the user's mail program.
type previewResponse struct {
	To         string   `json:"to"`
	Cc         []string `json:"cc"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Mailto     string   `json:"mailto"`
}

// HandlePreview validates a draft like HandleCreate and returns the composed
// notification email without storing anything.
//
// HTTP: POST /sick-leaves/preview
func (h *SickLeaveHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req sickLeaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.rejected(w, r, err)
		return
	}

	tmpl, err := h.service.Preview(id, req.draft())
	if err != nil {
		h.rejected(w, r, err)
		return
	}
	h.metrics.PreviewComposed()

	writeJSON(w, http.StatusOK, previewResponse{
		To:         tmpl.To(),
		Cc:         tmpl.Cc(),
		Recipients: tmpl.Recipients,
		Subject:    tmpl.Subject,
		Body:       tmpl.Body,
		Mailto:     tmpl.MailtoURL(),
	})
}

// rejected counts validation failures before writing the error.
func (h *SickLeaveHandler) rejected(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.Is(err, apperror.ErrValidation) && errors.As(err, &appErr) {
		h.metrics.ValidationFailed(appErr.Field)
	}
	writeError(w, r, err)
}
