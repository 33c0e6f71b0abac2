package handler

// Every error response has the same shape:
//
//	{"error": "validation_error", "message": "Bitte füllen Sie alle Projekt-Felder aus."}
//
// "error" is machine-readable, "message" is shown to the user as is.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/sakif/krankmeldung/internal/apperror"
)

// maxBodyBytes caps request bodies. Sick-leave drafts are small.
const maxBodyBytes = 1 << 20

const msgInternal = "Interner Serverfehler"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an error to its HTTP status.
//
//	ErrValidation, ErrConflict → 400
//	ErrUnauthorized            → 401
//	ErrForbidden               → 403
//	ErrNotFound                → 404
//	anything else              → 500, reported to Sentry
//
// Conflicts are 400 because the signup form treats "email taken" like any
// other invalid input. 500 bodies never carry internal detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := classify(err)
		message := appErr.Message
		if status == http.StatusInternalServerError {
			report(r, err)
			if message == "" {
				message = msgInternal
			}
		}
		writeJSON(w, status, ErrorResponse{Error: errorType, Message: message})
		return
	}

	report(r, err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: msgInternal,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusBadRequest, "conflict"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrStorage):
		return http.StatusInternalServerError, "storage_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// report sends err to Sentry when the request carries a hub, which the
// sentryhttp middleware attaches only if Sentry is configured.
func report(r *http.Request, err error) {
	if r == nil {
		return
	}
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// decodeJSON reads a JSON body into dst. Malformed bodies become
// apperror.ErrValidation so they surface as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("", "Leerer Request-Body")
		}
		var fieldErr *invalidFieldError
		if errors.As(err, &fieldErr) {
			return apperror.ValidationFailed(fieldErr.field, fieldErr.message)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperror.ValidationFailed(typeErr.Field, "Ungültiger Wert für "+typeErr.Field)
		}
		return apperror.ValidationFailed("", fmt.Sprintf("Ungültiges JSON: %v", err))
	}
	return nil
}

// invalidFieldError is returned by custom UnmarshalJSON methods so the
// decoder can report which field was malformed.
type invalidFieldError struct {
	field   string
	message string
}

func (e *invalidFieldError) Error() string { return e.field + ": " + e.message }
