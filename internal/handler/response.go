package handler

// RESPONSE HELPERS:
// Every API error has the same shape the frontend already parses:
//
//	{"error": "Invalid email or password"}
//
// Domain errors arrive from the service layer as apperror kinds; writeError
// is the one place that turns a kind into a status code. Anything that is
// not an AppError is an internal failure: it is logged with its full chain
// and the client only sees the endpoint's generic message.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/vaccine-portal/internal/apperror"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

const msgInvalidBody = "Invalid request body"

// ErrorResponse is the error body returned by every API endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data with the given status code. Headers must be set
// before WriteHeader; anything set after it is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already on the wire; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// statusFor maps an error to its status and client-facing message.
//
//	ErrValidation   → 400
//	ErrConflict     → 400 (a duplicate email is a bad registration request)
//	ErrUnauthorized → 401
//	ErrForbidden    → 401 (admin routes answer "Unauthorized" for both)
//	ErrNotFound     → 404
//	anything else   → 500 with fallback
func statusFor(err error, fallback string) (int, string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, fallback
	}

	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrConflict):
		return http.StatusBadRequest, appErr.Message
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrForbidden):
		return http.StatusUnauthorized, appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, appErr.Message
	}
	return http.StatusInternalServerError, fallback
}

// writeError sends err to the client. Internal errors are logged; the raw
// message could contain table names or upstream URLs, so it never reaches
// the response.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	status, message := statusFor(err, fallback)
	if status == http.StatusInternalServerError {
		logger.Error(fallback,
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeMessage(w, status, message)
}

// decodeJSON reads a JSON body into v. With strict set, unknown fields are
// rejected; the profile endpoint uses this so a client cannot smuggle in
// email or role.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	// Drain so keep-alive connections can be reused.
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}
