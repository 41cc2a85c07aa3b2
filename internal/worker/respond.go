package worker

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/dilse/internal/activity"
	"github.com/thebtf/dilse/internal/generation"
	"github.com/thebtf/dilse/internal/identity"
	"github.com/thebtf/dilse/internal/ledger"
	"github.com/thebtf/dilse/internal/practice"
	"github.com/thebtf/dilse/pkg/models"
)

// User-facing sentences for failures that carry no sentence of their own.
const (
	msgLoginRequired    = "Please log in to track your practice."
	msgStoreUnavailable = "Unable to reach the server. Please check your connection and try again."
	msgNotFound         = "Entry not found."
	msgPermission       = "Permission denied. Please make sure you're logged in and try again."
	msgBadBody          = "Invalid request body"
	msgInternal         = "Internal server error"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps err onto a status code and a sentence safe to show the user.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	writeMessage(w, status, msg)
}

func classify(err error) (int, string) {
	var genErr *generation.Error
	if errors.As(err, &genErr) {
		return genErr.HTTPStatus(), genErr.Message
	}

	var authErr *identity.AuthError
	if errors.As(err, &authErr) {
		return authStatus(authErr.Code), authErr.Message()
	}

	if errors.Is(err, practice.ErrNotAuthenticated) || errors.Is(err, ledger.ErrNoIdentity) {
		return http.StatusUnauthorized, msgLoginRequired
	}

	if kind, ok := ledger.KindOf(err); ok {
		switch kind {
		case ledger.KindNotFound:
			return http.StatusNotFound, msgNotFound
		case ledger.KindPermissionDenied:
			return http.StatusForbidden, msgPermission
		default:
			return http.StatusServiceUnavailable, msgStoreUnavailable
		}
	}

	switch {
	case errors.Is(err, activity.ErrUnknownMeditation):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrInvalidEntry),
		errors.Is(err, models.ErrUnknownTool),
		errors.Is(err, models.ErrNegativeDuration),
		errors.Is(err, activity.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, msgInternal
}

func authStatus(code identity.Code) int {
	switch code {
	case identity.CodeInvalidEmail, identity.CodeWeakPassword:
		return http.StatusBadRequest
	case identity.CodeUserNotFound, identity.CodeWrongPassword, identity.CodeInvalidCredential:
		return http.StatusUnauthorized
	case identity.CodeUserDisabled, identity.CodeOperationNotAllowed:
		return http.StatusForbidden
	case identity.CodeEmailAlreadyInUse:
		return http.StatusConflict
	case identity.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case identity.CodeNetwork:
		return http.StatusBadGateway
	case identity.CodeMisconfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
