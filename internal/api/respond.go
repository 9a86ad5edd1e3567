package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"bakchod/infrastructure"
	"bakchod/pkg/apperr"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode", http.StatusInternalServerError)
	}
}

type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case apperr.CodeInvalidArgument:
		status = http.StatusBadRequest
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeAlreadyExists, apperr.CodeFailedPrecondition:
		status = http.StatusConflict
	case apperr.CodePermissionDenied:
		status = http.StatusForbidden
	case apperr.CodeUnavailable:
		status = http.StatusServiceUnavailable
	case apperr.CodeUnknown:
		switch {
		case errors.Is(err, infrastructure.ErrNotFound),
			errors.Is(err, infrastructure.ErrChatNotFound),
			errors.Is(err, infrastructure.ErrMessageNotFound),
			errors.Is(err, infrastructure.ErrCallNotFound),
			errors.Is(err, infrastructure.ErrUserNotFound):
			status = http.StatusNotFound
			code = apperr.CodeNotFound
		case errors.Is(err, infrastructure.ErrMissingToken),
			errors.Is(err, infrastructure.ErrInvalidToken):
			status = http.StatusUnauthorized
		}
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internals stay in the logs.
		msg = "internal server error"
		code = apperr.CodeInternal
	}
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}
