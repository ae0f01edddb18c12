package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/quillchat/api/internal/asset"
	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/invite"
	"github.com/quillchat/api/internal/message"
	"github.com/quillchat/api/internal/permissions"
	"github.com/quillchat/api/internal/store"
	"github.com/quillchat/api/internal/user"
	"github.com/quillchat/api/internal/workspace"
)

// Common error codes
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeNotOwner         = "NOT_OWNER"
	ErrCodeNotInGroup       = "NOT_IN_GROUP"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeNotSupported     = "NOT_SUPPORTED"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func newErrorResponse(code, message string) errorResponse {
	return errorResponse{Error: apiError{Code: code, Message: message}}
}

// respondError maps a domain error onto its wire shape. Unknown errors
// are logged and reported as internal.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, channel.ErrChannelNotFound),
		errors.Is(err, message.ErrMessageNotFound),
		errors.Is(err, asset.ErrAttachmentNotFound),
		errors.Is(err, invite.ErrTokenNotFound),
		errors.Is(err, workspace.ErrWorkspaceNotFound),
		errors.Is(err, user.ErrUserNotFound):
		respondJSON(w, http.StatusNotFound, newErrorResponse(ErrCodeNotFound, err.Error()))
	case errors.Is(err, permissions.ErrPermissionDenied):
		respondJSON(w, http.StatusForbidden, newErrorResponse(ErrCodePermissionDenied, err.Error()))
	case errors.Is(err, channel.ErrNotOwner):
		respondJSON(w, http.StatusForbidden, newErrorResponse(ErrCodeNotOwner, err.Error()))
	case errors.Is(err, channel.ErrNotInGroup):
		respondJSON(w, http.StatusBadRequest, newErrorResponse(ErrCodeNotInGroup, err.Error()))
	case errors.Is(err, channel.ErrInvalidOperation):
		respondJSON(w, http.StatusBadRequest, newErrorResponse(ErrCodeInvalidOperation, err.Error()))
	case errors.Is(err, message.ErrEmptyMessage),
		errors.Is(err, message.ErrInvalidInteractions):
		respondJSON(w, http.StatusBadRequest, newErrorResponse(ErrCodeValidationError, err.Error()))
	case errors.Is(err, store.ErrNotSupported):
		respondJSON(w, http.StatusNotImplemented, newErrorResponse(ErrCodeNotSupported, err.Error()))
	default:
		slog.Error("request failed", "component", "handler", "error", err)
		respondJSON(w, http.StatusInternalServerError, newErrorResponse(ErrCodeInternalError, "internal error"))
	}
}
