package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillchat/api/internal/auth"
	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/permissions"
)

// editChannelRequest is the sparse PATCH payload. Field names in remove
// must come from the known clearable set.
type editChannelRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Owner       *string           `json:"owner,omitempty"`
	Icon        *string           `json:"icon,omitempty"`
	Banners     *[]channel.Banner `json:"banners,omitempty"`
	NSFW        *bool             `json:"nsfw,omitempty"`
	Password    *string           `json:"password,omitempty"`
	Archived    *bool             `json:"archived,omitempty"`
	Active      *bool             `json:"active,omitempty"`
	Remove      []string          `json:"remove,omitempty"`
}

// EditChannel handles PATCH /api/channels/{channelID}.
func (h *Handler) EditChannel(w http.ResponseWriter, r *http.Request) {
	actor := auth.UserID(r.Context())
	channelID := chi.URLParam(r, "channelID")

	var req editChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, newErrorResponse(ErrCodeInvalidJSON, "invalid request body"))
		return
	}

	edit := channel.Edit{
		Name:        req.Name,
		Description: req.Description,
		Owner:       req.Owner,
		Icon:        req.Icon,
		Banners:     req.Banners,
		NSFW:        req.NSFW,
		Password:    req.Password,
		Archived:    req.Archived,
		Active:      req.Active,
	}
	for _, name := range req.Remove {
		field, ok := channel.ParseField(name)
		if !ok {
			respondJSON(w, http.StatusBadRequest, newErrorResponse(ErrCodeValidationError, "unknown removable field: "+name))
			return
		}
		// Removing and setting the same field in one request is rejected.
		if conflictsWithSet(field, edit) {
			respondJSON(w, http.StatusBadRequest, newErrorResponse(ErrCodeValidationError, "cannot set and remove "+name+" in one request"))
			return
		}
		edit.Remove = append(edit.Remove, field)
	}

	ch, err := h.gateway.Channels.GetChannel(r.Context(), channelID)
	if err != nil {
		respondError(w, err)
		return
	}

	caps, err := h.evaluator.Evaluate(r.Context(), actor, ch)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := caps.Require(permissions.ViewChannel); err != nil {
		respondError(w, err)
		return
	}
	if err := caps.Require(permissions.ManageChannel); err != nil {
		respondError(w, err)
		return
	}

	next, applied, err := h.engine.Apply(r.Context(), actor, ch, edit)
	if err != nil {
		respondError(w, err)
		return
	}

	h.emitter.Emit(r.Context(), ch, applied, actor)

	respondJSON(w, http.StatusOK, next)
}

// GetChannel handles GET /api/channels/{channelID}.
func (h *Handler) GetChannel(w http.ResponseWriter, r *http.Request) {
	actor := auth.UserID(r.Context())
	channelID := chi.URLParam(r, "channelID")

	ch, err := h.gateway.Channels.GetChannel(r.Context(), channelID)
	if err != nil {
		respondError(w, err)
		return
	}

	caps, err := h.evaluator.Evaluate(r.Context(), actor, ch)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := caps.Require(permissions.ViewChannel); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ch)
}

func conflictsWithSet(field channel.Field, edit channel.Edit) bool {
	switch field {
	case channel.FieldDescription:
		return edit.Description != nil
	case channel.FieldIcon:
		return edit.Icon != nil
	case channel.FieldBanner:
		return edit.Banners != nil
	case channel.FieldPassword:
		return edit.Password != nil
	}
	return false
}
