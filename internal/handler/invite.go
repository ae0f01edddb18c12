package handler

import (
	"net/http"

	"github.com/quillchat/api/internal/auth"
)

// CreateInviteToken handles POST /api/invites/token. Every call mints a
// fresh token; generation is deliberately not idempotent.
func (h *Handler) CreateInviteToken(w http.ResponseWriter, r *http.Request) {
	actor := auth.UserID(r.Context())

	tok, err := h.invites.Generate(r.Context(), actor)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, tok)
}
