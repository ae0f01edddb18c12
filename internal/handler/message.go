package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quillchat/api/internal/auth"
	"github.com/quillchat/api/internal/message"
	"github.com/quillchat/api/internal/permissions"
)

type sendMessageRequest struct {
	Content      string                `json:"content"`
	Embeds       []message.Embed       `json:"embeds,omitempty"`
	Attachments  []string              `json:"attachments,omitempty"`
	Masquerade   *message.Masquerade   `json:"masquerade,omitempty"`
	Interactions *message.Interactions `json:"interactions,omitempty"`
}

// SendMessage handles POST /api/channels/{channelID}/messages. Retried
// requests carrying the same Idempotency-Key header resolve to the
// original message.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor := auth.UserID(r.Context())
	channelID := chi.URLParam(r, "channelID")
	token := r.Header.Get("Idempotency-Key")

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, newErrorResponse(ErrCodeInvalidJSON, "invalid request body"))
		return
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

	draft := message.Draft{
		Content:      req.Content,
		Embeds:       req.Embeds,
		Attachments:  req.Attachments,
		Masquerade:   req.Masquerade,
		Interactions: req.Interactions,
	}
	msg, err := h.dispatch.Send(r.Context(), ch, actor, draft, token, caps)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /api/channels/{channelID}/messages with
// cursor pagination via ?before= and ?limit=.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
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
	if err := caps.Require(permissions.ReadMessageHistory); err != nil {
		respondError(w, err)
		return
	}

	opts := message.ListOptions{Before: r.URL.Query().Get("before")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			opts.Limit = n
		}
	}

	messages, err := h.gateway.Messages.ListMessages(r.Context(), channelID, opts)
	if err != nil {
		respondError(w, err)
		return
	}
	if messages == nil {
		messages = []message.Message{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}
