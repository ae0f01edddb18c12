// Package handler exposes the HTTP surface: channel mutation, message
// dispatch, invite minting and file upload.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/quillchat/api/internal/asset"
	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/invite"
	"github.com/quillchat/api/internal/message"
	"github.com/quillchat/api/internal/permissions"
	"github.com/quillchat/api/internal/store"
)

type Handler struct {
	gateway   *store.Gateway
	engine    *channel.MutationEngine
	evaluator *permissions.Evaluator
	dispatch  *message.Dispatcher
	emitter   *message.Emitter
	invites   *invite.Service
	assets    *asset.Service

	maxUploadSize int64
}

// Dependencies holds everything the Handler needs.
type Dependencies struct {
	Gateway   *store.Gateway
	Engine    *channel.MutationEngine
	Evaluator *permissions.Evaluator
	Dispatch  *message.Dispatcher
	Emitter   *message.Emitter
	Invites   *invite.Service
	Assets    *asset.Service

	MaxUploadSize int64
}

func New(deps Dependencies) *Handler {
	maxUpload := deps.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &Handler{
		gateway:       deps.Gateway,
		engine:        deps.Engine,
		evaluator:     deps.Evaluator,
		dispatch:      deps.Dispatch,
		emitter:       deps.Emitter,
		invites:       deps.Invites,
		assets:        deps.Assets,
		maxUploadSize: maxUpload,
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
