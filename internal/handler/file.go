package handler

import (
	"net/http"

	"github.com/quillchat/api/internal/auth"
)

// UploadFile handles POST /api/files as a multipart upload. The returned
// attachment ID can then be referenced by a message or used as a channel
// icon.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	actor := auth.UserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		respondJSON(w, http.StatusRequestEntityTooLarge, newErrorResponse(ErrCodeValidationError, "upload too large"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, newErrorResponse(ErrCodeValidationError, "missing file field"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	a, err := h.assets.Upload(r.Context(), actor, header.Filename, contentType, header.Size, file)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, a)
}
