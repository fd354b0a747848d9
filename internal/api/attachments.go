package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/starford/muninn/internal/chat"
)

const (
	attachDir      = "attachments"
	maxUploadBytes = 50 << 20 // 50 MB
)

// attachmentPath validates that the filename is a plain name (no path
// separators, no traversal) and returns its vault path under attachments/.
func attachmentPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if cleaned != path.Base(cleaned) || cleaned == ".." || cleaned == "." || strings.HasPrefix(cleaned, ".") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return attachDir + "/" + cleaned, nil
}

// Raw handles GET /api/raw/*: the file bytes with a media type guessed from
// the extension, for previews of images and other attachments.
func (h *Handler) Raw(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	st, err := h.Store.Stat(p)
	if err != nil {
		writeError(w, h.Logger, "raw stat", err)
		return
	}
	data, err := h.Store.Read(p)
	if err != nil {
		writeError(w, h.Logger, "raw read", err)
		return
	}
	w.Header().Set("Content-Type", chat.MediaType(p))
	http.ServeContent(w, r, path.Base(p), st.ModTime, bytes.NewReader(data))
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
// The file is stored under attachments/ in the vault and can then be
// mentioned in chat. Existing files are never overwritten.
//
//	@Summary		Upload an attachment into the vault
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Success		201	{object}	AttachmentUploadResponse
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	p, err := attachmentPath(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}
	if err := h.Store.Create(p, data); err != nil {
		writeError(w, h.Logger, "upload", err)
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Path: p,
		Size: int64(len(data)),
		URL:  "/api/raw/" + p,
	})
}
