package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/transbraille/transbraille/internal/capture"
	"github.com/transbraille/transbraille/internal/pipeline"
)

const maxUploadSize = 10 * 1024 * 1024

// HandleUpload captures one image into the session, either from a multipart
// "file" field or from a JSON body {"image_url": ...}.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r, session)
		return
	}
	h.handleFileUpload(w, r, session)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request, session *pipeline.Session) {
	var request struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	h.capture(w, r, session, capture.NewURLSource(request.ImageURL))
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request, session *pipeline.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return
	}

	h.capture(w, r, session, capture.NewReaderSource(header.Filename, file))
}

func (h *Handler) capture(w http.ResponseWriter, r *http.Request, session *pipeline.Session, src capture.Source) {
	img, ok, err := session.CaptureFrom(r.Context(), src)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSONStatus(w, imageView(img), http.StatusCreated)
}

func (h *Handler) HandleRemoveImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, "Invalid image index", http.StatusBadRequest)
		return
	}

	if err := session.Remove(r.Context(), index); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, sessionView(session))
}
