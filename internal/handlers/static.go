package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// HandleFiles serves objects written by the filesystem store.
func (h *Handler) HandleFiles(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")

	// Prevent directory traversal attacks
	if name == "" || strings.Contains(name, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	if strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg") {
		w.Header().Set("Content-Type", "image/jpeg")
	}
	http.ServeFile(w, r, filepath.Join(h.filesRoot, filepath.FromSlash(name)))
}
