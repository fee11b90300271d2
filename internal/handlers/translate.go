package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/transbraille/transbraille/internal/brailledb"
	"github.com/transbraille/transbraille/internal/models"
	"github.com/transbraille/transbraille/internal/translation"
)

func (h *Handler) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}

	result, err := session.Translate(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}

	response := models.TranslateResponse{}
	if !result.Empty {
		response.Data = &result.Text
	}
	h.writeJSON(w, response)
}

// HandleBraille proxies the braille reference tables: ?q=letter&lang=eng.
func (h *Handler) HandleBraille(w http.ResponseWriter, r *http.Request) {
	kind, err := brailledb.ParseKind(r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	lang := translation.English
	if l := r.URL.Query().Get("lang"); l != "" {
		if lang, err = translation.ParseLanguage(l); err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	entries, err := h.brailleDB.Query(r.Context(), kind, lang.DBCode())
	if err != nil {
		h.writeError(w, "Failed to query braille database: "+err.Error(), http.StatusBadGateway)
		return
	}

	out := make([]models.BrailleEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.BrailleEntry{
			PK:      e.PK,
			Text:    e.Text,
			Braille: e.Cell.String(),
			Unicode: string(e.Cell.Rune()),
			Grid:    e.Cell.Grid(),
		})
	}
	h.writeJSON(w, out)
}
