package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/transbraille/transbraille/internal/models"
	"github.com/transbraille/transbraille/internal/translation"
)

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	session, err := h.newSession(sessionID)
	if err != nil {
		h.writeError(w, "Failed to create session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.sessionStore.Set(sessionID, session)

	slog.Info("Session created", "session_id", sessionID)
	h.writeJSONStatus(w, sessionView(session), http.StatusCreated)
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	sessionList := make([]models.Session, 0, len(sessions))
	for _, session := range sessions {
		sessionList = append(sessionList, sessionView(session))
	}
	sort.Slice(sessionList, func(i, j int) bool {
		return sessionList[i].CreatedAt.Before(sessionList[j].CreatedAt)
	})
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}
	h.writeJSON(w, sessionView(session))
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !h.sessionStore.Delete(r.Context(), sessionID) {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	slog.Info("Session deleted", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}

	var request struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	lang, err := translation.ParseLanguage(request.Language)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	session.SetLanguage(lang)
	h.writeJSON(w, sessionView(session))
}
