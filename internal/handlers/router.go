package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router wires every endpoint.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(corsOptions(h.allowedOrigins)))

	r.Get("/healthcheck", h.HandleHealthcheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.HandleCreateSession)
		r.Get("/sessions", h.HandleListSessions)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.HandleGetSession)
			r.Delete("/", h.HandleDeleteSession)
			r.Put("/language", h.HandleSetLanguage)
			r.Post("/images", h.HandleUpload)
			r.Delete("/images/{index}", h.HandleRemoveImage)
			r.Post("/translate", h.HandleTranslate)
		})

		r.Get("/braille", h.HandleBraille)
	})

	if h.filesRoot != "" {
		r.Get("/files/*", h.HandleFiles)
	}

	return r
}

func corsOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowCreds := true
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
			break
		}
	}
	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
