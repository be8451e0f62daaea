package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(plUC usecase.PlaylistUC, recUC usecase.RecommendUC, idxUC usecase.IndexUC) {
	r.router.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.router.Get("/api/status", statusHandler)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		plHandler := NewPlaylistHandler(plUC, r.logger)
		registerPlaylistRoutes(v1, plHandler)

		recHandler := NewRecommendHandler(recUC, idxUC, r.logger)
		registerRecommendRoutes(v1, recHandler)
	})
}

func registerPlaylistRoutes(router chi.Router, plHandler *PlaylistHandler) {
	router.Route("/playlists", func(pl chi.Router) {
		pl.Post("/generate", plHandler.generateFromUpload)
		pl.Post("/generate-from-track", plHandler.generateFromTrack)
	})

	router.Route("/tasks", func(t chi.Router) {
		t.Get("/{id}", plHandler.getTask)
	})
}

func registerRecommendRoutes(router chi.Router, recHandler *RecommendHandler) {
	router.Route("/users", func(u chi.Router) {
		u.Get("/{id}/similar", recHandler.similarUsers)
	})

	router.Route("/index", func(i chi.Router) {
		i.Post("/rebuild", recHandler.rebuildIndex)
	})
}

func statusHandler(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
