package gateway

import (
	"net/http"

	"github.com/flawiddsouza/GameLiftLocal/pkg/apierror"
	"github.com/go-chi/chi/v5"
)

func (s *Server) registerInspection(r chi.Router) {
	r.Get("/v1/processes", func(w http.ResponseWriter, _ *http.Request) {
		apierror.WriteJSON(w, http.StatusOK, map[string]any{"processes": s.fleet.Processes()})
	})
	r.Get("/v1/game-sessions", func(w http.ResponseWriter, _ *http.Request) {
		apierror.WriteJSON(w, http.StatusOK, map[string]any{"game_sessions": s.fleet.GameSessions()})
	})
	r.Get("/v1/game-sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		gs, ok := s.fleet.GameSession(chi.URLParam(r, "id"))
		if !ok {
			apierror.NotFound(w, "game session not found")
			return
		}
		apierror.WriteJSON(w, http.StatusOK, gs)
	})
}
