package sessions

import (
	"net/http"
	"strconv"

	"github.com/flawiddsouza/GameLiftLocal/pkg/apierror"
	"github.com/go-chi/chi/v5"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

type Handler struct {
	archive *Archive
}

func NewHandler(archive *Archive) *Handler { return &Handler{archive: archive} }

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/archive/game-sessions", h.handleRecent)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apierror.Write(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}
	records, err := h.archive.Recent(r.Context(), limit)
	if err != nil {
		apierror.Write(w, http.StatusInternalServerError, "internal_error", "failed to read archive")
		return
	}
	if records == nil {
		records = []Record{}
	}
	apierror.WriteJSON(w, http.StatusOK, map[string][]Record{"game_sessions": records})
}
