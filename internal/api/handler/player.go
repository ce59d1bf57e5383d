package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/mahjongtracker/internal/api/apierr"
	"github.com/mcoot/mahjongtracker/internal/api/middleware"
	"github.com/mcoot/mahjongtracker/internal/api/request"
	"github.com/mcoot/mahjongtracker/internal/api/response"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/services/player"
	"github.com/mcoot/mahjongtracker/internal/services/stats"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	registry   *player.Registry
	aggregator *stats.Aggregator
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(registry *player.Registry, aggregator *stats.Aggregator) *PlayerHandler {
	return &PlayerHandler{
		registry:   registry,
		aggregator: aggregator,
	}
}

// Create handles POST /api/players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	p, err := h.registry.CreatePlayer(r.Context(), middleware.GetUser(r.Context()), req.Name)
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.PlayerFromModel(p))
}

// List handles GET /api/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.registry.ListPlayers(r.Context(), middleware.GetUser(r.Context()))
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.PlayersFromModel(players))
}

// Stats handles GET /api/players/{id}/stats
func (h *PlayerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		apierr.WriteError(w, r, model.ErrPlayerNotFound)
		return
	}

	s, err := h.aggregator.GetPlayerStats(r.Context(), model.PlayerID(id))
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.PlayerStatsFromModel(s))
}
