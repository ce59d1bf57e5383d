package handler

import (
	"net/http"

	"github.com/mcoot/mahjongtracker/internal/api/apierr"
	"github.com/mcoot/mahjongtracker/internal/api/request"
	"github.com/mcoot/mahjongtracker/internal/api/response"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/services/game"
	"github.com/mcoot/mahjongtracker/internal/services/result"
)

// GameHandler handles game and result endpoints
type GameHandler struct {
	gameController *game.Controller
	recorder       *result.Recorder
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameController *game.Controller, recorder *result.Recorder) *GameHandler {
	return &GameHandler{
		gameController: gameController,
		recorder:       recorder,
	}
}

// Create handles POST /api/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.PlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	g, err := h.gameController.CreateGame(r.Context(), model.PlayerID(req.PlayerID))
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.GameCreated{ID: g.ID, Code: g.Code})
}

// Join handles POST /api/games/{code}/join
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.PlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	g, err := h.gameController.JoinGame(r.Context(), gameCode(r), model.PlayerID(req.PlayerID))
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.GameJoined{Success: true, GameID: g.ID})
}

// Get handles GET /api/games/{code}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.gameController.GetGame(r.Context(), gameCode(r))
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.GameFromModel(detail))
}

// Close handles POST /api/games/{code}/close
func (h *GameHandler) Close(w http.ResponseWriter, r *http.Request) {
	if _, err := h.gameController.CloseGame(r.Context(), gameCode(r)); err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.Success{Success: true})
}

// RecordResult handles POST /api/games/{code}/result
func (h *GameHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	var req request.RecordResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	ids, err := h.recorder.RecordResult(r.Context(), gameCode(r), model.PlayerID(req.WinnerID))
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.ResultRecorded{Success: true, ResultIDs: ids})
}

// Results handles GET /api/games/{code}/results
func (h *GameHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.recorder.GetResults(r.Context(), gameCode(r))
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.ResultsFromModel(results))
}
