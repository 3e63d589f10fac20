package handlers

import (
	"net/http"

	"github.com/avvvet/game-services/internal/comm"
	"github.com/avvvet/game-services/internal/gamesvc/apperror"
	"github.com/avvvet/game-services/internal/gamesvc/models"
	"github.com/go-chi/chi"
)

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var payload models.GamePayload
	if !h.decode(w, r, &payload) {
		return
	}

	game, err := h.gameService.Create(r.Context(), h.caller(r), payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{Message: "game created", Code: http.StatusCreated, Data: game})
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{Message: "games", Code: http.StatusOK, Data: games})
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.gameService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{Message: "game", Code: http.StatusOK, Data: game})
}

func (h *Handler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var payload models.GamePayload
	if !h.decode(w, r, &payload) {
		return
	}

	game, err := h.gameService.Update(r.Context(), h.caller(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{Message: "game updated", Code: http.StatusOK, Data: game})
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.gameService.Delete(r.Context(), h.caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{Message: "game deleted", Code: http.StatusOK, Data: game})
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req comm.MemberRequest
	if !h.decode(w, r, &req) {
		return
	}

	member, err := models.ParseIdentity(req.Member)
	if err != nil {
		h.writeError(w, r, apperror.New(apperror.ValidationError, "A valid member identity is required."))
		return
	}

	game, err := h.gameService.AddMember(r.Context(), h.caller(r), chi.URLParam(r, "id"), member)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{Message: "member added", Code: http.StatusOK, Data: game})
}
