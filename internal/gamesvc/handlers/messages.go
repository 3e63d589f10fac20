package handlers

import (
	"net/http"

	"github.com/avvvet/game-services/internal/gamesvc/models"
	"github.com/go-chi/chi"
)

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var payload models.MessagePayload
	if !h.decode(w, r, &payload) {
		return
	}

	msg, err := h.gameService.SendMessage(r.Context(), h.caller(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{Message: "message sent", Code: http.StatusCreated, Data: msg})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.gameService.ListMessages(r.Context(), h.caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{Message: "messages", Code: http.StatusOK, Data: msgs})
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.gameService.DeleteMessage(r.Context(), h.caller(r),
		chi.URLParam(r, "id"), chi.URLParam(r, "messageId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{Message: "message deleted", Code: http.StatusOK, Data: msg})
}
