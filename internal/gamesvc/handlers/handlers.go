package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/avvvet/game-services/internal/gamesvc/apperror"
	"github.com/avvvet/game-services/internal/gamesvc/models"
	"github.com/avvvet/game-services/internal/gamesvc/service"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	tokenAuth   *jwtauth.JWTAuth
	gameService *service.GameService
	port        string
}

func NewHandler(gameService *service.GameService, port string) *Handler {
	return &Handler{gameService: gameService, port: port}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError responds with the status mapped from err's kind. Storage
// failures are logged with their cause and answered with the bare message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.StorageFailure {
		log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}

	h.CreateResponse(w, Response{
		Message: apperror.MessageOf(err),
		Code:    apperror.HTTPStatus(kind),
		Error:   string(kind),
	})
}

// decode reads a JSON request body into v.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, apperror.New(apperror.ValidationError, "Malformed request body."))
		return false
	}
	return true
}

// caller returns the identity named by the verified token's subject. A
// missing or malformed subject yields the invalid zero identity.
func (h *Handler) caller(r *http.Request) models.Identity {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return models.Identity{}
	}
	sub, _ := claims["sub"].(string)
	id, _ := models.ParseIdentity(sub)
	return id
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "game service is running at port " + h.port,
		Code:    http.StatusOK,
		Data:    nil,
	})
}
