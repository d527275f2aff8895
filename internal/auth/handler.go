package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sooksun/tablebooking/internal/logger"
	"github.com/sooksun/tablebooking/internal/models"
	"github.com/sooksun/tablebooking/internal/utils"
)

type Handler struct {
	Auth   *Authenticator
	Logger *logger.Logger
}

func NewHandler(a *Authenticator, log *logger.Logger) *Handler {
	return &Handler{Auth: a, Logger: log}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	token, err := h.Auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.Logger.Warn("SECURITY", "failed admin login for "+req.Username)
			utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("login failed", err.Error()))
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("login failed", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("logged in", models.LoginResponse{
		Token:     token,
		ExpiresIn: int(h.Auth.TokenTTL().Seconds()),
	}))
}
