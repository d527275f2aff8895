package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sooksun/tablebooking/internal/logger"
	"github.com/sooksun/tablebooking/internal/models"
	"github.com/sooksun/tablebooking/internal/registration"
	"github.com/sooksun/tablebooking/internal/utils"
)

type Handler struct {
	Service *registration.Service
	Logger  *logger.Logger
}

func NewHandler(service *registration.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	reg, err := h.Service.Create(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("create registration: %v", err))
		status := http.StatusInternalServerError
		if errors.Is(err, registration.ErrMissingName) ||
			errors.Is(err, registration.ErrInvalidPhone) ||
			errors.Is(err, registration.ErrNothingBought) ||
			errors.Is(err, registration.ErrInvalidAmount) {
			status = http.StatusBadRequest
		}
		utils.WriteJSON(w, status, utils.ErrorResponse("create registration failed", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("registration created", reg))
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.Service.List(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("list registrations: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("list registrations failed", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("registrations", regs))
}
