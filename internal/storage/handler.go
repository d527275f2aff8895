package storage

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sooksun/tablebooking/internal/logger"
	"github.com/sooksun/tablebooking/internal/utils"
)

type Handler struct {
	Store  *SlipStore
	Logger *logger.Logger
}

func NewHandler(store *SlipStore, log *logger.Logger) *Handler {
	return &Handler{Store: store, Logger: log}
}

// UploadSlip accepts a multipart form with a "slip" file field and returns
// the public URL to attach to a booking or registration.
func (h *Handler) UploadSlip(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxSlipBytes); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid upload", err.Error()))
		return
	}

	file, header, err := r.FormFile("slip")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid upload", "slip file field is required"))
		return
	}
	defer file.Close()

	url, err := h.Store.Save(file, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrUnsupportedType) || errors.Is(err, ErrTooLarge) {
			status = http.StatusBadRequest
		}
		h.Logger.Error("STORAGE", fmt.Sprintf("upload slip: %v", err))
		utils.WriteJSON(w, status, utils.ErrorResponse("upload failed", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("slip uploaded", map[string]string{"slip_url": url}))
}
