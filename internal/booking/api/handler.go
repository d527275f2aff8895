package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sooksun/tablebooking/internal/booking"
	"github.com/sooksun/tablebooking/internal/logger"
	"github.com/sooksun/tablebooking/internal/models"
	"github.com/sooksun/tablebooking/internal/tickets/qr"
	"github.com/sooksun/tablebooking/internal/utils"
)

type Handler struct {
	Service *booking.Service
	QR      *qr.Generator
	Logger  *logger.Logger
}

func NewHandler(service *booking.Service, qrGen *qr.Generator, log *logger.Logger) *Handler {
	return &Handler{Service: service, QR: qrGen, Logger: log}
}

// statusFor maps the service error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case booking.IsNotFound(err):
		return http.StatusNotFound
	case booking.IsConflict(err):
		return http.StatusConflict
	case booking.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	utils.WriteJSON(w, statusFor(err), utils.ErrorResponse(op+" failed", err.Error()))
}

// ---------------- TABLES ----------------

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.Service.ListTables(r.Context())
	if err != nil {
		h.fail(w, "list tables", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("tables", tables))
}

func (h *Handler) ListAvailableTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.Service.ListAvailableTables(r.Context())
	if err != nil {
		h.fail(w, "list available tables", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("available tables", tables))
}

func (h *Handler) TableBookings(w http.ResponseWriter, r *http.Request) {
	tableID, err := strconv.Atoi(chi.URLParam(r, "tableId"))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid table id", err.Error()))
		return
	}
	bookings, err := h.Service.TableBookings(r.Context(), tableID)
	if err != nil {
		h.fail(w, "table bookings", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("bookings", bookings))
}

// ---------------- BOOKINGS ----------------

// CreateBooking handles both single-table reservations and multi-table
// purchases; the latter go through a booking group that owns the shared
// extras.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	if len(req.TableIDs) > 1 {
		group, err := h.Service.CreateBookingGroup(r.Context(), req)
		if err != nil {
			h.fail(w, "create booking group", err)
			return
		}
		utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("booking group created", group))
		return
	}

	if len(req.TableIDs) == 1 {
		req.TableID = req.TableIDs[0]
	}
	b, err := h.Service.CreateBooking(r.Context(), req)
	if err != nil {
		h.fail(w, "create booking", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("booking created", b))
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.GetBooking(r.Context(), chi.URLParam(r, "bookingId"))
	if err != nil {
		h.fail(w, "get booking", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking", b))
}

// BookingsByPhone returns a visitor's approved bookings; the phone number is
// the only credential.
func (h *Handler) BookingsByPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	bookings, err := h.Service.BookingsByPhone(r.Context(), phone)
	if err != nil {
		h.fail(w, "bookings by phone", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("bookings", bookings))
}

func (h *Handler) BookingGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.Service.BookingGroup(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		h.fail(w, "booking group", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking group", group))
}

// TicketQR streams the PNG QR code for an approved booking's ticket.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	b, err := h.Service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.fail(w, "ticket", err)
		return
	}
	if b.Status != models.BookingApproved {
		h.fail(w, "ticket", booking.ErrNotApproved)
		return
	}

	png, err := h.QR.Encode(b.ID)
	if err != nil {
		h.fail(w, "ticket", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ticket: write response: %v", err))
	}
}

// ---------------- ADMIN ----------------

func (h *Handler) PendingBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.PendingBookings(r.Context())
	if err != nil {
		h.fail(w, "pending bookings", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("pending bookings", bookings))
}

func (h *Handler) AllBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.AllBookings(r.Context())
	if err != nil {
		h.fail(w, "all bookings", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("all bookings", bookings))
}

func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	if err := h.Service.ApproveBooking(r.Context(), bookingID); err != nil {
		h.fail(w, "approve booking", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking approved", nil))
}

func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	if err := h.Service.RejectBooking(r.Context(), bookingID); err != nil {
		h.fail(w, "reject booking", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking rejected", nil))
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	if err := h.Service.CancelBooking(r.Context(), bookingID); err != nil {
		h.fail(w, "cancel booking", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking cancelled", nil))
}

func (h *Handler) CancelBookingGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if err := h.Service.CancelBookingGroup(r.Context(), groupID); err != nil {
		h.fail(w, "cancel booking group", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking group cancelled", nil))
}

func (h *Handler) ChangeBookingTable(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	var req models.ChangeTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if err := h.Service.ChangeBookingTable(r.Context(), bookingID, req.OldTableID, req.NewTableID); err != nil {
		h.fail(w, "change booking table", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("table changed", nil))
}

func (h *Handler) UpdateBookingDetails(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	var req models.UpdateBookingDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if err := h.Service.UpdateBookingDetails(r.Context(), bookingID, req); err != nil {
		h.fail(w, "update booking details", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking updated", nil))
}

func (h *Handler) UpdateBookingMemo(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	var req models.MemoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if err := h.Service.UpdateBookingMemo(r.Context(), bookingID, req.Memo); err != nil {
		h.fail(w, "update booking memo", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("memo updated", nil))
}

func (h *Handler) UpdateBookingSlip(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	var req models.SlipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if err := h.Service.UpdateBookingSlip(r.Context(), bookingID, req.SlipURL); err != nil {
		h.fail(w, "update booking slip", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("slip updated", nil))
}

func (h *Handler) UpdateGroupSlip(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	var req models.SlipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if err := h.Service.UpdateGroupSlip(r.Context(), groupID, req.SlipURL); err != nil {
		h.fail(w, "update group slip", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("slip updated", nil))
}

// ---------------- EVENT DAY ----------------

// CheckIn accepts the string decoded from a ticket QR (or typed manually);
// it is the booking id.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req models.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if req.Code == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("check in failed", "code is required"))
		return
	}

	b, err := h.Service.CheckIn(r.Context(), req.Code)
	if err != nil {
		h.fail(w, "check in", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("checked in", b))
}

func (h *Handler) ConfirmFoodReceived(w http.ResponseWriter, r *http.Request) {
	var req models.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if req.Code == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("confirm food failed", "code is required"))
		return
	}

	b, err := h.Service.ConfirmFoodReceived(r.Context(), req.Code)
	if err != nil {
		h.fail(w, "confirm food", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("food confirmed", b))
}
