package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"unistay/internal/auth"
	"unistay/internal/booking"
	"unistay/internal/logger"
	"unistay/internal/models"
	"unistay/internal/utils"
)

type Handler struct {
	BookingService *booking.BookingService
	Logger         *logger.Logger
}

func NewHandler(service *booking.BookingService, log *logger.Logger) *Handler {
	return &Handler{BookingService: service, Logger: log}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var ve booking.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.Error(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, booking.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, booking.ErrForbidden):
		utils.Error(w, http.StatusForbidden, "Access denied")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.Error(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", op))
	}
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())

	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.BookingService.Create(r.Context(), caller.ID, req)
	if err != nil {
		// Missing apartment surfaces as a 404 on the referenced resource.
		if errors.Is(err, booking.ErrNotFound) {
			utils.Error(w, http.StatusNotFound, "Apartment not found")
			return
		}
		h.respondError(w, "create booking", err)
		return
	}

	utils.JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Booking created successfully",
		"booking": created,
	})
}

func (h *Handler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	page, limit, _ := utils.ParsePagination(r, 20)
	status := models.BookingStatus(r.URL.Query().Get("status"))

	bookings, pagination, err := h.BookingService.ListForRenter(r.Context(), caller.ID, status, page, limit)
	if err != nil {
		h.respondError(w, "fetch bookings", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"bookings":   bookings,
		"pagination": pagination,
	})
}

func (h *Handler) ListOwnerBookings(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	page, limit, _ := utils.ParsePagination(r, 20)
	status := models.BookingStatus(r.URL.Query().Get("status"))

	bookings, pagination, err := h.BookingService.ListForOwner(r.Context(), caller.ID, status, page, limit)
	if err != nil {
		h.respondError(w, "fetch bookings", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"bookings":   bookings,
		"pagination": pagination,
	})
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	id := chi.URLParam(r, "bookingId")

	detail, err := h.BookingService.Get(r.Context(), caller, id)
	if err != nil {
		h.respondError(w, "fetch booking", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"booking": detail})
}

func (h *Handler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	id := chi.URLParam(r, "bookingId")

	var req struct {
		Status models.BookingStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.BookingService.UpdateStatus(r.Context(), caller, id, req.Status)
	if err != nil {
		h.respondError(w, "update booking status", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Booking status updated successfully",
		"booking": updated,
	})
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	id := chi.URLParam(r, "bookingId")

	updated, err := h.BookingService.Cancel(r.Context(), caller, id)
	if err != nil {
		h.respondError(w, "cancel booking", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Booking cancelled successfully",
		"booking": updated,
	})
}
