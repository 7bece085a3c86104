package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"unistay/internal/admin"
	"unistay/internal/apartment"
	apartmentdb "unistay/internal/apartment/db"
	"unistay/internal/auth"
	"unistay/internal/logger"
	"unistay/internal/models"
	"unistay/internal/utils"
)

// Handler serves the /admin surface. The apartment service is reused for the
// unscoped listing view.
type Handler struct {
	AdminService     *admin.AdminService
	ApartmentService *apartment.ApartmentService
	Logger           *logger.Logger
}

func NewHandler(service *admin.AdminService, apartments *apartment.ApartmentService, log *logger.Logger) *Handler {
	return &Handler{AdminService: service, ApartmentService: apartments, Logger: log}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var ve admin.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.Error(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, admin.ErrApartmentNotFound):
		utils.Error(w, http.StatusNotFound, "Apartment not found")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.Error(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", op))
	}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.AdminService.Dashboard(r.Context())
	if err != nil {
		h.respondError(w, "fetch dashboard", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"dashboard": stats})
}

// ListApartments is the moderation view: every listing, available or not.
func (h *Handler) ListApartments(w http.ResponseWriter, r *http.Request) {
	page, limit, _ := utils.ParsePagination(r, 20)
	filters := apartmentdb.ListFilters{
		City:    r.URL.Query().Get("city"),
		Search:  r.URL.Query().Get("search"),
		OwnerID: r.URL.Query().Get("owner_id"),
	}

	apartments, pagination, err := h.ApartmentService.List(r.Context(), filters, page, limit)
	if err != nil {
		h.respondError(w, "fetch apartments", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"apartments": apartments,
		"pagination": pagination,
	})
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	page, limit, _ := utils.ParsePagination(r, 20)
	status := models.BookingStatus(r.URL.Query().Get("status"))

	bookings, pagination, err := h.AdminService.ListBookings(r.Context(), status, page, limit)
	if err != nil {
		h.respondError(w, "fetch bookings", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"bookings":   bookings,
		"pagination": pagination,
	})
}

func (h *Handler) ModerateApartment(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	apartmentID := chi.URLParam(r, "apartmentId")

	var req struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.AdminService.Moderate(r.Context(), caller.ID, apartmentID, req.Action, req.Reason); err != nil {
		h.respondError(w, "moderate apartment", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Apartment %s processed successfully", req.Action),
	})
}

func (h *Handler) PaymentAnalytics(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}

	report, err := h.AdminService.Analytics(r.Context(), days)
	if err != nil {
		h.respondError(w, "fetch analytics", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"analytics": report})
}

func (h *Handler) AdminLogs(w http.ResponseWriter, r *http.Request) {
	page, limit, _ := utils.ParsePagination(r, 50)

	logs, pagination, err := h.AdminService.Logs(r.Context(), page, limit)
	if err != nil {
		h.respondError(w, "fetch admin logs", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"logs":       logs,
		"pagination": pagination,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.AdminService.Health(r.Context())

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	utils.JSON(w, code, status)
}
