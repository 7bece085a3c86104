package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"unistay/internal/apartment"
	"unistay/internal/apartment/db"
	"unistay/internal/auth"
	"unistay/internal/logger"
	"unistay/internal/models"
	"unistay/internal/utils"
)

type Handler struct {
	ApartmentService *apartment.ApartmentService
	Logger           *logger.Logger
}

func NewHandler(service *apartment.ApartmentService, log *logger.Logger) *Handler {
	return &Handler{ApartmentService: service, Logger: log}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var ve apartment.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.Error(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, apartment.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "Apartment not found")
	case errors.Is(err, apartment.ErrForbidden):
		utils.Error(w, http.StatusForbidden, "Access denied")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.Error(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", op))
	}
}

// parseFilters maps query parameters onto the enumerated filter set.
func parseFilters(r *http.Request, onlyAvailable bool) db.ListFilters {
	q := r.URL.Query()
	f := db.ListFilters{
		City:          q.Get("city"),
		Search:        q.Get("search"),
		OwnerID:       q.Get("owner_id"),
		OnlyAvailable: onlyAvailable,
	}
	if v := q.Get("min_rent"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinRent = &parsed
		}
	}
	if v := q.Get("max_rent"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxRent = &parsed
		}
	}
	if v := q.Get("bedrooms"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.MinBedrooms = &parsed
		}
	}
	if v := q.Get("bathrooms"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.MinBathrooms = &parsed
		}
	}
	if v := q.Get("available_from"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			f.AvailableFrom = &parsed
		}
	}
	return f
}

func (h *Handler) ListApartments(w http.ResponseWriter, r *http.Request) {
	page, limit, _ := utils.ParsePagination(r, 12)

	apartments, pagination, err := h.ApartmentService.List(r.Context(), parseFilters(r, true), page, limit)
	if err != nil {
		h.respondError(w, "fetch apartments", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"apartments": apartments,
		"pagination": pagination,
	})
}

func (h *Handler) GetApartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "apartmentId")

	detail, err := h.ApartmentService.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "fetch apartment", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"apartment": detail})
}

func (h *Handler) CreateApartment(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())

	var req models.ApartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.ApartmentService.Create(r.Context(), caller.ID, req)
	if err != nil {
		h.respondError(w, "create apartment", err)
		return
	}

	utils.JSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Apartment created successfully",
		"apartment": created,
	})
}

func (h *Handler) UpdateApartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "apartmentId")
	caller := auth.FromContext(r.Context())

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.ApartmentService.Update(r.Context(), caller, id, payload)
	if err != nil {
		h.respondError(w, "update apartment", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Apartment updated successfully",
		"apartment": updated,
	})
}

func (h *Handler) DeleteApartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "apartmentId")
	caller := auth.FromContext(r.Context())

	if err := h.ApartmentService.Delete(r.Context(), caller, id); err != nil {
		h.respondError(w, "delete apartment", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "Apartment deleted successfully"})
}

func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "apartmentId")
	caller := auth.FromContext(r.Context())

	var req struct {
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.ApartmentService.UploadImages(r.Context(), caller, id, req.Images); err != nil {
		h.respondError(w, "upload images", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "Images uploaded successfully"})
}
