package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"unistay/internal/auth"
	"unistay/internal/logger"
	"unistay/internal/utils"
	"unistay/internal/wishlist"
)

type Handler struct {
	WishlistService *wishlist.WishlistService
	Logger          *logger.Logger
}

func NewHandler(service *wishlist.WishlistService, log *logger.Logger) *Handler {
	return &Handler{WishlistService: service, Logger: log}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var ve wishlist.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.Error(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, wishlist.ErrApartmentNotFound):
		utils.Error(w, http.StatusNotFound, "Apartment not found")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.Error(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", op))
	}
}

func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	page, limit, _ := utils.ParsePagination(r, 12)

	entries, pagination, err := h.WishlistService.List(r.Context(), caller.ID, page, limit)
	if err != nil {
		h.respondError(w, "fetch wishlist", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"wishlist":   entries,
		"pagination": pagination,
	})
}

func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())

	var req struct {
		ApartmentID string `json:"apartment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.WishlistService.Add(r.Context(), caller.ID, req.ApartmentID)
	if err != nil {
		h.respondError(w, "add to wishlist", err)
		return
	}

	utils.JSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Apartment added to wishlist",
		"wishlist": item,
	})
}

func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	apartmentID := chi.URLParam(r, "apartmentId")

	if err := h.WishlistService.Remove(r.Context(), caller.ID, apartmentID); err != nil {
		if errors.Is(err, wishlist.ErrApartmentNotFound) {
			utils.Error(w, http.StatusNotFound, "Apartment not found in wishlist")
			return
		}
		h.respondError(w, "remove from wishlist", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "Apartment removed from wishlist"})
}

func (h *Handler) CheckWishlist(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	apartmentID := chi.URLParam(r, "apartmentId")

	inWishlist, err := h.WishlistService.Check(r.Context(), caller.ID, apartmentID)
	if err != nil {
		h.respondError(w, "check wishlist", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]bool{"in_wishlist": inWishlist})
}

func (h *Handler) WishlistCount(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())

	count, err := h.WishlistService.Count(r.Context(), caller.ID)
	if err != nil {
		h.respondError(w, "count wishlist", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]int{"count": count})
}
