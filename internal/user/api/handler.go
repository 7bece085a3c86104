package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"unistay/internal/auth"
	"unistay/internal/logger"
	"unistay/internal/models"
	"unistay/internal/user"
	"unistay/internal/user/db"
	"unistay/internal/utils"
)

type Handler struct {
	UserService *user.UserService
	Logger      *logger.Logger
}

func NewHandler(service *user.UserService, log *logger.Logger) *Handler {
	return &Handler{UserService: service, Logger: log}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var ve user.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.Error(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, user.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, user.ErrForbidden):
		utils.Error(w, http.StatusForbidden, "Access denied")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.Error(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", op))
	}
}

func parseFilters(r *http.Request) db.ListFilters {
	q := r.URL.Query()
	f := db.ListFilters{
		UserType: models.UserType(q.Get("user_type")),
		Search:   q.Get("search"),
	}
	if v := q.Get("is_active"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			f.IsActive = &parsed
		}
	}
	return f
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	page, limit, _ := utils.ParsePagination(r, 20)

	users, pagination, err := h.UserService.List(r.Context(), caller, parseFilters(r), page, limit)
	if err != nil {
		h.respondError(w, "fetch users", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"users":      users,
		"pagination": pagination,
	})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	id := chi.URLParam(r, "userId")

	profile, err := h.UserService.Get(r.Context(), caller, id)
	if err != nil {
		h.respondError(w, "fetch user", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())

	profile, err := h.UserService.Get(r.Context(), caller, caller.ID)
	if err != nil {
		h.respondError(w, "fetch profile", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	id := chi.URLParam(r, "userId")

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.UserService.Update(r.Context(), caller, id, payload)
	if err != nil {
		h.respondError(w, "update user", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "User updated successfully",
		"user":    updated,
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	id := chi.URLParam(r, "userId")

	if err := h.UserService.Delete(r.Context(), caller, id); err != nil {
		h.respondError(w, "delete user", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}
