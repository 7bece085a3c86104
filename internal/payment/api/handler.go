package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"unistay/internal/auth"
	"unistay/internal/logger"
	"unistay/internal/models"
	"unistay/internal/payment"
	"unistay/internal/utils"
)

type Handler struct {
	PaymentService *payment.PaymentService
	Logger         *logger.Logger
}

func NewHandler(service *payment.PaymentService, log *logger.Logger) *Handler {
	return &Handler{PaymentService: service, Logger: log}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var ve payment.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.Error(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, payment.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "Payment not found")
	case errors.Is(err, payment.ErrBookingNotFound):
		utils.Error(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, payment.ErrForbidden):
		utils.Error(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, payment.ErrGatewayUnavailable):
		utils.Error(w, http.StatusServiceUnavailable, "Payment processing is currently unavailable")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.Error(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", op))
	}
}

func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())

	var req models.PaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	intent, err := h.PaymentService.CreateIntent(r.Context(), caller, req)
	if err != nil {
		h.respondError(w, "create payment intent", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
	})
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())

	var req models.PaymentConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	confirmed, err := h.PaymentService.Confirm(r.Context(), caller, req)
	if err != nil {
		h.respondError(w, "confirm payment", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Payment confirmed successfully",
		"payment": confirmed,
	})
}

func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	page, limit, _ := utils.ParsePagination(r, 20)

	payments, pagination, err := h.PaymentService.History(r.Context(), caller.ID, page, limit)
	if err != nil {
		h.respondError(w, "fetch payments", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"payments":   payments,
		"pagination": pagination,
	})
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	id := chi.URLParam(r, "paymentId")

	detail, err := h.PaymentService.Get(r.Context(), caller, id)
	if err != nil {
		h.respondError(w, "fetch payment", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"payment": detail})
}

func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	id := chi.URLParam(r, "paymentId")

	var req struct {
		Reason string `json:"reason"`
	}
	// A missing body surfaces as an empty reason, rejected by the service.
	_ = json.NewDecoder(r.Body).Decode(&req)

	refunded, err := h.PaymentService.Refund(r.Context(), caller, id, req.Reason)
	if err != nil {
		h.respondError(w, "refund payment", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Payment refunded successfully",
		"payment": refunded,
	})
}

// StripeWebhook needs the raw body for signature verification, so it skips
// the JSON decoder.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	if err := h.PaymentService.HandleWebhook(payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.respondError(w, "process webhook", err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
