package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"unistay/internal/auth"
	"unistay/internal/logger"
	"unistay/internal/models"
	"unistay/internal/payment/db"
)

var (
	ErrNotFound           = errors.New("payment not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrForbidden          = errors.New("access denied")
	ErrGatewayUnavailable = errors.New("payment gateway is not configured")
)

// ValidationError is a 400-class input error whose message is safe to return.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

type DBLayer interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	SetBookingPaymentIntent(ctx context.Context, bookingID, intentID string) error
	RecordCompletedPayment(ctx context.Context, payment *models.Payment) error
	RefundPayment(ctx context.Context, paymentID string, logEntry *models.AdminLog) (*models.Payment, error)
	GetPaymentByID(ctx context.Context, id string) (*models.Payment, error)
	ListPaymentsForUser(ctx context.Context, userID string, limit, offset int) ([]models.Payment, int, error)
	GetBookingsByIDs(ctx context.Context, ids []string) (map[string]models.Booking, error)
	GetApartmentsByIDs(ctx context.Context, ids []string) (map[string]models.Apartment, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type EventPublisher interface {
	PublishPaymentCompleted(p models.Payment) error
	PublishPaymentRefunded(p models.Payment) error
}

// PaymentService drives the deposit payment lifecycle. Gateway may be nil
// when no provider is configured; intent operations then return
// ErrGatewayUnavailable.
type PaymentService struct {
	DB      DBLayer
	Gateway Gateway
	Events  EventPublisher
	Logger  *logger.Logger
}

func NewPaymentService(dbLayer DBLayer, gateway Gateway, events EventPublisher, log *logger.Logger) *PaymentService {
	return &PaymentService{DB: dbLayer, Gateway: gateway, Events: events, Logger: log}
}

// CreateIntent opens a gateway intent for the booking's deposit and links it
// to the booking.
func (s *PaymentService) CreateIntent(ctx context.Context, caller *auth.Identity, req models.PaymentIntentRequest) (*Intent, error) {
	if s.Gateway == nil {
		return nil, ErrGatewayUnavailable
	}
	if req.BookingID == "" || req.Amount == 0 {
		return nil, ValidationError("Missing required fields")
	}

	booking, err := s.DB.GetBookingByID(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", req.BookingID, err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.UserID != caller.ID {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingPending {
		return nil, ValidationError("Booking is not pending")
	}
	if math.Abs(req.Amount-booking.DepositAmount) > 0.01 {
		return nil, ValidationError("Amount does not match the booking deposit")
	}

	intent, err := s.Gateway.CreateIntent(ctx, int64(math.Round(req.Amount*100)), "usd", map[string]string{
		"booking_id": booking.ID,
		"user_id":    caller.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	if err := s.DB.SetBookingPaymentIntent(ctx, booking.ID, intent.ID); err != nil {
		return nil, fmt.Errorf("link intent to booking %s: %w", booking.ID, err)
	}

	s.Logger.LogPayment("INTENT", intent.ID, fmt.Sprintf("booking %s, $%.2f", booking.ID, req.Amount))
	return intent, nil
}

// Confirm verifies the intent succeeded at the gateway and records the
// payment, confirming the booking in the same transaction.
func (s *PaymentService) Confirm(ctx context.Context, caller *auth.Identity, req models.PaymentConfirmRequest) (*models.Payment, error) {
	if s.Gateway == nil {
		return nil, ErrGatewayUnavailable
	}
	if req.PaymentIntentID == "" || req.BookingID == "" {
		return nil, ValidationError("Missing required fields")
	}

	booking, err := s.DB.GetBookingByID(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", req.BookingID, err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.UserID != caller.ID {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingPending {
		return nil, ValidationError("Booking is not pending")
	}
	// The intent must be the one opened for this booking; a succeeded intent
	// from another booking cannot confirm it.
	if booking.PaymentIntentID == "" || booking.PaymentIntentID != req.PaymentIntentID {
		return nil, ErrNotFound
	}

	intent, err := s.Gateway.RetrieveIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent %s: %w", req.PaymentIntentID, err)
	}
	if intent.Status != "succeeded" {
		return nil, ValidationError("Payment has not succeeded")
	}

	payment := &models.Payment{
		ID:                    uuid.NewString(),
		BookingID:             booking.ID,
		UserID:                caller.ID,
		Amount:                booking.DepositAmount,
		PaymentMethod:         "card",
		PaymentStatus:         models.PaymentCompleted,
		StripePaymentIntentID: intent.ID,
		CreatedAt:             time.Now(),
	}
	if err := s.DB.RecordCompletedPayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("record payment for booking %s: %w", booking.ID, err)
	}

	s.Logger.LogPayment("CONFIRM", payment.ID, fmt.Sprintf("booking %s confirmed", booking.ID))
	if err := s.Events.PublishPaymentCompleted(*payment); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish payment completed: %v", err))
	}

	return payment, nil
}

// Refund reverses a completed payment at the gateway, then cancels the
// booking and reopens the apartment.
func (s *PaymentService) Refund(ctx context.Context, caller *auth.Identity, paymentID, reason string) (*models.Payment, error) {
	if caller.UserType != models.UserTypeAdmin {
		return nil, ErrForbidden
	}
	if reason == "" {
		return nil, ValidationError("Refund reason is required")
	}

	payment, err := s.DB.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	if payment == nil {
		return nil, ErrNotFound
	}
	if payment.PaymentStatus != models.PaymentCompleted {
		return nil, ValidationError("Only completed payments can be refunded")
	}

	// The money has to move back before any local state does.
	if s.Gateway == nil {
		return nil, ErrGatewayUnavailable
	}
	if payment.StripePaymentIntentID == "" {
		return nil, ValidationError("Payment has no associated payment intent")
	}
	if _, err := s.Gateway.Refund(ctx, payment.StripePaymentIntentID); err != nil {
		return nil, fmt.Errorf("gateway refund for payment %s: %w", paymentID, err)
	}

	logEntry := &models.AdminLog{
		ID:         uuid.NewString(),
		AdminID:    caller.ID,
		Action:     "refund",
		TargetType: "payment",
		TargetID:   paymentID,
		Details:    map[string]string{"reason": reason},
		CreatedAt:  time.Now(),
	}

	refunded, err := s.DB.RefundPayment(ctx, paymentID, logEntry)
	if errors.Is(err, db.ErrPaymentNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("refund payment %s: %w", paymentID, err)
	}

	s.Logger.LogPayment("REFUND", paymentID, fmt.Sprintf("by admin %s, reason: %s", caller.ID, reason))
	if err := s.Events.PublishPaymentRefunded(*refunded); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish payment refunded: %v", err))
	}

	return refunded, nil
}

// History returns the caller's payments with booking and apartment context.
func (s *PaymentService) History(ctx context.Context, userID string, page, limit int) ([]models.PaymentWithDetails, models.Pagination, error) {
	payments, total, err := s.DB.ListPaymentsForUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list payments: %w", err)
	}

	details, err := s.attachDetails(ctx, payments)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return details, models.NewPagination(page, limit, total), nil
}

// Get returns one payment with details. Only the payer or an admin may read it.
func (s *PaymentService) Get(ctx context.Context, caller *auth.Identity, id string) (*models.PaymentWithDetails, error) {
	payment, err := s.DB.GetPaymentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", id, err)
	}
	if payment == nil {
		return nil, ErrNotFound
	}

	if payment.UserID != caller.ID && caller.UserType != models.UserTypeAdmin {
		return nil, ErrForbidden
	}

	details, err := s.attachDetails(ctx, []models.Payment{*payment})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// HandleWebhook verifies and acknowledges gateway events. State changes ride
// the explicit confirm endpoint; webhooks are recorded for reconciliation.
func (s *PaymentService) HandleWebhook(payload []byte, signature string) error {
	if s.Gateway == nil {
		return ErrGatewayUnavailable
	}

	event, err := s.Gateway.VerifyWebhook(payload, signature)
	if err != nil {
		return ValidationError("Invalid webhook signature")
	}

	switch event.Type {
	case "payment_intent.succeeded":
		s.Logger.LogPayment("WEBHOOK", event.PaymentIntentID, "intent succeeded")
	case "payment_intent.payment_failed":
		s.Logger.LogPayment("WEBHOOK", event.PaymentIntentID, "intent failed")
	default:
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Unhandled event type: %s", event.Type))
	}
	return nil
}

func (s *PaymentService) attachDetails(ctx context.Context, payments []models.Payment) ([]models.PaymentWithDetails, error) {
	bookingIDs := make([]string, 0, len(payments))
	userIDs := make([]string, 0, len(payments))
	for _, p := range payments {
		bookingIDs = append(bookingIDs, p.BookingID)
		userIDs = append(userIDs, p.UserID)
	}

	bookings, err := s.DB.GetBookingsByIDs(ctx, bookingIDs)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	apartmentIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		apartmentIDs = append(apartmentIDs, b.ApartmentID)
	}
	apartments, err := s.DB.GetApartmentsByIDs(ctx, apartmentIDs)
	if err != nil {
		return nil, fmt.Errorf("load apartments: %w", err)
	}
	users, err := s.DB.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	details := make([]models.PaymentWithDetails, len(payments))
	for i, p := range payments {
		detail := models.PaymentWithDetails{Payment: p}
		if b, ok := bookings[p.BookingID]; ok {
			detail.MoveInDate = b.MoveInDate
			detail.MoveOutDate = b.MoveOutDate
			if a, ok := apartments[b.ApartmentID]; ok {
				detail.ApartmentTitle = a.Title
				detail.ApartmentAddress = a.Address
			}
		}
		if u, ok := users[p.UserID]; ok {
			detail.UserFirstName = u.FirstName
			detail.UserLastName = u.LastName
		}
		details[i] = detail
	}
	return details, nil
}
