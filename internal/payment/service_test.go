package payment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"unistay/internal/auth"
	"unistay/internal/logger"
	"unistay/internal/models"
	"unistay/internal/payment"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockDBLayer) SetBookingPaymentIntent(ctx context.Context, bookingID, intentID string) error {
	args := m.Called(bookingID, intentID)
	return args.Error(0)
}

func (m *MockDBLayer) RecordCompletedPayment(ctx context.Context, p *models.Payment) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockDBLayer) RefundPayment(ctx context.Context, paymentID string, logEntry *models.AdminLog) (*models.Payment, error) {
	args := m.Called(paymentID, logEntry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockDBLayer) GetPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockDBLayer) ListPaymentsForUser(ctx context.Context, userID string, limit, offset int) ([]models.Payment, int, error) {
	args := m.Called(userID, limit, offset)
	return args.Get(0).([]models.Payment), args.Int(1), args.Error(2)
}

func (m *MockDBLayer) GetBookingsByIDs(ctx context.Context, ids []string) (map[string]models.Booking, error) {
	args := m.Called(ids)
	return args.Get(0).(map[string]models.Booking), args.Error(1)
}

func (m *MockDBLayer) GetApartmentsByIDs(ctx context.Context, ids []string) (map[string]models.Apartment, error) {
	args := m.Called(ids)
	return args.Get(0).(map[string]models.Apartment), args.Error(1)
}

func (m *MockDBLayer) GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	args := m.Called(ids)
	return args.Get(0).(map[string]models.User), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishPaymentCompleted(p models.Payment) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockPublisher) PublishPaymentRefunded(p models.Payment) error {
	args := m.Called(p)
	return args.Error(0)
}

// stubGateway answers with canned intents, standing in for Stripe.
type stubGateway struct {
	intentStatus string
	intentAmount int64
	refundErr    error
	lastRefunded string
}

func (g *stubGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	return &payment.Intent{
		ID:           "pi_stub",
		ClientSecret: "pi_stub_secret",
		Status:       "requires_payment_method",
		Amount:       amountCents,
		Metadata:     metadata,
	}, nil
}

func (g *stubGateway) RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error) {
	amount := g.intentAmount
	if amount == 0 {
		amount = 20000
	}
	return &payment.Intent{ID: id, Status: g.intentStatus, Amount: amount}, nil
}

func (g *stubGateway) Refund(ctx context.Context, intentID string) (string, error) {
	g.lastRefunded = intentID
	return "re_stub", g.refundErr
}

func (g *stubGateway) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	return &payment.WebhookEvent{Type: "payment_intent.succeeded", PaymentIntentID: "pi_stub"}, nil
}

func newService(dbLayer *MockDBLayer, gw payment.Gateway, events *MockPublisher) *payment.PaymentService {
	return payment.NewPaymentService(dbLayer, gw, events, logger.NewLogger())
}

var renter = &auth.Identity{ID: "student-1", UserType: models.UserTypeStudent}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:              "b-1",
		UserID:          "student-1",
		OwnerID:         "owner-1",
		ApartmentID:     "apt-1",
		Status:          models.BookingPending,
		TotalAmount:     1000,
		DepositAmount:   200,
		PaymentIntentID: "pi_stub",
	}
}

func TestCreateIntentGatewayUnavailable(t *testing.T) {
	svc := newService(new(MockDBLayer), nil, new(MockPublisher))

	_, err := svc.CreateIntent(context.Background(), renter, models.PaymentIntentRequest{BookingID: "b-1", Amount: 200})

	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
}

func TestCreateIntentAmountMismatch(t *testing.T) {
	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, &stubGateway{}, new(MockPublisher))
	dbLayer.On("GetBookingByID", "b-1").Return(pendingBooking(), nil)

	_, err := svc.CreateIntent(context.Background(), renter, models.PaymentIntentRequest{BookingID: "b-1", Amount: 150})

	var ve payment.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCreateIntentSuccess(t *testing.T) {
	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, &stubGateway{}, new(MockPublisher))
	dbLayer.On("GetBookingByID", "b-1").Return(pendingBooking(), nil)
	dbLayer.On("SetBookingPaymentIntent", "b-1", "pi_stub").Return(nil)

	intent, err := svc.CreateIntent(context.Background(), renter, models.PaymentIntentRequest{BookingID: "b-1", Amount: 200})

	assert.NoError(t, err)
	assert.Equal(t, "pi_stub", intent.ID)
	assert.Equal(t, int64(20000), intent.Amount)
	dbLayer.AssertExpectations(t)
}

func TestCreateIntentWrongCaller(t *testing.T) {
	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, &stubGateway{}, new(MockPublisher))
	dbLayer.On("GetBookingByID", "b-1").Return(pendingBooking(), nil)

	other := &auth.Identity{ID: "student-2", UserType: models.UserTypeStudent}
	_, err := svc.CreateIntent(context.Background(), other, models.PaymentIntentRequest{BookingID: "b-1", Amount: 200})

	assert.ErrorIs(t, err, payment.ErrForbidden)
}

func TestConfirmRequiresSucceededIntent(t *testing.T) {
	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, &stubGateway{intentStatus: "requires_payment_method"}, new(MockPublisher))
	dbLayer.On("GetBookingByID", "b-1").Return(pendingBooking(), nil)

	_, err := svc.Confirm(context.Background(), renter, models.PaymentConfirmRequest{PaymentIntentID: "pi_stub", BookingID: "b-1"})

	var ve payment.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "Payment has not succeeded", ve.Error())
}

func TestConfirmSuccess(t *testing.T) {
	dbLayer := new(MockDBLayer)
	events := new(MockPublisher)
	// Intent amount differs so the recorded amount provably comes from the
	// booking's deposit, not from the gateway.
	svc := newService(dbLayer, &stubGateway{intentStatus: "succeeded", intentAmount: 99999}, events)
	dbLayer.On("GetBookingByID", "b-1").Return(pendingBooking(), nil)
	dbLayer.On("RecordCompletedPayment", mock.AnythingOfType("*models.Payment")).Return(nil)
	events.On("PublishPaymentCompleted", mock.Anything).Return(nil)

	confirmed, err := svc.Confirm(context.Background(), renter, models.PaymentConfirmRequest{PaymentIntentID: "pi_stub", BookingID: "b-1"})

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, confirmed.PaymentStatus)
	assert.Equal(t, 200.0, confirmed.Amount)
	assert.Equal(t, "pi_stub", confirmed.StripePaymentIntentID)
	dbLayer.AssertExpectations(t)
}

func TestConfirmRejectsForeignIntent(t *testing.T) {
	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, &stubGateway{intentStatus: "succeeded"}, new(MockPublisher))
	dbLayer.On("GetBookingByID", "b-1").Return(pendingBooking(), nil)

	// A succeeded intent opened for some other booking cannot confirm this one.
	_, err := svc.Confirm(context.Background(), renter, models.PaymentConfirmRequest{PaymentIntentID: "pi_other", BookingID: "b-1"})

	assert.ErrorIs(t, err, payment.ErrNotFound)
	dbLayer.AssertNotCalled(t, "RecordCompletedPayment", mock.Anything)
}

func TestConfirmRequiresLinkedIntent(t *testing.T) {
	unlinked := pendingBooking()
	unlinked.PaymentIntentID = ""

	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, &stubGateway{intentStatus: "succeeded"}, new(MockPublisher))
	dbLayer.On("GetBookingByID", "b-1").Return(unlinked, nil)

	_, err := svc.Confirm(context.Background(), renter, models.PaymentConfirmRequest{PaymentIntentID: "pi_stub", BookingID: "b-1"})

	assert.ErrorIs(t, err, payment.ErrNotFound)
}

func TestRefundAdminOnly(t *testing.T) {
	svc := newService(new(MockDBLayer), &stubGateway{}, new(MockPublisher))

	_, err := svc.Refund(context.Background(), renter, "pay-1", "fraud")

	assert.ErrorIs(t, err, payment.ErrForbidden)
}

func TestRefundRequiresReason(t *testing.T) {
	svc := newService(new(MockDBLayer), &stubGateway{}, new(MockPublisher))

	admin := &auth.Identity{ID: "admin-1", UserType: models.UserTypeAdmin}
	_, err := svc.Refund(context.Background(), admin, "pay-1", "")

	var ve payment.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Refund reason is required", ve.Error())
}

func TestRefundWithoutGateway(t *testing.T) {
	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, nil, new(MockPublisher))
	dbLayer.On("GetPaymentByID", "pay-1").Return(&models.Payment{
		ID:                    "pay-1",
		PaymentStatus:         models.PaymentCompleted,
		StripePaymentIntentID: "pi_stub",
	}, nil)

	admin := &auth.Identity{ID: "admin-1", UserType: models.UserTypeAdmin}
	_, err := svc.Refund(context.Background(), admin, "pay-1", "fraud")

	// No local state moves when the money cannot be returned.
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	dbLayer.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything)
}

func TestRefundWithoutIntent(t *testing.T) {
	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, &stubGateway{}, new(MockPublisher))
	dbLayer.On("GetPaymentByID", "pay-1").Return(&models.Payment{
		ID:            "pay-1",
		PaymentStatus: models.PaymentCompleted,
	}, nil)

	admin := &auth.Identity{ID: "admin-1", UserType: models.UserTypeAdmin}
	_, err := svc.Refund(context.Background(), admin, "pay-1", "fraud")

	var ve payment.ValidationError
	require.ErrorAs(t, err, &ve)
	dbLayer.AssertNotCalled(t, "RefundPayment", mock.Anything, mock.Anything)
}

func TestRefundOnlyCompleted(t *testing.T) {
	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, &stubGateway{}, new(MockPublisher))
	dbLayer.On("GetPaymentByID", "pay-1").Return(&models.Payment{
		ID:            "pay-1",
		PaymentStatus: models.PaymentRefunded,
	}, nil)

	admin := &auth.Identity{ID: "admin-1", UserType: models.UserTypeAdmin}
	_, err := svc.Refund(context.Background(), admin, "pay-1", "dup")

	var ve payment.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "Only completed payments can be refunded", ve.Error())
}

func TestRefundSuccess(t *testing.T) {
	completed := &models.Payment{
		ID:                    "pay-1",
		BookingID:             "b-1",
		UserID:                "student-1",
		Amount:                200,
		PaymentStatus:         models.PaymentCompleted,
		StripePaymentIntentID: "pi_stub",
	}
	refunded := &models.Payment{
		ID:            "pay-1",
		BookingID:     "b-1",
		UserID:        "student-1",
		Amount:        200,
		PaymentStatus: models.PaymentRefunded,
	}

	dbLayer := new(MockDBLayer)
	events := new(MockPublisher)
	gw := &stubGateway{}
	svc := newService(dbLayer, gw, events)
	dbLayer.On("GetPaymentByID", "pay-1").Return(completed, nil)
	dbLayer.On("RefundPayment", "pay-1", mock.MatchedBy(func(entry *models.AdminLog) bool {
		return entry.Action == "refund" && entry.AdminID == "admin-1" && entry.Details["reason"] == "tenant dispute"
	})).Return(refunded, nil)
	events.On("PublishPaymentRefunded", mock.Anything).Return(nil)

	admin := &auth.Identity{ID: "admin-1", UserType: models.UserTypeAdmin}
	result, err := svc.Refund(context.Background(), admin, "pay-1", "tenant dispute")

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, result.PaymentStatus)
	assert.Equal(t, "pi_stub", gw.lastRefunded)
	dbLayer.AssertExpectations(t)
}

func TestGetPaymentAccess(t *testing.T) {
	stored := &models.Payment{ID: "pay-1", BookingID: "b-1", UserID: "student-1", PaymentStatus: models.PaymentCompleted}

	dbLayer := new(MockDBLayer)
	svc := newService(dbLayer, &stubGateway{}, new(MockPublisher))
	dbLayer.On("GetPaymentByID", "pay-1").Return(stored, nil)

	other := &auth.Identity{ID: "student-2", UserType: models.UserTypeStudent}
	_, err := svc.Get(context.Background(), other, "pay-1")

	assert.ErrorIs(t, err, payment.ErrForbidden)
}

func TestWebhookWithoutGateway(t *testing.T) {
	svc := newService(new(MockDBLayer), nil, new(MockPublisher))

	err := svc.HandleWebhook([]byte(`{}`), "sig")

	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
}
