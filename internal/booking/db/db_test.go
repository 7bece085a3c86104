package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"unistay/internal/booking/db"
	"unistay/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.Apartment)(nil),
		(*models.ApartmentImage)(nil),
		(*models.Booking)(nil),
	} {
		if err := bunDB.ResetModel(ctx, model); err != nil {
			t.Fatalf("Failed to reset model %T: %v", model, err)
		}
	}

	return &db.DB{Bun: bunDB}
}

func seedApartment(t *testing.T, d *db.DB, id, ownerID string, available bool, depositPct float64) {
	t.Helper()

	apartment := models.Apartment{
		ID:                id,
		OwnerID:           ownerID,
		Title:             "Test Apartment",
		Address:           "1 Main St",
		City:              "Boston",
		State:             "MA",
		ZipCode:           "02101",
		MonthlyRent:       1000,
		DepositPercentage: depositPct,
		MinContractMonths: 12,
		Bedrooms:          2,
		Bathrooms:         1,
		AvailableFrom:     time.Now(),
		Amenities:         []string{},
		IsAvailable:       available,
		CreatedAt:         time.Now(),
	}
	if _, err := d.Bun.NewInsert().Model(&apartment).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to seed apartment: %v", err)
	}
}

func TestCreateBooking(t *testing.T) {
	d := setupTestDB(t)
	seedApartment(t, d, "apt-1", "owner-1", true, 20)

	booking := &models.Booking{
		ID:            "booking-1",
		UserID:        "student-1",
		ApartmentID:   "apt-1",
		MoveInDate:    time.Now().AddDate(0, 1, 0),
		TotalAmount:   1000,
		DepositAmount: 200,
		Status:        models.BookingCompleted, // must be overridden
		CreatedAt:     time.Now(),
	}
	if err := d.CreateBooking(context.Background(), booking); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	if booking.Status != models.BookingPending {
		t.Errorf("Expected status pending, got %s", booking.Status)
	}
	if booking.OwnerID != "owner-1" {
		t.Errorf("Expected owner denormalized from apartment, got %q", booking.OwnerID)
	}

	stored, err := d.GetBookingByID(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("Failed to retrieve booking: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected stored booking, got nil")
	}
	if stored.DepositAmount != 200 {
		t.Errorf("Expected deposit 200, got %f", stored.DepositAmount)
	}
}

func TestCreateBookingApartmentMissing(t *testing.T) {
	d := setupTestDB(t)

	booking := &models.Booking{
		ID:            "booking-1",
		UserID:        "student-1",
		ApartmentID:   "no-such-apartment",
		MoveInDate:    time.Now(),
		TotalAmount:   1000,
		DepositAmount: 200,
	}
	err := d.CreateBooking(context.Background(), booking)
	if !errors.Is(err, db.ErrApartmentNotFound) {
		t.Errorf("Expected ErrApartmentNotFound, got %v", err)
	}
}

func TestCreateBookingApartmentUnavailable(t *testing.T) {
	d := setupTestDB(t)
	seedApartment(t, d, "apt-1", "owner-1", false, 20)

	booking := &models.Booking{
		ID:            "booking-1",
		UserID:        "student-1",
		ApartmentID:   "apt-1",
		MoveInDate:    time.Now(),
		TotalAmount:   1000,
		DepositAmount: 200,
	}
	err := d.CreateBooking(context.Background(), booking)
	if !errors.Is(err, db.ErrApartmentUnavailable) {
		t.Errorf("Expected ErrApartmentUnavailable, got %v", err)
	}
}

func TestCreateBookingDuplicate(t *testing.T) {
	d := setupTestDB(t)
	seedApartment(t, d, "apt-1", "owner-1", true, 20)

	first := &models.Booking{
		ID:            "booking-1",
		UserID:        "student-1",
		ApartmentID:   "apt-1",
		MoveInDate:    time.Now(),
		TotalAmount:   1000,
		DepositAmount: 200,
	}
	if err := d.CreateBooking(context.Background(), first); err != nil {
		t.Fatalf("Failed to create first booking: %v", err)
	}

	second := &models.Booking{
		ID:            "booking-2",
		UserID:        "student-1",
		ApartmentID:   "apt-1",
		MoveInDate:    time.Now(),
		TotalAmount:   1000,
		DepositAmount: 200,
	}
	err := d.CreateBooking(context.Background(), second)
	if !errors.Is(err, db.ErrDuplicateBooking) {
		t.Errorf("Expected ErrDuplicateBooking, got %v", err)
	}

	// A different student can still book the same apartment.
	other := &models.Booking{
		ID:            "booking-3",
		UserID:        "student-2",
		ApartmentID:   "apt-1",
		MoveInDate:    time.Now(),
		TotalAmount:   1000,
		DepositAmount: 200,
	}
	if err := d.CreateBooking(context.Background(), other); err != nil {
		t.Errorf("Expected second student's booking to succeed, got %v", err)
	}
}

func TestCreateBookingDepositMismatch(t *testing.T) {
	d := setupTestDB(t)
	seedApartment(t, d, "apt-1", "owner-1", true, 20)

	booking := &models.Booking{
		ID:            "booking-1",
		UserID:        "student-1",
		ApartmentID:   "apt-1",
		MoveInDate:    time.Now(),
		TotalAmount:   1000,
		DepositAmount: 150, // expected 200
	}
	err := d.CreateBooking(context.Background(), booking)

	var depositErr *db.DepositError
	if !errors.As(err, &depositErr) {
		t.Fatalf("Expected DepositError, got %v", err)
	}
	if depositErr.Expected != 200 {
		t.Errorf("Expected deposit 200 in error, got %f", depositErr.Expected)
	}
}

func TestCreateBookingDepositWithinTolerance(t *testing.T) {
	d := setupTestDB(t)
	seedApartment(t, d, "apt-1", "owner-1", true, 20)

	booking := &models.Booking{
		ID:            "booking-1",
		UserID:        "student-1",
		ApartmentID:   "apt-1",
		MoveInDate:    time.Now(),
		TotalAmount:   1000,
		DepositAmount: 200.005, // within one cent of 200
	}
	if err := d.CreateBooking(context.Background(), booking); err != nil {
		t.Errorf("Expected deposit within a cent to pass, got %v", err)
	}
}

func TestUpdateBookingStatusConfirmFlipsAvailability(t *testing.T) {
	d := setupTestDB(t)
	seedApartment(t, d, "apt-1", "owner-1", true, 20)

	booking := &models.Booking{
		ID:            "booking-1",
		UserID:        "student-1",
		ApartmentID:   "apt-1",
		MoveInDate:    time.Now(),
		TotalAmount:   1000,
		DepositAmount: 200,
	}
	if err := d.CreateBooking(context.Background(), booking); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	updated, err := d.UpdateBookingStatus(context.Background(), "booking-1", models.BookingConfirmed)
	if err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}
	if updated.Status != models.BookingConfirmed {
		t.Errorf("Expected status confirmed, got %s", updated.Status)
	}

	var apartment models.Apartment
	if err := d.Bun.NewSelect().Model(&apartment).Where("id = ?", "apt-1").Scan(context.Background()); err != nil {
		t.Fatalf("Failed to load apartment: %v", err)
	}
	if apartment.IsAvailable {
		t.Error("Expected apartment unavailable after confirmation")
	}
}

func TestUpdateBookingStatusMissing(t *testing.T) {
	d := setupTestDB(t)

	_, err := d.UpdateBookingStatus(context.Background(), "no-such-booking", models.BookingCancelled)
	if !errors.Is(err, db.ErrBookingNotFound) {
		t.Errorf("Expected ErrBookingNotFound, got %v", err)
	}
}

func TestListBookingsByRole(t *testing.T) {
	d := setupTestDB(t)
	seedApartment(t, d, "apt-1", "owner-1", true, 20)
	seedApartment(t, d, "apt-2", "owner-2", true, 20)

	bookings := []*models.Booking{
		{ID: "b-1", UserID: "student-1", ApartmentID: "apt-1", MoveInDate: time.Now(), TotalAmount: 1000, DepositAmount: 200},
		{ID: "b-2", UserID: "student-1", ApartmentID: "apt-2", MoveInDate: time.Now(), TotalAmount: 1000, DepositAmount: 200},
		{ID: "b-3", UserID: "student-2", ApartmentID: "apt-1", MoveInDate: time.Now(), TotalAmount: 1000, DepositAmount: 200},
	}
	for _, b := range bookings {
		if err := d.CreateBooking(context.Background(), b); err != nil {
			t.Fatalf("Failed to create booking %s: %v", b.ID, err)
		}
	}

	mine, total, err := d.ListBookings(context.Background(), "user_id", "student-1", "", 10, 0)
	if err != nil {
		t.Fatalf("Failed to list renter bookings: %v", err)
	}
	if total != 2 || len(mine) != 2 {
		t.Errorf("Expected 2 renter bookings, got total=%d len=%d", total, len(mine))
	}

	owned, total, err := d.ListBookings(context.Background(), "owner_id", "owner-1", "", 10, 0)
	if err != nil {
		t.Fatalf("Failed to list owner bookings: %v", err)
	}
	if total != 2 || len(owned) != 2 {
		t.Errorf("Expected 2 owner bookings, got total=%d len=%d", total, len(owned))
	}

	if _, err := d.UpdateBookingStatus(context.Background(), "b-1", models.BookingCancelled); err != nil {
		t.Fatalf("Failed to cancel booking: %v", err)
	}
	pending, total, err := d.ListBookings(context.Background(), "user_id", "student-1", models.BookingPending, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list pending bookings: %v", err)
	}
	if total != 1 || len(pending) != 1 {
		t.Errorf("Expected 1 pending booking after cancel, got total=%d len=%d", total, len(pending))
	}
}

func TestSetPaymentIntent(t *testing.T) {
	d := setupTestDB(t)
	seedApartment(t, d, "apt-1", "owner-1", true, 20)

	booking := &models.Booking{
		ID:            "booking-1",
		UserID:        "student-1",
		ApartmentID:   "apt-1",
		MoveInDate:    time.Now(),
		TotalAmount:   1000,
		DepositAmount: 200,
	}
	if err := d.CreateBooking(context.Background(), booking); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	if err := d.SetPaymentIntent(context.Background(), "booking-1", "pi_123"); err != nil {
		t.Fatalf("Failed to set payment intent: %v", err)
	}

	stored, err := d.GetBookingByID(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("Failed to retrieve booking: %v", err)
	}
	if stored.PaymentIntentID != "pi_123" {
		t.Errorf("Expected intent pi_123, got %q", stored.PaymentIntentID)
	}
}
