package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"unistay/internal/models"
)

var (
	ErrApartmentNotFound    = errors.New("apartment not found")
	ErrApartmentUnavailable = errors.New("apartment is not available")
	ErrDuplicateBooking     = errors.New("booking already exists for this apartment")
	ErrBookingNotFound      = errors.New("booking not found")
)

// DepositError reports a deposit that does not match the apartment's
// configured percentage of the total amount.
type DepositError struct {
	Percentage float64
	Expected   float64
}

func (e *DepositError) Error() string {
	return fmt.Sprintf("Deposit amount should be %g%% of total amount ($%.2f)", e.Percentage, e.Expected)
}

type DB struct {
	Bun *bun.DB
}

// lockRow appends FOR UPDATE on dialects that support it. The sqlite shim
// used in tests serializes writers anyway.
func (d *DB) lockRow(q *bun.SelectQuery) *bun.SelectQuery {
	if d.Bun.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	return q
}

// CreateBooking inserts a pending booking after re-checking, under a row lock
// on the apartment, that the apartment is available, the renter holds no live
// booking for it, and the deposit matches the apartment's percentage within
// one cent. The owner id is denormalized from the apartment at this moment.
func (d *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var apartment models.Apartment
		err := d.lockRow(tx.NewSelect().
			Model(&apartment).
			Where("id = ?", booking.ApartmentID).
			Limit(1)).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrApartmentNotFound
		}
		if err != nil {
			return err
		}

		if !apartment.IsAvailable {
			return ErrApartmentUnavailable
		}

		live, err := tx.NewSelect().
			Model((*models.Booking)(nil)).
			Where("user_id = ?", booking.UserID).
			Where("apartment_id = ?", booking.ApartmentID).
			Where("status IN (?)", bun.In([]models.BookingStatus{models.BookingPending, models.BookingConfirmed})).
			Count(ctx)
		if err != nil {
			return err
		}
		if live > 0 {
			return ErrDuplicateBooking
		}

		expected := booking.TotalAmount * apartment.DepositPercentage / 100
		if math.Abs(booking.DepositAmount-expected) > 0.01 {
			return &DepositError{Percentage: apartment.DepositPercentage, Expected: expected}
		}

		booking.OwnerID = apartment.OwnerID
		booking.Status = models.BookingPending

		_, err = tx.NewInsert().Model(booking).Exec(ctx)
		return err
	})
}

func (d *DB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateBookingStatus sets the new status and, when confirming, flips the
// apartment unavailable in the same transaction.
func (d *DB) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := d.lockRow(tx.NewSelect().
			Model(&booking).
			Where("id = ?", id).
			Limit(1)).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}

		booking.Status = status
		_, err = tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("status = ?", status).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}

		if status == models.BookingConfirmed {
			_, err = tx.NewUpdate().
				Model((*models.Apartment)(nil)).
				Set("is_available = ?", false).
				Where("id = ?", booking.ApartmentID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// SetPaymentIntent stores the gateway intent id on the booking.
func (d *DB) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("payment_intent_id = ?", intentID).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- LIST QUERIES ----------------

// ListBookings returns one page of a user's bookings, newest first. The role
// column selects which side of the booking the user is on.
func (d *DB) ListBookings(ctx context.Context, roleColumn, userID string, status models.BookingStatus, limit, offset int) ([]models.Booking, int, error) {
	var bookings []models.Booking

	q := d.Bun.NewSelect().
		Model(&bookings).
		Where("? = ?", bun.Ident(roleColumn), userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	countQ := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		Where("? = ?", bun.Ident(roleColumn), userID)
	if status != "" {
		countQ = countQ.Where("status = ?", status)
	}
	total, err := countQ.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, total, nil
}

func (d *DB) GetApartmentsByIDs(ctx context.Context, ids []string) (map[string]models.Apartment, error) {
	byID := make(map[string]models.Apartment)
	if len(ids) == 0 {
		return byID, nil
	}

	var apartments []models.Apartment
	err := d.Bun.NewSelect().
		Model(&apartments).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	for _, a := range apartments {
		byID[a.ID] = a
	}
	return byID, nil
}

func (d *DB) GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	byID := make(map[string]models.User)
	if len(ids) == 0 {
		return byID, nil
	}

	var users []models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func (d *DB) GetImagesForApartments(ctx context.Context, apartmentIDs []string) (map[string][]string, error) {
	grouped := make(map[string][]string)
	if len(apartmentIDs) == 0 {
		return grouped, nil
	}

	var images []models.ApartmentImage
	err := d.Bun.NewSelect().
		Model(&images).
		Where("apartment_id IN (?)", bun.In(apartmentIDs)).
		Order("is_primary DESC", "created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	for _, img := range images {
		grouped[img.ApartmentID] = append(grouped[img.ApartmentID], img.ImageURL)
	}
	return grouped, nil
}
