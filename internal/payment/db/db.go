package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"unistay/internal/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

type DB struct {
	Bun *bun.DB
}

func (d *DB) lockRow(q *bun.SelectQuery) *bun.SelectQuery {
	if d.Bun.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	return q
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

// SetBookingPaymentIntent links the gateway intent to the booking.
func (d *DB) SetBookingPaymentIntent(ctx context.Context, bookingID, intentID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("payment_intent_id = ?", intentID).
		Where("id = ?", bookingID).
		Exec(ctx)
	return err
}

// RecordCompletedPayment inserts the payment row, confirms the booking and
// takes the apartment off the market, all in one transaction.
func (d *DB) RecordCompletedPayment(ctx context.Context, payment *models.Payment) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var booking models.Booking
		err := d.lockRow(tx.NewSelect().
			Model(&booking).
			Where("id = ?", payment.BookingID).
			Limit(1)).
			Scan(ctx)
		if err != nil {
			return err
		}

		if _, err := tx.NewInsert().Model(payment).Exec(ctx); err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("status = ?", models.BookingConfirmed).
			Where("id = ?", payment.BookingID).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.Apartment)(nil)).
			Set("is_available = ?", false).
			Where("id = ?", booking.ApartmentID).
			Exec(ctx)
		return err
	})
}

// RefundPayment flips the payment to refunded, cancels its booking, puts the
// apartment back on the market and writes the audit row atomically.
func (d *DB) RefundPayment(ctx context.Context, paymentID string, logEntry *models.AdminLog) (*models.Payment, error) {
	var payment models.Payment
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := d.lockRow(tx.NewSelect().
			Model(&payment).
			Where("id = ?", paymentID).
			Limit(1)).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}

		if logEntry != nil {
			if _, err := tx.NewInsert().Model(logEntry).Exec(ctx); err != nil {
				return err
			}
		}

		payment.PaymentStatus = models.PaymentRefunded
		_, err = tx.NewUpdate().
			Model((*models.Payment)(nil)).
			Set("payment_status = ?", models.PaymentRefunded).
			Where("id = ?", paymentID).
			Exec(ctx)
		if err != nil {
			return err
		}

		var booking models.Booking
		err = tx.NewSelect().
			Model(&booking).
			Where("id = ?", payment.BookingID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("status = ?", models.BookingCancelled).
			Where("id = ?", booking.ID).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.Apartment)(nil)).
			Set("is_available = ?", true).
			Where("id = ?", booking.ApartmentID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (d *DB) GetPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	err := d.Bun.NewSelect().
		Model(&payment).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPaymentsForUser returns one page of the user's payments, newest first.
func (d *DB) ListPaymentsForUser(ctx context.Context, userID string, limit, offset int) ([]models.Payment, int, error) {
	var payments []models.Payment
	err := d.Bun.NewSelect().
		Model(&payments).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	total, err := d.Bun.NewSelect().
		Model((*models.Payment)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, total, nil
}

func (d *DB) GetBookingsByIDs(ctx context.Context, ids []string) (map[string]models.Booking, error) {
	byID := make(map[string]models.Booking)
	if len(ids) == 0 {
		return byID, nil
	}

	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	for _, b := range bookings {
		byID[b.ID] = b
	}
	return byID, nil
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
