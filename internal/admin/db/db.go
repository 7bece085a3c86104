package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"unistay/internal/models"
)

var ErrApartmentNotFound = errors.New("apartment not found")

type DB struct {
	Bun *bun.DB
}

// TypeCount is one bucket of a categorical distribution.
type TypeCount struct {
	Label string `bun:"label" json:"label"`
	Count int    `bun:"count" json:"count"`
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}

func (d *DB) CountUsers(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().Model((*models.User)(nil)).Count(ctx)
}

func (d *DB) CountApartments(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().Model((*models.Apartment)(nil)).Count(ctx)
}

func (d *DB) CountBookings(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().Model((*models.Booking)(nil)).Count(ctx)
}

func (d *DB) CountPayments(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().Model((*models.Payment)(nil)).Count(ctx)
}

// CompletedRevenueSince sums completed payment amounts created at or after
// since. A zero since sums everything.
func (d *DB) CompletedRevenueSince(ctx context.Context, since time.Time) (float64, error) {
	q := d.Bun.NewSelect().
		Model((*models.Payment)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0)").
		Where("payment_status = ?", models.PaymentCompleted)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var total float64
	if err := q.Scan(ctx, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// UserTypeDistribution counts users per role.
func (d *DB) UserTypeDistribution(ctx context.Context) ([]TypeCount, error) {
	var rows []TypeCount
	err := d.Bun.NewSelect().
		Model((*models.User)(nil)).
		ColumnExpr("user_type AS label").
		ColumnExpr("COUNT(*) AS count").
		Group("user_type").
		Order("user_type ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []TypeCount{}
	}
	return rows, nil
}

// BookingStatusDistribution counts bookings per status.
func (d *DB) BookingStatusDistribution(ctx context.Context) ([]TypeCount, error) {
	var rows []TypeCount
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		ColumnExpr("status AS label").
		ColumnExpr("COUNT(*) AS count").
		Group("status").
		Order("status ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []TypeCount{}
	}
	return rows, nil
}

func (d *DB) CountAvailableApartments(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Apartment)(nil)).
		Where("is_available = ?", true).
		Count(ctx)
}

// RecentUsers returns the n newest accounts.
func (d *DB) RecentUsers(ctx context.Context, n int) ([]models.User, error) {
	var users []models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Order("created_at DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// RecentBookings returns the n newest bookings.
func (d *DB) RecentBookings(ctx context.Context, n int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Order("created_at DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// PaymentsSince returns payments created at or after since. Day bucketing
// happens in the service; date functions differ too much across dialects to
// push it into SQL here.
func (d *DB) PaymentsSince(ctx context.Context, since time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := d.Bun.NewSelect().
		Model(&payments).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// ListAllBookings is the unscoped admin view, newest first.
func (d *DB) ListAllBookings(ctx context.Context, status models.BookingStatus, limit, offset int) ([]models.Booking, int, error) {
	var bookings []models.Booking
	q := d.Bun.NewSelect().Model(&bookings)
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

	countQ := d.Bun.NewSelect().Model((*models.Booking)(nil))
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

// ModerateApartment flips the availability boolean and records the audit row
// in the same transaction.
func (d *DB) ModerateApartment(ctx context.Context, apartmentID string, available bool, logEntry *models.AdminLog) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var apartment models.Apartment
		q := tx.NewSelect().
			Model(&apartment).
			Where("id = ?", apartmentID).
			Limit(1)
		if d.Bun.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		err := q.Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrApartmentNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.Apartment)(nil)).
			Set("is_available = ?", available).
			Where("id = ?", apartmentID).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewInsert().Model(logEntry).Exec(ctx)
		return err
	})
}

// ListAdminLogs returns one page of the audit trail, newest first.
func (d *DB) ListAdminLogs(ctx context.Context, limit, offset int) ([]models.AdminLog, int, error) {
	var logs []models.AdminLog
	err := d.Bun.NewSelect().
		Model(&logs).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	total, err := d.Bun.NewSelect().Model((*models.AdminLog)(nil)).Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	if logs == nil {
		logs = []models.AdminLog{}
	}
	return logs, total, nil
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
