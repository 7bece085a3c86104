package admin_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"unistay/internal/admin"
	"unistay/internal/admin/db"
	"unistay/internal/logger"
	"unistay/internal/models"
)

func setupService(t *testing.T) (*admin.AdminService, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.Apartment)(nil),
		(*models.Booking)(nil),
		(*models.Payment)(nil),
		(*models.AdminLog)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	svc := admin.NewAdminService(&db.DB{Bun: bunDB}, nil, logger.NewLogger())
	return svc, bunDB
}

func seedUser(t *testing.T, bunDB *bun.DB, id string, userType models.UserType) {
	t.Helper()
	u := models.User{
		ID: id, Email: id + "@test.dev", PasswordHash: "x",
		FirstName: "First", LastName: "Last", UserType: userType,
		IsActive: true, CreatedAt: time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&u).Exec(context.Background())
	require.NoError(t, err)
}

func seedApartment(t *testing.T, bunDB *bun.DB, id, ownerID string, available bool) {
	t.Helper()
	a := models.Apartment{
		ID: id, OwnerID: ownerID, Title: "Listing " + id,
		Address: "1 Main St", City: "Boston", State: "MA", ZipCode: "02101",
		MonthlyRent: 1000, Bedrooms: 1, Bathrooms: 1,
		AvailableFrom: time.Now(), Amenities: []string{},
		IsAvailable: available, CreatedAt: time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&a).Exec(context.Background())
	require.NoError(t, err)
}

func seedPayment(t *testing.T, bunDB *bun.DB, id string, amount float64, status models.PaymentStatus, method string, createdAt time.Time) {
	t.Helper()
	p := models.Payment{
		ID: id, BookingID: "b-" + id, UserID: "student-1",
		Amount: amount, PaymentMethod: method, PaymentStatus: status,
		CreatedAt: createdAt,
	}
	_, err := bunDB.NewInsert().Model(&p).Exec(context.Background())
	require.NoError(t, err)
}

func TestDashboard(t *testing.T) {
	svc, bunDB := setupService(t)

	seedUser(t, bunDB, "student-1", models.UserTypeStudent)
	seedUser(t, bunDB, "owner-1", models.UserTypeOwner)
	seedUser(t, bunDB, "admin-1", models.UserTypeAdmin)
	seedApartment(t, bunDB, "apt-1", "owner-1", true)
	seedApartment(t, bunDB, "apt-2", "owner-1", false)
	seedPayment(t, bunDB, "p-1", 200, models.PaymentCompleted, "card", time.Now())
	seedPayment(t, bunDB, "p-2", 300, models.PaymentCompleted, "card", time.Now().AddDate(0, -2, 0))
	seedPayment(t, bunDB, "p-3", 100, models.PaymentRefunded, "card", time.Now())

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalApartments)
	assert.Equal(t, 1, stats.AvailableApartments)
	assert.Equal(t, 3, stats.TotalPayments)
	assert.Equal(t, 500.0, stats.TotalRevenue)
	assert.Equal(t, 200.0, stats.MonthlyRevenue)
	assert.Len(t, stats.UsersByType, 3)
	assert.Len(t, stats.RecentUsers, 3)
}

func TestModerate(t *testing.T) {
	svc, bunDB := setupService(t)
	seedUser(t, bunDB, "admin-1", models.UserTypeAdmin)
	seedUser(t, bunDB, "owner-1", models.UserTypeOwner)
	seedApartment(t, bunDB, "apt-1", "owner-1", true)

	err := svc.Moderate(context.Background(), "admin-1", "apt-1", "suspend", "spam listing")
	require.NoError(t, err)

	var apartment models.Apartment
	require.NoError(t, bunDB.NewSelect().Model(&apartment).Where("id = ?", "apt-1").Scan(context.Background()))
	assert.False(t, apartment.IsAvailable)

	logs, _, err := svc.Logs(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "suspend", logs[0].Action)
	assert.Equal(t, "apartment", logs[0].TargetType)
	assert.Equal(t, "spam listing", logs[0].Details["reason"])
	assert.Equal(t, "First", logs[0].AdminFirstName)

	// Approve flips it back.
	require.NoError(t, svc.Moderate(context.Background(), "admin-1", "apt-1", "approve", "resolved"))
	require.NoError(t, bunDB.NewSelect().Model(&apartment).Where("id = ?", "apt-1").Scan(context.Background()))
	assert.True(t, apartment.IsAvailable)
}

func TestModerateInvalidAction(t *testing.T) {
	svc, _ := setupService(t)

	err := svc.Moderate(context.Background(), "admin-1", "apt-1", "obliterate", "")

	var ve admin.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestModerateMissingApartment(t *testing.T) {
	svc, _ := setupService(t)

	err := svc.Moderate(context.Background(), "admin-1", "no-such-apartment", "approve", "")

	assert.ErrorIs(t, err, admin.ErrApartmentNotFound)
}

func TestAnalytics(t *testing.T) {
	svc, bunDB := setupService(t)

	now := time.Now()
	seedPayment(t, bunDB, "p-1", 200, models.PaymentCompleted, "card", now.AddDate(0, 0, -1))
	seedPayment(t, bunDB, "p-2", 300, models.PaymentCompleted, "card", now.AddDate(0, 0, -1))
	seedPayment(t, bunDB, "p-3", 150, models.PaymentCompleted, "bank_transfer", now)
	seedPayment(t, bunDB, "p-4", 100, models.PaymentRefunded, "card", now)
	seedPayment(t, bunDB, "p-5", 500, models.PaymentCompleted, "card", now.AddDate(0, 0, -60)) // outside window

	report, err := svc.Analytics(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, 30, report.PeriodDays)
	assert.Equal(t, 3, report.TotalPayments)
	assert.Equal(t, 650.0, report.TotalRevenue)
	assert.Equal(t, 1, report.RefundedCount)
	assert.Equal(t, 100.0, report.RefundedAmount)
	require.Len(t, report.DailyTrend, 2)
	assert.Equal(t, 500.0, report.DailyTrend[0].Revenue)
	assert.Equal(t, 2, report.DailyTrend[0].Count)

	require.Len(t, report.ByMethod, 2)
	assert.Equal(t, "bank_transfer", report.ByMethod[0].Label)
	assert.Equal(t, 1, report.ByMethod[0].Count)
	assert.Equal(t, "card", report.ByMethod[1].Label)
	assert.Equal(t, 2, report.ByMethod[1].Count)
}

func TestListBookingsStatusFilter(t *testing.T) {
	svc, bunDB := setupService(t)

	bookings := []models.Booking{
		{ID: "b-1", UserID: "s-1", ApartmentID: "apt-1", OwnerID: "o-1", MoveInDate: time.Now(), TotalAmount: 1000, DepositAmount: 200, Status: models.BookingPending, CreatedAt: time.Now()},
		{ID: "b-2", UserID: "s-2", ApartmentID: "apt-2", OwnerID: "o-1", MoveInDate: time.Now(), TotalAmount: 1000, DepositAmount: 200, Status: models.BookingConfirmed, CreatedAt: time.Now()},
	}
	_, err := bunDB.NewInsert().Model(&bookings).Exec(context.Background())
	require.NoError(t, err)

	all, pagination, err := svc.ListBookings(context.Background(), "", 1, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, pagination.Total)

	confirmed, _, err := svc.ListBookings(context.Background(), models.BookingConfirmed, 1, 10)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "b-2", confirmed[0].ID)

	_, _, err = svc.ListBookings(context.Background(), "shipped", 1, 10)
	var ve admin.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestHealth(t *testing.T) {
	svc, _ := setupService(t)

	status := svc.Health(context.Background())

	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Database)
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
	assert.Greater(t, status.Goroutines, 0)
}
