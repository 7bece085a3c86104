package admin

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"

	"unistay/internal/admin/db"
	"unistay/internal/cache"
	"unistay/internal/logger"
	"unistay/internal/models"
)

var ErrApartmentNotFound = errors.New("apartment not found")

// ValidationError is a 400-class input error whose message is safe to return.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	dashboardCacheKey = "admin:dashboard"
	dashboardCacheTTL = time.Minute

	recentItems = 5
)

// Moderation actions and the availability they map to.
var moderationActions = map[string]bool{
	"approve": true,
	"reject":  false,
	"suspend": false,
}

// DashboardStats is the admin landing-page aggregate.
type DashboardStats struct {
	TotalUsers          int            `json:"total_users"`
	TotalApartments     int            `json:"total_apartments"`
	AvailableApartments int            `json:"available_apartments"`
	TotalBookings       int            `json:"total_bookings"`
	TotalPayments       int            `json:"total_payments"`
	TotalRevenue        float64        `json:"total_revenue"`
	MonthlyRevenue      float64        `json:"monthly_revenue"`
	UsersByType         []db.TypeCount `json:"users_by_type"`
	BookingsByStatus    []db.TypeCount `json:"bookings_by_status"`

	RecentUsers    []models.User    `json:"recent_users"`
	RecentBookings []models.Booking `json:"recent_bookings"`
}

// DailyRevenue is one day's bucket in the analytics trend.
type DailyRevenue struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// PaymentAnalytics is the rolling-window payment report.
type PaymentAnalytics struct {
	PeriodDays     int            `json:"period_days"`
	TotalPayments  int            `json:"total_payments"`
	TotalRevenue   float64        `json:"total_revenue"`
	RefundedCount  int            `json:"refunded_count"`
	RefundedAmount float64        `json:"refunded_amount"`
	DailyTrend     []DailyRevenue `json:"daily_trend"`
	ByMethod       []db.TypeCount `json:"by_method"`
}

// HealthStatus is the liveness probe payload.
type HealthStatus struct {
	Status        string  `json:"status"`
	Database      string  `json:"database"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	AllocMB       float64 `json:"alloc_mb"`
	SysMB         float64 `json:"sys_mb"`
	Goroutines    int     `json:"goroutines"`
}

type DBLayer interface {
	Ping(ctx context.Context) error
	CountUsers(ctx context.Context) (int, error)
	CountApartments(ctx context.Context) (int, error)
	CountBookings(ctx context.Context) (int, error)
	CountPayments(ctx context.Context) (int, error)
	CountAvailableApartments(ctx context.Context) (int, error)
	CompletedRevenueSince(ctx context.Context, since time.Time) (float64, error)
	UserTypeDistribution(ctx context.Context) ([]db.TypeCount, error)
	BookingStatusDistribution(ctx context.Context) ([]db.TypeCount, error)
	RecentUsers(ctx context.Context, n int) ([]models.User, error)
	RecentBookings(ctx context.Context, n int) ([]models.Booking, error)
	PaymentsSince(ctx context.Context, since time.Time) ([]models.Payment, error)
	ListAllBookings(ctx context.Context, status models.BookingStatus, limit, offset int) ([]models.Booking, int, error)
	ModerateApartment(ctx context.Context, apartmentID string, available bool, logEntry *models.AdminLog) error
	ListAdminLogs(ctx context.Context, limit, offset int) ([]models.AdminLog, int, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

// AdminService serves the reporting and moderation surface. Route-level
// middleware restricts it to admin callers.
type AdminService struct {
	DB        DBLayer
	Cache     *cache.Cache
	Logger    *logger.Logger
	startedAt time.Time
}

func NewAdminService(dbLayer DBLayer, c *cache.Cache, log *logger.Logger) *AdminService {
	return &AdminService{DB: dbLayer, Cache: c, Logger: log, startedAt: time.Now()}
}

// Dashboard aggregates the landing-page counters, cached for a minute.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var cached DashboardStats
	if s.Cache.GetJSON(ctx, dashboardCacheKey, &cached) {
		return &cached, nil
	}

	stats := &DashboardStats{}
	var err error

	if stats.TotalUsers, err = s.DB.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if stats.TotalApartments, err = s.DB.CountApartments(ctx); err != nil {
		return nil, fmt.Errorf("count apartments: %w", err)
	}
	if stats.AvailableApartments, err = s.DB.CountAvailableApartments(ctx); err != nil {
		return nil, fmt.Errorf("count available apartments: %w", err)
	}
	if stats.TotalBookings, err = s.DB.CountBookings(ctx); err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	if stats.TotalPayments, err = s.DB.CountPayments(ctx); err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}
	if stats.TotalRevenue, err = s.DB.CompletedRevenueSince(ctx, time.Time{}); err != nil {
		return nil, fmt.Errorf("total revenue: %w", err)
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if stats.MonthlyRevenue, err = s.DB.CompletedRevenueSince(ctx, monthStart); err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}

	if stats.UsersByType, err = s.DB.UserTypeDistribution(ctx); err != nil {
		return nil, fmt.Errorf("user distribution: %w", err)
	}
	if stats.BookingsByStatus, err = s.DB.BookingStatusDistribution(ctx); err != nil {
		return nil, fmt.Errorf("booking distribution: %w", err)
	}
	if stats.RecentUsers, err = s.DB.RecentUsers(ctx, recentItems); err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	if stats.RecentBookings, err = s.DB.RecentBookings(ctx, recentItems); err != nil {
		return nil, fmt.Errorf("recent bookings: %w", err)
	}

	s.Cache.SetJSON(ctx, dashboardCacheKey, stats, dashboardCacheTTL)
	return stats, nil
}

// Moderate maps the action to an availability flip and writes the audit row
// in the same transaction.
func (s *AdminService) Moderate(ctx context.Context, adminID, apartmentID, action, reason string) error {
	available, ok := moderationActions[action]
	if !ok {
		return ValidationError("Action must be one of approve, reject, suspend")
	}

	logEntry := &models.AdminLog{
		ID:         uuid.NewString(),
		AdminID:    adminID,
		Action:     action,
		TargetType: "apartment",
		TargetID:   apartmentID,
		Details:    map[string]string{"reason": reason},
		CreatedAt:  time.Now(),
	}

	err := s.DB.ModerateApartment(ctx, apartmentID, available, logEntry)
	if errors.Is(err, db.ErrApartmentNotFound) {
		return ErrApartmentNotFound
	}
	if err != nil {
		return fmt.Errorf("moderate apartment %s: %w", apartmentID, err)
	}

	s.Cache.Delete(ctx, dashboardCacheKey)
	s.Logger.LogAdmin(action, apartmentID, fmt.Sprintf("by %s: %s", adminID, reason))
	return nil
}

// ListBookings is the unscoped booking view for the admin console.
func (s *AdminService) ListBookings(ctx context.Context, status models.BookingStatus, page, limit int) ([]models.Booking, models.Pagination, error) {
	if status != "" && !models.ValidBookingStatus(status) {
		return nil, models.Pagination{}, ValidationError("Invalid status filter")
	}

	bookings, total, err := s.DB.ListAllBookings(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, models.NewPagination(page, limit, total), nil
}

// Analytics buckets payments over the trailing window by day and method.
func (s *AdminService) Analytics(ctx context.Context, days int) (*PaymentAnalytics, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	payments, err := s.DB.PaymentsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("payments since %s: %w", since.Format("2006-01-02"), err)
	}

	report := &PaymentAnalytics{PeriodDays: days}
	daily := make(map[string]*DailyRevenue)
	methods := make(map[string]int)

	for _, p := range payments {
		switch p.PaymentStatus {
		case models.PaymentCompleted:
			report.TotalPayments++
			report.TotalRevenue += p.Amount

			day := p.CreatedAt.Format("2006-01-02")
			bucket, ok := daily[day]
			if !ok {
				bucket = &DailyRevenue{Date: day}
				daily[day] = bucket
			}
			bucket.Count++
			bucket.Revenue += p.Amount

			methods[p.PaymentMethod]++
		case models.PaymentRefunded:
			report.RefundedCount++
			report.RefundedAmount += p.Amount
		}
	}

	report.DailyTrend = make([]DailyRevenue, 0, len(daily))
	for _, bucket := range daily {
		report.DailyTrend = append(report.DailyTrend, *bucket)
	}
	sort.Slice(report.DailyTrend, func(i, j int) bool {
		return report.DailyTrend[i].Date < report.DailyTrend[j].Date
	})

	report.ByMethod = make([]db.TypeCount, 0, len(methods))
	for method, count := range methods {
		report.ByMethod = append(report.ByMethod, db.TypeCount{Label: method, Count: count})
	}
	sort.Slice(report.ByMethod, func(i, j int) bool {
		return report.ByMethod[i].Label < report.ByMethod[j].Label
	})

	return report, nil
}

// Logs returns one page of the audit trail with acting-admin names attached.
func (s *AdminService) Logs(ctx context.Context, page, limit int) ([]models.AdminLogWithAdmin, models.Pagination, error) {
	logs, total, err := s.DB.ListAdminLogs(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list admin logs: %w", err)
	}

	adminIDs := make([]string, 0, len(logs))
	for _, entry := range logs {
		adminIDs = append(adminIDs, entry.AdminID)
	}
	admins, err := s.DB.GetUsersByIDs(ctx, adminIDs)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("load admins: %w", err)
	}

	withAdmin := make([]models.AdminLogWithAdmin, len(logs))
	for i, entry := range logs {
		row := models.AdminLogWithAdmin{AdminLog: entry}
		if admin, ok := admins[entry.AdminID]; ok {
			row.AdminFirstName = admin.FirstName
			row.AdminLastName = admin.LastName
		}
		withAdmin[i] = row
	}
	return withAdmin, models.NewPagination(page, limit, total), nil
}

// Health reports DB liveness and coarse process stats.
func (s *AdminService) Health(ctx context.Context) *HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := &HealthStatus{
		Status:        "ok",
		Database:      "ok",
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		AllocMB:       float64(mem.Alloc) / (1 << 20),
		SysMB:         float64(mem.Sys) / (1 << 20),
		Goroutines:    runtime.NumGoroutine(),
	}
	if err := s.DB.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Database = err.Error()
	}
	return status
}
