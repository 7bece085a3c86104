package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unistay/internal/auth"
	"unistay/internal/booking/db"
	"unistay/internal/logger"
	"unistay/internal/models"
)

var (
	ErrNotFound  = errors.New("booking not found")
	ErrForbidden = errors.New("access denied")
)

// ValidationError is a 400-class input error whose message is safe to return.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Which side of the booking a list query selects.
const (
	RoleRenter = "user_id"
	RoleOwner  = "owner_id"
)

type DBLayer interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error)
	ListBookings(ctx context.Context, roleColumn, userID string, status models.BookingStatus, limit, offset int) ([]models.Booking, int, error)
	GetApartmentsByIDs(ctx context.Context, ids []string) (map[string]models.Apartment, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	GetImagesForApartments(ctx context.Context, apartmentIDs []string) (map[string][]string, error)
}

type EventPublisher interface {
	PublishBookingCreated(b models.Booking) error
	PublishBookingStatusChanged(b models.Booking) error
}

type BookingService struct {
	DB     DBLayer
	Events EventPublisher
	Logger *logger.Logger
}

func NewBookingService(dbLayer DBLayer, events EventPublisher, log *logger.Logger) *BookingService {
	return &BookingService{DB: dbLayer, Events: events, Logger: log}
}

// Create places a pending booking for the renter. Availability, duplicate and
// deposit checks run atomically in the data layer under a row lock.
func (s *BookingService) Create(ctx context.Context, renterID string, req models.BookingRequest) (*models.Booking, error) {
	if req.ApartmentID == "" || req.MoveInDate.IsZero() || req.TotalAmount == 0 || req.DepositAmount == 0 {
		return nil, ValidationError("Missing required fields")
	}

	booking := &models.Booking{
		ID:            uuid.NewString(),
		UserID:        renterID,
		ApartmentID:   req.ApartmentID,
		MoveInDate:    req.MoveInDate,
		MoveOutDate:   req.MoveOutDate,
		TotalAmount:   req.TotalAmount,
		DepositAmount: req.DepositAmount,
		CreatedAt:     time.Now(),
	}

	err := s.DB.CreateBooking(ctx, booking)
	var depositErr *db.DepositError
	switch {
	case errors.Is(err, db.ErrApartmentNotFound):
		return nil, ErrNotFound
	case errors.Is(err, db.ErrApartmentUnavailable):
		return nil, ValidationError("Apartment is not available")
	case errors.Is(err, db.ErrDuplicateBooking):
		return nil, ValidationError("You already have a booking for this apartment")
	case errors.As(err, &depositErr):
		return nil, ValidationError(depositErr.Error())
	case err != nil:
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.Logger.LogBooking("CREATE", booking.ID, fmt.Sprintf("renter %s, apartment %s", renterID, req.ApartmentID))
	if err := s.Events.PublishBookingCreated(*booking); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish booking created: %v", err))
	}

	return booking, nil
}

func (s *BookingService) ListForRenter(ctx context.Context, renterID string, status models.BookingStatus, page, limit int) ([]models.BookingWithDetails, models.Pagination, error) {
	return s.list(ctx, RoleRenter, renterID, status, page, limit)
}

func (s *BookingService) ListForOwner(ctx context.Context, ownerID string, status models.BookingStatus, page, limit int) ([]models.BookingWithDetails, models.Pagination, error) {
	return s.list(ctx, RoleOwner, ownerID, status, page, limit)
}

func (s *BookingService) list(ctx context.Context, roleColumn, userID string, status models.BookingStatus, page, limit int) ([]models.BookingWithDetails, models.Pagination, error) {
	if status != "" && !models.ValidBookingStatus(status) {
		return nil, models.Pagination{}, ValidationError("Invalid status filter")
	}

	bookings, total, err := s.DB.ListBookings(ctx, roleColumn, userID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list bookings: %w", err)
	}

	details, err := s.attachDetails(ctx, bookings)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return details, models.NewPagination(page, limit, total), nil
}

// Get returns one booking with joined apartment and contact details. Only the
// renter, the apartment owner, or an admin may read it.
func (s *BookingService) Get(ctx context.Context, caller *auth.Identity, id string) (*models.BookingWithDetails, error) {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	if booking.UserID != caller.ID && booking.OwnerID != caller.ID && caller.UserType != models.UserTypeAdmin {
		return nil, ErrForbidden
	}

	details, err := s.attachDetails(ctx, []models.Booking{*booking})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// UpdateStatus moves a booking to any status in the accepted set. Transition
// legality is deliberately not enforced beyond set membership; confirming
// also flips the apartment unavailable atomically.
func (s *BookingService) UpdateStatus(ctx context.Context, caller *auth.Identity, id string, status models.BookingStatus) (*models.Booking, error) {
	if !models.ValidBookingStatus(status) {
		return nil, ValidationError("Valid status is required")
	}

	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	if booking.OwnerID != caller.ID && caller.UserType != models.UserTypeAdmin {
		return nil, ErrForbidden
	}

	updated, err := s.DB.UpdateBookingStatus(ctx, id, status)
	if errors.Is(err, db.ErrBookingNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update booking %s status: %w", id, err)
	}

	s.Logger.LogBooking("STATUS", id, string(status))
	if err := s.Events.PublishBookingStatusChanged(*updated); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish booking status: %v", err))
	}

	return updated, nil
}

// Cancel is the renter's self-service path, legal only while pending.
func (s *BookingService) Cancel(ctx context.Context, caller *auth.Identity, id string) (*models.Booking, error) {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	if booking.UserID != caller.ID {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingPending {
		return nil, ValidationError("Only pending bookings can be cancelled")
	}

	updated, err := s.DB.UpdateBookingStatus(ctx, id, models.BookingCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", id, err)
	}

	s.Logger.LogBooking("CANCEL", id, "cancelled by renter")
	if err := s.Events.PublishBookingStatusChanged(*updated); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish booking status: %v", err))
	}

	return updated, nil
}

func (s *BookingService) attachDetails(ctx context.Context, bookings []models.Booking) ([]models.BookingWithDetails, error) {
	apartmentIDs := make([]string, 0, len(bookings))
	userIDs := make([]string, 0, len(bookings)*2)
	for _, b := range bookings {
		apartmentIDs = append(apartmentIDs, b.ApartmentID)
		userIDs = append(userIDs, b.UserID, b.OwnerID)
	}

	apartments, err := s.DB.GetApartmentsByIDs(ctx, apartmentIDs)
	if err != nil {
		return nil, fmt.Errorf("load apartments: %w", err)
	}
	images, err := s.DB.GetImagesForApartments(ctx, apartmentIDs)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	users, err := s.DB.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	details := make([]models.BookingWithDetails, len(bookings))
	for i, b := range bookings {
		detail := models.BookingWithDetails{Booking: b}
		if a, ok := apartments[b.ApartmentID]; ok {
			detail.ApartmentTitle = a.Title
			detail.ApartmentAddress = a.Address
			detail.ApartmentCity = a.City
			detail.MonthlyRent = a.MonthlyRent
		}
		detail.ApartmentImages = images[b.ApartmentID]
		if detail.ApartmentImages == nil {
			detail.ApartmentImages = []string{}
		}
		if owner, ok := users[b.OwnerID]; ok {
			detail.OwnerFirstName = owner.FirstName
			detail.OwnerLastName = owner.LastName
			detail.OwnerEmail = owner.Email
			detail.OwnerPhone = owner.Phone
		}
		if student, ok := users[b.UserID]; ok {
			detail.StudentFirstName = student.FirstName
			detail.StudentLastName = student.LastName
			detail.StudentEmail = student.Email
			detail.StudentPhone = student.Phone
		}
		details[i] = detail
	}
	return details, nil
}
