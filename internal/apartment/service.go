package apartment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unistay/internal/apartment/db"
	"unistay/internal/auth"
	"unistay/internal/logger"
	"unistay/internal/models"
)

var (
	ErrNotFound  = errors.New("apartment not found")
	ErrForbidden = errors.New("access denied")
)

// ValidationError is a 400-class input error whose message is safe to return.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

type DBLayer interface {
	ListApartments(ctx context.Context, f db.ListFilters, limit, offset int) ([]models.Apartment, int, error)
	GetApartmentByID(ctx context.Context, id string) (*models.Apartment, error)
	CreateApartment(ctx context.Context, apartment *models.Apartment) error
	UpdateApartment(ctx context.Context, id string, fields map[string]interface{}) error
	DeleteApartment(ctx context.Context, id string) error
	ReplaceImages(ctx context.Context, apartmentID string, urls []string, newID func() string) error
	GetImagesForApartments(ctx context.Context, apartmentIDs []string) (map[string][]string, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type ApartmentService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewApartmentService(db DBLayer, log *logger.Logger) *ApartmentService {
	return &ApartmentService{DB: db, Logger: log}
}

// Columns the update endpoint may touch. Everything else in the payload is
// silently ignored, matching the listing contract.
var updateAllowList = map[string]bool{
	"title": true, "description": true, "address": true, "city": true,
	"state": true, "zip_code": true, "latitude": true, "longitude": true,
	"monthly_rent": true, "deposit_percentage": true, "min_contract_months": true,
	"bedrooms": true, "bathrooms": true, "square_feet": true,
	"available_from": true, "amenities": true, "is_available": true,
}

func (s *ApartmentService) List(ctx context.Context, f db.ListFilters, page, limit int) ([]models.ApartmentWithDetails, models.Pagination, error) {
	apartments, total, err := s.DB.ListApartments(ctx, f, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list apartments: %w", err)
	}

	details, err := s.attachDetails(ctx, apartments, false)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	return details, models.NewPagination(page, limit, total), nil
}

func (s *ApartmentService) Get(ctx context.Context, id string) (*models.ApartmentWithDetails, error) {
	apartment, err := s.DB.GetApartmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get apartment %s: %w", id, err)
	}
	if apartment == nil {
		return nil, ErrNotFound
	}

	details, err := s.attachDetails(ctx, []models.Apartment{*apartment}, true)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *ApartmentService) Create(ctx context.Context, ownerID string, req models.ApartmentRequest) (*models.Apartment, error) {
	if req.Title == "" || req.Address == "" || req.City == "" || req.State == "" ||
		req.ZipCode == "" || req.MonthlyRent == 0 || req.Bedrooms == 0 ||
		req.Bathrooms == 0 || req.AvailableFrom.IsZero() {
		return nil, ValidationError("Missing required fields")
	}

	apartment := &models.Apartment{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		Title:             req.Title,
		Description:       req.Description,
		Address:           req.Address,
		City:              req.City,
		State:             req.State,
		ZipCode:           req.ZipCode,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		MonthlyRent:       req.MonthlyRent,
		DepositPercentage: req.DepositPercentage,
		MinContractMonths: req.MinContractMonths,
		Bedrooms:          req.Bedrooms,
		Bathrooms:         req.Bathrooms,
		SquareFeet:        req.SquareFeet,
		AvailableFrom:     req.AvailableFrom,
		Amenities:         req.Amenities,
		IsAvailable:       true,
		CreatedAt:         time.Now(),
	}
	if apartment.DepositPercentage == 0 {
		apartment.DepositPercentage = 20
	}
	if apartment.MinContractMonths == 0 {
		apartment.MinContractMonths = 12
	}
	if apartment.Amenities == nil {
		apartment.Amenities = []string{}
	}

	if err := s.DB.CreateApartment(ctx, apartment); err != nil {
		return nil, fmt.Errorf("create apartment: %w", err)
	}

	s.Logger.Info("APARTMENT", fmt.Sprintf("Created apartment %s (owner %s)", apartment.ID, ownerID))
	return apartment, nil
}

func (s *ApartmentService) Update(ctx context.Context, caller *auth.Identity, id string, payload map[string]interface{}) (*models.Apartment, error) {
	apartment, err := s.DB.GetApartmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get apartment %s: %w", id, err)
	}
	if apartment == nil {
		return nil, ErrNotFound
	}
	if apartment.OwnerID != caller.ID && caller.UserType != models.UserTypeAdmin {
		return nil, ErrForbidden
	}

	fields := make(map[string]interface{})
	for key, value := range payload {
		if updateAllowList[key] && value != nil {
			fields[key] = value
		}
	}
	if len(fields) == 0 {
		return nil, ValidationError("No valid fields to update")
	}

	if err := s.DB.UpdateApartment(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update apartment %s: %w", id, err)
	}

	updated, err := s.DB.GetApartmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload apartment %s: %w", id, err)
	}
	return updated, nil
}

func (s *ApartmentService) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	apartment, err := s.DB.GetApartmentByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get apartment %s: %w", id, err)
	}
	if apartment == nil {
		return ErrNotFound
	}
	if apartment.OwnerID != caller.ID && caller.UserType != models.UserTypeAdmin {
		return ErrForbidden
	}

	if err := s.DB.DeleteApartment(ctx, id); err != nil {
		return fmt.Errorf("delete apartment %s: %w", id, err)
	}

	s.Logger.Info("APARTMENT", fmt.Sprintf("Deleted apartment %s", id))
	return nil
}

// UploadImages replaces the full image set; the first URL becomes primary.
func (s *ApartmentService) UploadImages(ctx context.Context, caller *auth.Identity, id string, urls []string) error {
	apartment, err := s.DB.GetApartmentByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get apartment %s: %w", id, err)
	}
	if apartment == nil {
		return ErrNotFound
	}
	if apartment.OwnerID != caller.ID && caller.UserType != models.UserTypeAdmin {
		return ErrForbidden
	}
	if len(urls) == 0 {
		return ValidationError("Images array is required")
	}

	if err := s.DB.ReplaceImages(ctx, id, urls, uuid.NewString); err != nil {
		return fmt.Errorf("replace images for %s: %w", id, err)
	}

	s.Logger.Info("APARTMENT", fmt.Sprintf("Replaced %d images for apartment %s", len(urls), id))
	return nil
}

// attachDetails joins owner contact fields and image URLs onto apartments.
// Phone and email are only exposed on single-item reads.
func (s *ApartmentService) attachDetails(ctx context.Context, apartments []models.Apartment, withContact bool) ([]models.ApartmentWithDetails, error) {
	ids := make([]string, len(apartments))
	ownerIDs := make([]string, len(apartments))
	for i, a := range apartments {
		ids[i] = a.ID
		ownerIDs[i] = a.OwnerID
	}

	images, err := s.DB.GetImagesForApartments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	owners, err := s.DB.GetUsersByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}

	details := make([]models.ApartmentWithDetails, len(apartments))
	for i, a := range apartments {
		detail := models.ApartmentWithDetails{Apartment: a, Images: images[a.ID]}
		if detail.Images == nil {
			detail.Images = []string{}
		}
		if owner, ok := owners[a.OwnerID]; ok {
			detail.OwnerContact = models.OwnerContact{
				FirstName:    owner.FirstName,
				LastName:     owner.LastName,
				ProfileImage: owner.ProfileImage,
			}
			if withContact {
				detail.OwnerContact.Phone = owner.Phone
				detail.OwnerContact.Email = owner.Email
			}
		}
		details[i] = detail
	}
	return details, nil
}
