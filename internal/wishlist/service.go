package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unistay/internal/cache"
	"unistay/internal/logger"
	"unistay/internal/models"
)

var ErrApartmentNotFound = errors.New("apartment not found")

// ValidationError is a 400-class input error whose message is safe to return.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const countCacheTTL = 5 * time.Minute

type DBLayer interface {
	ListItems(ctx context.Context, userID string, limit, offset int) ([]models.WishlistItem, error)
	AddItem(ctx context.Context, item *models.WishlistItem) error
	RemoveItem(ctx context.Context, userID, apartmentID string) (bool, error)
	HasItem(ctx context.Context, userID, apartmentID string) (bool, error)
	CountItems(ctx context.Context, userID string) (int, error)
	GetApartmentByID(ctx context.Context, id string) (*models.Apartment, error)
	GetApartmentsByIDs(ctx context.Context, ids []string) (map[string]models.Apartment, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	GetImagesForApartments(ctx context.Context, apartmentIDs []string) (map[string][]string, error)
}

type WishlistService struct {
	DB     DBLayer
	Cache  *cache.Cache
	Logger *logger.Logger
}

func NewWishlistService(dbLayer DBLayer, c *cache.Cache, log *logger.Logger) *WishlistService {
	return &WishlistService{DB: dbLayer, Cache: c, Logger: log}
}

func countKey(userID string) string {
	return "wishlist:count:" + userID
}

// List returns one page of the user's saved apartments with owner and image
// details. Listings that have since gone off the market are filtered out.
func (s *WishlistService) List(ctx context.Context, userID string, page, limit int) ([]models.WishlistEntry, models.Pagination, error) {
	items, err := s.DB.ListItems(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list wishlist: %w", err)
	}
	total, err := s.DB.CountItems(ctx, userID)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("count wishlist: %w", err)
	}

	apartmentIDs := make([]string, 0, len(items))
	for _, item := range items {
		apartmentIDs = append(apartmentIDs, item.ApartmentID)
	}

	apartments, err := s.DB.GetApartmentsByIDs(ctx, apartmentIDs)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("load apartments: %w", err)
	}
	images, err := s.DB.GetImagesForApartments(ctx, apartmentIDs)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("load images: %w", err)
	}

	ownerIDs := make([]string, 0, len(apartments))
	for _, a := range apartments {
		ownerIDs = append(ownerIDs, a.OwnerID)
	}
	owners, err := s.DB.GetUsersByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("load owners: %w", err)
	}

	entries := make([]models.WishlistEntry, 0, len(items))
	for _, item := range items {
		apartment, ok := apartments[item.ApartmentID]
		if !ok || !apartment.IsAvailable {
			continue
		}

		entry := models.WishlistEntry{
			WishlistID: item.ID,
			AddedAt:    item.CreatedAt,
		}
		entry.Apartment = apartment
		if owner, ok := owners[apartment.OwnerID]; ok {
			entry.OwnerContact = models.OwnerContact{
				FirstName:    owner.FirstName,
				LastName:     owner.LastName,
				ProfileImage: owner.ProfileImage,
			}
		}
		entry.Images = images[apartment.ID]
		if entry.Images == nil {
			entry.Images = []string{}
		}
		entries = append(entries, entry)
	}
	return entries, models.NewPagination(page, limit, total), nil
}

// Add saves an apartment to the user's wishlist.
func (s *WishlistService) Add(ctx context.Context, userID, apartmentID string) (*models.WishlistItem, error) {
	if apartmentID == "" {
		return nil, ValidationError("Apartment ID is required")
	}

	apartment, err := s.DB.GetApartmentByID(ctx, apartmentID)
	if err != nil {
		return nil, fmt.Errorf("get apartment %s: %w", apartmentID, err)
	}
	if apartment == nil {
		return nil, ErrApartmentNotFound
	}
	if !apartment.IsAvailable {
		return nil, ValidationError("Apartment is not available")
	}

	exists, err := s.DB.HasItem(ctx, userID, apartmentID)
	if err != nil {
		return nil, fmt.Errorf("check wishlist: %w", err)
	}
	if exists {
		return nil, ValidationError("Apartment is already in your wishlist")
	}

	item := &models.WishlistItem{
		ID:          uuid.NewString(),
		UserID:      userID,
		ApartmentID: apartmentID,
		CreatedAt:   time.Now(),
	}
	if err := s.DB.AddItem(ctx, item); err != nil {
		return nil, fmt.Errorf("add wishlist item: %w", err)
	}

	s.Cache.Delete(ctx, countKey(userID))
	return item, nil
}

// Remove drops the apartment from the user's wishlist.
func (s *WishlistService) Remove(ctx context.Context, userID, apartmentID string) error {
	removed, err := s.DB.RemoveItem(ctx, userID, apartmentID)
	if err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	if !removed {
		return ErrApartmentNotFound
	}

	s.Cache.Delete(ctx, countKey(userID))
	return nil
}

// Check reports whether the apartment is in the user's wishlist.
func (s *WishlistService) Check(ctx context.Context, userID, apartmentID string) (bool, error) {
	return s.DB.HasItem(ctx, userID, apartmentID)
}

// Count returns the wishlist size, cached briefly for badge rendering.
func (s *WishlistService) Count(ctx context.Context, userID string) (int, error) {
	var count int
	if s.Cache.GetJSON(ctx, countKey(userID), &count) {
		return count, nil
	}

	count, err := s.DB.CountItems(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count wishlist: %w", err)
	}

	s.Cache.SetJSON(ctx, countKey(userID), count, countCacheTTL)
	return count, nil
}
