package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"unistay/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ListItems returns one page of the user's saved items, newest first. Items
// whose apartment is off the market are excluded.
func (d *DB) ListItems(ctx context.Context, userID string, limit, offset int) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := d.Bun.NewSelect().
		Model(&items).
		Join("JOIN apartments AS a ON a.id = wishlist.apartment_id").
		Where("wishlist.user_id = ?", userID).
		Where("a.is_available = ?", true).
		Order("wishlist.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.WishlistItem{}
	}
	return items, nil
}

func (d *DB) AddItem(ctx context.Context, item *models.WishlistItem) error {
	_, err := d.Bun.NewInsert().Model(item).Exec(ctx)
	return err
}

// RemoveItem deletes the user's entry for the apartment. Reports whether an
// entry existed.
func (d *DB) RemoveItem(ctx context.Context, userID, apartmentID string) (bool, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.WishlistItem)(nil)).
		Where("user_id = ?", userID).
		Where("apartment_id = ?", apartmentID).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (d *DB) HasItem(ctx context.Context, userID, apartmentID string) (bool, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.WishlistItem)(nil)).
		Where("user_id = ?", userID).
		Where("apartment_id = ?", apartmentID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountItems counts the user's saved items whose apartment is still on the
// market, matching what ListItems returns.
func (d *DB) CountItems(ctx context.Context, userID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.WishlistItem)(nil)).
		Join("JOIN apartments AS a ON a.id = wishlist.apartment_id").
		Where("wishlist.user_id = ?", userID).
		Where("a.is_available = ?", true).
		Count(ctx)
}

func (d *DB) GetApartmentByID(ctx context.Context, id string) (*models.Apartment, error) {
	var apartment models.Apartment
	err := d.Bun.NewSelect().
		Model(&apartment).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &apartment, nil
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
