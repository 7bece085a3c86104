package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"unistay/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ListFilters is the enumerated filter set for apartment search. Each field
// maps to exactly one parameterized predicate; there is no ad hoc SQL
// accumulation.
type ListFilters struct {
	City          string     // case-insensitive contains
	MinRent       *float64   // inclusive lower bound
	MaxRent       *float64   // inclusive upper bound
	MinBedrooms   *int       // at least
	MinBathrooms  *int       // at least
	AvailableFrom *time.Time // available_from <= cutoff
	Search        string     // case-insensitive contains over title/description/address
	OwnerID       string
	OnlyAvailable bool
}

func applyFilters(q *bun.SelectQuery, f ListFilters) *bun.SelectQuery {
	if f.OnlyAvailable {
		q = q.Where("is_available = ?", true)
	}
	if f.City != "" {
		q = q.Where("LOWER(city) LIKE ?", "%"+strings.ToLower(f.City)+"%")
	}
	if f.MinRent != nil {
		q = q.Where("monthly_rent >= ?", *f.MinRent)
	}
	if f.MaxRent != nil {
		q = q.Where("monthly_rent <= ?", *f.MaxRent)
	}
	if f.MinBedrooms != nil {
		q = q.Where("bedrooms >= ?", *f.MinBedrooms)
	}
	if f.MinBathrooms != nil {
		q = q.Where("bathrooms >= ?", *f.MinBathrooms)
	}
	if f.AvailableFrom != nil {
		q = q.Where("available_from <= ?", *f.AvailableFrom)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("LOWER(title) LIKE ?", pattern).
				WhereOr("LOWER(description) LIKE ?", pattern).
				WhereOr("LOWER(address) LIKE ?", pattern)
		})
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	return q
}

// ListApartments returns one page of matching apartments, newest first, plus
// the total match count for the pagination envelope.
func (d *DB) ListApartments(ctx context.Context, f ListFilters, limit, offset int) ([]models.Apartment, int, error) {
	var apartments []models.Apartment

	err := applyFilters(d.Bun.NewSelect().Model(&apartments), f).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	total, err := applyFilters(d.Bun.NewSelect().Model((*models.Apartment)(nil)), f).Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	if apartments == nil {
		apartments = []models.Apartment{}
	}
	return apartments, total, nil
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

func (d *DB) CreateApartment(ctx context.Context, apartment *models.Apartment) error {
	_, err := d.Bun.NewInsert().Model(apartment).Exec(ctx)
	return err
}

// UpdateApartment sets the given columns on one row. Callers are responsible
// for restricting keys to the update allow-list.
func (d *DB) UpdateApartment(ctx context.Context, id string, fields map[string]interface{}) error {
	q := d.Bun.NewUpdate().
		Model((*models.Apartment)(nil)).
		Where("id = ?", id)
	for column, value := range fields {
		q = q.Set("? = ?", bun.Ident(column), value)
	}
	_, err := q.Exec(ctx)
	return err
}

func (d *DB) DeleteApartment(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Apartment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) SetAvailability(ctx context.Context, id string, available bool) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Apartment)(nil)).
		Set("is_available = ?", available).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- IMAGES ----------------

// ReplaceImages swaps the full image set for an apartment: delete-all then
// insert-all, first URL marked primary. Runs in one transaction.
func (d *DB) ReplaceImages(ctx context.Context, apartmentID string, urls []string, newID func() string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.ApartmentImage)(nil)).
			Where("apartment_id = ?", apartmentID).
			Exec(ctx)
		if err != nil {
			return err
		}

		images := make([]models.ApartmentImage, len(urls))
		for i, url := range urls {
			images[i] = models.ApartmentImage{
				ID:          newID(),
				ApartmentID: apartmentID,
				ImageURL:    url,
				IsPrimary:   i == 0,
				CreatedAt:   time.Now(),
			}
		}
		_, err = tx.NewInsert().Model(&images).Exec(ctx)
		return err
	})
}

// GetImagesForApartments returns image URLs grouped by apartment, primary
// image first.
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

// GetUsersByIDs returns users keyed by id, for attaching owner contact fields.
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

