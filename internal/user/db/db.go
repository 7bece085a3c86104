package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"unistay/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ListFilters enumerates the supported user list filters.
type ListFilters struct {
	UserType models.UserType
	IsActive *bool
	Search   string
}

func applyFilters(q *bun.SelectQuery, f ListFilters) *bun.SelectQuery {
	if f.UserType != "" {
		q = q.Where("user_type = ?", f.UserType)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(first_name) LIKE ?", pattern).
				WhereOr("LOWER(last_name) LIKE ?", pattern).
				WhereOr("LOWER(email) LIKE ?", pattern)
		})
	}
	return q
}

// ListUsers returns one page of users, newest first, plus the unpaged total.
func (d *DB) ListUsers(ctx context.Context, f ListFilters, limit, offset int) ([]models.User, int, error) {
	var users []models.User
	err := applyFilters(d.Bun.NewSelect().Model(&users), f).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	total, err := applyFilters(d.Bun.NewSelect().Model((*models.User)(nil)), f).Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	if users == nil {
		users = []models.User{}
	}
	return users, total, nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies the given column values and returns the updated row.
func (d *DB) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) (*models.User, error) {
	q := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Where("id = ?", id)
	for col, val := range fields {
		q = q.Set("? = ?", bun.Ident(col), val)
	}
	if _, err := q.Exec(ctx); err != nil {
		return nil, err
	}
	return d.GetUserByID(ctx, id)
}

func (d *DB) DeleteUser(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
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
