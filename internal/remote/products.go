package remote

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const collectionProducts = "products"

// Products adapts the shared product catalog collection.
type Products struct {
	base Base
}

// NewProducts returns the product collection adapter.
func NewProducts(base Base) Products {
	return Products{base: base}
}

// FetchAll lists active products, newest first.
func (p Products) FetchAll(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := p.base.do(ctx, collectionProducts, "fetch_all", func(db *gorm.DB) error {
		return db.Where("is_active = ?", true).Order("created_at DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchPage lists one page of active products ordered by (created_at, id)
// descending, returning the cursor for the next page when one exists.
func (p Products) FetchPage(ctx context.Context, params pagination.Params) ([]models.Product, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid page cursor")
	}

	var rows []models.Product
	err = p.base.do(ctx, collectionProducts, "fetch_page", func(db *gorm.DB) error {
		query := db.Where("is_active = ?", true).
			Order("created_at DESC, id DESC").
			Limit(pagination.LimitWithBuffer(limit))
		if cursor != nil {
			query = query.Where(
				"created_at < ? OR (created_at = ? AND id < ?)",
				cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
			)
		}
		return query.Find(&rows).Error
	})
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// FetchOne loads a single product by primary key.
func (p Products) FetchOne(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	err := p.base.do(ctx, collectionProducts, "fetch_one", func(db *gorm.DB) error {
		return db.First(&row, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, err
	}
	return &row, nil
}

// Insert adds a catalog row.
func (p Products) Insert(ctx context.Context, product *models.Product) error {
	if err := models.Validate(product); err != nil {
		return err
	}
	return p.base.do(ctx, collectionProducts, "insert", func(db *gorm.DB) error {
		return db.Create(product).Error
	})
}

// UpdateFields applies a partial update to the product row.
func (p Products) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return p.base.do(ctx, collectionProducts, "update_fields", func(db *gorm.DB) error {
		return db.Model(&models.Product{}).Where("id = ?", id).Updates(fields).Error
	})
}

// UpdateRating writes the derived review aggregate. Only the review
// subsystem calls this.
func (p Products) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewsCount int) error {
	return p.base.do(ctx, collectionProducts, "update_rating", func(db *gorm.DB) error {
		return db.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]any{
			"rating":        rating,
			"reviews_count": reviewsCount,
		}).Error
	})
}

// Delete removes a catalog row.
func (p Products) Delete(ctx context.Context, id uuid.UUID) error {
	return p.base.do(ctx, collectionProducts, "delete", func(db *gorm.DB) error {
		return db.Delete(&models.Product{}, "id = ?", id).Error
	})
}
