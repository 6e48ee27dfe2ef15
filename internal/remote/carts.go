package remote

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const collectionCarts = "user_carts"

// Carts adapts the user_carts collection, one row per owner key.
type Carts struct {
	base Base
}

// NewCarts returns the cart collection adapter.
func NewCarts(base Base) Carts {
	return Carts{base: base}
}

// FetchByOwner loads the owner's cart snapshot. A missing row is an empty
// cart, not an error.
func (c Carts) FetchByOwner(ctx context.Context, ownerKey string) (models.CartLines, error) {
	var row models.UserCart
	err := c.base.do(ctx, collectionCarts, "fetch_by_owner", func(db *gorm.DB) error {
		if err := db.First(&row, "owner_key = ?", ownerKey).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row.Items, nil
}

// Upsert replaces the owner's full cart snapshot. Last write wins.
func (c Carts) Upsert(ctx context.Context, ownerKey string, items models.CartLines) error {
	if items == nil {
		items = models.CartLines{}
	}
	row := models.UserCart{
		OwnerKey:  ownerKey,
		Items:     items,
		UpdatedAt: time.Now().UTC(),
	}
	if err := models.Validate(row); err != nil {
		return err
	}
	return c.base.do(ctx, collectionCarts, "upsert", func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).Create(&row).Error
	})
}

// Delete removes the owner's cart row.
func (c Carts) Delete(ctx context.Context, ownerKey string) error {
	return c.base.do(ctx, collectionCarts, "delete", func(db *gorm.DB) error {
		return db.Delete(&models.UserCart{}, "owner_key = ?", ownerKey).Error
	})
}
