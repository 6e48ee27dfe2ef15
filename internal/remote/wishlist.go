package remote

import (
	"context"

	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const collectionWishlist = "wishlist_items"

// Wishlist adapts the actor-scoped wishlist collection.
type Wishlist struct {
	base Base
}

// NewWishlist returns the wishlist collection adapter.
func NewWishlist(base Base) Wishlist {
	return Wishlist{base: base}
}

// FetchByOwner lists the owner's liked product IDs, oldest like first.
func (w Wishlist) FetchByOwner(ctx context.Context, ownerKey string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := w.base.do(ctx, collectionWishlist, "fetch_by_owner", func(db *gorm.DB) error {
		return db.Model(&models.WishlistItem{}).
			Where("owner_key = ?", ownerKey).
			Order("created_at ASC").
			Pluck("product_id", &ids).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Insert adds a liked product; re-adding an existing pair is a no-op.
func (w Wishlist) Insert(ctx context.Context, ownerKey string, productID uuid.UUID) error {
	row := models.WishlistItem{OwnerKey: ownerKey, ProductID: productID}
	if err := models.Validate(row); err != nil {
		return err
	}
	return w.base.do(ctx, collectionWishlist, "insert", func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	})
}

// Delete removes a liked product regardless of prior state.
func (w Wishlist) Delete(ctx context.Context, ownerKey string, productID uuid.UUID) error {
	return w.base.do(ctx, collectionWishlist, "delete", func(db *gorm.DB) error {
		return db.Delete(&models.WishlistItem{}, "owner_key = ? AND product_id = ?", ownerKey, productID).Error
	})
}
