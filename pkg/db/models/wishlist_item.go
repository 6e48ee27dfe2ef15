package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem records one liked product per owner. The pair is unique;
// re-adding is a no-op.
type WishlistItem struct {
	OwnerKey  string    `gorm:"column:owner_key;primaryKey" json:"owner_key" validate:"required"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey" json:"product_id" validate:"required"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName maps the struct to the wishlist_items collection.
func (WishlistItem) TableName() string {
	return "wishlist_items"
}
