package models

import (
	"time"

	"github.com/google/uuid"
)

// VariantSpec holds the product options (size, type, ...) that distinguish
// otherwise-identical cart lines for the same product.
type VariantSpec map[string]string

// Equal compares variant specs structurally. Nil and empty specs are equal.
func (v VariantSpec) Equal(other VariantSpec) bool {
	if len(v) != len(other) {
		return false
	}
	for key, value := range v {
		if other[key] != value {
			return false
		}
	}
	return true
}

// CartLine is one entry in an actor's cart. At most one line exists per
// (ItemID, Variant) pair; duplicate adds increment Quantity instead.
type CartLine struct {
	ItemID         uuid.UUID   `json:"item_id" validate:"required"`
	DisplayName    string      `json:"display_name"`
	Brand          string      `json:"brand,omitempty"`
	ImageRef       string      `json:"image_ref,omitempty"`
	UnitPriceCents int         `json:"unit_price_cents" validate:"gte=0"`
	Quantity       int         `json:"quantity" validate:"gte=1"`
	Variant        VariantSpec `json:"variant,omitempty"`
}

// CartLines is the ordered cart snapshot stored as one JSON value both
// remotely and in the local cache.
type CartLines []CartLine

// TotalQuantity sums line quantities across the cart.
func (c CartLines) TotalQuantity() int {
	total := 0
	for _, line := range c {
		total += line.Quantity
	}
	return total
}

// UserCart is the remote row mirroring one actor's cart, one row per owner.
type UserCart struct {
	OwnerKey  string    `gorm:"column:owner_key;primaryKey" validate:"required"`
	Items     CartLines `gorm:"column:items;type:jsonb;serializer:json" validate:"dive"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName maps the struct to the user_carts collection.
func (UserCart) TableName() string {
	return "user_carts"
}
