package models

import (
	"time"

	"github.com/angelmondragon/storefront-sync/pkg/enums"
	"github.com/google/uuid"
)

// OrderLine snapshots a purchased cart line at checkout time.
type OrderLine struct {
	ItemID         uuid.UUID   `json:"item_id" validate:"required"`
	DisplayName    string      `json:"display_name"`
	UnitPriceCents int         `json:"unit_price_cents" validate:"gte=0"`
	Quantity       int         `json:"quantity" validate:"gte=1"`
	Variant        VariantSpec `json:"variant,omitempty"`
}

// OrderLines is stored as a single JSON value on the order row.
type OrderLines []OrderLine

// Order is immutable once created except for Status, which moves through an
// explicit transition table.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerEmail string            `gorm:"column:owner_email;not null;index" json:"owner_email" validate:"required,email"`
	Items      OrderLines        `gorm:"column:items;type:jsonb;serializer:json" json:"items" validate:"min=1,dive"`
	TotalCents int               `gorm:"column:total_cents;not null" json:"total_cents" validate:"gte=0"`
	Status     enums.OrderStatus `gorm:"column:status;not null;default:'created'" json:"status"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName maps the struct to the orders collection.
func (Order) TableName() string {
	return "orders"
}
