package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entity. Rating and ReviewsCount are derived values
// recomputed by the review subsystem; catalog code never edits them directly.
type Product struct {
	ID             uuid.UUID   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title          string      `gorm:"column:title;not null" json:"title" validate:"required"`
	Brand          string      `gorm:"column:brand" json:"brand,omitempty"`
	Description    *string     `gorm:"column:description" json:"description,omitempty"`
	PriceCents     int         `gorm:"column:price_cents;not null" json:"price_cents" validate:"gte=0"`
	ImageRef       string      `gorm:"column:image_ref" json:"image_ref,omitempty"`
	VariantOptions VariantSpec `gorm:"column:variant_options;type:jsonb;serializer:json" json:"variant_options,omitempty"`
	IsActive       bool        `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Rating         float64     `gorm:"column:rating;not null;default:0" json:"rating"`
	ReviewsCount   int         `gorm:"column:reviews_count;not null;default:0" json:"reviews_count"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName maps the struct to the products collection.
func (Product) TableName() string {
	return "products"
}
