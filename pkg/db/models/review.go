package models

import (
	"time"

	"github.com/angelmondragon/storefront-sync/pkg/enums"
	"github.com/google/uuid"
)

// ProductReview holds a shopper review. Only approved reviews count toward
// the owning product's rating aggregate.
type ProductReview struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index" json:"product_id" validate:"required"`
	AuthorID  *string            `gorm:"column:author_id" json:"author_id,omitempty"`
	Rating    int                `gorm:"column:rating;not null" json:"rating" validate:"gte=1,lte=5"`
	Comment   string             `gorm:"column:comment" json:"comment,omitempty"`
	Status    enums.ReviewStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName maps the struct to the product_reviews collection.
func (ProductReview) TableName() string {
	return "product_reviews"
}
