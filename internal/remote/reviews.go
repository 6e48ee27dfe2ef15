package remote

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	"github.com/angelmondragon/storefront-sync/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const collectionReviews = "product_reviews"

// Reviews adapts the product_reviews collection.
type Reviews struct {
	base Base
}

// NewReviews returns the review collection adapter.
func NewReviews(base Base) Reviews {
	return Reviews{base: base}
}

// FetchByProduct lists a product's reviews, newest first.
func (r Reviews) FetchByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductReview, error) {
	var rows []models.ProductReview
	err := r.base.do(ctx, collectionReviews, "fetch_by_product", func(db *gorm.DB) error {
		return db.Where("product_id = ?", productID).Order("created_at DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchApprovedRatings returns the rating values of approved reviews for the
// product, feeding the aggregate recompute.
func (r Reviews) FetchApprovedRatings(ctx context.Context, productID uuid.UUID) ([]int, error) {
	var ratings []int
	err := r.base.do(ctx, collectionReviews, "fetch_approved_ratings", func(db *gorm.DB) error {
		return db.Model(&models.ProductReview{}).
			Where("product_id = ? AND status = ?", productID, enums.ReviewStatusApproved).
			Pluck("rating", &ratings).Error
	})
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

// FetchOne loads a single review by primary key.
func (r Reviews) FetchOne(ctx context.Context, id uuid.UUID) (*models.ProductReview, error) {
	var row models.ProductReview
	err := r.base.do(ctx, collectionReviews, "fetch_one", func(db *gorm.DB) error {
		return db.First(&row, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "review not found")
		}
		return nil, err
	}
	return &row, nil
}

// Insert persists a new review.
func (r Reviews) Insert(ctx context.Context, review *models.ProductReview) error {
	if err := models.Validate(review); err != nil {
		return err
	}
	return r.base.do(ctx, collectionReviews, "insert", func(db *gorm.DB) error {
		return db.Create(review).Error
	})
}

// UpdateStatus moves a review through its approval lifecycle.
func (r Reviews) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReviewStatus) error {
	return r.base.do(ctx, collectionReviews, "update_status", func(db *gorm.DB) error {
		result := db.Model(&models.ProductReview{}).Where("id = ?", id).Update("status", status)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Delete removes a review row.
func (r Reviews) Delete(ctx context.Context, id uuid.UUID) error {
	return r.base.do(ctx, collectionReviews, "delete", func(db *gorm.DB) error {
		return db.Delete(&models.ProductReview{}, "id = ?", id).Error
	})
}
