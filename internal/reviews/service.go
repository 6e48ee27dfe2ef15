package reviews

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	"github.com/angelmondragon/storefront-sync/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

const (
	minRating = 1
	maxRating = 5
)

// RemoteStore is the slice of the remote adapter the review accessor needs.
type RemoteStore interface {
	FetchByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductReview, error)
	FetchApprovedRatings(ctx context.Context, productID uuid.UUID) ([]int, error)
	FetchOne(ctx context.Context, id uuid.UUID) (*models.ProductReview, error)
	Insert(ctx context.Context, review *models.ProductReview) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReviewStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductRater writes the derived rating aggregate back to the catalog.
type ProductRater interface {
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64, reviewsCount int) error
}

// ActorResolver stamps submissions with the current actor when one resolves.
type ActorResolver interface {
	ActorID(ctx context.Context) (string, bool)
}

// Service is the review accessor. Reviews enter as pending and only count
// toward the product aggregate once approved. Unlike the mirrored
// collections, reviews are remote-only; moderation decisions never queue on
// a single device.
type Service interface {
	Submit(ctx context.Context, review *models.ProductReview) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductReview, error)
	SetStatus(ctx context.Context, id uuid.UUID, status enums.ReviewStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	remote   RemoteStore
	rater    ProductRater
	bus      *events.Bus
	identity ActorResolver
	logg     *logger.Logger
}

// Params groups the review service dependencies. Identity is optional;
// without it submissions stay anonymous.
type Params struct {
	Remote   RemoteStore
	Rater    ProductRater
	Bus      *events.Bus
	Identity ActorResolver
	Logger   *logger.Logger
}

// NewService builds the review accessor.
func NewService(params Params) (Service, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reviews service requires a remote store")
	}
	if params.Rater == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reviews service requires a product rater")
	}
	if params.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reviews service requires an event bus")
	}
	return &service{
		remote:   params.Remote,
		rater:    params.Rater,
		bus:      params.Bus,
		identity: params.Identity,
		logg:     params.Logger,
	}, nil
}

// Submit files a review in pending status.
func (s *service) Submit(ctx context.Context, review *models.ProductReview) error {
	if review == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "review is required")
	}
	if review.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "review requires a product id")
	}
	if review.Rating < minRating || review.Rating > maxRating {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("review rating must be between %d and %d", minRating, maxRating))
	}

	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	review.Status = enums.ReviewStatusPending
	if review.AuthorID == nil && s.identity != nil {
		if actorID, known := s.identity.ActorID(ctx); known {
			review.AuthorID = &actorID
		}
	}

	return s.remote.Insert(ctx, review)
}

// ListByProduct lists a product's reviews, newest first.
func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductReview, error) {
	rows, err := s.remote.FetchByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.ProductReview{}
	}
	return rows, nil
}

// SetStatus moves a review through moderation and recomputes the product
// aggregate. Approving and un-approving both shift the mean.
func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status enums.ReviewStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid review status %q", status))
	}
	review, err := s.remote.FetchOne(ctx, id)
	if err != nil {
		return err
	}
	if review.Status == status {
		return nil
	}
	if err := s.remote.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	return s.recomputeAggregate(ctx, review.ProductID)
}

// Delete removes a review and recomputes the product aggregate.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	review, err := s.remote.FetchOne(ctx, id)
	if err != nil {
		return err
	}
	if err := s.remote.Delete(ctx, id); err != nil {
		return err
	}
	if review.Status != enums.ReviewStatusApproved {
		return nil
	}
	return s.recomputeAggregate(ctx, review.ProductID)
}

// recomputeAggregate derives the product's mean approved rating, rounded to
// two decimal places, and announces the catalog change.
func (s *service) recomputeAggregate(ctx context.Context, productID uuid.UUID) error {
	ratings, err := s.remote.FetchApprovedRatings(ctx, productID)
	if err != nil {
		return err
	}

	mean := 0.0
	if len(ratings) > 0 {
		sum := decimal.Zero
		for _, rating := range ratings {
			sum = sum.Add(decimal.NewFromInt(int64(rating)))
		}
		mean = sum.Div(decimal.NewFromInt(int64(len(ratings)))).Round(2).InexactFloat64()
	}

	if err := s.rater.UpdateRating(ctx, productID, mean, len(ratings)); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.Event{Kind: events.KindProductsUpdated, Payload: productID})
	return nil
}
