package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	"github.com/angelmondragon/storefront-sync/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
)

type fakeRemote struct {
	rows []models.ProductReview
}

func (f *fakeRemote) FetchByProduct(_ context.Context, productID uuid.UUID) ([]models.ProductReview, error) {
	owned := []models.ProductReview{}
	for _, row := range f.rows {
		if row.ProductID == productID {
			owned = append(owned, row)
		}
	}
	return owned, nil
}

func (f *fakeRemote) FetchApprovedRatings(_ context.Context, productID uuid.UUID) ([]int, error) {
	var ratings []int
	for _, row := range f.rows {
		if row.ProductID == productID && row.Status == enums.ReviewStatusApproved {
			ratings = append(ratings, row.Rating)
		}
	}
	return ratings, nil
}

func (f *fakeRemote) FetchOne(_ context.Context, id uuid.UUID) (*models.ProductReview, error) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			row := f.rows[i]
			return &row, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
}

func (f *fakeRemote) Insert(_ context.Context, review *models.ProductReview) error {
	f.rows = append(f.rows, *review)
	return nil
}

func (f *fakeRemote) UpdateStatus(_ context.Context, id uuid.UUID, status enums.ReviewStatus) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Status = status
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
}

func (f *fakeRemote) Delete(_ context.Context, id uuid.UUID) error {
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

type recordingRater struct {
	productID uuid.UUID
	rating    float64
	count     int
	calls     int
}

func (r *recordingRater) UpdateRating(_ context.Context, id uuid.UUID, rating float64, count int) error {
	r.productID = id
	r.rating = rating
	r.count = count
	r.calls++
	return nil
}

type staticActor struct {
	id    string
	known bool
}

func (s staticActor) ActorID(context.Context) (string, bool) {
	return s.id, s.known
}

func newTestService(t *testing.T, remote RemoteStore, rater ProductRater, actor ActorResolver) Service {
	t.Helper()
	svc, err := NewService(Params{
		Remote:   remote,
		Rater:    rater,
		Bus:      events.NewBus(nil),
		Identity: actor,
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func review(productID uuid.UUID, rating int) *models.ProductReview {
	return &models.ProductReview{ProductID: productID, Rating: rating, Comment: "solid"}
}

func TestSubmitStartsPendingWithAuthor(t *testing.T) {
	remote := &fakeRemote{}
	svc := newTestService(t, remote, &recordingRater{}, staticActor{id: "user-1", known: true})

	if err := svc.Submit(context.Background(), review(uuid.New(), 4)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(remote.rows) != 1 {
		t.Fatalf("expected one stored review, got %d", len(remote.rows))
	}
	stored := remote.rows[0]
	if stored.Status != enums.ReviewStatusPending {
		t.Fatalf("expected pending status, got %s", stored.Status)
	}
	if stored.AuthorID == nil || *stored.AuthorID != "user-1" {
		t.Fatalf("expected author stamp, got %v", stored.AuthorID)
	}
}

func TestSubmitAnonymousLeavesAuthorEmpty(t *testing.T) {
	remote := &fakeRemote{}
	svc := newTestService(t, remote, &recordingRater{}, staticActor{})

	if err := svc.Submit(context.Background(), review(uuid.New(), 5)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if remote.rows[0].AuthorID != nil {
		t.Fatalf("expected anonymous review, got author %v", *remote.rows[0].AuthorID)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestService(t, &fakeRemote{}, &recordingRater{}, nil)
	ctx := context.Background()

	if err := svc.Submit(ctx, review(uuid.Nil, 3)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing product, got %v", err)
	}
	if err := svc.Submit(ctx, review(uuid.New(), 0)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for low rating, got %v", err)
	}
	if err := svc.Submit(ctx, review(uuid.New(), 6)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for high rating, got %v", err)
	}
}

func TestApprovalRecomputesAggregate(t *testing.T) {
	productID := uuid.New()
	remote := &fakeRemote{}
	rater := &recordingRater{}
	svc := newTestService(t, remote, rater, nil)
	ctx := context.Background()

	first := review(productID, 4)
	second := review(productID, 5)
	for _, r := range []*models.ProductReview{first, second} {
		if err := svc.Submit(ctx, r); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	if err := svc.SetStatus(ctx, first.ID, enums.ReviewStatusApproved); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	if rater.rating != 4 || rater.count != 1 {
		t.Fatalf("expected mean 4 count 1, got %v/%d", rater.rating, rater.count)
	}

	if err := svc.SetStatus(ctx, second.ID, enums.ReviewStatusApproved); err != nil {
		t.Fatalf("approve second: %v", err)
	}
	if rater.rating != 4.5 || rater.count != 2 {
		t.Fatalf("expected mean 4.5 count 2, got %v/%d", rater.rating, rater.count)
	}
	if rater.productID != productID {
		t.Fatalf("aggregate written to wrong product: %s", rater.productID)
	}
}

func TestMeanRoundsToTwoDecimals(t *testing.T) {
	productID := uuid.New()
	remote := &fakeRemote{}
	rater := &recordingRater{}
	svc := newTestService(t, remote, rater, nil)
	ctx := context.Background()

	var last *models.ProductReview
	for _, rating := range []int{5, 4, 4} {
		r := review(productID, rating)
		if err := svc.Submit(ctx, r); err != nil {
			t.Fatalf("submit: %v", err)
		}
		last = r
		if err := svc.SetStatus(ctx, r.ID, enums.ReviewStatusApproved); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}

	// 13/3 rounds to 4.33.
	if rater.rating != 4.33 {
		t.Fatalf("expected mean 4.33, got %v", rater.rating)
	}

	if err := svc.Delete(ctx, last.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rater.rating != 4.5 || rater.count != 2 {
		t.Fatalf("expected mean 4.5 count 2 after delete, got %v/%d", rater.rating, rater.count)
	}
}

func TestRejectionExcludesFromAggregate(t *testing.T) {
	productID := uuid.New()
	remote := &fakeRemote{}
	rater := &recordingRater{}
	svc := newTestService(t, remote, rater, nil)
	ctx := context.Background()

	r := review(productID, 2)
	if err := svc.Submit(ctx, r); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.SetStatus(ctx, r.ID, enums.ReviewStatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rater.rating != 0 || rater.count != 0 {
		t.Fatalf("rejected review leaked into aggregate: %v/%d", rater.rating, rater.count)
	}
}

func TestDeletePendingSkipsRecompute(t *testing.T) {
	productID := uuid.New()
	remote := &fakeRemote{}
	rater := &recordingRater{}
	svc := newTestService(t, remote, rater, nil)
	ctx := context.Background()

	r := review(productID, 3)
	if err := svc.Submit(ctx, r); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Delete(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rater.calls != 0 {
		t.Fatalf("pending delete triggered %d recomputes", rater.calls)
	}
}

func TestSetStatusSameStatusIsNoOp(t *testing.T) {
	productID := uuid.New()
	remote := &fakeRemote{}
	rater := &recordingRater{}
	svc := newTestService(t, remote, rater, nil)
	ctx := context.Background()

	r := review(productID, 3)
	if err := svc.Submit(ctx, r); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.SetStatus(ctx, r.ID, enums.ReviewStatusPending); err != nil {
		t.Fatalf("same-status update should be a no-op, got %v", err)
	}
	if rater.calls != 0 {
		t.Fatalf("no-op update triggered %d recomputes", rater.calls)
	}
}
