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

const collectionOrders = "orders"

// Orders adapts the shared orders collection. Remote-authoritative: the
// local cache only ever serves reads for this collection.
type Orders struct {
	base Base
}

// NewOrders returns the order collection adapter.
func NewOrders(base Base) Orders {
	return Orders{base: base}
}

// FetchAll lists every order, newest first.
func (o Orders) FetchAll(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := o.base.do(ctx, collectionOrders, "fetch_all", func(db *gorm.DB) error {
		return db.Order("created_at DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchByOwner lists the owner's orders, newest first.
func (o Orders) FetchByOwner(ctx context.Context, ownerEmail string) ([]models.Order, error) {
	var rows []models.Order
	err := o.base.do(ctx, collectionOrders, "fetch_by_owner", func(db *gorm.DB) error {
		return db.Where("owner_email = ?", ownerEmail).Order("created_at DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchOne loads a single order by primary key.
func (o Orders) FetchOne(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var row models.Order
	err := o.base.do(ctx, collectionOrders, "fetch_one", func(db *gorm.DB) error {
		return db.First(&row, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, err
	}
	return &row, nil
}

// Insert persists a new order.
func (o Orders) Insert(ctx context.Context, order *models.Order) error {
	if err := models.Validate(order); err != nil {
		return err
	}
	return o.base.do(ctx, collectionOrders, "insert", func(db *gorm.DB) error {
		return db.Create(order).Error
	})
}

// UpdateStatus moves an order to the given status. Transition legality is
// the service's concern.
func (o Orders) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return o.base.do(ctx, collectionOrders, "update_status", func(db *gorm.DB) error {
		result := db.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
