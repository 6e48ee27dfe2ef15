package remote

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const collectionCustomers = "customers"

// Customers adapts the shared customers collection.
type Customers struct {
	base Base
}

// NewCustomers returns the customer collection adapter.
func NewCustomers(base Base) Customers {
	return Customers{base: base}
}

// FetchAll lists every customer record, newest first.
func (c Customers) FetchAll(ctx context.Context) ([]models.Customer, error) {
	var rows []models.Customer
	err := c.base.do(ctx, collectionCustomers, "fetch_all", func(db *gorm.DB) error {
		return db.Order("created_at DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert creates or refreshes the customer row keyed by email.
func (c Customers) Upsert(ctx context.Context, customer *models.Customer) error {
	if err := models.Validate(customer); err != nil {
		return err
	}
	customer.UpdatedAt = time.Now().UTC()
	return c.base.do(ctx, collectionCustomers, "upsert", func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "updated_at"}),
		}).Create(customer).Error
	})
}
