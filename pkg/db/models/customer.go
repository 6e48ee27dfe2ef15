package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the admin back-office view of a shopper record.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name" validate:"required"`
	Email     string    `gorm:"column:email;not null;uniqueIndex" json:"email" validate:"required,email"`
	Phone     *string   `gorm:"column:phone" json:"phone,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName maps the struct to the customers collection.
func (Customer) TableName() string {
	return "customers"
}
