package models

import (
	"time"

	"github.com/angelmondragon/storefront-sync/pkg/enums"
	"github.com/google/uuid"
)

// NotificationMetadata carries free-form context about the source event.
type NotificationMetadata map[string]any

// Notification is an admin-facing message created by domain events. Stored
// remotely in admin_notifications with a local-cache fallback copy.
type Notification struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Category  enums.NotificationCategory `gorm:"column:type;not null" json:"type" validate:"required"`
	Title     string                     `gorm:"column:title;not null" json:"title" validate:"required"`
	Message   string                     `gorm:"column:message;not null" json:"message" validate:"required"`
	Read      bool                       `gorm:"column:read;not null;default:false" json:"read"`
	Metadata  NotificationMetadata       `gorm:"column:metadata;type:jsonb;serializer:json" json:"metadata,omitempty"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName maps the struct to the admin_notifications collection.
func (Notification) TableName() string {
	return "admin_notifications"
}
