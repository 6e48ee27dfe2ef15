package remote

import (
	"context"

	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const collectionNotifications = "admin_notifications"

// Notifications adapts the admin_notifications collection.
type Notifications struct {
	base Base
}

// NewNotifications returns the notification collection adapter.
func NewNotifications(base Base) Notifications {
	return Notifications{base: base}
}

// FetchRecent lists the newest notifications, capped at limit.
func (n Notifications) FetchRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Notification
	err := n.base.do(ctx, collectionNotifications, "fetch_recent", func(db *gorm.DB) error {
		return db.Order("created_at DESC").Limit(limit).Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert persists a new notification.
func (n Notifications) Insert(ctx context.Context, notification *models.Notification) error {
	if err := models.Validate(notification); err != nil {
		return err
	}
	return n.base.do(ctx, collectionNotifications, "insert", func(db *gorm.DB) error {
		return db.Create(notification).Error
	})
}

// MarkRead flips a single notification to read. Missing rows are reported
// via found=false rather than an error.
func (n Notifications) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	var found bool
	err := n.base.do(ctx, collectionNotifications, "mark_read", func(db *gorm.DB) error {
		result := db.Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
		if result.Error != nil {
			return result.Error
		}
		found = result.RowsAffected > 0
		return nil
	})
	return found, err
}

// MarkAllRead flips every unread notification and reports how many changed.
func (n Notifications) MarkAllRead(ctx context.Context) (int64, error) {
	var count int64
	err := n.base.do(ctx, collectionNotifications, "mark_all_read", func(db *gorm.DB) error {
		result := db.Model(&models.Notification{}).Where("read = ?", false).Update("read", true)
		if result.Error != nil {
			return result.Error
		}
		count = result.RowsAffected
		return nil
	})
	return count, err
}

// Delete removes a notification row.
func (n Notifications) Delete(ctx context.Context, id uuid.UUID) error {
	return n.base.do(ctx, collectionNotifications, "delete", func(db *gorm.DB) error {
		return db.Delete(&models.Notification{}, "id = ?", id).Error
	})
}
