package enums

import "fmt"

// NotificationCategory classifies admin notifications by their source event.
type NotificationCategory string

const (
	NotificationCategoryOrder    NotificationCategory = "order"
	NotificationCategoryMessage  NotificationCategory = "message"
	NotificationCategoryCustomer NotificationCategory = "customer"
	NotificationCategorySystem   NotificationCategory = "system"
)

var validNotificationCategories = []NotificationCategory{
	NotificationCategoryOrder,
	NotificationCategoryMessage,
	NotificationCategoryCustomer,
	NotificationCategorySystem,
}

// IsValid reports whether the value is a known NotificationCategory.
func (n NotificationCategory) IsValid() bool {
	for _, candidate := range validNotificationCategories {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationCategory converts raw strings into NotificationCategory.
func ParseNotificationCategory(value string) (NotificationCategory, error) {
	for _, candidate := range validNotificationCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification category %q", value)
}
