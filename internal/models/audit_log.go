package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit action tags. String enum by convention; handlers may introduce new
// tags without schema changes.
const (
	AuditSubscriptionCreated            = "subscription_created"
	AuditSubscriptionUpdated            = "subscription_updated"
	AuditSubscriptionActivated          = "subscription_activated"
	AuditSubscriptionCancelled          = "subscription_cancelled"
	AuditSubscriptionCancelledByShopify = "subscription_cancelled_by_shopify"
	AuditSubscriptionSuperseded         = "subscription_superseded"
	AuditSettingsUpdated                = "settings_updated"
	AuditShopUpdated                    = "shop_updated"
	AuditThemePublished                 = "theme_published"
	AuditAppUninstalled                 = "app_uninstalled"
	AuditCleanupFailed                  = "cleanup_failed"
)

// AuditLog is an append-only record of a notable action. Rows are never
// updated; they are deleted only by shop purge or age-based pruning.
type AuditLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ShopID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"shop_id"`
	Action       string         `gorm:"size:100;not null;index" json:"action"`
	ResourceType string         `gorm:"size:100" json:"resource_type,omitempty"`
	ResourceID   string         `gorm:"size:255" json:"resource_id,omitempty"`
	Detail       datatypes.JSON `json:"detail,omitempty"`
	UserAgent    string         `gorm:"size:500" json:"user_agent,omitempty"`
	IP           string         `gorm:"size:45" json:"ip,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}
