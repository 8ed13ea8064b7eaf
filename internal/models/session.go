package models

import (
	"time"

	"github.com/google/uuid"
)

// Session holds the offline Admin API access token for one shop. Online
// sessions carry an expiry and are pruned once past it; the offline session
// has no expiry and lives until uninstall.
type Session struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ShopDomain  string     `gorm:"size:255;not null;uniqueIndex" json:"shop_domain"`
	AccessToken string     `gorm:"size:255;not null" json:"-"`
	Scope       string     `gorm:"size:500" json:"scope"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
