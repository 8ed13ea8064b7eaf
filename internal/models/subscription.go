package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses. The local row mirrors the billing provider's
// subscription; the provider is the source of truth and local state is a
// cache of it.
const (
	SubscriptionStatusPending   = "PENDING"
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusCancelled = "CANCELLED"
	SubscriptionStatusExpired   = "EXPIRED"
	SubscriptionStatusFrozen    = "FROZEN"
	SubscriptionStatusPaused    = "PAUSED"
)

type Subscription struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ShopifyID        string     `gorm:"size:255;not null;index" json:"shopify_id"`
	ShopID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"shop_id"`
	Name             string     `gorm:"size:255;not null" json:"name"`
	Status           string     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	Price            float64    `gorm:"type:decimal(10,2);not null" json:"price"`
	Currency         string     `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Interval         string     `gorm:"size:20;not null;default:'EVERY_30_DAYS'" json:"interval"`
	TrialEndsAt      *time.Time `json:"trial_ends_at,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	Test             bool       `gorm:"default:false" json:"test"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Shop             Shop       `gorm:"foreignKey:ShopID" json:"-"`
}

// Terminal reports whether no further provider transitions are expected.
// Not structurally enforced; a late provider event still overwrites.
func (s *Subscription) Terminal() bool {
	return s.Status == SubscriptionStatusCancelled || s.Status == SubscriptionStatusExpired
}
