package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shop is one merchant's installed instance, keyed by myshopify domain.
type Shop struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Domain    string    `gorm:"size:255;not null;uniqueIndex" json:"domain"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Locale    string    `gorm:"size:10" json:"locale"`
	Timezone  string    `gorm:"size:100" json:"timezone"`
	Currency  string    `gorm:"size:3" json:"currency"`
	PlanName  string    `gorm:"size:100" json:"plan_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ForShop returns a GORM scope that filters by shop_id.
func ForShop(shopID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("shop_id = ?", shopID)
	}
}
