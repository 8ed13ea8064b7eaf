package models

import (
	"time"

	"github.com/google/uuid"
)

// ThemeNotification records a main-role theme publish so the dashboard can
// prompt the merchant to re-check widget placement.
type ThemeNotification struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ShopID       uuid.UUID `gorm:"type:uuid;not null;index" json:"shop_id"`
	ThemeID      string    `gorm:"size:255;not null" json:"theme_id"`
	ThemeName    string    `gorm:"size:255" json:"theme_name"`
	Role         string    `gorm:"size:50" json:"role"`
	Acknowledged bool      `gorm:"default:false;index" json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
