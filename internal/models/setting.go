package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SettingKeyPopup is the settings blob consumed by the storefront widget.
const SettingKeyPopup = "popup_settings"

// Setting stores one JSON blob per shop per named key, upserted on write.
type Setting struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ShopID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_settings_shop_key,priority:1" json:"shop_id"`
	Key       string         `gorm:"size:100;not null;uniqueIndex:idx_settings_shop_key,priority:2" json:"key"`
	Value     datatypes.JSON `gorm:"not null" json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
