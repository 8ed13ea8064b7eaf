package services

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"unicode/utf8"

	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Default colors written in place of custom ones for non-entitled shops.
const (
	DefaultBgColor   = "#ffffff"
	DefaultTextColor = "#000000"
	DefaultLinkColor = "#0066cc"
)

// RestrictedCustomColors names the field group reported back when the soft
// restriction fires.
const RestrictedCustomColors = "custom_colors"

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var validPositions = map[string]bool{
	"top-bar":      true,
	"bottom-bar":   true,
	"bottom-left":  true,
	"bottom-right": true,
}

// DefaultPopupSettings is what a shop renders before it saves anything.
func DefaultPopupSettings() dto.PopupSettings {
	return dto.PopupSettings{
		Enabled:    true,
		Message:    "We use cookies to improve your shopping experience.",
		LinkText:   "Privacy policy",
		LinkURL:    "/policies/privacy-policy",
		Position:   "bottom-bar",
		BgColor:    DefaultBgColor,
		TextColor:  DefaultTextColor,
		LinkColor:  DefaultLinkColor,
		WidthPx:    400,
		PaddingPx:  16,
		ZIndex:     9999,
		DismissTTL: 30,
	}
}

type SettingsService struct {
	db            *gorm.DB
	subscriptions *SubscriptionService
	audit         *AuditService
}

func NewSettingsService(db *gorm.DB, subscriptions *SubscriptionService, audit *AuditService) *SettingsService {
	return &SettingsService{db: db, subscriptions: subscriptions, audit: audit}
}

func validatePopupSettings(p *dto.PopupSettings) *ValidationError {
	fields := make(map[string]string)

	// Length bounds count characters, not bytes; merchant copy is rarely
	// plain ASCII.
	if p.Message == "" {
		fields["message"] = "message is required"
	} else if utf8.RuneCountInString(p.Message) > 500 {
		fields["message"] = "message must be at most 500 characters"
	}
	if utf8.RuneCountInString(p.LinkText) > 100 {
		fields["link_text"] = "link text must be at most 100 characters"
	}
	if utf8.RuneCountInString(p.LinkURL) > 500 {
		fields["link_url"] = "link URL must be at most 500 characters"
	}
	if !validPositions[p.Position] {
		fields["position"] = "position must be one of top-bar, bottom-bar, bottom-left, bottom-right"
	}
	for name, value := range map[string]string{
		"bg_color":   p.BgColor,
		"text_color": p.TextColor,
		"link_color": p.LinkColor,
	} {
		if !hexColorRe.MatchString(value) {
			fields[name] = "must be a hex color like #1a2b3c"
		}
	}
	if p.WidthPx < 200 || p.WidthPx > 800 {
		fields["width_px"] = "width must be between 200 and 800"
	}
	if p.PaddingPx < 0 || p.PaddingPx > 64 {
		fields["padding_px"] = "padding must be between 0 and 64"
	}
	if p.ZIndex < 0 || int64(p.ZIndex) > math.MaxInt32 {
		fields["z_index"] = "z-index must be between 0 and 2147483647"
	}
	if p.DismissTTL < 0 || p.DismissTTL > 365 {
		fields["dismiss_ttl_days"] = "dismiss TTL must be between 0 and 365 days"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// UpdatePopupSettings validates the payload, applies the entitlement gate,
// and persists the result. Non-entitled shops do not get an error: their
// custom colors are replaced with the fixed defaults and the response names
// the downgraded field group so the dashboard can surface an upgrade prompt.
func (s *SettingsService) UpdatePopupSettings(shop *models.Shop, payload dto.PopupSettings, meta *RequestMeta) (*dto.UpdateSettingsResponse, error) {
	if verr := validatePopupSettings(&payload); verr != nil {
		return nil, verr
	}

	entitled, err := s.subscriptions.HasActive(shop.ID)
	if err != nil {
		return nil, err
	}

	var restricted []string
	if !entitled {
		payload.BgColor = DefaultBgColor
		payload.TextColor = DefaultTextColor
		payload.LinkColor = DefaultLinkColor
		restricted = append(restricted, RestrictedCustomColors)
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err := s.upsert(shop.ID, models.SettingKeyPopup, value); err != nil {
		return nil, err
	}

	if err := s.audit.Record(shop.ID, models.AuditSettingsUpdated, "setting", models.SettingKeyPopup, map[string]interface{}{
		"restricted":        len(restricted) > 0,
		"restricted_fields": restricted,
	}, meta); err != nil {
		return nil, err
	}

	return &dto.UpdateSettingsResponse{
		Settings:         payload,
		RestrictedFields: restricted,
	}, nil
}

func (s *SettingsService) upsert(shopID uuid.UUID, key string, value []byte) error {
	var setting models.Setting
	err := s.db.Where("shop_id = ? AND key = ?", shopID, key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.Setting{
			ID:     uuid.New(),
			ShopID: shopID,
			Key:    key,
			Value:  datatypes.JSON(value),
		}
		return s.db.Create(&setting).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&setting).Update("value", datatypes.JSON(value)).Error
}

// GetPopupSettings returns the stored blob, or the defaults when the shop
// has never saved.
func (s *SettingsService) GetPopupSettings(shopID uuid.UUID) (dto.PopupSettings, error) {
	var setting models.Setting
	err := s.db.Where("shop_id = ? AND key = ?", shopID, models.SettingKeyPopup).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultPopupSettings(), nil
	}
	if err != nil {
		return dto.PopupSettings{}, err
	}

	var settings dto.PopupSettings
	if err := json.Unmarshal(setting.Value, &settings); err != nil {
		return dto.PopupSettings{}, err
	}
	return settings, nil
}

// GetStorefrontSettings serves the widget its render config. Unknown shops
// get a disabled payload rather than an error so the script stays silent.
func (s *SettingsService) GetStorefrontSettings(domain string) (*dto.StorefrontSettingsResponse, error) {
	var shop models.Shop
	err := s.db.Where("domain = ?", domain).First(&shop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &dto.StorefrontSettingsResponse{Enabled: false}, nil
	}
	if err != nil {
		return nil, err
	}

	settings, err := s.GetPopupSettings(shop.ID)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return &dto.StorefrontSettingsResponse{Enabled: false}, nil
	}
	return &dto.StorefrontSettingsResponse{Enabled: true, Settings: &settings}, nil
}
