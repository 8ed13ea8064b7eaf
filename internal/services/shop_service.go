package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/consentpop/consentpop-backend/internal/config"
	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/models"
	"github.com/consentpop/consentpop-backend/internal/shopify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookTopics are registered for every shop on sync.
var WebhookTopics = []string{
	dto.TopicAppUninstalled,
	dto.TopicShopUpdate,
	dto.TopicThemePublish,
	dto.TopicSubscriptionUpdate,
}

type ShopService struct {
	db     *gorm.DB
	client shopify.Client
	audit  *AuditService
	cfg    *config.Config
}

func NewShopService(db *gorm.DB, client shopify.Client, audit *AuditService, cfg *config.Config) *ShopService {
	return &ShopService{db: db, client: client, audit: audit, cfg: cfg}
}

func (s *ShopService) FindByDomain(domain string) (*models.Shop, error) {
	var shop models.Shop
	if err := s.db.Where("domain = ?", domain).First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return &shop, nil
}

// AccessToken returns the shop's stored offline Admin API token.
func (s *ShopService) AccessToken(domain string) (string, error) {
	var session models.Session
	if err := s.db.Where("shop_domain = ?", domain).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNoSession
		}
		return "", err
	}
	return session.AccessToken, nil
}

// Sync fetches the shop profile from the Admin API, upserts the local row,
// and re-registers the webhook subscriptions. Registration is best-effort:
// a failure is logged and never fails the sync.
func (s *ShopService) Sync(ctx context.Context, domain string, meta *RequestMeta) (*models.Shop, error) {
	token, err := s.AccessToken(domain)
	if err != nil {
		return nil, err
	}

	profile, err := s.client.GetShop(ctx, domain, token)
	if err != nil {
		return nil, fmt.Errorf("fetch shop profile: %w", err)
	}

	shop, err := s.upsert(domain, profile)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(shop.ID, models.AuditShopUpdated, "shop", domain, map[string]interface{}{
		"source": "sync",
	}, meta); err != nil {
		return nil, err
	}

	callbackURL := s.cfg.AppURL + "/api/webhooks/shopify"
	if err := s.client.RegisterWebhooks(ctx, domain, token, callbackURL, WebhookTopics); err != nil {
		slog.Error("webhook registration failed", "shop", domain, "error", err)
	}

	return shop, nil
}

func (s *ShopService) upsert(domain string, profile *shopify.ShopProfile) (*models.Shop, error) {
	var shop models.Shop
	err := s.db.Where("domain = ?", domain).First(&shop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		shop = models.Shop{
			ID:       uuid.New(),
			Domain:   domain,
			Name:     profile.Name,
			Email:    profile.Email,
			Locale:   profile.Locale,
			Timezone: profile.Timezone,
			Currency: profile.Currency,
			PlanName: profile.PlanName,
		}
		if err := s.db.Create(&shop).Error; err != nil {
			return nil, err
		}
		return &shop, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":      profile.Name,
		"email":     profile.Email,
		"locale":    profile.Locale,
		"timezone":  profile.Timezone,
		"currency":  profile.Currency,
		"plan_name": profile.PlanName,
	}
	if err := s.db.Model(&shop).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// HandleProfileUpdate applies a shop/update webhook to a known shop.
// Unknown shops are acknowledged and discarded.
func (s *ShopService) HandleProfileUpdate(event dto.ShopUpdateEvent) error {
	shop, err := s.FindByDomain(event.ShopDomain)
	if err != nil {
		if errors.Is(err, ErrShopNotFound) {
			slog.Warn("profile update for unknown shop", "shop", event.ShopDomain)
			return nil
		}
		return err
	}

	updates := map[string]interface{}{
		"name":      event.Name,
		"email":     event.Email,
		"locale":    event.Locale,
		"timezone":  event.Timezone,
		"currency":  event.Currency,
		"plan_name": event.PlanName,
	}
	if err := s.db.Model(shop).Updates(updates).Error; err != nil {
		return err
	}
	return s.audit.Record(shop.ID, models.AuditShopUpdated, "shop", event.ShopDomain, map[string]interface{}{
		"source": "webhook",
	}, nil)
}

// HandleThemePublish records a main-role theme publish so the dashboard can
// prompt the merchant to re-check widget placement. Other roles are ignored.
func (s *ShopService) HandleThemePublish(event dto.ThemePublishEvent) error {
	if event.Role != "main" {
		return nil
	}

	shop, err := s.FindByDomain(event.ShopDomain)
	if err != nil {
		if errors.Is(err, ErrShopNotFound) {
			slog.Warn("theme publish for unknown shop", "shop", event.ShopDomain)
			return nil
		}
		return err
	}

	notification := models.ThemeNotification{
		ID:        uuid.New(),
		ShopID:    shop.ID,
		ThemeID:   event.ThemeID,
		ThemeName: event.ThemeName,
		Role:      event.Role,
	}
	if err := s.db.Create(&notification).Error; err != nil {
		return err
	}
	return s.audit.Record(shop.ID, models.AuditThemePublished, "theme", event.ThemeID, map[string]interface{}{
		"theme_name": event.ThemeName,
	}, nil)
}

// Purge removes every record scoped to the shop after writing the final
// audit entry. Log-then-purge is the canonical order: on success the audit
// trail goes with the rest, on failure the failure entry persists.
func (s *ShopService) Purge(domain string, meta *RequestMeta) error {
	shop, err := s.FindByDomain(domain)
	if err != nil {
		if errors.Is(err, ErrShopNotFound) {
			slog.Warn("uninstall for unknown shop", "shop", domain)
			return nil
		}
		return err
	}

	if err := s.audit.Record(shop.ID, models.AuditAppUninstalled, "shop", domain, nil, meta); err != nil {
		slog.Error("failed to write uninstall audit entry", "shop", domain, "error", err)
	}

	steps := []struct {
		name   string
		delete func() error
	}{
		{"subscriptions", func() error {
			return s.db.Scopes(models.ForShop(shop.ID)).Delete(&models.Subscription{}).Error
		}},
		{"settings", func() error {
			return s.db.Scopes(models.ForShop(shop.ID)).Delete(&models.Setting{}).Error
		}},
		{"theme_notifications", func() error {
			return s.db.Scopes(models.ForShop(shop.ID)).Delete(&models.ThemeNotification{}).Error
		}},
		{"sessions", func() error {
			return s.db.Where("shop_domain = ?", domain).Delete(&models.Session{}).Error
		}},
		{"audit_logs", func() error {
			return s.db.Scopes(models.ForShop(shop.ID)).Delete(&models.AuditLog{}).Error
		}},
		{"shop", func() error {
			return s.db.Delete(shop).Error
		}},
	}
	for _, step := range steps {
		if err := step.delete(); err != nil {
			slog.Error("shop purge failed", "shop", domain, "step", step.name, "error", err)
			if auditErr := s.audit.Record(shop.ID, models.AuditCleanupFailed, "shop", domain, map[string]interface{}{
				"step":  step.name,
				"error": err.Error(),
			}, nil); auditErr != nil {
				slog.Error("failed to record cleanup failure", "shop", domain, "error", auditErr)
			}
			return fmt.Errorf("purge %s: %w", step.name, err)
		}
	}
	return nil
}

// Notifications returns the shop's unacknowledged theme notifications.
func (s *ShopService) Notifications(shopID uuid.UUID) ([]models.ThemeNotification, error) {
	var notifications []models.ThemeNotification
	err := s.db.Scopes(models.ForShop(shopID)).
		Where("acknowledged = ?", false).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// Acknowledge marks one notification as seen.
func (s *ShopService) Acknowledge(shopID, notificationID uuid.UUID) error {
	result := s.db.Model(&models.ThemeNotification{}).
		Scopes(models.ForShop(shopID)).
		Where("id = ?", notificationID).
		Update("acknowledged", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
