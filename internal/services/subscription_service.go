package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/consentpop/consentpop-backend/internal/config"
	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/models"
	"github.com/consentpop/consentpop-backend/internal/shopify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// providerStatusMap is the explicit mapping from the provider's status
// vocabulary onto the local closed set. Unlisted values fall back to
// PENDING; the fallback is logged because it means an unreviewed provider
// status reached production.
var providerStatusMap = map[string]string{
	"ACTIVE":    models.SubscriptionStatusActive,
	"CANCELLED": models.SubscriptionStatusCancelled,
	"DECLINED":  models.SubscriptionStatusCancelled,
	"EXPIRED":   models.SubscriptionStatusExpired,
	"FROZEN":    models.SubscriptionStatusFrozen,
	"PAUSED":    models.SubscriptionStatusPaused,
	"PENDING":   models.SubscriptionStatusPending,
	"ACCEPTED":  models.SubscriptionStatusPending,
}

func mapProviderStatus(raw string) (status string, known bool) {
	status, known = providerStatusMap[strings.ToUpper(raw)]
	if !known {
		status = models.SubscriptionStatusPending
	}
	return status, known
}

type SubscriptionService struct {
	db     *gorm.DB
	client shopify.Client
	audit  *AuditService
	cfg    *config.Config
}

func NewSubscriptionService(db *gorm.DB, client shopify.Client, audit *AuditService, cfg *config.Config) *SubscriptionService {
	return &SubscriptionService{db: db, client: client, audit: audit, cfg: cfg}
}

// Reconcile folds one verified provider event into the local subscription
// row. Transitions are idempotent status overwrites keyed by the external
// id; re-delivery of the same event leaves the status unchanged (duplicate
// audit rows are acceptable). Events for unknown subscriptions are
// acknowledged and discarded so the provider stops retrying.
func (s *SubscriptionService) Reconcile(event dto.SubscriptionUpdateEvent) error {
	var sub models.Subscription
	if err := s.db.Where("shopify_id = ?", event.ShopifyID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("subscription update for unknown subscription",
				"shop", event.ShopDomain, "shopify_id", event.ShopifyID, "status", event.Status)
			return nil
		}
		return err
	}

	newStatus, known := mapProviderStatus(event.Status)
	if !known {
		slog.Warn("unrecognized provider subscription status, falling back to PENDING",
			"shop", event.ShopDomain, "shopify_id", event.ShopifyID, "provider_status", event.Status)
	}
	oldStatus := sub.Status

	detail := map[string]interface{}{
		"old_status":      oldStatus,
		"new_status":      newStatus,
		"provider_status": event.Status,
	}
	if event.CurrentPeriodEnd != nil {
		detail["current_period_end"] = event.CurrentPeriodEnd
	}
	if event.TrialEndsAt != nil {
		detail["trial_ends_at"] = event.TrialEndsAt
	}
	if err := s.audit.Record(sub.ShopID, models.AuditSubscriptionUpdated, "subscription", sub.ShopifyID, detail, nil); err != nil {
		return err
	}

	updates := map[string]interface{}{"status": newStatus}
	// The billing date moves independently of status.
	if event.CurrentPeriodEnd != nil {
		updates["current_period_end"] = event.CurrentPeriodEnd
	}
	if event.TrialEndsAt != nil {
		updates["trial_ends_at"] = event.TrialEndsAt
	}
	if err := s.db.Model(&sub).Updates(updates).Error; err != nil {
		return err
	}

	if newStatus == models.SubscriptionStatusActive && oldStatus != models.SubscriptionStatusActive {
		if err := s.audit.Record(sub.ShopID, models.AuditSubscriptionActivated, "subscription", sub.ShopifyID, nil, nil); err != nil {
			return err
		}
		if err := s.demoteOtherActive(sub.ShopID, sub.ID); err != nil {
			return err
		}
	}

	if newStatus == models.SubscriptionStatusCancelled {
		if err := s.audit.Record(sub.ShopID, models.AuditSubscriptionCancelledByShopify, "subscription", sub.ShopifyID, nil, nil); err != nil {
			return err
		}
	}

	return nil
}

// demoteOtherActive keeps at most one ACTIVE subscription per shop. The
// provider cancels the superseded charge on its side; this mirrors it
// locally without waiting for the matching webhook.
func (s *SubscriptionService) demoteOtherActive(shopID, keepID uuid.UUID) error {
	var others []models.Subscription
	if err := s.db.Scopes(models.ForShop(shopID)).
		Where("status = ? AND id <> ?", models.SubscriptionStatusActive, keepID).
		Find(&others).Error; err != nil {
		return err
	}
	for _, other := range others {
		if err := s.db.Model(&other).Update("status", models.SubscriptionStatusCancelled).Error; err != nil {
			return err
		}
		if err := s.audit.Record(shopID, models.AuditSubscriptionSuperseded, "subscription", other.ShopifyID, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe initiates a plan purchase against the billing API. The local
// row is created in PENDING only after the provider accepts the request;
// activation arrives later by webhook once the merchant approves the charge.
func (s *SubscriptionService) Subscribe(ctx context.Context, shop *models.Shop, token string, meta *RequestMeta) (*dto.SubscribeResponse, error) {
	created, err := s.client.CreateSubscription(ctx, shop.Domain, token, shopify.SubscriptionInput{
		Name:      s.cfg.PlanName,
		Price:     s.cfg.PlanPrice,
		Currency:  s.cfg.PlanCurrency,
		Interval:  "EVERY_30_DAYS",
		TrialDays: s.cfg.TrialDays,
		Test:      s.cfg.BillingTest,
		ReturnURL: s.cfg.AppURL + "/?shop=" + shop.Domain,
	})
	if err != nil {
		return nil, err
	}

	var trialEnds *time.Time
	if s.cfg.TrialDays > 0 {
		t := time.Now().AddDate(0, 0, s.cfg.TrialDays)
		trialEnds = &t
	}
	sub := models.Subscription{
		ID:          uuid.New(),
		ShopifyID:   created.ID,
		ShopID:      shop.ID,
		Name:        s.cfg.PlanName,
		Status:      models.SubscriptionStatusPending,
		Price:       s.cfg.PlanPrice,
		Currency:    s.cfg.PlanCurrency,
		Interval:    "EVERY_30_DAYS",
		TrialEndsAt: trialEnds,
		Test:        s.cfg.BillingTest,
	}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, err
	}

	if err := s.audit.Record(shop.ID, models.AuditSubscriptionCreated, "subscription", created.ID, map[string]interface{}{
		"plan":  s.cfg.PlanName,
		"price": s.cfg.PlanPrice,
		"test":  s.cfg.BillingTest,
	}, meta); err != nil {
		return nil, err
	}

	return &dto.SubscribeResponse{
		SubscriptionID:  created.ID,
		ConfirmationURL: created.ConfirmationURL,
		Status:          sub.Status,
	}, nil
}

// Cancel is the merchant-initiated path: the provider cancel call runs
// synchronously and local state mutates only on confirmed success. Provider
// validation errors surface to the caller untouched.
func (s *SubscriptionService) Cancel(ctx context.Context, shop *models.Shop, token string, meta *RequestMeta) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Scopes(models.ForShop(shop.ID)).
		Where("status NOT IN ?", []string{models.SubscriptionStatusCancelled, models.SubscriptionStatusExpired}).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	if err := s.client.CancelSubscription(ctx, shop.Domain, token, sub.ShopifyID); err != nil {
		return nil, err
	}

	if err := s.db.Model(&sub).Update("status", models.SubscriptionStatusCancelled).Error; err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionStatusCancelled

	if err := s.audit.Record(shop.ID, models.AuditSubscriptionCancelled, "subscription", sub.ShopifyID, nil, meta); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Current returns the shop's most recent subscription.
func (s *SubscriptionService) Current(shopID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Scopes(models.ForShop(shopID)).Order("created_at DESC").First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// HasActive reports whether the shop holds a subscription in status ACTIVE.
// This is the entitlement check the settings gate consumes.
func (s *SubscriptionService) HasActive(shopID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Model(&models.Subscription{}).
		Scopes(models.ForShop(shopID)).
		Where("status = ?", models.SubscriptionStatusActive).
		Count(&count).Error
	return count > 0, err
}
