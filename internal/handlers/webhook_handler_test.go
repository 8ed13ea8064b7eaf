package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/consentpop/consentpop-backend/internal/config"
	"github.com/consentpop/consentpop-backend/internal/models"
	"github.com/consentpop/consentpop-backend/internal/services"
	"github.com/consentpop/consentpop-backend/internal/shopify"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "test-secret"

// stubClient satisfies shopify.Client for paths that never reach the
// Admin API. Webhook processing is local only.
type stubClient struct{}

func (stubClient) GetShop(ctx context.Context, shop, token string) (*shopify.ShopProfile, error) {
	return &shopify.ShopProfile{}, nil
}

func (stubClient) CreateSubscription(ctx context.Context, shop, token string, input shopify.SubscriptionInput) (*shopify.CreatedSubscription, error) {
	return &shopify.CreatedSubscription{}, nil
}

func (stubClient) CancelSubscription(ctx context.Context, shop, token, subscriptionID string) error {
	return nil
}

func (stubClient) ListSubscriptions(ctx context.Context, shop, token string) ([]shopify.ProviderSubscription, error) {
	return nil, nil
}

func (stubClient) RegisterWebhooks(ctx context.Context, shop, token, callbackURL string, topics []string) error {
	return nil
}

type webhookFixture struct {
	app      *fiber.App
	db       *gorm.DB
	verifier *shopify.Verifier
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Shop{}, &models.Subscription{}, &models.Setting{},
		&models.AuditLog{}, &models.Session{}, &models.ThemeNotification{},
	))

	verifier, err := shopify.NewVerifier(testWebhookSecret)
	require.NoError(t, err)

	cfg := &config.Config{AppURL: "https://app.example.com", PlanName: "Pro"}
	audit := services.NewAuditService(db)
	subscriptions := services.NewSubscriptionService(db, stubClient{}, audit, cfg)
	shops := services.NewShopService(db, stubClient{}, audit, cfg)
	handler := NewWebhookHandler(verifier, subscriptions, shops)

	app := fiber.New()
	app.Post("/api/webhooks/shopify", handler.HandleShopify)

	return &webhookFixture{app: app, db: db, verifier: verifier}
}

func postWebhook(t *testing.T, f *webhookFixture, topic, shop string, body []byte, signature string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, "/api/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Topic", topic)
	req.Header.Set("X-Shopify-Shop-Domain", shop)
	if signature != "" {
		req.Header.Set("X-Shopify-Hmac-Sha256", signature)
	}

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBody
}

func TestHandleShopify_MissingSignature(t *testing.T) {
	f := newWebhookFixture(t)

	status, _ := postWebhook(t, f, "shop/update", "demo.myshopify.com", []byte(`{}`), "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHandleShopify_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)

	status, _ := postWebhook(t, f, "shop/update", "demo.myshopify.com", []byte(`{}`), "bm90LXRoZS1yaWdodC1tYWM=")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHandleShopify_TamperedBodyRejected(t *testing.T) {
	f := newWebhookFixture(t)

	signed := []byte(`{"name":"Demo"}`)
	signature := f.verifier.Sign(signed)

	status, _ := postWebhook(t, f, "shop/update", "demo.myshopify.com", []byte(`{"name":"Evil"}`), signature)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHandleShopify_UnknownTopicAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)

	body := []byte(`{"anything":true}`)
	status, respBody := postWebhook(t, f, "orders/create", "demo.myshopify.com", body, f.verifier.Sign(body))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(respBody), `"received":true`)
}

func TestHandleShopify_SubscriptionUpdateReconciles(t *testing.T) {
	f := newWebhookFixture(t)

	shop := models.Shop{ID: uuid.New(), Domain: "demo.myshopify.com", Name: "Demo"}
	require.NoError(t, f.db.Create(&shop).Error)
	sub := models.Subscription{
		ID:        uuid.New(),
		ShopifyID: "gid://shopify/AppSubscription/1",
		ShopID:    shop.ID,
		Name:      "Pro",
		Status:    models.SubscriptionStatusPending,
		Price:     4.99,
	}
	require.NoError(t, f.db.Create(&sub).Error)

	body := []byte(`{"app_subscription":{"admin_graphql_api_id":"gid://shopify/AppSubscription/1","name":"Pro","status":"ACTIVE"}}`)
	status, _ := postWebhook(t, f, "app_subscriptions/update", "demo.myshopify.com", body, f.verifier.Sign(body))
	require.Equal(t, fiber.StatusOK, status)

	var stored models.Subscription
	require.NoError(t, f.db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)

	var activated int64
	require.NoError(t, f.db.Model(&models.AuditLog{}).
		Where("shop_id = ? AND action = ?", shop.ID, models.AuditSubscriptionActivated).
		Count(&activated).Error)
	assert.Equal(t, int64(1), activated)
}

func TestHandleShopify_UninstallPurgesShop(t *testing.T) {
	f := newWebhookFixture(t)

	shop := models.Shop{ID: uuid.New(), Domain: "demo.myshopify.com", Name: "Demo"}
	require.NoError(t, f.db.Create(&shop).Error)
	require.NoError(t, f.db.Create(&models.Session{
		ID: uuid.New(), ShopDomain: shop.Domain, AccessToken: "shpat_test",
	}).Error)

	body := []byte(`{"domain":"demo.myshopify.com"}`)
	status, _ := postWebhook(t, f, "app/uninstalled", "demo.myshopify.com", body, f.verifier.Sign(body))
	require.Equal(t, fiber.StatusOK, status)

	var shops int64
	require.NoError(t, f.db.Model(&models.Shop{}).Count(&shops).Error)
	assert.Zero(t, shops)
	var sessions int64
	require.NoError(t, f.db.Model(&models.Session{}).Count(&sessions).Error)
	assert.Zero(t, sessions)
}

func TestHandleShopify_UninstallAcknowledgedWhenPurgeFails(t *testing.T) {
	f := newWebhookFixture(t)

	shop := models.Shop{ID: uuid.New(), Domain: "demo.myshopify.com", Name: "Demo"}
	require.NoError(t, f.db.Create(&shop).Error)

	// Breaking one delete step mid-purge must not turn into a 500: the
	// provider would retry against a partially purged shop.
	require.NoError(t, f.db.Migrator().DropTable(&models.ThemeNotification{}))

	body := []byte(`{"domain":"demo.myshopify.com"}`)
	status, respBody := postWebhook(t, f, "app/uninstalled", "demo.myshopify.com", body, f.verifier.Sign(body))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(respBody), `"received":true`)

	var failures int64
	require.NoError(t, f.db.Model(&models.AuditLog{}).
		Where("shop_id = ? AND action = ?", shop.ID, models.AuditCleanupFailed).
		Count(&failures).Error)
	assert.Equal(t, int64(1), failures)
}

func TestHandleShopify_ThemePublishCreatesNotification(t *testing.T) {
	f := newWebhookFixture(t)

	shop := models.Shop{ID: uuid.New(), Domain: "demo.myshopify.com", Name: "Demo"}
	require.NoError(t, f.db.Create(&shop).Error)

	body := []byte(`{"id":42,"name":"Dawn","role":"main"}`)
	status, _ := postWebhook(t, f, "themes/publish", "demo.myshopify.com", body, f.verifier.Sign(body))
	require.Equal(t, fiber.StatusOK, status)

	var count int64
	require.NoError(t, f.db.Model(&models.ThemeNotification{}).
		Where("shop_id = ?", shop.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
