package services

import (
	"context"
	"testing"

	"github.com/consentpop/consentpop-backend/internal/config"
	"github.com/consentpop/consentpop-backend/internal/models"
	"github.com/consentpop/consentpop-backend/internal/shopify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Shop{},
		&models.Subscription{},
		&models.Setting{},
		&models.AuditLog{},
		&models.Session{},
		&models.ThemeNotification{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		AppURL:       "https://app.example.com",
		PlanName:     "Pro",
		PlanPrice:    4.99,
		PlanCurrency: "USD",
		TrialDays:    7,
		BillingTest:  true,
	}
}

func createTestShop(t *testing.T, db *gorm.DB, domain string) *models.Shop {
	t.Helper()

	shop := models.Shop{
		ID:       uuid.New(),
		Domain:   domain,
		Name:     "Test Store",
		Currency: "USD",
	}
	require.NoError(t, db.Create(&shop).Error)
	return &shop
}

func createTestSubscription(t *testing.T, db *gorm.DB, shopID uuid.UUID, shopifyID, status string) *models.Subscription {
	t.Helper()

	sub := models.Subscription{
		ID:        uuid.New(),
		ShopifyID: shopifyID,
		ShopID:    shopID,
		Name:      "Pro",
		Status:    status,
		Price:     4.99,
		Currency:  "USD",
		Interval:  "EVERY_30_DAYS",
	}
	require.NoError(t, db.Create(&sub).Error)
	return &sub
}

func auditActions(t *testing.T, db *gorm.DB, shopID uuid.UUID) []string {
	t.Helper()

	var logs []models.AuditLog
	require.NoError(t, db.Where("shop_id = ?", shopID).Order("created_at ASC, id ASC").Find(&logs).Error)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	return actions
}

func countAction(actions []string, action string) int {
	n := 0
	for _, a := range actions {
		if a == action {
			n++
		}
	}
	return n
}

// fakeClient is a scriptable shopify.Client.
type fakeClient struct {
	shopProfile *shopify.ShopProfile
	getShopErr  error

	createResp *shopify.CreatedSubscription
	createErr  error

	cancelErr error
	cancelled []string

	listResp []shopify.ProviderSubscription
	listErr  error

	registerErr    error
	registerCalls  int
	registeredFrom []string
}

func (f *fakeClient) GetShop(ctx context.Context, shop, token string) (*shopify.ShopProfile, error) {
	if f.getShopErr != nil {
		return nil, f.getShopErr
	}
	return f.shopProfile, nil
}

func (f *fakeClient) CreateSubscription(ctx context.Context, shop, token string, input shopify.SubscriptionInput) (*shopify.CreatedSubscription, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResp, nil
}

func (f *fakeClient) CancelSubscription(ctx context.Context, shop, token, subscriptionID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, subscriptionID)
	return nil
}

func (f *fakeClient) ListSubscriptions(ctx context.Context, shop, token string) ([]shopify.ProviderSubscription, error) {
	return f.listResp, f.listErr
}

func (f *fakeClient) RegisterWebhooks(ctx context.Context, shop, token, callbackURL string, topics []string) error {
	f.registerCalls++
	f.registeredFrom = append(f.registeredFrom, shop)
	return f.registerErr
}
