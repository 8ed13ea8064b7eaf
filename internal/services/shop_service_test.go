package services

import (
	"context"
	"errors"
	"testing"

	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/models"
	"github.com/consentpop/consentpop-backend/internal/shopify"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newShopService(db *gorm.DB, client *fakeClient) *ShopService {
	return NewShopService(db, client, NewAuditService(db), testConfig())
}

func createTestSession(t *testing.T, db *gorm.DB, domain, token string) {
	t.Helper()

	session := models.Session{
		ID:          uuid.New(),
		ShopDomain:  domain,
		AccessToken: token,
	}
	require.NoError(t, db.Create(&session).Error)
}

func TestSync_CreatesShopAndRegistersWebhooks(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{
		shopProfile: &shopify.ShopProfile{
			Name:     "Demo Store",
			Email:    "owner@demo.com",
			Locale:   "en",
			Timezone: "Europe/Berlin",
			Currency: "EUR",
			PlanName: "basic",
		},
	}
	svc := newShopService(db, client)
	createTestSession(t, db, "demo.myshopify.com", "shpat_test")

	shop, err := svc.Sync(context.Background(), "demo.myshopify.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "Demo Store", shop.Name)
	assert.Equal(t, "EUR", shop.Currency)
	assert.Equal(t, 1, client.registerCalls)

	actions := auditActions(t, db, shop.ID)
	assert.Equal(t, 1, countAction(actions, models.AuditShopUpdated))
}

func TestSync_UpdatesExistingShop(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{
		shopProfile: &shopify.ShopProfile{Name: "Renamed Store", Currency: "USD"},
	}
	svc := newShopService(db, client)
	existing := createTestShop(t, db, "demo.myshopify.com")
	createTestSession(t, db, "demo.myshopify.com", "shpat_test")

	shop, err := svc.Sync(context.Background(), "demo.myshopify.com", nil)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, shop.ID)

	var stored models.Shop
	require.NoError(t, db.First(&stored, "id = ?", existing.ID).Error)
	assert.Equal(t, "Renamed Store", stored.Name)

	var count int64
	require.NoError(t, db.Model(&models.Shop{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSync_NoSession(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})

	_, err := svc.Sync(context.Background(), "demo.myshopify.com", nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSync_WebhookRegistrationFailureIsNotFatal(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{
		shopProfile: &shopify.ShopProfile{Name: "Demo Store"},
		registerErr: errors.New("boom"),
	}
	svc := newShopService(db, client)
	createTestSession(t, db, "demo.myshopify.com", "shpat_test")

	shop, err := svc.Sync(context.Background(), "demo.myshopify.com", nil)
	require.NoError(t, err)
	require.NotNil(t, shop)
	assert.Equal(t, 1, client.registerCalls)
}

func TestHandleProfileUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})
	shop := createTestShop(t, db, "demo.myshopify.com")

	err := svc.HandleProfileUpdate(dto.ShopUpdateEvent{
		ShopDomain: "demo.myshopify.com",
		Name:       "New Name",
		Email:      "new@demo.com",
		Currency:   "GBP",
	})
	require.NoError(t, err)

	var stored models.Shop
	require.NoError(t, db.First(&stored, "id = ?", shop.ID).Error)
	assert.Equal(t, "New Name", stored.Name)
	assert.Equal(t, "GBP", stored.Currency)

	actions := auditActions(t, db, shop.ID)
	assert.Equal(t, 1, countAction(actions, models.AuditShopUpdated))
}

func TestHandleProfileUpdate_UnknownShopDiscarded(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})

	err := svc.HandleProfileUpdate(dto.ShopUpdateEvent{ShopDomain: "ghost.myshopify.com"})
	assert.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Shop{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHandleThemePublish_MainRole(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})
	shop := createTestShop(t, db, "demo.myshopify.com")

	err := svc.HandleThemePublish(dto.ThemePublishEvent{
		ShopDomain: "demo.myshopify.com",
		ThemeID:    "gid://shopify/Theme/42",
		ThemeName:  "Dawn",
		Role:       "main",
	})
	require.NoError(t, err)

	notifications, err := svc.Notifications(shop.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Dawn", notifications[0].ThemeName)
	assert.False(t, notifications[0].Acknowledged)

	actions := auditActions(t, db, shop.ID)
	assert.Equal(t, 1, countAction(actions, models.AuditThemePublished))
}

func TestHandleThemePublish_NonMainRoleIgnored(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})
	shop := createTestShop(t, db, "demo.myshopify.com")

	err := svc.HandleThemePublish(dto.ThemePublishEvent{
		ShopDomain: "demo.myshopify.com",
		ThemeID:    "gid://shopify/Theme/42",
		Role:       "unpublished",
	})
	require.NoError(t, err)

	notifications, err := svc.Notifications(shop.ID)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestHandleThemePublish_UnknownShopDiscarded(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})

	err := svc.HandleThemePublish(dto.ThemePublishEvent{
		ShopDomain: "ghost.myshopify.com",
		Role:       "main",
	})
	assert.NoError(t, err)
}

func TestPurge_RemovesEverything(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})
	shop := createTestShop(t, db, "demo.myshopify.com")
	createTestSubscription(t, db, shop.ID, "gid://shopify/AppSubscription/1", models.SubscriptionStatusActive)
	createTestSession(t, db, "demo.myshopify.com", "shpat_test")
	require.NoError(t, db.Create(&models.Setting{
		ID:     uuid.New(),
		ShopID: shop.ID,
		Key:    models.SettingKeyPopup,
		Value:  []byte(`{}`),
	}).Error)
	require.NoError(t, db.Create(&models.ThemeNotification{
		ID:      uuid.New(),
		ShopID:  shop.ID,
		ThemeID: "gid://shopify/Theme/42",
		Role:    "main",
	}).Error)

	// An unrelated shop must survive the purge untouched.
	other := createTestShop(t, db, "other.myshopify.com")
	createTestSubscription(t, db, other.ID, "gid://shopify/AppSubscription/2", models.SubscriptionStatusActive)

	require.NoError(t, svc.Purge("demo.myshopify.com", nil))

	for _, model := range []interface{}{
		&models.Subscription{}, &models.Setting{}, &models.ThemeNotification{},
		&models.Session{}, &models.AuditLog{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Where("shop_id = ?", shop.ID).Count(&count).Error)
		assert.Zero(t, count)
	}
	var sessions int64
	require.NoError(t, db.Model(&models.Session{}).Where("shop_domain = ?", "demo.myshopify.com").Count(&sessions).Error)
	assert.Zero(t, sessions)

	_, err := svc.FindByDomain("demo.myshopify.com")
	assert.ErrorIs(t, err, ErrShopNotFound)

	var otherSubs int64
	require.NoError(t, db.Model(&models.Subscription{}).Where("shop_id = ?", other.ID).Count(&otherSubs).Error)
	assert.Equal(t, int64(1), otherSubs)
}

func TestPurge_UnknownShopAcknowledged(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})

	assert.NoError(t, svc.Purge("ghost.myshopify.com", nil))
}

func TestPurge_FailurePreservesAuditTrail(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})
	shop := createTestShop(t, db, "demo.myshopify.com")

	// Dropping the table makes the third delete step fail mid-purge.
	require.NoError(t, db.Migrator().DropTable(&models.ThemeNotification{}))

	err := svc.Purge("demo.myshopify.com", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "theme_notifications")

	actions := auditActions(t, db, shop.ID)
	assert.Equal(t, 1, countAction(actions, models.AuditAppUninstalled))
	assert.Equal(t, 1, countAction(actions, models.AuditCleanupFailed))

	// The shop row itself survives a failed purge.
	_, ferr := svc.FindByDomain("demo.myshopify.com")
	assert.NoError(t, ferr)
}

func TestAcknowledge(t *testing.T) {
	db := newTestDB(t)
	svc := newShopService(db, &fakeClient{})
	shop := createTestShop(t, db, "demo.myshopify.com")

	notification := models.ThemeNotification{
		ID:      uuid.New(),
		ShopID:  shop.ID,
		ThemeID: "gid://shopify/Theme/42",
		Role:    "main",
	}
	require.NoError(t, db.Create(&notification).Error)

	require.NoError(t, svc.Acknowledge(shop.ID, notification.ID))

	remaining, err := svc.Notifications(shop.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	err = svc.Acknowledge(shop.ID, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
