package routes

import (
	"time"

	"github.com/consentpop/consentpop-backend/internal/config"
	"github.com/consentpop/consentpop-backend/internal/handlers"
	"github.com/consentpop/consentpop-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	settingsHandler *handlers.SettingsHandler,
	billingHandler *handlers.BillingHandler,
	shopHandler *handlers.ShopHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health (public)
	api.Get("/health", healthHandler.Check)

	// Storefront widget config (public, keyed by ?shop=)
	api.Get("/storefront/settings", settingsHandler.GetStorefrontSettings)

	// Webhooks — HMAC-authenticated, no session token
	api.Post("/webhooks/shopify", webhookHandler.HandleShopify)

	// Dashboard API (session token required)
	protected := api.Group("", middleware.SessionTokenProtected(cfg))
	protected.Get("/settings", settingsHandler.GetSettings)
	protected.Put("/settings", settingsHandler.UpdateSettings)
	protected.Get("/audit-logs", shopHandler.ListAuditLogs)
	protected.Get("/notifications", shopHandler.ListNotifications)
	protected.Post("/notifications/:id/ack", shopHandler.AcknowledgeNotification)
	protected.Post("/shops/sync", shopHandler.Sync)

	// Billing-specific rate limit: 10 req/min per IP (stricter)
	billing := protected.Group("/billing")
	billing.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	billing.Get("/plans", billingHandler.ListPlans)
	billing.Get("/subscription", billingHandler.GetSubscription)
	billing.Post("/subscribe", billingHandler.Subscribe)
	billing.Post("/cancel", billingHandler.Cancel)
}
