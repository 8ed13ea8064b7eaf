package handlers

import (
	"log/slog"

	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/services"
	"github.com/consentpop/consentpop-backend/internal/shopify"
	"github.com/gofiber/fiber/v2"
)

const (
	headerHmac       = "X-Shopify-Hmac-Sha256"
	headerTopic      = "X-Shopify-Topic"
	headerShopDomain = "X-Shopify-Shop-Domain"
)

type WebhookHandler struct {
	verifier      *shopify.Verifier
	subscriptions *services.SubscriptionService
	shops         *services.ShopService
}

func NewWebhookHandler(verifier *shopify.Verifier, subscriptions *services.SubscriptionService, shops *services.ShopService) *WebhookHandler {
	return &WebhookHandler{
		verifier:      verifier,
		subscriptions: subscriptions,
		shops:         shops,
	}
}

// HandleShopify authenticates the payload before any state mutation, then
// dispatches on the parsed event type. Unknown shops and unknown topics are
// acknowledged with 200 so the provider stops retrying.
func (h *WebhookHandler) HandleShopify(c *fiber.Ctx) error {
	// c.Body is the raw byte sequence; the signature covers exactly these
	// bytes, so nothing may re-serialize before verification.
	if !h.verifier.Verify(c.Body(), c.Get(headerHmac)) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook signature",
		})
	}

	topic := c.Get(headerTopic)
	shopDomain := c.Get(headerShopDomain)
	event := dto.ParseWebhookEvent(topic, shopDomain, c.Body())
	meta := &services.RequestMeta{UserAgent: c.Get("User-Agent"), IP: c.IP()}

	var err error
	switch e := event.(type) {
	case dto.AppUninstalledEvent:
		// A failed purge is already audited as cleanup_failed; the provider
		// must not retry against a partially purged shop, so acknowledge.
		if purgeErr := h.shops.Purge(e.ShopDomain, meta); purgeErr != nil {
			slog.Error("shop purge incomplete", "shop", e.ShopDomain, "error", purgeErr)
		}
	case dto.ShopUpdateEvent:
		err = h.shops.HandleProfileUpdate(e)
	case dto.ThemePublishEvent:
		err = h.shops.HandleThemePublish(e)
	case dto.SubscriptionUpdateEvent:
		err = h.subscriptions.Reconcile(e)
	case dto.UnknownEvent:
		slog.Warn("discarding webhook", "topic", e.RawTopic, "shop", e.ShopDomain, "reason", e.Reason)
	}

	if err != nil {
		slog.Error("webhook processing failed", "topic", topic, "shop", shopDomain, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	slog.Info("webhook processed", "topic", topic, "shop", shopDomain)
	return c.JSON(fiber.Map{"received": true})
}
