package handlers

import (
	"errors"

	"github.com/consentpop/consentpop-backend/internal/config"
	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/models"
	"github.com/consentpop/consentpop-backend/internal/services"
	"github.com/consentpop/consentpop-backend/internal/shopify"
	"github.com/gofiber/fiber/v2"
)

type BillingHandler struct {
	subscriptions *services.SubscriptionService
	shops         *services.ShopService
	cfg           *config.Config
}

func NewBillingHandler(subscriptions *services.SubscriptionService, shops *services.ShopService, cfg *config.Config) *BillingHandler {
	return &BillingHandler{subscriptions: subscriptions, shops: shops, cfg: cfg}
}

func (h *BillingHandler) ListPlans(c *fiber.Ctx) error {
	return c.JSON([]dto.PlanResponse{
		{
			Name:      h.cfg.PlanName,
			Price:     h.cfg.PlanPrice,
			Currency:  h.cfg.PlanCurrency,
			Interval:  "EVERY_30_DAYS",
			TrialDays: h.cfg.TrialDays,
		},
	})
}

func (h *BillingHandler) GetSubscription(c *fiber.Ctx) error {
	shop, err := resolveShop(c, h.shops)
	if shop == nil {
		return err
	}

	sub, err := h.subscriptions.Current(shop.ID)
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "No subscription",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch subscription",
		})
	}
	return c.JSON(subscriptionResponse(sub))
}

// Subscribe initiates the plan purchase. Provider validation errors come
// back as 422 with the provider's own messages joined.
func (h *BillingHandler) Subscribe(c *fiber.Ctx) error {
	shop, err := resolveShop(c, h.shops)
	if shop == nil {
		return err
	}

	token, err := h.shops.AccessToken(shop.Domain)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "No API session for shop; reinstall the app",
		})
	}

	resp, err := h.subscriptions.Subscribe(c.Context(), shop, token, requestMeta(c))
	if err != nil {
		return providerOrServerError(c, err, "Failed to create subscription")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *BillingHandler) Cancel(c *fiber.Ctx) error {
	shop, err := resolveShop(c, h.shops)
	if shop == nil {
		return err
	}

	token, err := h.shops.AccessToken(shop.Domain)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "No API session for shop; reinstall the app",
		})
	}

	sub, err := h.subscriptions.Cancel(c.Context(), shop, token, requestMeta(c))
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "No active subscription to cancel",
			})
		}
		return providerOrServerError(c, err, "Failed to cancel subscription")
	}
	return c.JSON(subscriptionResponse(sub))
}

func providerOrServerError(c *fiber.Ctx, err error, fallback string) error {
	var perr *shopify.ProviderError
	if errors.As(err, &perr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: perr.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: fallback,
	})
}

func subscriptionResponse(sub *models.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		ID:               sub.ID.String(),
		ShopifyID:        sub.ShopifyID,
		Name:             sub.Name,
		Status:           sub.Status,
		Price:            sub.Price,
		Currency:         sub.Currency,
		Interval:         sub.Interval,
		TrialEndsAt:      sub.TrialEndsAt,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		Test:             sub.Test,
		CreatedAt:        sub.CreatedAt,
	}
}
