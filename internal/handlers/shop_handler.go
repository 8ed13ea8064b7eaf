package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShopHandler struct {
	shops *services.ShopService
	audit *services.AuditService
}

func NewShopHandler(shops *services.ShopService, audit *services.AuditService) *ShopHandler {
	return &ShopHandler{shops: shops, audit: audit}
}

// Sync refreshes the shop profile from the Admin API and re-registers
// webhook subscriptions.
func (h *ShopHandler) Sync(c *fiber.Ctx) error {
	shop, err := resolveShop(c, h.shops)
	if shop == nil {
		return err
	}

	synced, err := h.shops.Sync(c.Context(), shop.Domain, requestMeta(c))
	if err != nil {
		if errors.Is(err, services.ErrNoSession) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "No API session for shop; reinstall the app",
			})
		}
		slog.Error("shop sync failed", "shop", shop.Domain, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to sync shop",
		})
	}
	return c.JSON(synced)
}

func (h *ShopHandler) ListAuditLogs(c *fiber.Ctx) error {
	shop, err := resolveShop(c, h.shops)
	if shop == nil {
		return err
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	resp, err := h.audit.List(shop.ID, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch audit logs",
		})
	}
	return c.JSON(resp)
}

func (h *ShopHandler) ListNotifications(c *fiber.Ctx) error {
	shop, err := resolveShop(c, h.shops)
	if shop == nil {
		return err
	}

	notifications, err := h.shops.Notifications(shop.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch notifications",
		})
	}
	return c.JSON(notifications)
}

func (h *ShopHandler) AcknowledgeNotification(c *fiber.Ctx) error {
	shop, err := resolveShop(c, h.shops)
	if shop == nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid notification ID",
		})
	}

	if err := h.shops.Acknowledge(shop.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Notification not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to acknowledge notification",
		})
	}
	return c.JSON(fiber.Map{"acknowledged": true})
}
