package handlers

import (
	"errors"

	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SettingsHandler struct {
	settings *services.SettingsService
	shops    *services.ShopService
}

func NewSettingsHandler(settings *services.SettingsService, shops *services.ShopService) *SettingsHandler {
	return &SettingsHandler{settings: settings, shops: shops}
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	shop, err := resolveShop(c, h.shops)
	if shop == nil {
		return err
	}

	settings, err := h.settings.GetPopupSettings(shop.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch settings",
		})
	}
	return c.JSON(settings)
}

// UpdateSettings never hard-fails on insufficient subscription tier: the
// gate downgrades restricted fields and the response names them.
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	shop, err := resolveShop(c, h.shops)
	if shop == nil {
		return err
	}

	var payload dto.PopupSettings
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.settings.UpdatePopupSettings(shop, payload, requestMeta(c))
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.FieldErrorResponse{
				Error: true, Message: "Validation failed", Fields: verr.Fields,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to save settings",
		})
	}
	return c.JSON(resp)
}

// GetStorefrontSettings is the public endpoint the widget script fetches.
func (h *SettingsHandler) GetStorefrontSettings(c *fiber.Ctx) error {
	domain := c.Query("shop")
	if domain == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "shop query parameter is required",
		})
	}

	resp, err := h.settings.GetStorefrontSettings(domain)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch settings",
		})
	}
	return c.JSON(resp)
}
