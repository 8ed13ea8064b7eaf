package handlers

import (
	"errors"

	"github.com/consentpop/consentpop-backend/internal/dto"
	"github.com/consentpop/consentpop-backend/internal/middleware"
	"github.com/consentpop/consentpop-backend/internal/models"
	"github.com/consentpop/consentpop-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// resolveShop loads the shop named by the verified session token. When it
// returns a nil shop the response has already been written and the handler
// should return the accompanying error value.
func resolveShop(c *fiber.Ctx, shops *services.ShopService) (*models.Shop, error) {
	domain, err := middleware.ShopDomain(c)
	if err != nil {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	shop, err := shops.FindByDomain(domain)
	if err != nil {
		if errors.Is(err, services.ErrShopNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Shop is not installed",
			})
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to resolve shop",
		})
	}
	return shop, nil
}

func requestMeta(c *fiber.Ctx) *services.RequestMeta {
	return &services.RequestMeta{UserAgent: c.Get("User-Agent"), IP: c.IP()}
}
