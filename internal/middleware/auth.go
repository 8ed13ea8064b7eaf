package middleware

import (
	"errors"
	"strings"

	"github.com/consentpop/consentpop-backend/internal/config"
	"github.com/consentpop/consentpop-backend/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenProtected verifies embedded-app session tokens: HS256 JWTs
// signed with the app secret, minted by the Shopify admin per request.
func SessionTokenProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.ShopifyAPISecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired session token",
			})
		},
	})
}

// ShopDomain extracts the shop's myshopify domain from the verified session
// token's dest claim ("https://{shop}.myshopify.com").
func ShopDomain(c *fiber.Ctx) (string, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return "", errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	dest, ok := claims["dest"].(string)
	if !ok || dest == "" {
		return "", errors.New("missing dest claim")
	}

	domain := strings.TrimPrefix(strings.TrimPrefix(dest, "https://"), "http://")
	domain = strings.TrimSuffix(domain, "/")
	if domain == "" {
		return "", errors.New("empty shop domain in dest claim")
	}
	return domain, nil
}
