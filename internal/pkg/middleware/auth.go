package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/app/repository"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
)

// APIKeyAuthMiddleware authenticates requests carrying a user API key header
// and resolves the principal. CA accounts additionally get their
// professional profile id attached.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		repos := repository.GetGlobalRepositories()
		hash := models.HashAPIKey(apiKey)
		user, err := repos.User.GetByAPIKeyHash(hash)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			log.Printf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		if user.Status != models.STATUS_ACTIVE {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
		}

		principal := usercontext.Principal{
			UserID:     user.ID,
			Name:       user.Name,
			Kind:       usercontext.KindUser,
			IsLoggedIn: true,
		}
		switch user.Role {
		case models.ROLE_ADMIN:
			principal.Kind = usercontext.KindAdmin
		case models.ROLE_CA:
			ca, err := repos.Accountant.GetByUserID(user.ID)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					log.Printf("CA profile lookup failed for user %d: %v", user.ID, err)
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Profile lookup failed"})
				}
				// A CA account without a profile acts as a plain user.
			} else {
				principal.Kind = usercontext.KindCA
				principal.CAID = ca.ID
			}
		}

		usercontext.SetPrincipal(c, principal)
		return c.Next()
	}
}

// RequireCA rejects callers that are not chartered accountants.
func RequireCA() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := usercontext.GetPrincipal(c)
		if !p.IsLoggedIn || p.Kind != usercontext.KindCA {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "CA role required"})
		}
		return c.Next()
	}
}

// RequireAdmin rejects non-admin callers.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := usercontext.GetPrincipal(c)
		if !p.IsLoggedIn || !p.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin role required"})
		}
		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	if apiKey := strings.TrimSpace(c.Get("X-API-Key")); apiKey != "" {
		return apiKey
	}

	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
