package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
)

// GetNotifications lists the caller's in-app notifications, newest first.
func (s *APIServer) GetNotifications(c *fiber.Ctx) error {
	p := usercontext.GetPrincipal(c)
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	items, err := s.repos.Notification.ListByRecipient(actorIDOf(p), string(p.Kind), offset, limit)
	if err != nil {
		return domainError(c, err)
	}
	unread, err := s.repos.Notification.CountUnread(actorIDOf(p), string(p.Kind))
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{"notifications": items, "unread": unread})
}

// PostNotificationRead marks one of the caller's notifications as read.
func (s *APIServer) PostNotificationRead(c *fiber.Ctx) error {
	notificationID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid notification id")
	}
	p := usercontext.GetPrincipal(c)

	if err := s.repos.Notification.MarkRead(notificationID, actorIDOf(p), string(p.Kind)); err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"status": "read"})
}
