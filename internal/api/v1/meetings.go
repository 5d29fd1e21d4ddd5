package apiv1

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
)

type meetingInput struct {
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

// PostRequestMeeting schedules the video call of a request. Scheduling twice
// returns the existing meeting.
func (s *APIServer) PostRequestMeeting(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	var in meetingInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	if in.StartsAt.IsZero() || in.StartsAt.Before(time.Now()) {
		return badRequest(c, "starts_at must be in the future")
	}

	m, err := s.scheduler.Schedule(c.UserContext(), requestID, usercontext.GetPrincipal(c), in.StartsAt, in.DurationMinutes)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// GetRequestMeeting returns the active meeting of a request.
func (s *APIServer) GetRequestMeeting(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	m, err := s.scheduler.Get(requestID, usercontext.GetPrincipal(c))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(m)
}

// PutRequestMeeting moves the active meeting to a new time.
func (s *APIServer) PutRequestMeeting(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	var in meetingInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	if in.StartsAt.IsZero() || in.StartsAt.Before(time.Now()) {
		return badRequest(c, "starts_at must be in the future")
	}

	m, err := s.scheduler.Reschedule(c.UserContext(), requestID, usercontext.GetPrincipal(c), in.StartsAt, in.DurationMinutes)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(m)
}

// DeleteRequestMeeting cancels the active meeting; the row stays for audit.
func (s *APIServer) DeleteRequestMeeting(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	if err := s.scheduler.Cancel(c.UserContext(), requestID, usercontext.GetPrincipal(c)); err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}
