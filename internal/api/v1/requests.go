package apiv1

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/internal/pkg/cache"
	"github.com/caconnect/CAConnect/internal/pkg/lifecycle"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
)

const requestCacheTTL = 5 * time.Minute

func requestCacheKey(requestID uint, p usercontext.Principal) string {
	return fmt.Sprintf("request:%d:%s:%d", requestID, p.Kind, actorIDOf(p))
}

func actorIDOf(p usercontext.Principal) uint {
	if p.Kind == usercontext.KindCA {
		return p.CAID
	}
	return p.UserID
}

// invalidateRequestCache drops every cached view of a request after a
// mutation. Best effort; a miss only costs one extra DB read.
func invalidateRequestCache(requestID uint) {
	if err := cache.DeletePattern(fmt.Sprintf("request:%d:*", requestID)); err != nil {
		log.Printf("cache invalidation for request %d failed: %v", requestID, err)
	}
}

// PostRequest books a new consultation request for the calling taxpayer.
func (s *APIServer) PostRequest(c *fiber.Ctx) error {
	p := usercontext.GetPrincipal(c)

	var in lifecycle.BookInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	if in.ServiceType == "" {
		return badRequest(c, "service_type is required")
	}

	req, err := s.lifecycle.Book(c.UserContext(), p.UserID, in)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// GetRequest returns one request to a party, read through the cache.
func (s *APIServer) GetRequest(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	key := requestCacheKey(requestID, p)
	if raw, err := cache.Get(key); err == nil && raw != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(raw)
	}

	req, err := s.lifecycle.Get(requestID, p)
	if err != nil {
		return domainError(c, err)
	}

	if raw, err := json.Marshal(req); err == nil {
		if cerr := cache.Set(key, string(raw), requestCacheTTL); cerr != nil {
			log.Printf("cache set for request %d failed: %v", requestID, cerr)
		}
	}
	return c.JSON(req)
}

// GetRequests lists the caller's requests, paginated.
func (s *APIServer) GetRequests(c *fiber.Ctx) error {
	p := usercontext.GetPrincipal(c)
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var (
		requests []models.ServiceRequest
		err      error
	)
	if p.Kind == usercontext.KindCA {
		requests, err = s.lifecycle.ListForCA(p.CAID, offset, limit)
	} else {
		requests, err = s.lifecycle.ListForUser(p.UserID, offset, limit)
	}
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"requests": requests, "offset": offset, "limit": limit})
}

// GetRequestTransitions returns the audit trail of a request.
func (s *APIServer) GetRequestTransitions(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	entries, err := s.lifecycle.Transitions(requestID, usercontext.GetPrincipal(c))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"transitions": entries})
}

// PostRequestAccept lets a CA claim a pending request.
func (s *APIServer) PostRequestAccept(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	var in lifecycle.AcceptInput
	if err := c.BodyParser(&in); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	req, err := s.lifecycle.Accept(c.UserContext(), requestID, p.CAID, in)
	if err != nil {
		return domainError(c, err)
	}
	invalidateRequestCache(requestID)
	return c.JSON(req)
}

// PostRequestReject lets a CA decline a request.
func (s *APIServer) PostRequestReject(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	var in struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&in); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	req, err := s.lifecycle.Reject(c.UserContext(), requestID, p.CAID, in.Reason)
	if err != nil {
		return domainError(c, err)
	}
	invalidateRequestCache(requestID)
	return c.JSON(req)
}

// PostRequestCancel cancels a request; refunds follow the policy for the
// status the request held at the moment of cancellation.
func (s *APIServer) PostRequestCancel(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	var in struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&in); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	req, err := s.lifecycle.Cancel(c.UserContext(), requestID, usercontext.GetPrincipal(c), in.Reason)
	if err != nil {
		return domainError(c, err)
	}
	invalidateRequestCache(requestID)
	return c.JSON(req)
}

// PostRequestStage records CA work progress; the first stage moves the
// request into in_progress.
func (s *APIServer) PostRequestStage(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	var in struct {
		Stage string `json:"stage"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	if !models.ValidStage(in.Stage) {
		return badRequest(c, "unknown stage")
	}

	req, err := s.lifecycle.UpdateStage(c.UserContext(), requestID, p.CAID, in.Stage)
	if err != nil {
		return domainError(c, err)
	}
	invalidateRequestCache(requestID)
	return c.JSON(req)
}

// PostRequestComplete marks the engagement done. Assigned CA only.
func (s *APIServer) PostRequestComplete(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	req, err := s.lifecycle.Complete(c.UserContext(), requestID, p.CAID)
	if err != nil {
		return domainError(c, err)
	}
	invalidateRequestCache(requestID)
	return c.JSON(req)
}

// PostRequestEscalate parks the request for admin attention.
func (s *APIServer) PostRequestEscalate(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	var in struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&in); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request body")
	}

	req, err := s.lifecycle.Escalate(c.UserContext(), requestID, usercontext.GetPrincipal(c), in.Reason)
	if err != nil {
		return domainError(c, err)
	}
	invalidateRequestCache(requestID)
	return c.JSON(req)
}

// PostRequestResume moves an escalated request back into work. Admin only;
// the route is additionally guarded by the admin middleware.
func (s *APIServer) PostRequestResume(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	var in struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}

	req, err := s.lifecycle.Resume(c.UserContext(), requestID, usercontext.GetPrincipal(c), in.Status)
	if err != nil {
		return domainError(c, err)
	}
	invalidateRequestCache(requestID)
	return c.JSON(req)
}

// PostRequestReschedule sends an accepted request back to pending.
func (s *APIServer) PostRequestReschedule(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	req, err := s.lifecycle.Reschedule(c.UserContext(), requestID, p.UserID)
	if err != nil {
		return domainError(c, err)
	}
	invalidateRequestCache(requestID)
	return c.JSON(req)
}
