package apiv1

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/internal/pkg/docaccess"
	"github.com/caconnect/CAConnect/internal/pkg/usercontext"
)

const (
	maxDocumentSize   = 25 * 1024 * 1024
	signedURLLifetime = 15 * time.Minute
)

// PostRequestDocument uploads one file onto a request. The file goes to the
// blob store first; the metadata row is only written once the bytes are safe.
func (s *APIServer) PostRequestDocument(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	req, err := s.repos.ServiceRequest.GetByID(requestID)
	if err != nil {
		return domainError(c, err)
	}
	if d := docaccess.CanUpload(req, p); !d.Allowed {
		log.Printf("document upload denied for %s %d on request %d: %s", p.Kind, actorIDOf(p), requestID, d.Reason)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access_denied", "message": d.Reason})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	if fileHeader.Size > maxDocumentSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "too_large", "message": "file exceeds 25 MB"})
	}

	fileType := strings.TrimSpace(c.FormValue("file_type"))
	if fileType == "" {
		fileType = strings.TrimPrefix(filepath.Ext(fileHeader.Filename), ".")
	}
	// ITR-V is the CA's deliverable; taxpayers cannot upload one.
	if fileType == models.DocumentTypeITRV && p.Kind != usercontext.KindCA {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access_denied", "message": "only the CA uploads the ITR-V"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return domainError(c, err)
	}
	defer file.Close()

	key := fmt.Sprintf("requests/%d/%s%s", requestID, uuid.New().String(), filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get(fiber.HeaderContentType)
	if err := s.store.Put(c.UserContext(), key, file, fileHeader.Size, contentType); err != nil {
		return domainError(c, err)
	}

	doc := &models.Document{
		ServiceRequestID: requestID,
		UploaderID:       actorIDOf(p),
		UploaderKind:     string(p.Kind),
		FileName:         fileHeader.Filename,
		FileType:         fileType,
		ContentType:      contentType,
		SizeBytes:        fileHeader.Size,
		StorageKey:       key,
		Status:           models.DocumentStatusUploaded,
	}
	if err := s.repos.Document.Create(doc); err != nil {
		if derr := s.store.Delete(c.UserContext(), key); derr != nil {
			log.Printf("failed to clean up blob %s after metadata error: %v", key, derr)
		}
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// GetRequestDocuments lists the documents the caller may see on a request.
// Non-parties get a logged 403 up front; for parties the access guard then
// runs per document, so soft-deleted and still-gated rows never appear.
func (s *APIServer) GetRequestDocuments(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	p := usercontext.GetPrincipal(c)

	// Party check happens through the request read.
	req, err := s.lifecycle.Get(requestID, p)
	if err != nil {
		return domainError(c, err)
	}

	docs, err := s.repos.Document.ListByRequest(requestID)
	if err != nil {
		return domainError(c, err)
	}

	visible := make([]models.Document, 0, len(docs))
	for i := range docs {
		decision, err := docaccess.CanAccess(&docs[i], req, p, s.ledger)
		if err != nil {
			return domainError(c, err)
		}
		if decision.Allowed {
			visible = append(visible, docs[i])
		}
	}
	return c.JSON(fiber.Map{"documents": visible})
}

// GetDocumentDownload hands out a short-lived signed URL for one document.
// The guard is evaluated on every call; payment state may have changed since
// the last one.
func (s *APIServer) GetDocumentDownload(c *fiber.Ctx) error {
	docID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid document id")
	}
	p := usercontext.GetPrincipal(c)

	doc, err := s.repos.Document.GetByID(docID)
	if err != nil {
		return domainError(c, err)
	}
	req, err := s.repos.ServiceRequest.GetByID(doc.ServiceRequestID)
	if err != nil {
		return domainError(c, err)
	}

	decision, err := docaccess.CanAccess(doc, req, p, s.ledger)
	if err != nil {
		return domainError(c, err)
	}
	if !decision.Allowed {
		log.Printf("document download denied for %s %d on document %d: %s", p.Kind, actorIDOf(p), docID, decision.Reason)
		status := fiber.StatusForbidden
		if decision.Reason == "document deleted" {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": "access_denied", "message": decision.Reason})
	}

	url, err := s.store.SignedURL(c.UserContext(), doc.StorageKey, signedURLLifetime)
	if err != nil {
		return domainError(c, err)
	}
	if err := s.repos.Document.IncrementDownloadCount(doc.ID); err != nil {
		log.Printf("failed to bump download count for document %d: %v", doc.ID, err)
	}

	return c.JSON(fiber.Map{
		"url":        url,
		"expires_in": int(signedURLLifetime.Seconds()),
		"file_name":  doc.FileName,
	})
}

// DeleteDocument soft-deletes a document. Only the uploader (or an admin)
// may delete; the row stays, the status flips.
func (s *APIServer) DeleteDocument(c *fiber.Ctx) error {
	docID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid document id")
	}
	p := usercontext.GetPrincipal(c)

	doc, err := s.repos.Document.GetByID(docID)
	if err != nil {
		return domainError(c, err)
	}
	if doc.Status == models.DocumentStatusDeleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "document not found"})
	}

	isUploader := doc.UploaderKind == string(p.Kind) && doc.UploaderID == actorIDOf(p)
	if !isUploader && !p.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access_denied", "message": "only the uploader may delete"})
	}

	doc.Status = models.DocumentStatusDeleted
	if err := s.repos.Document.Update(doc); err != nil {
		return domainError(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}
