package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"marketapi/internal/service"
)

type downloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ListDocuments godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param limit query int false "page size (max 100)" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.DocumentListResult
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /api/v1/documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		limit, offset, err := pageParams(c)
		if err != nil {
			return respondError(c, err)
		}

		res, err := svc.List(c.UserContext(), uid, limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument godoc
// @Summary Upload a document
// @Description multipart/form-data with the file in the "file" field.
// @Tags Documents
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "document"
// @Success 201 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Router /api/v1/documents [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := svc.Upload(c.UserContext(), uid, f, fh.Filename, ct, fh.Size)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument godoc
// @Summary Get document metadata
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/v1/documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := uuidParam(c)
		if !ok {
			return invalidID(c)
		}
		doc, err := svc.Get(c.UserContext(), uid, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument godoc
// @Summary Pre-signed download URL
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "document id"
// @Success 200 {object} downloadResponse
// @Failure 404 {object} errorPayload
// @Router /api/v1/documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := uuidParam(c)
		if !ok {
			return invalidID(c)
		}
		url, expires, err := svc.DownloadURL(c.UserContext(), uid, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(downloadResponse{URL: url, ExpiresAt: expires})
	}
}

// DocumentContent godoc
// @Summary Stream document content
// @Tags Documents
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "document id"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /api/v1/documents/{id}/content [get]
func DocumentContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := uuidParam(c)
		if !ok {
			return invalidID(c)
		}
		rc, doc, err := svc.Open(c.UserContext(), uid, id)
		if err != nil {
			return respondError(c, err)
		}

		name := doc.OriginalName
		if name == "" {
			name = doc.Filename
		}
		c.Attachment(name)
		c.Set(fiber.HeaderContentType, doc.ContentType)
		// fasthttp closes rc once the body has been written.
		return c.SendStream(rc, int(doc.Size))
	}
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags Documents
// @Security BearerAuth
// @Param id path string true "document id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /api/v1/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := uuidParam(c)
		if !ok {
			return invalidID(c)
		}
		if err := svc.Delete(c.UserContext(), uid, id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
