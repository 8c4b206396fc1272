package handler

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"doccustody/internal/http/middleware"
	"doccustody/internal/model"
	"doccustody/internal/service"
)

const presignExpiry = 15 * time.Minute

// integrityResponse is the body of the verify endpoint.
type integrityResponse struct {
	Valid bool `json:"valid"`
	*service.IntegrityReport
}

type presignResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func unauthenticated(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
}

// parsePage reads limit and offset. A non-empty code names the invalid parameter.
func parsePage(c *fiber.Ctx) (limit, offset int, code string) {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		return 0, 0, "INVALID_LIMIT"
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		return 0, 0, "INVALID_OFFSET"
	}
	return limit, offset, ""
}

// accessibleDocument loads :id and checks that the caller may see it. A nil document means a response
// has already been written.
func accessibleDocument(c *fiber.Ctx, svc service.DocumentService) (*model.Document, error) {
	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, unauthenticated(c)
	}
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}
	doc, err := svc.Get(c.UserContext(), id)
	if err != nil {
		return nil, writeServiceError(c, err)
	}
	if !caller.CanAccess(doc.OwnerRef) {
		return nil, writeError(c, fiber.StatusForbidden, "FORBIDDEN", "access denied")
	}
	return doc, nil
}

// ListDocuments lists all documents for admins and the caller's own documents for students.
//
// @Summary List documents
// @Tags documents
// @Security BearerAuth
// @Produce json
// @Param limit query int false "page size" default(10)
// @Param offset query int false "offset" default(0)
// @Param document_type query string false "filter by document type (admin only)"
// @Success 200 {object} service.DocumentListResult
// @Failure 400 {object} errorPayload
// @Router /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := middleware.IdentityFrom(c)
		if !ok {
			return unauthenticated(c)
		}
		limit, offset, code := parsePage(c)
		if code != "" {
			return writeError(c, fiber.StatusBadRequest, code, "invalid "+strings.ToLower(strings.TrimPrefix(code, "INVALID_")))
		}

		var (
			res *service.DocumentListResult
			err error
		)
		if caller.IsAdmin() {
			res, err = svc.List(c.UserContext(), limit, offset, c.Query("document_type"))
		} else {
			res, err = svc.ListByOwner(c.UserContext(), caller.Subject, limit, offset)
		}
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument accepts a multipart upload and runs the verification pipeline. Rejections answer 422
// with the verification outcome.
//
// @Summary Upload a document
// @Tags documents
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "document"
// @Param owner_ref formData string true "owner reference"
// @Param document_type formData string false "declared document type" default(General)
// @Param description formData string false "description"
// @Success 201 {object} service.UploadResult
// @Failure 409 {object} errorPayload
// @Failure 422 {object} service.UploadResult
// @Router /documents [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := middleware.IdentityFrom(c); !ok {
			return unauthenticated(c)
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

		payload, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}

		res, err := svc.Upload(c.UserContext(), service.UploadCommand{
			Payload:      payload,
			OriginalName: fh.Filename,
			MIMEType:     fh.Header.Get(fiber.HeaderContentType),
			OwnerRef:     c.FormValue("owner_ref"),
			DeclaredType: c.FormValue("document_type"),
			Description:  c.FormValue("description"),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		if !res.Accepted() {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(res)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GetDocument returns a document's metadata.
//
// @Summary Get document
// @Tags documents
// @Security BearerAuth
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := accessibleDocument(c, svc)
		if doc == nil {
			return err
		}
		return c.JSON(doc)
	}
}

// DownloadDocument streams the stored content as an attachment, or with presign=true returns a
// time-limited URL instead.
//
// @Summary Download document content
// @Tags documents
// @Security BearerAuth
// @Produce octet-stream
// @Param id path string true "document id"
// @Param presign query bool false "return a presigned URL"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := accessibleDocument(c, svc)
		if doc == nil {
			return err
		}

		if c.QueryBool("presign") {
			url, err := svc.PresignDownload(c.UserContext(), doc.ID, presignExpiry)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.JSON(presignResponse{URL: url, ExpiresAt: time.Now().Add(presignExpiry).UTC()})
		}

		_, data, err := svc.Download(c.UserContext(), doc.ID)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Attachment(doc.OriginalName)
		c.Set(fiber.HeaderContentType, doc.MIMEType)
		c.Set("X-Content-SHA256", doc.ContentHash)
		return c.Send(data)
	}
}

// VerifyDocument recomputes the content hash and checks the anchor.
//
// @Summary Verify document integrity
// @Tags documents
// @Security BearerAuth
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} integrityResponse
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/verify [get]
func VerifyDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := accessibleDocument(c, svc)
		if doc == nil {
			return err
		}
		report, err := svc.InspectIntegrity(c.UserContext(), doc.ID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(integrityResponse{Valid: report.Valid(), IntegrityReport: report})
	}
}

// DeleteDocument removes a document and its content.
//
// @Summary Delete document
// @Tags documents
// @Security BearerAuth
// @Param id path string true "document id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
