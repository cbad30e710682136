package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hackerloum/secureview/internal/app/model"
	"github.com/hackerloum/secureview/internal/app/repository"
	"github.com/hackerloum/secureview/internal/app/service"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger         *zap.Logger
	Contents       service.ContentService
	Access         service.AccessService
	Quota          service.QuotaService
	ViewPublisher  *service.ViewPublisher
	BaseURL        string
	SupportContact string
}

// APIHandler implements the upload, resolution and quota endpoints.
type APIHandler struct {
	logger         *zap.Logger
	contents       service.ContentService
	access         service.AccessService
	quota          service.QuotaService
	viewPublisher  *service.ViewPublisher
	baseURL        string
	supportContact string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:         logger,
		contents:       deps.Contents,
		access:         deps.Access,
		quota:          deps.Quota,
		viewPublisher:  deps.ViewPublisher,
		baseURL:        deps.BaseURL,
		supportContact: deps.SupportContact,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		api.Post("/upload", h.Upload)
		api.Post("/views", h.RecordView)

		content := api.Group("/content")
		{
			content.Get("/:code", h.ResolveContent)
			content.Get("/:code/qr", h.ContentQR)
		}

		api.Get("/users/:userId/contents", h.ListOwnerContents)
		api.Delete("/contents/:id", h.DeleteContent)

		limits := api.Group("/user-limits")
		{
			limits.Get("/:userId", h.GetUserLimit)
			limits.Patch("/:userId", h.UpdateUserLimit)
		}
	}
}

// ContentResponse represents a content record returned to clients.
type ContentResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	AccessCode  string    `json:"accessCode"`
	CreatedAt   time.Time `json:"createdAt"`
	ViewCount   int64     `json:"viewCount"`
	OwnerID     string    `json:"ownerId"`
}

func contentResponse(content *model.Content) ContentResponse {
	return ContentResponse{
		ID:          content.ID,
		Title:       content.Title,
		Description: content.Description,
		ImageURL:    content.ImageURL,
		AccessCode:  content.AccessCode,
		CreatedAt:   content.CreatedAt,
		ViewCount:   content.ViewCount,
		OwnerID:     content.OwnerID,
	}
}

// Upload handles POST /api/upload
func (h *APIHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no file uploaded",
		})
	}

	title := c.FormValue("title")
	description := c.FormValue("description")
	ownerID := c.FormValue("userId")
	if title == "" || ownerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title and userId are required",
		})
	}

	body, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unreadable file",
		})
	}
	defer body.Close()

	ctx := userContext(c)
	content, err := h.contents.Upload(ctx, service.UploadInput{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Body:        body,
	})
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			return h.quotaExceeded(c, ctx, ownerID)
		}
		h.logger.Error("failed to upload content", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to upload content",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data":       contentResponse(content),
		"accessCode": content.AccessCode,
	})
}

func (h *APIHandler) quotaExceeded(c *fiber.Ctx, ctx context.Context, ownerID string) error {
	used, limit := 0, 0
	if quota, err := h.quota.Ensure(ctx, ownerID); err == nil {
		used, limit = quota.Used, quota.Limit
	}
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "upload limit reached",
		"message": fmt.Sprintf(
			"You have reached your upload limit (%d/%d). Please contact %s to increase your limit.",
			used, limit, h.supportContact),
		"used":  used,
		"limit": limit,
	})
}

// ResolveContent handles GET /api/content/:code. Resolution is fail-closed;
// recording the view is fail-open and never blocks the response.
func (h *APIHandler) ResolveContent(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	content, err := h.access.Resolve(userContext(c), code)
	if err != nil {
		if errors.Is(err, repository.ErrContentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "invalid access code",
			})
		}
		h.logger.Error("failed to resolve access code", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load content",
		})
	}

	if h.viewPublisher != nil {
		go h.publishViewEvent(content, c.IP(), c.Get("User-Agent"))
	}

	return c.JSON(contentResponse(content))
}

// RecordViewRequest represents the request body for an explicit view record.
type RecordViewRequest struct {
	ContentID string `json:"contentId"`
	OwnerID   string `json:"ownerId"`
}

// RecordView handles POST /api/views. The caller gets 202 regardless of
// downstream delivery.
func (h *APIHandler) RecordView(c *fiber.Ctx) error {
	var req RecordViewRequest
	if err := c.BodyParser(&req); err != nil || req.ContentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "contentId is required",
		})
	}

	if h.viewPublisher != nil {
		ip := c.IP()
		agent := c.Get("User-Agent")
		go func() {
			if err := h.viewPublisher.Publish(req.ContentID, req.OwnerID, ip, agent); err != nil {
				h.logger.Error("failed to publish view event", zap.Error(err),
					zap.String("content_id", req.ContentID))
			}
		}()
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// ContentQR handles GET /api/content/:code/qr with a PNG QR code pointing at
// the viewing page.
func (h *APIHandler) ContentQR(c *fiber.Ctx) error {
	code := service.NormalizeCode(c.Params("code"))
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	if _, err := h.access.Resolve(userContext(c), code); err != nil {
		if errors.Is(err, repository.ErrContentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "invalid access code",
			})
		}
		h.logger.Error("failed to resolve access code for qr", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load content",
		})
	}

	url := fmt.Sprintf("%s/view/%s", h.baseURL, code)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("failed to encode qr code", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate qr code",
		})
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// ListOwnerContents handles GET /api/users/:userId/contents
func (h *APIHandler) ListOwnerContents(c *fiber.Ctx) error {
	ownerID := c.Params("userId")
	if ownerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}

	limit := 20
	offset := 0
	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	contents, err := h.contents.ListByOwner(userContext(c), ownerID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list contents", zap.Error(err), zap.String("owner_id", ownerID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list contents",
		})
	}

	response := make([]ContentResponse, len(contents))
	for i := range contents {
		response[i] = contentResponse(&contents[i])
	}

	return c.JSON(fiber.Map{
		"contents": response,
		"limit":    limit,
		"offset":   offset,
		"count":    len(response),
	})
}

// DeleteContent handles DELETE /api/contents/:id
func (h *APIHandler) DeleteContent(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id is required",
		})
	}

	if err := h.contents.Delete(userContext(c), id); err != nil {
		if errors.Is(err, repository.ErrContentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "content not found",
			})
		}
		h.logger.Error("failed to delete content", zap.Error(err), zap.String("id", id))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete content",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// UserLimitResponse represents an owner's upload quota.
type UserLimitResponse struct {
	OwnerID string `json:"userId"`
	Limit   int    `json:"uploadLimit"`
	Used    int    `json:"currentUploads"`
}

// GetUserLimit handles GET /api/user-limits/:userId, lazily creating the
// default quota on first reference.
func (h *APIHandler) GetUserLimit(c *fiber.Ctx) error {
	ownerID := c.Params("userId")
	if ownerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}

	quota, err := h.quota.Ensure(userContext(c), ownerID)
	if err != nil {
		h.logger.Error("failed to load user limit", zap.Error(err), zap.String("owner_id", ownerID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load upload limit",
		})
	}

	return c.JSON(UserLimitResponse{
		OwnerID: quota.OwnerID,
		Limit:   quota.Limit,
		Used:    quota.Used,
	})
}

// UpdateUserLimitRequest represents the administrative limit override body.
type UpdateUserLimitRequest struct {
	Limit int `json:"uploadLimit"`
}

// UpdateUserLimit handles PATCH /api/user-limits/:userId
func (h *APIHandler) UpdateUserLimit(c *fiber.Ctx) error {
	ownerID := c.Params("userId")
	if ownerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}

	var req UpdateUserLimitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	quota, err := h.quota.SetLimit(userContext(c), ownerID, req.Limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLimit) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "uploadLimit must be at least 1",
			})
		}
		h.logger.Error("failed to update user limit", zap.Error(err), zap.String("owner_id", ownerID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update upload limit",
		})
	}

	return c.JSON(UserLimitResponse{
		OwnerID: quota.OwnerID,
		Limit:   quota.Limit,
		Used:    quota.Used,
	})
}

func (h *APIHandler) publishViewEvent(content *model.Content, ip, agent string) {
	if err := h.viewPublisher.Publish(content.ID, content.OwnerID, ip, agent); err != nil {
		h.logger.Error("failed to publish view event", zap.Error(err),
			zap.String("content_id", content.ID))
	}
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
