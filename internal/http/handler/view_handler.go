package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hackerloum/secureview/internal/app/repository"
	"github.com/hackerloum/secureview/internal/app/service"
	httpUtil "github.com/hackerloum/secureview/internal/http/util"
	"github.com/hackerloum/secureview/internal/http/view"
	"github.com/hackerloum/secureview/internal/session"
	"github.com/hackerloum/secureview/internal/session/watermark"
	"go.uber.org/zap"
)

// ViewDeps groups dependencies required by the protected viewing handlers.
type ViewDeps struct {
	Logger               *zap.Logger
	Access               service.AccessService
	ViewPublisher        *service.ViewPublisher
	Secret               []byte
	TokenTTL             time.Duration
	SessionSeconds       int
	MaxViews             int
	ToastDurationMs      int
	ScreenshotCooldownMs int
	ScreenshotDebounceMs int
	IdleTimeoutMs        int
	SupportContact       string
}

// ViewHandler implements the protected viewing page and the tokenized media
// fetch behind it.
type ViewHandler struct {
	logger               *zap.Logger
	access               service.AccessService
	viewPublisher        *service.ViewPublisher
	tokens               *httpUtil.TokenSigner
	sessionSeconds       int
	maxViews             int
	toastDurationMs      int
	screenshotCooldownMs int
	screenshotDebounceMs int
	idleTimeoutMs        int
	supportContact       string
}

// NewViewHandler creates a view handler with the provided dependencies.
func NewViewHandler(deps ViewDeps) *ViewHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ViewHandler{
		logger:               logger,
		access:               deps.Access,
		viewPublisher:        deps.ViewPublisher,
		tokens:               httpUtil.NewTokenSigner(deps.Secret, ttl),
		sessionSeconds:       deps.SessionSeconds,
		maxViews:             deps.MaxViews,
		toastDurationMs:      deps.ToastDurationMs,
		screenshotCooldownMs: deps.ScreenshotCooldownMs,
		screenshotDebounceMs: deps.ScreenshotDebounceMs,
		idleTimeoutMs:        deps.IdleTimeoutMs,
		supportContact:       deps.SupportContact,
	}
}

// Register wires viewing routes onto the provided router.
func (h *ViewHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/view/:code", h.ViewPage)
	router.Get("/view/:code/media/:token", h.Media)
}

// Health is a simple root endpoint so we know the service is running.
func (h *ViewHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "SecureView",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ViewPage handles GET /view/:code. A fresh session identity and watermark
// layout are minted per request; the layout never changes for the lifetime of
// the page.
func (h *ViewHandler) ViewPage(c *fiber.Ctx) error {
	code := service.NormalizeCode(c.Params("code"))
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
		h.logger.Error("failed to resolve access code", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load content",
		})
	}

	sessionID := session.NewID()
	layout := watermark.Generate(watermark.Seed{
		SessionID:   sessionID,
		AccessCode:  code,
		Fingerprint: clientFingerprint(c),
	}, watermark.Viewport{
		Width:  c.QueryInt("w"),
		Height: c.QueryInt("h"),
	})

	layoutJS, err := view.LayoutJS(layout)
	if err != nil {
		h.logger.Error("failed to encode watermark layout", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to render page",
		})
	}

	token, err := h.tokens.Issue(code)
	if err != nil {
		h.logger.Error("failed to issue media token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to prepare page",
		})
	}

	if h.viewPublisher != nil {
		go h.publishViewEvent(content.ID, content.OwnerID, c.IP(), c.Get("User-Agent"))
	}

	html, err := view.RenderViewPage(view.ViewPageData{
		Title:                content.Title,
		AccessCode:           code,
		SessionID:            sessionID,
		MediaURL:             fmt.Sprintf("/view/%s/media/%s", code, token),
		SessionSeconds:       h.sessionSeconds,
		RemainingViews:       h.maxViews,
		ToastDurationMs:      h.toastDurationMs,
		ScreenshotCooldownMs: h.screenshotCooldownMs,
		ScreenshotDebounceMs: h.screenshotDebounceMs,
		IdleTimeoutMs:        h.idleTimeoutMs,
		LayoutJSON:           layoutJS,
		SupportContact:       h.supportContact,
	})
	if err != nil {
		h.logger.Error("failed to render viewing page", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to render page",
		})
	}

	return c.
		Type("html", "utf-8").
		SendString(html)
}

// Media handles GET /view/:code/media/:token, validating the short-lived token
// before handing out the backing object.
func (h *ViewHandler) Media(c *fiber.Ctx) error {
	code := service.NormalizeCode(c.Params("code"))
	token := c.Params("token")
	if code == "" || token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing code or token",
		})
	}

	if err := h.tokens.Validate(code, token); err != nil {
		if errors.Is(err, httpUtil.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.logger.Error("failed to validate media token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to validate token",
		})
	}

	content, err := h.access.Resolve(userContext(c), code)
	if err != nil {
		if errors.Is(err, repository.ErrContentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "invalid access code",
			})
		}
		h.logger.Error("failed to resolve access code", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load content",
		})
	}

	return c.Redirect(content.ImageURL, fiber.StatusFound)
}

func (h *ViewHandler) publishViewEvent(contentID, ownerID, ip, agent string) {
	if err := h.viewPublisher.Publish(contentID, ownerID, ip, agent); err != nil {
		h.logger.Error("failed to publish view event", zap.Error(err),
			zap.String("content_id", contentID))
	}
}

// clientFingerprint is a coarse viewer identity used only to seed watermark
// jitter, never for authentication.
func clientFingerprint(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + "|" + c.Get("User-Agent")))
	return hex.EncodeToString(sum[:8])
}
