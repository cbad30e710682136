package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/hackerloum/secureview/internal/app/model"
	"github.com/hackerloum/secureview/internal/app/repository"
	"github.com/hackerloum/secureview/internal/infra/metrics"
	infraS3 "github.com/hackerloum/secureview/internal/infra/s3"
	"go.uber.org/zap"
)

// ContentService owns the content lifecycle: quota-gated upload with grant
// issuance, owner listing, and delete with cascading audit cleanup.
type ContentService interface {
	Upload(ctx context.Context, input UploadInput) (*model.Content, error)
	GetByID(ctx context.Context, id string) (*model.Content, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Content, error)
	Delete(ctx context.Context, id string) error
}

// UploadInput captures data required to publish a protected asset.
type UploadInput struct {
	OwnerID     string
	Title       string
	Description string
	Filename    string
	ContentType string
	Body        io.Reader
}

type contentService struct {
	logger   *zap.Logger
	contents repository.ContentRepository
	views    repository.ViewEventRepository
	quota    QuotaService
	access   AccessService
	media    infraS3.MediaStore
}

// NewContentService wires the content lifecycle service.
func NewContentService(
	logger *zap.Logger,
	contents repository.ContentRepository,
	views repository.ViewEventRepository,
	quota QuotaService,
	access AccessService,
	media infraS3.MediaStore,
) ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &contentService{
		logger:   logger,
		contents: contents,
		views:    views,
		quota:    quota,
		access:   access,
		media:    media,
	}
}

func (s *contentService) Upload(ctx context.Context, input UploadInput) (*model.Content, error) {
	if err := s.quota.TryReserve(ctx, input.OwnerID); err != nil {
		if err == ErrQuotaExceeded {
			metrics.Uploads.WithLabelValues("quota_exceeded").Inc()
		} else {
			metrics.Uploads.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	id := uuid.New().String()
	key := fmt.Sprintf("secureview/%s%s", id, path.Ext(input.Filename))
	mediaURL, err := s.media.Upload(ctx, key, input.ContentType, input.Body)
	if err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("upload media: %w", err)
	}

	code, err := s.access.Issue()
	if err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		return nil, err
	}

	content := &model.Content{
		ID:          id,
		Title:       input.Title,
		Description: input.Description,
		ImageURL:    mediaURL,
		AccessCode:  code,
		OwnerID:     input.OwnerID,
		CreatedAt:   time.Now(),
	}
	if err := s.contents.Create(ctx, content); err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create content: %w", err)
	}

	// Commit only after everything else succeeded. A failure here leaves the
	// counter low, never high; it is logged and the upload still stands.
	if err := s.quota.Commit(ctx, input.OwnerID); err != nil {
		s.logger.Warn("quota commit failed after upload",
			zap.String("owner_id", input.OwnerID),
			zap.Error(err))
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	return content, nil
}

func (s *contentService) GetByID(ctx context.Context, id string) (*model.Content, error) {
	return s.contents.GetByID(ctx, id)
}

func (s *contentService) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Content, error) {
	return s.contents.ListByOwner(ctx, ownerID, limit, offset)
}

// Delete removes the content row, its audit trail, and any cached resolution.
// The grant dies with the content; there is no standalone revoke.
func (s *contentService) Delete(ctx context.Context, id string) error {
	content, err := s.contents.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.contents.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	if err := s.views.DeleteForContent(ctx, id); err != nil {
		s.logger.Warn("failed to delete view audit rows",
			zap.String("content_id", id),
			zap.Error(err))
	}
	s.access.Forget(ctx, content.AccessCode)
	return nil
}
