package repository

import (
	"context"
	"time"

	"github.com/hackerloum/secureview/internal/app/model"
	"gorm.io/gorm"
)

// ContentViewCount pairs a content id with its audited view total.
type ContentViewCount struct {
	ContentID string
	Total     int64
}

// ViewEventRepository defines the data access contract for the view audit log.
type ViewEventRepository interface {
	Create(ctx context.Context, event *model.ViewEvent) error
	CountForContent(ctx context.Context, contentID string) (int64, error)
	CountForOwner(ctx context.Context, ownerID string, since time.Time) (int64, error)
	CountsByContent(ctx context.Context) ([]ContentViewCount, error)
	DeleteForContent(ctx context.Context, contentID string) error
}

type viewEventRepository struct {
	db *gorm.DB
}

// NewViewEventRepository returns a GORM-backed ViewEventRepository.
func NewViewEventRepository(db *gorm.DB) ViewEventRepository {
	return &viewEventRepository{db: db}
}

func (r *viewEventRepository) Create(ctx context.Context, event *model.ViewEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *viewEventRepository) CountForContent(ctx context.Context, contentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ViewEvent{}).
		Where("content_id = ?", contentID).
		Count(&count).Error
	return count, err
}

func (r *viewEventRepository) CountForOwner(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.ViewEvent{}).
		Where("owner_id = ?", ownerID)
	if !since.IsZero() {
		query = query.Where("timestamp >= ?", since)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// CountsByContent aggregates the audit log per content id. Used by the
// reconciler to repair drifted view counters.
func (r *viewEventRepository) CountsByContent(ctx context.Context) ([]ContentViewCount, error) {
	var result []ContentViewCount
	err := r.db.WithContext(ctx).
		Model(&model.ViewEvent{}).
		Select("content_id, COUNT(*) AS total").
		Group("content_id").
		Scan(&result).Error
	return result, err
}

func (r *viewEventRepository) DeleteForContent(ctx context.Context, contentID string) error {
	return r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Delete(&model.ViewEvent{}).Error
}
